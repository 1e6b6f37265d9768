package handler

import (
	"context"

	"github.com/kiranshivaraju/pixelflow/internal/export"
	"github.com/kiranshivaraju/pixelflow/internal/review"
	"github.com/kiranshivaraju/pixelflow/internal/session"
	"github.com/kiranshivaraju/pixelflow/internal/upload"
	"github.com/kiranshivaraju/pixelflow/pkg/models"
)

// Sessions defines the session operations the auth handlers depend on.
type Sessions interface {
	Login(ctx context.Context, creds session.Credentials) (*session.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// Jobs defines the review operations the job and item handlers depend on.
type Jobs interface {
	CreateJob(ctx context.Context, presetID string, files []upload.File) (*models.Job, error)
	ListJobs(ctx context.Context) ([]*models.Job, error)
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	GetItem(ctx context.Context, jobID, itemID string) (*models.ImageItem, error)
	Decide(ctx context.Context, jobID, itemID string, decision models.ItemStatus) (*models.ImageItem, error)
	Rerun(ctx context.Context, jobID, itemID string) (*models.ImageItem, error)
	SubmitFeedback(ctx context.Context, jobID, itemID string, reason models.FeedbackReason, notes string) (*models.ImageItem, error)
	Dashboard(ctx context.Context, user models.User) (*review.Dashboard, error)
}

// Exports defines the export operations the export handlers depend on.
type Exports interface {
	State(ctx context.Context, jobID string) (models.ExportState, error)
	Request(ctx context.Context, jobID string) (models.ExportState, error)
	Download(ctx context.Context, jobID string) (*export.Bundle, error)
}
