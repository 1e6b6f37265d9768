package store

import (
	"context"
	"errors"

	"github.com/kiranshivaraju/pixelflow/pkg/models"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrDuplicateKey   = errors.New("duplicate key violation")
	ErrStatusConflict = errors.New("item status changed")
)

// ClassifyFunc decides the terminal status of a pending item.
type ClassifyFunc func(item models.ImageItem) models.ItemStatus

// Store owns every Job and ImageItem record. No other component mutates them.
// Implementations must be safe for concurrent use and return copies, never
// references to internal state.
type Store interface {
	Ping(ctx context.Context) error

	// AddJob inserts a fully formed job at the front of the collection.
	AddJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	// ListJobs returns jobs most recently inserted first.
	ListJobs(ctx context.Context) ([]*models.Job, error)
	// DeleteJob removes a job and its items. A missing job yields ErrNotFound.
	DeleteJob(ctx context.Context, id string) error

	// UpdateItem merges upd onto a single item. Job-level fields are never
	// touched. A missing job or item yields ErrNotFound and no change.
	UpdateItem(ctx context.Context, jobID, itemID string, upd models.ItemUpdate, opts ...ItemUpdateOption) (*models.ImageItem, error)

	// ResolvePending atomically classifies every pending item of the job and
	// marks the job completed.
	ResolvePending(ctx context.Context, jobID string, classify ClassifyFunc) (*models.Job, error)
}

type itemUpdateParams struct {
	ExpectStatus *models.ItemStatus
}

type ItemUpdateOption func(*itemUpdateParams)

// WithExpectedStatus makes the update conditional: if the item's current
// status differs, ErrStatusConflict is returned and nothing changes.
func WithExpectedStatus(s models.ItemStatus) ItemUpdateOption {
	return func(p *itemUpdateParams) {
		p.ExpectStatus = &s
	}
}

func applyOptions(opts []ItemUpdateOption) *itemUpdateParams {
	p := &itemUpdateParams{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
