// Package review owns the user-facing workflows: creating a job from uploaded
// files and moving items through their review states.
//
//	pending --(processing)--> accept | flag
//	pending|accept|reject --(decide)--> accept | reject
//	flag --(rerun)--> pending --(delay)--> accept
//	flag --(feedback)--> flag
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/pixelflow/internal/analysis"
	"github.com/kiranshivaraju/pixelflow/internal/catalog"
	"github.com/kiranshivaraju/pixelflow/internal/config"
	"github.com/kiranshivaraju/pixelflow/internal/store"
	"github.com/kiranshivaraju/pixelflow/internal/upload"
	"github.com/kiranshivaraju/pixelflow/pkg/models"
)

// Lifecycle schedules the simulated processing work.
type Lifecycle interface {
	ScheduleJob(jobID string) error
	ScheduleRerun(jobID, itemID string) error
	RerunPending(jobID, itemID string) bool
	CancelRerun(jobID, itemID string) bool
}

// Service implements job creation and the item review workflow.
type Service struct {
	store       store.Store
	lifecycle   Lifecycle
	uploads     config.UploadConfig
	uploadDelay time.Duration
	now         func() time.Time
	newJobID    func() string
}

// NewService creates a new Service.
func NewService(st store.Store, lc Lifecycle, uploads config.UploadConfig, uploadDelay time.Duration) *Service {
	return &Service{
		store:       st,
		lifecycle:   lc,
		uploads:     uploads,
		uploadDelay: uploadDelay,
		now:         func() time.Time { return time.Now().UTC() },
		newJobID:    newJobID,
	}
}

// CreateJob validates the submission, waits out the simulated upload, inserts
// a processing job with one pending item per file and schedules processing.
func (s *Service) CreateJob(ctx context.Context, presetID string, files []upload.File) (*models.Job, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	preset, ok := catalog.Lookup(presetID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, presetID)
	}
	if err := upload.ValidateAll(files, s.uploads); err != nil {
		return nil, err
	}

	if s.uploadDelay > 0 {
		timer := time.NewTimer(s.uploadDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var job *models.Job
	for attempt := 0; ; attempt++ {
		job = s.buildJob(preset, files)
		err := s.store.AddJob(ctx, job)
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrDuplicateKey) && attempt < 3 {
			continue
		}
		return nil, fmt.Errorf("adding job: %w", err)
	}

	if err := s.lifecycle.ScheduleJob(job.ID); err != nil {
		// Without a scheduled resolution the job would stay processing forever.
		if derr := s.store.DeleteJob(context.WithoutCancel(ctx), job.ID); derr != nil {
			slog.Error("removing unscheduled job", "error", derr, "job_id", job.ID)
		}
		return nil, err
	}

	slog.Info("job created", "job_id", job.ID, "preset", job.Preset, "items", len(job.Items))
	return job, nil
}

func (s *Service) buildJob(preset models.Preset, files []upload.File) *models.Job {
	id := s.newJobID()
	job := &models.Job{
		ID:        id,
		CreatedAt: s.now(),
		Preset:    preset.Name,
		Status:    models.JobStatusProcessing,
		Items:     make([]models.ImageItem, 0, len(files)),
	}
	for i, f := range files {
		job.Items = append(job.Items, models.ImageItem{
			ID:     fmt.Sprintf("img_%s_%d", id, i),
			URL:    upload.PlaceholderURL(id, i),
			Name:   f.Name,
			Status: models.ItemStatusPending,
		})
	}
	return job
}

// Seed inserts prepared jobs unchanged, in order, and schedules processing
// for those that are still processing.
func (s *Service) Seed(ctx context.Context, jobs []*models.Job) error {
	for _, job := range jobs {
		if err := s.store.AddJob(ctx, job); err != nil {
			return fmt.Errorf("seeding job %s: %w", job.ID, err)
		}
		if job.Status == models.JobStatusProcessing {
			if err := s.lifecycle.ScheduleJob(job.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Decide records the reviewer's accept or reject. Any item that is not
// flagged can be decided, and repeating the current decision is allowed.
// A re-run waiting on the item is cancelled.
func (s *Service) Decide(ctx context.Context, jobID, itemID string, decision models.ItemStatus) (*models.ImageItem, error) {
	if decision != models.ItemStatusAccept && decision != models.ItemStatusReject {
		return nil, ErrInvalidDecision
	}
	item, err := s.GetItem(ctx, jobID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status == models.ItemStatusFlag {
		return nil, fmt.Errorf("%w: cannot %s a flagged item", ErrInvalidTransition, decision)
	}

	s.lifecycle.CancelRerun(jobID, itemID)
	updated, err := s.store.UpdateItem(ctx, jobID, itemID, models.StatusUpdate(decision),
		store.WithExpectedStatus(item.Status))
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	return updated, nil
}

// Rerun sends a flagged item back for processing. Triggering it again while
// the item is still waiting replaces the earlier resolution.
func (s *Service) Rerun(ctx context.Context, jobID, itemID string) (*models.ImageItem, error) {
	item, err := s.GetItem(ctx, jobID, itemID)
	if err != nil {
		return nil, err
	}

	switch {
	case item.Status == models.ItemStatusFlag:
		item, err = s.store.UpdateItem(ctx, jobID, itemID, models.StatusUpdate(models.ItemStatusPending),
			store.WithExpectedStatus(models.ItemStatusFlag))
		if err != nil {
			return nil, fmt.Errorf("updating item: %w", err)
		}
	case item.Status == models.ItemStatusPending && s.lifecycle.RerunPending(jobID, itemID):
	default:
		return nil, fmt.Errorf("%w: only flagged items can be re-run", ErrInvalidTransition)
	}

	if err := s.lifecycle.ScheduleRerun(jobID, itemID); err != nil {
		s.restoreFlag(ctx, jobID, itemID)
		return nil, err
	}
	return item, nil
}

// restoreFlag puts an item whose re-run could not be scheduled back to flag,
// so it can be re-run again later.
func (s *Service) restoreFlag(ctx context.Context, jobID, itemID string) {
	_, err := s.store.UpdateItem(context.WithoutCancel(ctx), jobID, itemID,
		models.StatusUpdate(models.ItemStatusFlag), store.WithExpectedStatus(models.ItemStatusPending))
	if err != nil && !errors.Is(err, store.ErrStatusConflict) {
		slog.Error("restoring flag after failed rerun", "error", err, "job_id", jobID, "item_id", itemID)
	}
}

// Resume schedules the work a previous process left unfinished: processing
// jobs get their bulk resolution and pending items of completed jobs, which
// can only be waiting on a re-run, get a fresh re-run.
func (s *Service) Resume(ctx context.Context) error {
	jobs, err := s.store.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("listing jobs: %w", err)
	}

	var resumedJobs, resumedItems int
	for _, job := range jobs {
		if job.Status == models.JobStatusProcessing {
			if err := s.lifecycle.ScheduleJob(job.ID); err != nil {
				return err
			}
			resumedJobs++
			continue
		}
		for _, it := range job.Items {
			if it.Status != models.ItemStatusPending {
				continue
			}
			if err := s.lifecycle.ScheduleRerun(job.ID, it.ID); err != nil {
				return err
			}
			resumedItems++
		}
	}
	if resumedJobs+resumedItems > 0 {
		slog.Info("resumed unfinished work", "jobs", resumedJobs, "items", resumedItems)
	}
	return nil
}

// SubmitFeedback attaches a structured report to a flagged item. The item
// stays flagged.
func (s *Service) SubmitFeedback(ctx context.Context, jobID, itemID string, reason models.FeedbackReason, notes string) (*models.ImageItem, error) {
	if !reason.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReason, reason)
	}
	item, err := s.GetItem(ctx, jobID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != models.ItemStatusFlag {
		return nil, fmt.Errorf("%w: feedback is only taken on flagged items", ErrInvalidTransition)
	}

	flag := models.ItemStatusFlag
	updated, err := s.store.UpdateItem(ctx, jobID, itemID, models.ItemUpdate{
		Status:   &flag,
		Feedback: &models.Feedback{Reason: reason, Notes: strings.TrimSpace(notes)},
	}, store.WithExpectedStatus(models.ItemStatusFlag))
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	slog.Info("feedback submitted", "job_id", jobID, "item_id", itemID, "reason", reason)
	return updated, nil
}

// ListJobs returns every job, newest first by creation time.
func (s *Service) ListJobs(ctx context.Context) ([]*models.Job, error) {
	jobs, err := s.store.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}

func (s *Service) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return s.store.GetJob(ctx, jobID)
}

// GetItem returns one item of a job. A missing job or item is store.ErrNotFound.
func (s *Service) GetItem(ctx context.Context, jobID, itemID string) (*models.ImageItem, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	item, ok := job.Item(itemID)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

// Dashboard is the workspace overview for one user.
type Dashboard struct {
	User             models.User                `json:"user"`
	QuotaRemaining   int                        `json:"quota_remaining"`
	Summary          analysis.Summary           `json:"summary"`
	FlagReasons      []analysis.ReasonCount     `json:"flag_reasons"`
	FeedbackClusters []analysis.FeedbackCluster `json:"feedback_clusters"`
}

func (s *Service) Dashboard(ctx context.Context, user models.User) (*Dashboard, error) {
	jobs, err := s.store.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return &Dashboard{
		User:             user,
		QuotaRemaining:   user.QuotaRemaining(),
		Summary:          analysis.Summarize(jobs),
		FlagReasons:      analysis.ReasonBreakdown(jobs),
		FeedbackClusters: analysis.ClusterFeedback(jobs),
	}, nil
}

func newJobID() string {
	return "job_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
