// Package simulator emulates asynchronous image processing. Completion is a
// delayed task per job (bulk resolution) or per item (re-run), each keyed in a
// Scheduler so later actions can supersede or cancel it.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/pixelflow/internal/config"
	"github.com/kiranshivaraju/pixelflow/internal/store"
	"github.com/kiranshivaraju/pixelflow/pkg/models"
)

// Simulator resolves pending items through a Classifier after a delay.
type Simulator struct {
	store           store.Store
	scheduler       *Scheduler
	classifier      Classifier
	rerunClassifier Classifier
	processingDelay time.Duration
	rerunDelay      time.Duration
}

type Option func(*Simulator)

// WithRerunClassifier replaces the classifier used to resolve re-runs.
// By default a re-run always resolves to accept.
func WithRerunClassifier(c Classifier) Option {
	return func(s *Simulator) {
		s.rerunClassifier = c
	}
}

// New creates a Simulator. classifier resolves bulk processing.
func New(st store.Store, scheduler *Scheduler, classifier Classifier, cfg config.SimulationConfig, opts ...Option) *Simulator {
	s := &Simulator{
		store:           st,
		scheduler:       scheduler,
		classifier:      classifier,
		rerunClassifier: FixedClassifier{Status: models.ItemStatusAccept},
		processingDelay: cfg.ProcessingDelay,
		rerunDelay:      cfg.RerunDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleJob arranges a single delayed resolution of every pending item in
// the job, after which the job is completed.
func (s *Simulator) ScheduleJob(jobID string) error {
	if err := s.scheduler.Schedule(JobKey(jobID), s.processingDelay, func(ctx context.Context) {
		s.resolveJob(ctx, jobID)
	}); err != nil {
		return fmt.Errorf("scheduling job %s: %w", jobID, err)
	}
	return nil
}

// ScheduleRerun arranges the delayed resolution of one re-run item. A re-run
// already pending for the same item is superseded.
func (s *Simulator) ScheduleRerun(jobID, itemID string) error {
	if err := s.scheduler.Schedule(ItemKey(jobID, itemID), s.rerunDelay, func(ctx context.Context) {
		s.resolveItem(ctx, jobID, itemID)
	}); err != nil {
		return fmt.Errorf("scheduling rerun %s/%s: %w", jobID, itemID, err)
	}
	return nil
}

// RerunPending reports whether a re-run resolution is waiting for the item.
func (s *Simulator) RerunPending(jobID, itemID string) bool {
	return s.scheduler.Pending(ItemKey(jobID, itemID))
}

// CancelRerun drops a pending re-run resolution, if any.
func (s *Simulator) CancelRerun(jobID, itemID string) bool {
	return s.scheduler.Cancel(ItemKey(jobID, itemID))
}

func (s *Simulator) resolveJob(ctx context.Context, jobID string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in resolveJob", "error", r, "job_id", jobID)
		}
	}()

	resolved := 0
	job, err := s.store.ResolvePending(ctx, jobID, func(item models.ImageItem) models.ItemStatus {
		resolved++
		return s.classify(ctx, s.classifier, jobID, item)
	})
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("job vanished before processing finished", "job_id", jobID)
		return
	}
	if err != nil {
		slog.Error("resolving job", "error", err, "job_id", jobID)
		return
	}

	slog.Info("job processing completed",
		"job_id", jobID,
		"resolved", resolved,
		"accepted", job.CountStatus(models.ItemStatusAccept),
		"flagged", job.FlagCount(),
	)
}

func (s *Simulator) resolveItem(ctx context.Context, jobID, itemID string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in resolveItem", "error", r, "job_id", jobID, "item_id", itemID)
		}
	}()

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		slog.Warn("rerun target not found", "error", err, "job_id", jobID, "item_id", itemID)
		return
	}
	item, ok := job.Item(itemID)
	if !ok {
		slog.Warn("rerun target not found", "job_id", jobID, "item_id", itemID)
		return
	}
	if item.Status != models.ItemStatusPending {
		return
	}

	status := s.classify(ctx, s.rerunClassifier, jobID, item)
	_, err = s.store.UpdateItem(ctx, jobID, itemID, models.StatusUpdate(status),
		store.WithExpectedStatus(models.ItemStatusPending))
	switch {
	case errors.Is(err, store.ErrStatusConflict):
		slog.Debug("rerun resolution skipped, item changed", "job_id", jobID, "item_id", itemID)
	case err != nil:
		slog.Error("resolving rerun", "error", err, "job_id", jobID, "item_id", itemID)
	default:
		slog.Info("rerun completed", "job_id", jobID, "item_id", itemID, "status", status)
	}
}

// classify runs c and maps failures and out-of-range answers to flag.
func (s *Simulator) classify(ctx context.Context, c Classifier, jobID string, item models.ImageItem) models.ItemStatus {
	status, err := c.Classify(ctx, item)
	if err != nil {
		slog.Warn("classifier failed, flagging item",
			"error", err, "classifier", c.Name(), "job_id", jobID, "item_id", item.ID)
		return models.ItemStatusFlag
	}
	if !status.Valid() || status == models.ItemStatusPending {
		slog.Warn("classifier returned unusable status, flagging item",
			"status", status, "classifier", c.Name(), "job_id", jobID, "item_id", item.ID)
		return models.ItemStatusFlag
	}
	return status
}
