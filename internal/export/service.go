// Package export runs the per-job bundled download:
//
//	idle --(request)--> preparing --(delay)--> ready --(download)--> idle
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kiranshivaraju/pixelflow/internal/simulator"
	"github.com/kiranshivaraju/pixelflow/internal/store"
	"github.com/kiranshivaraju/pixelflow/pkg/models"
)

var (
	ErrAlreadyPreparing = errors.New("export already being prepared")
	ErrNotReady         = errors.New("export not ready")
)

type entry struct {
	state  models.ExportState
	bundle *Bundle
}

// Service tracks one export per job. The bundle is built when preparation
// finishes, from the job as it is at that moment.
type Service struct {
	store     store.Store
	scheduler *simulator.Scheduler
	delay     time.Duration
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// NewService creates a new Service.
func NewService(st store.Store, scheduler *simulator.Scheduler, delay time.Duration) *Service {
	return &Service{
		store:     st,
		scheduler: scheduler,
		delay:     delay,
		now:       func() time.Time { return time.Now().UTC() },
		entries:   make(map[string]*entry),
	}
}

// State returns the export state of a job. Jobs never exported are idle.
func (s *Service) State(ctx context.Context, jobID string) (models.ExportState, error) {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[jobID]; ok {
		return e.state, nil
	}
	return models.ExportIdle, nil
}

// Request starts preparing a bundle. Requesting a ready export changes nothing.
func (s *Service) Request(ctx context.Context, jobID string) (models.ExportState, error) {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[jobID]
	if !ok {
		e = &entry{state: models.ExportIdle}
		s.entries[jobID] = e
	}

	switch e.state {
	case models.ExportPreparing:
		return e.state, ErrAlreadyPreparing
	case models.ExportReady:
		return e.state, nil
	}

	if err := s.scheduler.Schedule(simulator.JobKey(jobID), s.delay, func(ctx context.Context) {
		s.prepare(ctx, jobID)
	}); err != nil {
		return "", fmt.Errorf("scheduling export: %w", err)
	}
	e.state = models.ExportPreparing
	slog.Info("export requested", "job_id", jobID)
	return e.state, nil
}

// Download hands out the ready bundle and returns the export to idle.
func (s *Service) Download(ctx context.Context, jobID string) (*Bundle, error) {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[jobID]
	if !ok || e.state != models.ExportReady {
		return nil, ErrNotReady
	}
	delete(s.entries, jobID)
	return e.bundle, nil
}

func (s *Service) prepare(ctx context.Context, jobID string) {
	bundle, err := s.build(ctx, jobID)

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[jobID]
	if !ok || e.state != models.ExportPreparing {
		return
	}
	if err != nil {
		slog.Error("preparing export", "error", err, "job_id", jobID)
		delete(s.entries, jobID)
		return
	}
	e.state = models.ExportReady
	e.bundle = bundle
	slog.Info("export ready", "job_id", jobID, "bytes", len(bundle.Data))
}

func (s *Service) build(ctx context.Context, jobID string) (*Bundle, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("loading job: %w", err)
	}
	return BuildBundle(job, s.now())
}
