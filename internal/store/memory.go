package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kiranshivaraju/pixelflow/pkg/models"
)

// MemoryStore keeps jobs in process memory, newest insert first.
type MemoryStore struct {
	mu    sync.RWMutex
	jobs  []*models.Job
	index map[string]*models.Job
	now   func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index: make(map[string]*models.Job),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

func (m *MemoryStore) AddJob(_ context.Context, job *models.Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("add job: id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.index[job.ID]; exists {
		return ErrDuplicateKey
	}
	c := job.Clone()
	m.jobs = append([]*models.Job{c}, m.jobs...)
	m.index[c.ID] = c
	return nil
}

func (m *MemoryStore) GetJob(_ context.Context, id string) (*models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j.Clone(), nil
}

func (m *MemoryStore) ListJobs(_ context.Context) ([]*models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j.Clone())
	}
	return out, nil
}

func (m *MemoryStore) DeleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.index[id]; !ok {
		return ErrNotFound
	}
	delete(m.index, id)
	for i, j := range m.jobs {
		if j.ID == id {
			m.jobs = append(m.jobs[:i], m.jobs[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) UpdateItem(_ context.Context, jobID, itemID string, upd models.ItemUpdate, opts ...ItemUpdateOption) (*models.ImageItem, error) {
	params := applyOptions(opts)

	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.index[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	for i := range j.Items {
		if j.Items[i].ID != itemID {
			continue
		}
		if params.ExpectStatus != nil && j.Items[i].Status != *params.ExpectStatus {
			return nil, ErrStatusConflict
		}
		j.Items[i] = upd.Apply(j.Items[i])
		item := j.Items[i]
		if item.Feedback != nil {
			fb := *item.Feedback
			item.Feedback = &fb
		}
		return &item, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ResolvePending(_ context.Context, jobID string, classify ClassifyFunc) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.index[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	for i, it := range j.Items {
		if it.Status == models.ItemStatusPending {
			j.Items[i].Status = classify(it)
		}
	}
	j.Status = models.JobStatusCompleted
	if j.CompletedAt == nil {
		now := m.now()
		j.CompletedAt = &now
	}
	return j.Clone(), nil
}

var _ Store = (*MemoryStore)(nil)
