package simulator

import (
	"context"
	"sync"
	"time"
)

// Key identifies a unit of delayed work. Job-wide work leaves ItemID empty.
type Key struct {
	JobID  string
	ItemID string
}

func JobKey(jobID string) Key { return Key{JobID: jobID} }

func ItemKey(jobID, itemID string) Key { return Key{JobID: jobID, ItemID: itemID} }

type task struct {
	id     uint64
	timer  *time.Timer
	cancel context.CancelFunc
}

// Scheduler runs delayed callbacks, at most one pending per key. Scheduling a
// key that already has a pending task supersedes it: the earlier callback is
// cancelled and never runs.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[Key]*task
	seq     uint64
	stopped bool
	wg      sync.WaitGroup

	base     context.Context
	stopBase context.CancelFunc
}

func NewScheduler() *Scheduler {
	base, stop := context.WithCancel(context.Background())
	return &Scheduler{
		tasks:    make(map[Key]*task),
		base:     base,
		stopBase: stop,
	}
}

// Schedule arranges for fn to run after delay. The context passed to fn is
// cancelled if the task is superseded, cancelled or the scheduler stops.
func (s *Scheduler) Schedule(key Key, delay time.Duration, fn func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrSchedulerStopped
	}

	if prev, ok := s.tasks[key]; ok {
		s.cancelLocked(prev)
	}

	s.seq++
	id := s.seq
	ctx, cancel := context.WithCancel(s.base)
	t := &task{id: id, cancel: cancel}
	s.wg.Add(1)
	t.timer = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		defer cancel()

		s.mu.Lock()
		cur, ok := s.tasks[key]
		if !ok || cur.id != id {
			s.mu.Unlock()
			return
		}
		delete(s.tasks, key)
		s.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	})
	s.tasks[key] = t
	return nil
}

// Cancel drops the pending task for key. It reports whether one existed.
func (s *Scheduler) Cancel(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[key]
	if !ok {
		return false
	}
	delete(s.tasks, key)
	s.cancelLocked(t)
	return true
}

// Pending reports whether a task for key is waiting to fire.
func (s *Scheduler) Pending(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	return ok
}

// Len returns the number of tasks waiting to fire.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancels every task, refuses new ones and waits for callbacks already
// running to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.stopBase()
	for key, t := range s.tasks {
		delete(s.tasks, key)
		s.cancelLocked(t)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) cancelLocked(t *task) {
	t.cancel()
	if t.timer.Stop() {
		// The callback will never run, so release its slot here.
		s.wg.Done()
	}
}
