// Package task owns the shared task table. All mutation goes through
// atomic updates; readers only ever receive snapshots, never a task that
// is half-written.
package task

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"factsheetgen/internal/domain"
)

var (
	ErrNotFound  = errors.New("task not found")
	ErrFinalized = errors.New("task is in a terminal state and cannot be modified")
)

type entry struct {
	task            domain.Task
	cancelRequested bool
}

// Store is the in-memory task table.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*entry
}

// NewStore builds an empty task table.
func NewStore() *Store {
	return &Store{tasks: make(map[string]*entry)}
}

// Create allocates a queued task and returns its snapshot.
func (s *Store) Create() domain.Task {
	now := time.Now()
	t := domain.Task{
		ID:        uuid.NewString(),
		State:     domain.TaskQueued,
		Progress:  0,
		Message:   "task queued for processing",
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.tasks[t.ID] = &entry{task: t}
	s.mu.Unlock()
	return t
}

// Get returns a snapshot of the task.
func (s *Store) Get(id string) (domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, ErrNotFound
	}
	return e.task, nil
}

// Update applies fn to the task under the write lock. Updates against a
// terminal task are refused, which is how late results of timed-out tasks
// get discarded. Progress is monotonic: an update can never lower it.
func (s *Store) Update(id string, fn func(t *domain.Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if e.task.State.Terminal() {
		return ErrFinalized
	}
	prevProgress := e.task.Progress
	fn(&e.task)
	if e.task.Progress < prevProgress {
		e.task.Progress = prevProgress
	}
	e.task.UpdatedAt = time.Now()
	return nil
}

// RequestCancel marks the task for cooperative cancellation. The request
// is a no-op for terminal tasks.
func (s *Store) RequestCancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if e.task.State.Terminal() {
		return nil
	}
	e.cancelRequested = true
	return nil
}

// CancelRequested reports whether cancellation was requested. Unknown ids
// read as false.
func (s *Store) CancelRequested(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tasks[id]
	return ok && e.cancelRequested
}

// ActiveCount counts tasks that have not reached a terminal state.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.tasks {
		if !e.task.State.Terminal() {
			n++
		}
	}
	return n
}
