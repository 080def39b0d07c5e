package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tubetone/tubetone-api/internal/domain"
	"github.com/tubetone/tubetone-api/internal/store"
)

// MockTaskStore implements store.TaskStore in memory for testing. Hook
// functions can be swapped to inject failures per call.
type MockTaskStore struct {
	mutex sync.RWMutex
	tasks map[uuid.UUID]*domain.Task

	CreateFn func(ctx context.Context, t *domain.Task) error
	UpdateFn func(ctx context.Context, t *domain.Task) error
}

// NewMockTaskStore creates a MockTaskStore with default passthrough hooks.
func NewMockTaskStore() *MockTaskStore {
	s := &MockTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
	s.CreateFn = s.defaultCreate
	s.UpdateFn = s.defaultUpdate
	return s
}

func (s *MockTaskStore) defaultCreate(ctx context.Context, t *domain.Task) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *MockTaskStore) defaultUpdate(ctx context.Context, t *domain.Task) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.tasks[t.ID]; !ok {
		return store.ErrTaskNotFound
	}
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

// Create persists the task in the in-memory map.
func (s *MockTaskStore) Create(ctx context.Context, t *domain.Task) error {
	return s.CreateFn(ctx, t)
}

// GetByID returns a copy of the stored task.
func (s *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	t, ok := s.tasks[id]
	if !ok || t.IsExpired(time.Now().UTC()) {
		return nil, store.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

// Update overwrites the stored task.
func (s *MockTaskStore) Update(ctx context.Context, t *domain.Task) error {
	return s.UpdateFn(ctx, t)
}

// Delete removes the stored task. Deleting an absent task is not an error.
func (s *MockTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.tasks, id)
	return nil
}

// Exists reports whether a live task is stored under the ID.
func (s *MockTaskStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	t, ok := s.tasks[id]
	return ok && !t.IsExpired(time.Now().UTC()), nil
}

// ListByStatus returns copies of stored tasks in the given status.
func (s *MockTaskStore) ListByStatus(ctx context.Context, status domain.TaskStatus, olderThan time.Duration) ([]*domain.Task, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	now := time.Now().UTC()
	var out []*domain.Task
	for _, t := range s.tasks {
		if t.Status != status || t.IsExpired(now) {
			continue
		}
		if olderThan > 0 && now.Sub(t.UpdatedAt) < olderThan {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

// DeleteExpired removes tasks past their expiry.
func (s *MockTaskStore) DeleteExpired(ctx context.Context) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	now := time.Now().UTC()
	var deleted int64
	for id, t := range s.tasks {
		if t.IsExpired(now) {
			delete(s.tasks, id)
			deleted++
		}
	}
	return deleted, nil
}
