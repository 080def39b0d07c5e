package task_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tubetone/tubetone-api/internal/backend"
	"github.com/tubetone/tubetone-api/internal/store"
)

// memCacheStore is an in-memory store.CacheStore for wiring a real cache
// layer into task tests.
type memCacheStore struct {
	mu      sync.Mutex
	entries map[string]*store.CacheEntry
}

func newMemCacheStore() *memCacheStore {
	return &memCacheStore{entries: make(map[string]*store.CacheEntry)}
}

func (m *memCacheStore) Get(ctx context.Context, urlHash string) (*store.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[urlHash]
	if !ok {
		return nil, store.ErrCacheMiss
	}
	cp := *entry
	return &cp, nil
}

func (m *memCacheStore) Put(ctx context.Context, entry *store.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.entries[entry.URLHash] = &cp
	return nil
}

func (m *memCacheStore) Delete(ctx context.Context, urlHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[urlHash]; !ok {
		return store.ErrCacheMiss
	}
	delete(m.entries, urlHash)
	return nil
}

func (m *memCacheStore) DeleteExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	var deleted int64
	for hash, entry := range m.entries {
		if !entry.ExpiresAt.After(now) {
			delete(m.entries, hash)
			deleted++
		}
	}
	return deleted, nil
}

// fakeConverter returns the scripted outcomes in order and counts calls.
type fakeConverter struct {
	mu       sync.Mutex
	outcomes []error
	result   *backend.Result
	calls    int
}

func (f *fakeConverter) Convert(ctx context.Context, videoID string, attempt int, progress backend.ProgressFunc) (*backend.Result, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.mu.Unlock()

	if idx < len(f.outcomes) && f.outcomes[idx] != nil {
		return nil, f.outcomes[idx]
	}
	if progress != nil {
		progress(backend.ProgressBackendStarted)
		progress(backend.ProgressDownloadStarted)
		progress(backend.ProgressArtifactRetrieved)
	}
	if f.result != nil {
		return f.result, nil
	}
	return &backend.Result{Audio: []byte("mp3-bytes"), Title: "Test Song"}, nil
}

func (f *fakeConverter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// slowConverter blocks until its context is cancelled.
type slowConverter struct{}

func (slowConverter) Convert(ctx context.Context, videoID string, attempt int, progress backend.ProgressFunc) (*backend.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// staticTask is a minimal Task for runner plumbing tests.
type staticTask struct {
	id      uuid.UUID
	execute func(ctx context.Context) error
}

func (s *staticTask) ID() uuid.UUID { return s.id }

func (s *staticTask) Type() string { return "static" }

func (s *staticTask) Execute(ctx context.Context) error { return s.execute(ctx) }
