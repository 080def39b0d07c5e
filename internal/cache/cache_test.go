package cache_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubetone/tubetone-api/internal/cache"
	"github.com/tubetone/tubetone-api/internal/store"
)

// fakeCacheStore is an in-memory CacheStore for exercising the cache layer
// without a database.
type fakeCacheStore struct {
	mu      sync.Mutex
	entries map[string]*store.CacheEntry
	deletes []string
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{entries: make(map[string]*store.CacheEntry)}
}

func (f *fakeCacheStore) Get(ctx context.Context, urlHash string) (*store.CacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[urlHash]
	if !ok {
		return nil, store.ErrCacheMiss
	}
	cp := *entry
	return &cp, nil
}

func (f *fakeCacheStore) Put(ctx context.Context, entry *store.CacheEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *entry
	f.entries[entry.URLHash] = &cp
	return nil
}

func (f *fakeCacheStore) Delete(ctx context.Context, urlHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[urlHash]; !ok {
		return store.ErrCacheMiss
	}
	delete(f.entries, urlHash)
	f.deletes = append(f.deletes, urlHash)
	return nil
}

func (f *fakeCacheStore) DeleteExpired(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	now := time.Now().UTC()
	for hash, entry := range f.entries {
		if !entry.ExpiresAt.After(now) {
			delete(f.entries, hash)
			deleted++
		}
	}
	return deleted, nil
}

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func TestKey_DeterministicAndDistinct(t *testing.T) {
	t.Parallel()

	assert.Equal(t, cache.Key(testURL), cache.Key(testURL))
	assert.Len(t, cache.Key(testURL), 32)
	assert.NotEqual(t, cache.Key(testURL), cache.Key("https://youtu.be/other1234ab"))
}

func TestKey_EquivalentURLFormsShareOneEntry(t *testing.T) {
	t.Parallel()

	assert.Equal(t, cache.Key(testURL), cache.Key("https://youtu.be/dQw4w9WgXcQ"))
	assert.Equal(t, cache.Key(testURL), cache.Key(testURL+"&t=42s"))
}

func TestCache_StoreThenLookup(t *testing.T) {
	t.Parallel()

	c := cache.New(newFakeCacheStore(), 24*time.Hour, slog.Default())
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, testURL, "artifact-123", "Test Song"))

	hit, err := c.Lookup(ctx, testURL)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "artifact-123", hit.ArtifactRef)
	assert.Equal(t, "Test Song", hit.Title)
}

func TestCache_LookupMiss(t *testing.T) {
	t.Parallel()

	c := cache.New(newFakeCacheStore(), 24*time.Hour, slog.Default())

	hit, err := c.Lookup(context.Background(), testURL)
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestCache_ExpiredEntryIsMissAndEvicted(t *testing.T) {
	t.Parallel()

	fake := newFakeCacheStore()
	c := cache.New(fake, 24*time.Hour, slog.Default())
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, fake.Put(ctx, &store.CacheEntry{
		URLHash:     cache.Key(testURL),
		ArtifactRef: "stale-artifact",
		Title:       "Stale",
		CreatedAt:   now.Add(-48 * time.Hour),
		ExpiresAt:   now.Add(-24 * time.Hour),
	}))

	hit, err := c.Lookup(ctx, testURL)
	require.NoError(t, err)
	assert.Nil(t, hit)
	assert.Contains(t, fake.deletes, cache.Key(testURL), "expired entry must be evicted on lookup")
}

func TestCache_StoreReplacesExistingEntry(t *testing.T) {
	t.Parallel()

	c := cache.New(newFakeCacheStore(), 24*time.Hour, slog.Default())
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, testURL, "old-ref", "Old"))
	require.NoError(t, c.Store(ctx, testURL, "new-ref", "New"))

	hit, err := c.Lookup(ctx, testURL)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "new-ref", hit.ArtifactRef)
	assert.Equal(t, "New", hit.Title)
}

func TestCache_Invalidate(t *testing.T) {
	t.Parallel()

	c := cache.New(newFakeCacheStore(), 24*time.Hour, slog.Default())
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, testURL, "ref", "Title"))
	require.NoError(t, c.Invalidate(ctx, testURL))
	require.NoError(t, c.Invalidate(ctx, testURL), "invalidating an absent entry is not an error")

	hit, err := c.Lookup(ctx, testURL)
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestCache_Sweep(t *testing.T) {
	t.Parallel()

	fake := newFakeCacheStore()
	c := cache.New(fake, 24*time.Hour, slog.Default())
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, fake.Put(ctx, &store.CacheEntry{
		URLHash:   "expired-hash",
		ExpiresAt: now.Add(-time.Hour),
	}))
	require.NoError(t, c.Store(ctx, testURL, "live-ref", "Live"))

	deleted, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	hit, err := c.Lookup(ctx, testURL)
	require.NoError(t, err)
	assert.NotNil(t, hit, "live entries survive the sweep")
}
