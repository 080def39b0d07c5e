// Package cache maps source URLs to previously produced artifacts so that
// repeat conversions of the same video finish instantly. Entries are keyed
// by a hash of the normalized source URL and carry their own expiry,
// independent of the task records that produced them.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tubetone/tubetone-api/internal/domain"
	"github.com/tubetone/tubetone-api/internal/store"
)

// Hit is a successful cache lookup: everything needed to finish a
// conversion without invoking a backend.
type Hit struct {
	// ArtifactRef locates the cached audio bytes in the artifact store.
	ArtifactRef string

	// Title is the display title captured when the artifact was produced.
	Title string
}

// Cache wraps a durable CacheStore with key derivation and expiry handling.
type Cache struct {
	entries store.CacheStore
	ttl     time.Duration
	logger  *slog.Logger
}

// New creates a Cache. Entries stored through it live for ttl.
func New(entries store.CacheStore, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		entries: entries,
		ttl:     ttl,
		logger:  logger.With("component", "cache"),
	}
}

// Key derives the cache key for a source URL. Recognized YouTube URLs are
// canonicalized first, so every URL form of the same video shares one entry.
func Key(sourceURL string) string {
	if canonical, err := domain.CanonicalURL(sourceURL); err == nil {
		sourceURL = canonical
	}
	sum := md5.Sum([]byte(sourceURL))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the cached artifact for a source URL, or (nil, nil) on a
// miss. An entry that has outlived its TTL counts as a miss and is removed
// on the way out.
func (c *Cache) Lookup(ctx context.Context, sourceURL string) (*Hit, error) {
	key := Key(sourceURL)

	entry, err := c.entries.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache lookup for key %s: %w", key, err)
	}

	if !entry.ExpiresAt.After(time.Now().UTC()) {
		c.logger.Debug("evicting expired cache entry", "url_hash", key)
		if delErr := c.entries.Delete(ctx, key); delErr != nil && !errors.Is(delErr, store.ErrCacheMiss) {
			c.logger.Warn("failed to evict expired cache entry",
				"url_hash", key,
				"error", delErr)
		}
		return nil, nil
	}

	c.logger.Debug("cache hit",
		"url_hash", key,
		"artifact_ref", entry.ArtifactRef)

	return &Hit{ArtifactRef: entry.ArtifactRef, Title: entry.Title}, nil
}

// Store records a finished conversion under the source URL's key,
// replacing any previous entry for the same URL.
func (c *Cache) Store(ctx context.Context, sourceURL, artifactRef, title string) error {
	now := time.Now().UTC()
	entry := &store.CacheEntry{
		URLHash:     Key(sourceURL),
		ArtifactRef: artifactRef,
		Title:       title,
		CreatedAt:   now,
		ExpiresAt:   now.Add(c.ttl),
	}

	if err := c.entries.Put(ctx, entry); err != nil {
		return fmt.Errorf("storing cache entry for key %s: %w", entry.URLHash, err)
	}

	c.logger.Debug("cache entry stored",
		"url_hash", entry.URLHash,
		"artifact_ref", artifactRef,
		"expires_at", entry.ExpiresAt)

	return nil
}

// Invalidate removes the entry for a source URL, if present.
func (c *Cache) Invalidate(ctx context.Context, sourceURL string) error {
	key := Key(sourceURL)
	if err := c.entries.Delete(ctx, key); err != nil && !errors.Is(err, store.ErrCacheMiss) {
		return fmt.Errorf("invalidating cache entry for key %s: %w", key, err)
	}
	return nil
}

// Sweep bulk-removes expired entries and returns how many were deleted.
// Intended to be called from a periodic maintenance loop.
func (c *Cache) Sweep(ctx context.Context) (int64, error) {
	deleted, err := c.entries.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweeping expired cache entries: %w", err)
	}
	if deleted > 0 {
		c.logger.Info("swept expired cache entries", "deleted", deleted)
	}
	return deleted, nil
}
