package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tubetone/tubetone-api/internal/platform/logger"
	"github.com/tubetone/tubetone-api/internal/store"
)

// CacheStore implements the store.CacheStore interface using PostgreSQL.
type CacheStore struct {
	db store.DBTX
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(db store.DBTX) *CacheStore {
	return &CacheStore{db: db}
}

// Get retrieves the entry for a URL hash, treating expired entries as absent.
func (s *CacheStore) Get(ctx context.Context, urlHash string) (*store.CacheEntry, error) {
	query := `
		SELECT url_hash, artifact_ref, title, created_at, expires_at
		FROM cache_entries
		WHERE url_hash = $1 AND expires_at > now()
	`

	var (
		entry store.CacheEntry
		title sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, urlHash).Scan(
		&entry.URLHash,
		&entry.ArtifactRef,
		&title,
		&entry.CreatedAt,
		&entry.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCacheMiss
		}
		return nil, fmt.Errorf("%w: getting cache entry: %w", store.ErrStoreUnavailable, err)
	}

	entry.Title = title.String
	return &entry, nil
}

// Put stores an entry, overwriting any existing one for the same hash.
func (s *CacheStore) Put(ctx context.Context, entry *store.CacheEntry) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO cache_entries (url_hash, artifact_ref, title, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (url_hash) DO UPDATE
		SET artifact_ref = EXCLUDED.artifact_ref,
			title = EXCLUDED.title,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.URLHash,
		entry.ArtifactRef,
		nullIfEmpty(entry.Title),
		entry.CreatedAt,
		entry.ExpiresAt,
	)
	if err != nil {
		log.Error("failed to store cache entry",
			"url_hash", entry.URLHash,
			"error", err)
		return fmt.Errorf("%w: storing cache entry: %w", store.ErrStoreUnavailable, err)
	}

	return nil
}

// Delete removes an entry. Deleting an absent entry is not an error.
func (s *CacheStore) Delete(ctx context.Context, urlHash string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE url_hash = $1`, urlHash)
	if err != nil {
		return fmt.Errorf("%w: deleting cache entry: %w", store.ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteExpired removes entries past their validity window.
func (s *CacheStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting expired cache entries: %w", store.ErrStoreUnavailable, err)
	}
	return result.RowsAffected()
}
