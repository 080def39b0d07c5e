package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tubetone/tubetone-api/internal/domain"
)

// TaskStore defines the interface for persisting task records.
//
// Records carry a fixed time-to-live set at creation; implementations treat
// expired records as absent on every read. Updates are whole-record,
// last-writer-wins writes; the read-modify-write cycle is owned by the
// task.Manager, and concurrent writers to the same task ID do not occur by
// construction.
type TaskStore interface {
	// Create persists a new task record.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its ID. Returns ErrTaskNotFound if the
	// record is absent or expired.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update overwrites the durable record for the task's ID.
	// Returns ErrTaskNotFound if the record no longer exists.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes the record. Idempotent: deleting an absent record is
	// not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// Exists reports whether a live (non-expired) record exists.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// ListByStatus retrieves live tasks in the given status. If olderThan is
	// non-zero, only tasks whose last update is older than that duration are
	// returned. Used by crash recovery and the stuck-task monitor.
	ListByStatus(ctx context.Context, status domain.TaskStatus, olderThan time.Duration) ([]*domain.Task, error)

	// DeleteExpired removes records whose TTL has elapsed, returning the
	// number deleted.
	DeleteExpired(ctx context.Context) (int64, error)
}

// CacheEntry maps a hash of a normalized source URL to the artifact most
// recently produced for that URL. Entries are strictly an optimization:
// their absence changes latency, never correctness.
type CacheEntry struct {
	URLHash     string
	ArtifactRef string
	Title       string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// CacheStore defines the interface for the result cache records.
type CacheStore interface {
	// Get retrieves the entry for a URL hash. Returns ErrCacheMiss if absent
	// or expired.
	Get(ctx context.Context, urlHash string) (*CacheEntry, error)

	// Put stores an entry, overwriting any existing one (last-write-wins).
	Put(ctx context.Context, entry *CacheEntry) error

	// Delete removes an entry. Idempotent.
	Delete(ctx context.Context, urlHash string) error

	// DeleteExpired removes entries past their validity window, returning
	// the number deleted.
	DeleteExpired(ctx context.Context) (int64, error)
}

// ArtifactStore holds produced audio payloads in process memory, keyed by an
// artifact reference (the producing task's ID). Payloads are non-durable by
// design: they vanish on restart and are only visible to the instance that
// ran the conversion. The durable task record must never assume otherwise.
type ArtifactStore interface {
	// Put stores the payload under the given reference.
	Put(ref string, data []byte)

	// Get returns the payload for the reference, or false if this process
	// does not hold it.
	Get(ref string) ([]byte, bool)

	// Delete drops the payload. Idempotent.
	Delete(ref string)

	// Sweep drops payloads stored longer than maxAge, returning the number
	// removed.
	Sweep(maxAge time.Duration) int
}
