package task

import (
	"context"

	"github.com/google/uuid"

	"github.com/tubetone/tubetone-api/internal/domain"
)

// Task type constants
const (
	// TaskTypeConversion represents the task type for converting a YouTube
	// video into an MP3 artifact
	TaskTypeConversion = "conversion"
)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// Rebuilder reconstructs an executable Task from its durable record,
// used when recovering work that survived a restart.
type Rebuilder interface {
	Rebuild(record *domain.Task) (Task, error)
}
