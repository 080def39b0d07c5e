package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a conversion task
type TaskStatus string

// Possible task status values
const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusFinished   TaskStatus = "finished"
	TaskStatusError      TaskStatus = "error"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID        = errors.New("task ID cannot be empty")
	ErrEmptySourceURL     = errors.New("task source URL cannot be empty")
	ErrInvalidTaskStatus  = errors.New("invalid task status")
	ErrTerminalState      = errors.New("task is in a terminal state")
	ErrInvalidTransition  = errors.New("invalid task status transition")
	ErrProgressOutOfRange = errors.New("task progress must be between 0 and 100")
)

// Task represents one URL-to-audio conversion request. The durable fields
// below are what the task store persists; the produced audio bytes are
// deliberately not part of the entity because they only ever live in the
// memory of the process that ran the conversion (see store.ArtifactStore).
type Task struct {
	ID           uuid.UUID  `json:"id"`
	SourceURL    string     `json:"source_url"`
	VideoID      string     `json:"video_id"`
	Status       TaskStatus `json:"status"`
	Progress     int        `json:"progress"`
	Title        string     `json:"title,omitempty"`
	ArtifactRef  string     `json:"artifact_ref,omitempty"`
	ErrorMessage string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
}

// NewTask creates a queued Task for the given source URL. The URL must be a
// well-formed YouTube watch URL; the extracted video ID is stored alongside
// it. The record expires ttl after creation.
func NewTask(sourceURL string, ttl time.Duration) (*Task, error) {
	videoID, err := ExtractVideoID(sourceURL)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task := &Task{
		ID:        uuid.New(),
		SourceURL: sourceURL,
		VideoID:   videoID,
		Status:    TaskStatusQueued,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// NewFinishedTask creates a Task that is already in the finished state,
// referencing a previously produced artifact. Used when the result cache
// short-circuits a conversion so the client-visible protocol stays uniform.
func NewFinishedTask(sourceURL, artifactRef, title string, ttl time.Duration) (*Task, error) {
	task, err := NewTask(sourceURL, ttl)
	if err != nil {
		return nil, err
	}

	task.Status = TaskStatusFinished
	task.Progress = 100
	task.ArtifactRef = artifactRef
	task.Title = title
	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.SourceURL == "" {
		return ErrEmptySourceURL
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	if t.Progress < 0 || t.Progress > 100 {
		return ErrProgressOutOfRange
	}

	return nil
}

// IsTerminal reports whether the task has reached a state that no normal
// transition may leave.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusFinished || t.Status == TaskStatusError
}

// CanTransitionTo reports whether moving to the given status is a legal
// transition from the task's current state.
func (t *Task) CanTransitionTo(status TaskStatus) bool {
	if !isValidTaskStatus(status) {
		return false
	}

	switch t.Status {
	case TaskStatusQueued:
		// A queued task may fail directly, e.g. on a configuration error
		// detected before the backend is ever invoked.
		return status == TaskStatusProcessing || status == TaskStatusError
	case TaskStatusProcessing:
		return status == TaskStatusProcessing ||
			status == TaskStatusFinished ||
			status == TaskStatusError
	default:
		// finished and error are absorbing
		return false
	}
}

// UpdateStatus transitions the task to the given status, refusing to leave
// a terminal state or to make any other illegal transition.
func (t *Task) UpdateStatus(status TaskStatus) error {
	if !isValidTaskStatus(status) {
		return ErrInvalidTaskStatus
	}

	if t.IsTerminal() {
		return ErrTerminalState
	}

	if !t.CanTransitionTo(status) {
		return ErrInvalidTransition
	}

	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// SetProgress updates the task's progress checkpoint. Progress is advisory
// and must never be observed decreasing while the task is processing, so
// lower values are clamped to the current one rather than rejected.
func (t *Task) SetProgress(progress int) error {
	if progress < 0 || progress > 100 {
		return ErrProgressOutOfRange
	}

	if progress > t.Progress {
		t.Progress = progress
		t.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// IsExpired reports whether the record's time-to-live has elapsed.
func (t *Task) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusQueued, TaskStatusProcessing, TaskStatusFinished, TaskStatusError:
		return true
	default:
		return false
	}
}
