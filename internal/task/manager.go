package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tubetone/tubetone-api/internal/domain"
	"github.com/tubetone/tubetone-api/internal/store"
)

// View is a task record joined with its in-memory audio bytes, if any.
// Audio is nil when the task has no artifact or the bytes did not survive
// a restart; the durable record itself is the source of truth for status.
type View struct {
	domain.Task

	Audio []byte
}

// HasAudio reports whether the artifact bytes are available for delivery.
func (v *View) HasAudio() bool {
	return len(v.Audio) > 0
}

// Patch describes a partial task update. Nil fields are left unchanged.
type Patch struct {
	Status       *domain.TaskStatus
	Progress     *int
	Title        *string
	ArtifactRef  *string
	ErrorMessage *string

	// Audio, when non-nil, is stored in the artifact store under the
	// task's ID and the record's ArtifactRef is pointed at it.
	Audio []byte
}

// Manager owns the task lifecycle: it pairs the durable task records with
// the process-local artifact bytes and enforces the state machine rules on
// every mutation. All status changes flow through here.
type Manager struct {
	tasks     store.TaskStore
	artifacts store.ArtifactStore
	logger    *slog.Logger
}

// NewManager creates a Manager.
func NewManager(tasks store.TaskStore, artifacts store.ArtifactStore, logger *slog.Logger) *Manager {
	return &Manager{
		tasks:     tasks,
		artifacts: artifacts,
		logger:    logger.With("component", "task_manager"),
	}
}

// Create persists a new task record. If the task was born finished from a
// cached artifact, its ArtifactRef is expected to already resolve.
func (m *Manager) Create(ctx context.Context, t *domain.Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	if err := m.tasks.Create(ctx, t); err != nil {
		return fmt.Errorf("creating task %s: %w", t.ID, err)
	}

	m.logger.Debug("task created",
		"task_id", t.ID,
		"status", t.Status,
		"video_id", t.VideoID)

	return nil
}

// Get returns the task record joined with its artifact bytes.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*View, error) {
	record, err := m.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &View{Task: *record}
	if record.ArtifactRef != "" {
		if audio, ok := m.artifacts.Get(record.ArtifactRef); ok {
			view.Audio = audio
		}
	}
	return view, nil
}

// Exists reports whether a live task record exists for the ID.
func (m *Manager) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.tasks.Exists(ctx, id)
}

// Update applies a partial update to a task, enforcing the state machine.
// Updates against a terminal task fail with domain.ErrTerminalState; use
// Reset or ForceError for the administrative paths that bypass the guard.
func (m *Manager) Update(ctx context.Context, id uuid.UUID, patch Patch) (*domain.Task, error) {
	record, err := m.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if record.IsTerminal() {
		return nil, fmt.Errorf("task %s is %s: %w", id, record.Status, domain.ErrTerminalState)
	}

	if err := m.apply(record, patch); err != nil {
		return nil, err
	}

	if err := m.tasks.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("updating task %s: %w", id, err)
	}

	return record, nil
}

func (m *Manager) apply(record *domain.Task, patch Patch) error {
	if patch.Audio != nil {
		ref := record.ID.String()
		m.artifacts.Put(ref, patch.Audio)
		record.ArtifactRef = ref
	}
	if patch.ArtifactRef != nil {
		record.ArtifactRef = *patch.ArtifactRef
	}
	if patch.Title != nil {
		record.Title = *patch.Title
	}
	if patch.ErrorMessage != nil {
		record.ErrorMessage = *patch.ErrorMessage
	}
	if patch.Progress != nil {
		if err := record.SetProgress(*patch.Progress); err != nil {
			return err
		}
	}
	if patch.Status != nil {
		if err := record.UpdateStatus(*patch.Status); err != nil {
			return err
		}
	}
	record.UpdatedAt = time.Now().UTC()
	return nil
}

// Reset returns a task to the queued state for another conversion attempt,
// clearing its progress, error, and any artifact it produced. Terminal
// tasks may be reset; that is the point of the operation.
func (m *Manager) Reset(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	record, err := m.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if record.ArtifactRef == record.ID.String() {
		m.artifacts.Delete(record.ArtifactRef)
	}

	record.Status = domain.TaskStatusQueued
	record.Progress = 0
	record.ErrorMessage = ""
	record.ArtifactRef = ""
	record.UpdatedAt = time.Now().UTC()

	if err := m.tasks.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("resetting task %s: %w", id, err)
	}

	m.logger.Info("task reset to queued", "task_id", id)
	return record, nil
}

// ForceError moves a task to the error state regardless of its current
// status. Used for stuck-task cleanup and worker failure paths.
func (m *Manager) ForceError(ctx context.Context, id uuid.UUID, message string) (*domain.Task, error) {
	record, err := m.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	record.Status = domain.TaskStatusError
	record.ErrorMessage = message
	record.UpdatedAt = time.Now().UTC()

	if err := m.tasks.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("forcing task %s to error: %w", id, err)
	}

	m.logger.Warn("task forced to error state",
		"task_id", id,
		"message", message)
	return record, nil
}

// Delete removes a task record together with the artifact bytes it owns.
// Idempotent: deleting an absent task is not an error.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	record, err := m.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil
		}
		return err
	}

	if record.ArtifactRef != "" {
		m.artifacts.Delete(record.ArtifactRef)
	}

	if err := m.tasks.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}

	m.logger.Info("task deleted", "task_id", id)
	return nil
}

// ListByStatus returns tasks in the given status. A non-zero olderThan
// restricts the result to tasks whose last update is older than that.
func (m *Manager) ListByStatus(ctx context.Context, status domain.TaskStatus, olderThan time.Duration) ([]*domain.Task, error) {
	return m.tasks.ListByStatus(ctx, status, olderThan)
}

// SweepExpired removes task records past their expiry together with the
// artifact bytes they own.
func (m *Manager) SweepExpired(ctx context.Context) (int64, error) {
	deleted, err := m.tasks.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweeping expired tasks: %w", err)
	}
	if deleted > 0 {
		m.logger.Info("swept expired tasks", "deleted", deleted)
	}
	return deleted, nil
}
