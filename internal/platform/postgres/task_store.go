package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tubetone/tubetone-api/internal/domain"
	"github.com/tubetone/tubetone-api/internal/platform/logger"
	"github.com/tubetone/tubetone-api/internal/store"
)

// TaskStore implements the store.TaskStore interface using PostgreSQL.
type TaskStore struct {
	db store.DBTX
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(db store.DBTX) *TaskStore {
	return &TaskStore{db: db}
}

// Create persists a new task record.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks (id, source_url, video_id, status, progress, title,
			artifact_ref, error_message, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.SourceURL,
		task.VideoID,
		task.Status,
		task.Progress,
		nullIfEmpty(task.Title),
		nullIfEmpty(task.ArtifactRef),
		nullIfEmpty(task.ErrorMessage),
		task.CreatedAt,
		task.UpdatedAt,
		task.ExpiresAt,
	)
	if err != nil {
		log.Error("failed to save task",
			"task_id", task.ID,
			"error", err)
		return fmt.Errorf("%w: saving task: %w", store.ErrStoreUnavailable, err)
	}

	return nil
}

// GetByID retrieves a task by its ID, treating expired records as absent.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT id, source_url, video_id, status, progress, title,
			artifact_ref, error_message, created_at, updated_at, expires_at
		FROM tasks
		WHERE id = $1 AND expires_at > now()
	`

	row := s.db.QueryRowContext(ctx, query, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("%w: getting task: %w", store.ErrStoreUnavailable, err)
	}

	return task, nil
}

// Update overwrites the durable record for the task's ID.
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE tasks
		SET status = $1, progress = $2, title = $3, artifact_ref = $4,
			error_message = $5, updated_at = $6
		WHERE id = $7 AND expires_at > now()
	`

	result, err := s.db.ExecContext(ctx, query,
		task.Status,
		task.Progress,
		nullIfEmpty(task.Title),
		nullIfEmpty(task.ArtifactRef),
		nullIfEmpty(task.ErrorMessage),
		time.Now().UTC(),
		task.ID,
	)
	if err != nil {
		log.Error("failed to update task",
			"task_id", task.ID,
			"status", task.Status,
			"error", err)
		return fmt.Errorf("%w: updating task: %w", store.ErrStoreUnavailable, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// Delete removes the record. Deleting an absent record is not an error.
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting task: %w", store.ErrStoreUnavailable, err)
	}
	return nil
}

// Exists reports whether a live record exists for the ID.
func (s *TaskStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1 AND expires_at > now())`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: checking task existence: %w", store.ErrStoreUnavailable, err)
	}
	return exists, nil
}

// ListByStatus retrieves live tasks in the given status, optionally only
// those whose last update is older than the given duration.
func (s *TaskStore) ListByStatus(
	ctx context.Context,
	status domain.TaskStatus,
	olderThan time.Duration,
) ([]*domain.Task, error) {
	log := logger.FromContext(ctx)

	var query string
	var args []any

	if olderThan > 0 {
		query = `
			SELECT id, source_url, video_id, status, progress, title,
				artifact_ref, error_message, created_at, updated_at, expires_at
			FROM tasks
			WHERE status = $1 AND updated_at < $2 AND expires_at > now()
			ORDER BY created_at ASC
		`
		args = []any{status, time.Now().UTC().Add(-olderThan)}
	} else {
		query = `
			SELECT id, source_url, video_id, status, progress, title,
				artifact_ref, error_message, created_at, updated_at, expires_at
			FROM tasks
			WHERE status = $1 AND expires_at > now()
			ORDER BY created_at ASC
		`
		args = []any{status}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks by status",
			"status", status,
			"error", err)
		return nil, fmt.Errorf("%w: querying tasks by status: %w", store.ErrStoreUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

// DeleteExpired removes records whose TTL has elapsed.
func (s *TaskStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting expired tasks: %w", store.ErrStoreUnavailable, err)
	}
	return result.RowsAffected()
}

// scanner abstracts over *sql.Row and *sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*domain.Task, error) {
	var (
		task         domain.Task
		title        sql.NullString
		artifactRef  sql.NullString
		errorMessage sql.NullString
	)

	err := row.Scan(
		&task.ID,
		&task.SourceURL,
		&task.VideoID,
		&task.Status,
		&task.Progress,
		&title,
		&artifactRef,
		&errorMessage,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	task.Title = title.String
	task.ArtifactRef = artifactRef.String
	task.ErrorMessage = errorMessage.String
	return &task, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
