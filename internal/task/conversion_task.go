package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tubetone/tubetone-api/internal/backend"
	"github.com/tubetone/tubetone-api/internal/cache"
	"github.com/tubetone/tubetone-api/internal/domain"
)

// Common errors
var (
	ErrNilManager   = errors.New("task manager cannot be nil")
	ErrNilConverter = errors.New("converter cannot be nil")
	ErrNilCache     = errors.New("cache cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")
	ErrEmptyTaskID  = errors.New("task ID cannot be empty")
)

// ConversionTask implements the Task interface for converting one YouTube
// video into an MP3 artifact. Executions are idempotent per source URL:
// a cache hit short-circuits the backend entirely.
type ConversionTask struct {
	id        uuid.UUID
	sourceURL string
	videoID   string
	manager   *Manager
	converter backend.Converter
	cache     *cache.Cache
	retryCfg  backend.RetryConfig
	logger    *slog.Logger
}

// NewConversionTask creates a conversion task bound to an existing task
// record. The record identified by taskID must already be persisted.
func NewConversionTask(
	taskID uuid.UUID,
	sourceURL string,
	manager *Manager,
	converter backend.Converter,
	resultCache *cache.Cache,
	retryCfg backend.RetryConfig,
	logger *slog.Logger,
) (*ConversionTask, error) {
	if manager == nil {
		return nil, ErrNilManager
	}
	if converter == nil {
		return nil, ErrNilConverter
	}
	if resultCache == nil {
		return nil, ErrNilCache
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if taskID == uuid.Nil {
		return nil, ErrEmptyTaskID
	}

	videoID, err := domain.ExtractVideoID(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("invalid source URL for task %s: %w", taskID, err)
	}

	return &ConversionTask{
		id:        taskID,
		sourceURL: sourceURL,
		videoID:   videoID,
		manager:   manager,
		converter: converter,
		cache:     resultCache,
		retryCfg:  retryCfg,
		logger:    logger.With("task_type", TaskTypeConversion, "task_id", taskID, "video_id", videoID),
	}, nil
}

// ID returns the task's unique identifier
func (t *ConversionTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *ConversionTask) Type() string {
	return TaskTypeConversion
}

// Execute runs the conversion: check the cache, otherwise invoke the
// backend under the retry policy, then persist the artifact and finish the
// record. The caller has already moved the record to processing; Execute
// owns the transition to finished, while failures are reported through the
// returned error.
func (t *ConversionTask) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	// Another task for the same URL may have finished while this one sat
	// in the queue.
	hit, err := t.cache.Lookup(ctx, t.sourceURL)
	if err != nil {
		t.logger.Warn("cache lookup failed, converting anyway", "error", err)
	} else if hit != nil {
		t.logger.Info("cache hit, skipping conversion", "artifact_ref", hit.ArtifactRef)
		return t.finish(ctx, hit.ArtifactRef, hit.Title, nil)
	}

	result, err := backend.ConvertWithRetry(
		ctx, t.converter, t.videoID, t.retryCfg, t.logger, t.reportProgress)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	if err := t.finish(ctx, t.id.String(), result.Title, result.Audio); err != nil {
		return err
	}

	if err := t.cache.Store(ctx, t.sourceURL, t.id.String(), result.Title); err != nil {
		// The artifact is already delivered through the task record;
		// losing the cache entry only costs a future conversion.
		t.logger.Warn("failed to store cache entry", "error", err)
	}

	t.logger.Info("conversion task completed successfully")
	return nil
}

// reportProgress pushes an advisory percentage into the durable record so
// polling clients see movement. Failures are logged and swallowed.
func (t *ConversionTask) reportProgress(pct int) {
	if _, err := t.manager.Update(context.Background(), t.id, Patch{Progress: &pct}); err != nil {
		t.logger.Debug("progress update dropped", "progress", pct, "error", err)
	}
}

func (t *ConversionTask) finish(ctx context.Context, artifactRef, title string, audio []byte) error {
	status := domain.TaskStatusFinished
	progress := backend.ProgressDone
	patch := Patch{
		Status:   &status,
		Progress: &progress,
		Title:    &title,
		Audio:    audio,
	}
	if audio == nil {
		patch.ArtifactRef = &artifactRef
	}

	if _, err := t.manager.Update(ctx, t.id, patch); err != nil {
		return fmt.Errorf("finishing task %s: %w", t.id, err)
	}
	return nil
}

// ConversionTaskFactory creates ConversionTask instances with the shared
// collaborators wired in.
type ConversionTaskFactory struct {
	manager   *Manager
	converter backend.Converter
	cache     *cache.Cache
	retryCfg  backend.RetryConfig
	logger    *slog.Logger
}

// NewConversionTaskFactory creates a new factory for ConversionTasks.
func NewConversionTaskFactory(
	manager *Manager,
	converter backend.Converter,
	resultCache *cache.Cache,
	retryCfg backend.RetryConfig,
	logger *slog.Logger,
) *ConversionTaskFactory {
	return &ConversionTaskFactory{
		manager:   manager,
		converter: converter,
		cache:     resultCache,
		retryCfg:  retryCfg,
		logger:    logger.With("component", "conversion_task_factory"),
	}
}

// CreateTask creates a new ConversionTask for an existing task record.
func (f *ConversionTaskFactory) CreateTask(taskID uuid.UUID, sourceURL string) (Task, error) {
	return NewConversionTask(
		taskID, sourceURL, f.manager, f.converter, f.cache, f.retryCfg, f.logger)
}

// Rebuild reconstructs an executable task from its durable record.
func (f *ConversionTaskFactory) Rebuild(record *domain.Task) (Task, error) {
	return f.CreateTask(record.ID, record.SourceURL)
}
