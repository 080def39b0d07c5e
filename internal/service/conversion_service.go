package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tubetone/tubetone-api/internal/cache"
	"github.com/tubetone/tubetone-api/internal/domain"
	"github.com/tubetone/tubetone-api/internal/store"
	"github.com/tubetone/tubetone-api/internal/task"
)

// TaskRunner defines the interface for submitting background tasks
type TaskRunner interface {
	// Submit adds a task to the processing queue
	Submit(ctx context.Context, t task.Task) error
}

// ConversionTaskFactory creates executable conversion tasks bound to
// persisted task records.
type ConversionTaskFactory interface {
	CreateTask(taskID uuid.UUID, sourceURL string) (task.Task, error)
}

// ConversionService provides the conversion lifecycle operations exposed
// over the API.
type ConversionService interface {
	// Convert accepts a source URL and either returns an already-finished
	// task (cache hit) or a freshly queued one. The returned bool reports
	// whether the result came from the cache.
	Convert(ctx context.Context, sourceURL string) (*task.View, bool, error)

	// GetTask returns the task record joined with its artifact bytes.
	GetTask(ctx context.Context, id uuid.UUID) (*task.View, error)

	// GetArtifact returns a finished task's view, verifying the audio
	// bytes are actually deliverable.
	GetArtifact(ctx context.Context, id uuid.UUID) (*task.View, error)

	// Retry requeues a failed task for another conversion attempt. The
	// returned bool reports whether a new attempt was actually started;
	// retrying a finished or still-running task is a no-op.
	Retry(ctx context.Context, id uuid.UUID) (*task.View, bool, error)

	// Cleanup force-fails a task stuck in processing. The returned bool
	// reports whether anything was cleaned; tasks not in processing are
	// left untouched.
	Cleanup(ctx context.Context, id uuid.UUID) (*task.View, bool, error)
}

// conversionServiceImpl implements the ConversionService interface
type conversionServiceImpl struct {
	manager *task.Manager
	runner  TaskRunner
	factory ConversionTaskFactory
	cache   *cache.Cache
	taskTTL time.Duration
	logger  *slog.Logger
}

// NewConversionService creates a new ConversionService.
// It returns an error if any of the required dependencies are nil.
func NewConversionService(
	manager *task.Manager,
	runner TaskRunner,
	factory ConversionTaskFactory,
	resultCache *cache.Cache,
	taskTTL time.Duration,
	logger *slog.Logger,
) (ConversionService, error) {
	if manager == nil {
		return nil, &ConversionServiceError{Operation: "create_service", Message: "manager cannot be nil"}
	}
	if runner == nil {
		return nil, &ConversionServiceError{Operation: "create_service", Message: "runner cannot be nil"}
	}
	if factory == nil {
		return nil, &ConversionServiceError{Operation: "create_service", Message: "factory cannot be nil"}
	}
	if resultCache == nil {
		return nil, &ConversionServiceError{Operation: "create_service", Message: "cache cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &conversionServiceImpl{
		manager: manager,
		runner:  runner,
		factory: factory,
		cache:   resultCache,
		taskTTL: taskTTL,
		logger:  logger.With("component", "conversion_service"),
	}, nil
}

// Convert validates the URL, consults the result cache, and otherwise
// creates and enqueues a new conversion task.
func (s *conversionServiceImpl) Convert(ctx context.Context, sourceURL string) (*task.View, bool, error) {
	if !domain.IsValidSourceURL(sourceURL) {
		return nil, false, ErrInvalidURL
	}

	hit, err := s.cache.Lookup(ctx, sourceURL)
	if err != nil {
		// A broken cache should degrade to converting, not refuse service.
		s.logger.Warn("cache lookup failed, proceeding with conversion",
			"error", err)
	}
	if hit != nil {
		return s.convertFromCache(ctx, sourceURL, hit)
	}

	record, err := domain.NewTask(sourceURL, s.taskTTL)
	if err != nil {
		return nil, false, ErrInvalidURL
	}

	if err := s.manager.Create(ctx, record); err != nil {
		s.logger.Error("failed to persist new task",
			"error", err,
			"task_id", record.ID)
		return nil, false, &ConversionServiceError{
			Operation: "convert",
			Message:   "failed to save task",
			Err:       err,
		}
	}

	conv, err := s.factory.CreateTask(record.ID, sourceURL)
	if err != nil {
		s.logger.Error("failed to build conversion task",
			"error", err,
			"task_id", record.ID)
		_, _ = s.manager.ForceError(ctx, record.ID, "internal error building conversion task")
		return nil, false, &ConversionServiceError{
			Operation: "convert",
			Message:   "failed to build conversion task",
			Err:       err,
		}
	}

	if err := s.runner.Submit(ctx, conv); err != nil {
		s.logger.Warn("failed to enqueue conversion task",
			"error", err,
			"task_id", record.ID)
		_, _ = s.manager.ForceError(ctx, record.ID, "conversion queue is full")
		if errors.Is(err, task.ErrQueueFull) {
			return nil, false, ErrQueueBusy
		}
		return nil, false, &ConversionServiceError{
			Operation: "convert",
			Message:   "failed to enqueue task",
			Err:       err,
		}
	}

	s.logger.Info("conversion task accepted",
		"task_id", record.ID,
		"video_id", record.VideoID)

	return &task.View{Task: *record}, false, nil
}

// convertFromCache creates a task record that is born finished, pointing
// at the cached artifact.
func (s *conversionServiceImpl) convertFromCache(ctx context.Context, sourceURL string, hit *cache.Hit) (*task.View, bool, error) {
	record, err := domain.NewFinishedTask(sourceURL, hit.ArtifactRef, hit.Title, s.taskTTL)
	if err != nil {
		return nil, false, ErrInvalidURL
	}

	if err := s.manager.Create(ctx, record); err != nil {
		s.logger.Error("failed to persist cache-hit task",
			"error", err,
			"task_id", record.ID)
		return nil, false, &ConversionServiceError{
			Operation: "convert",
			Message:   "failed to save task",
			Err:       err,
		}
	}

	s.logger.Info("conversion served from cache",
		"task_id", record.ID,
		"artifact_ref", hit.ArtifactRef)

	view, err := s.manager.Get(ctx, record.ID)
	if err != nil {
		return nil, false, s.mapLookupError("convert", record.ID, err)
	}
	return view, true, nil
}

// GetTask retrieves a task by its ID.
func (s *conversionServiceImpl) GetTask(ctx context.Context, id uuid.UUID) (*task.View, error) {
	view, err := s.manager.Get(ctx, id)
	if err != nil {
		return nil, s.mapLookupError("get_task", id, err)
	}
	return view, nil
}

// GetArtifact retrieves a finished task and verifies its audio bytes are
// deliverable.
func (s *conversionServiceImpl) GetArtifact(ctx context.Context, id uuid.UUID) (*task.View, error) {
	view, err := s.manager.Get(ctx, id)
	if err != nil {
		return nil, s.mapLookupError("get_artifact", id, err)
	}

	if view.Status != domain.TaskStatusFinished {
		return nil, ErrTaskNotReady
	}
	if !view.HasAudio() {
		// The record outlived the bytes, typically across a restart.
		s.logger.Warn("finished task has no deliverable artifact",
			"task_id", id,
			"artifact_ref", view.ArtifactRef)
		return nil, ErrArtifactUnavailable
	}

	return view, nil
}

// Retry requeues a failed task. Finished and in-flight tasks are returned
// unchanged with restarted=false.
func (s *conversionServiceImpl) Retry(ctx context.Context, id uuid.UUID) (*task.View, bool, error) {
	view, err := s.manager.Get(ctx, id)
	if err != nil {
		return nil, false, s.mapLookupError("retry", id, err)
	}

	if view.Status != domain.TaskStatusError {
		s.logger.Debug("retry requested for task not in error state",
			"task_id", id,
			"status", view.Status)
		return view, false, nil
	}

	reset, err := s.manager.Reset(ctx, id)
	if err != nil {
		return nil, false, &ConversionServiceError{
			Operation: "retry",
			Message:   "failed to reset task",
			Err:       err,
		}
	}

	conv, err := s.factory.CreateTask(reset.ID, reset.SourceURL)
	if err != nil {
		_, _ = s.manager.ForceError(ctx, reset.ID, "internal error rebuilding conversion task")
		return nil, false, &ConversionServiceError{
			Operation: "retry",
			Message:   "failed to rebuild conversion task",
			Err:       err,
		}
	}

	if err := s.runner.Submit(ctx, conv); err != nil {
		_, _ = s.manager.ForceError(ctx, reset.ID, "conversion queue is full")
		if errors.Is(err, task.ErrQueueFull) {
			return nil, false, ErrQueueBusy
		}
		return nil, false, &ConversionServiceError{
			Operation: "retry",
			Message:   "failed to enqueue task",
			Err:       err,
		}
	}

	s.logger.Info("task requeued for retry", "task_id", id)
	return &task.View{Task: *reset}, true, nil
}

// Cleanup force-fails a task stuck in processing so its client stops
// polling. Tasks in any other state are reported back untouched.
func (s *conversionServiceImpl) Cleanup(ctx context.Context, id uuid.UUID) (*task.View, bool, error) {
	view, err := s.manager.Get(ctx, id)
	if err != nil {
		return nil, false, s.mapLookupError("cleanup", id, err)
	}

	if view.Status != domain.TaskStatusProcessing {
		return view, false, nil
	}

	failed, err := s.manager.ForceError(ctx, id, "conversion cancelled by cleanup request")
	if err != nil {
		return nil, false, &ConversionServiceError{
			Operation: "cleanup",
			Message:   "failed to fail stuck task",
			Err:       err,
		}
	}

	s.logger.Info("stuck task cleaned up", "task_id", id)
	return &task.View{Task: *failed}, true, nil
}

func (s *conversionServiceImpl) mapLookupError(operation string, id uuid.UUID, err error) error {
	if errors.Is(err, store.ErrTaskNotFound) || errors.Is(err, store.ErrNotFound) {
		return ErrTaskNotFound
	}
	s.logger.Error("task lookup failed",
		"operation", operation,
		"task_id", id,
		"error", err)
	return &ConversionServiceError{
		Operation: operation,
		Message:   "failed to retrieve task",
		Err:       err,
	}
}
