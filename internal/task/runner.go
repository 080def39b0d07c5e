package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tubetone/tubetone-api/internal/backend"
	"github.com/tubetone/tubetone-api/internal/domain"
)

// ErrQueueFull is returned by Submit when the in-memory queue has no room.
var ErrQueueFull = errors.New("task queue is full")

// RunnerConfig holds configuration for the task runner
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// TaskTimeout bounds the wall-clock time a single task execution may
	// take before its context is cancelled
	TaskTimeout time.Duration

	// StuckTaskAge defines how long a task can sit in the processing state
	// before it is considered stuck and forced to error
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks.
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with the canonical defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:            3,
		QueueSize:              100,
		TaskTimeout:            10 * time.Minute,
		StuckTaskAge:           15 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// Runner manages background task processing: a buffered queue feeding a
// fixed worker pool, a periodic monitor that force-errors stuck tasks, and
// crash recovery that requeues work found unfinished at startup.
type Runner struct {
	manager    *Manager
	rebuilder  Rebuilder
	taskChan   chan Task
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     RunnerConfig
	logger     *slog.Logger
}

// NewRunner creates a new Runner.
func NewRunner(manager *Manager, rebuilder Rebuilder, config RunnerConfig, logger *slog.Logger) *Runner {
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		manager:    manager,
		rebuilder:  rebuilder,
		taskChan:   make(chan Task, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger.With("component", "task_runner"),
	}
}

// Submit adds a task to the queue. The durable record must already exist;
// Submit only handles the in-memory handoff to the worker pool.
func (r *Runner) Submit(ctx context.Context, t Task) error {
	select {
	case r.taskChan <- t:
		r.logger.Debug("task enqueued",
			"task_id", t.ID(),
			"task_type", t.Type(),
			"queue_depth", len(r.taskChan))
		return nil
	default:
		return fmt.Errorf("%w: capacity %d", ErrQueueFull, r.config.QueueSize)
	}
}

// Start recovers unfinished work, then launches the worker pool and the
// stuck-task monitor.
func (r *Runner) Start() error {
	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	r.logger.Info("task runner started",
		"workers", r.config.WorkerCount,
		"queue_size", r.config.QueueSize,
		"task_timeout", r.config.TaskTimeout.String())

	return nil
}

// Stop gracefully shuts down the runner, waiting for in-flight tasks.
func (r *Runner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	close(r.taskChan)
	r.logger.Info("task runner stopped")
}

// Recover requeues tasks found unfinished in the store. Queued records are
// requeued directly; processing records were interrupted by a crash, so
// they are reset to queued first.
func (r *Runner) Recover() error {
	ctx := context.Background()

	queued, err := r.manager.ListByStatus(ctx, domain.TaskStatusQueued, 0)
	if err != nil {
		return fmt.Errorf("failed to list queued tasks: %w", err)
	}

	processing, err := r.manager.ListByStatus(ctx, domain.TaskStatusProcessing, 0)
	if err != nil {
		return fmt.Errorf("failed to list processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"queued_count", len(queued),
		"processing_count", len(processing))

	for _, record := range queued {
		r.requeue(record)
	}

	for _, record := range processing {
		reset, err := r.manager.Reset(ctx, record.ID)
		if err != nil {
			r.logger.Error("failed to reset interrupted task",
				"task_id", record.ID,
				"error", err)
			continue
		}
		r.requeue(reset)
	}

	return nil
}

func (r *Runner) requeue(record *domain.Task) {
	t, err := r.rebuilder.Rebuild(record)
	if err != nil {
		r.logger.Error("failed to rebuild task from record",
			"task_id", record.ID,
			"error", err)
		return
	}

	select {
	case r.taskChan <- t:
		r.logger.Info("requeued task", "task_id", record.ID)
	default:
		r.logger.Error("failed to requeue task, queue is full", "task_id", record.ID)
	}
}

// worker processes tasks from the queue
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case t, ok := <-r.taskChan:
			if !ok {
				r.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			r.processTask(t, id)
		}
	}
}

// processTask handles execution of a single task
func (r *Runner) processTask(t Task, workerID int) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.TaskTimeout)
	defer cancel()

	logger := r.logger.With(
		"task_id", t.ID(),
		"task_type", t.Type(),
		"worker_id", workerID,
	)

	status := domain.TaskStatusProcessing
	progress := backend.ProgressDispatched
	if _, err := r.manager.Update(ctx, t.ID(), Patch{Status: &status, Progress: &progress}); err != nil {
		// The record may have been finished by a concurrent path or
		// expired out from under us; either way there is nothing to run.
		logger.Warn("skipping task, could not mark processing", "error", err)
		return
	}

	logger.Info("processing task")

	err := t.Execute(ctx)
	if err == nil {
		logger.Info("task completed successfully")
		return
	}

	if ctx.Err() != nil {
		err = fmt.Errorf("conversion timed out after %s: %w", r.config.TaskTimeout, err)
	}
	logger.Error("task execution failed", "error", err)

	if _, updateErr := r.manager.ForceError(context.Background(), t.ID(), err.Error()); updateErr != nil {
		logger.Error("failed to record task failure", "error", updateErr)
	}
}

// stuckTaskMonitor periodically finds tasks that have sat in the
// processing state past the ceiling and forces them to error. A stuck
// record means its worker died or lost the plot; the client must be told
// rather than left polling forever.
func (r *Runner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			ctx := context.Background()

			stuck, err := r.manager.ListByStatus(ctx, domain.TaskStatusProcessing, r.config.StuckTaskAge)
			if err != nil {
				r.logger.Error("failed to check for stuck tasks", "error", err)
				continue
			}
			if len(stuck) == 0 {
				continue
			}

			r.logger.Info("found stuck tasks", "count", len(stuck))

			for _, record := range stuck {
				msg := fmt.Sprintf("conversion stuck in processing for over %s", r.config.StuckTaskAge)
				if _, err := r.manager.ForceError(ctx, record.ID, msg); err != nil {
					r.logger.Error("failed to fail stuck task",
						"task_id", record.ID,
						"error", err)
				}
			}
		}
	}
}
