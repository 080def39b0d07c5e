package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWatchURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func TestNewTask(t *testing.T) {
	t.Parallel()

	t.Run("valid URL", func(t *testing.T) {
		t.Parallel()

		task, err := NewTask(testWatchURL, 24*time.Hour)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, task.ID)
		assert.Equal(t, TaskStatusQueued, task.Status)
		assert.Equal(t, "dQw4w9WgXcQ", task.VideoID)
		assert.Equal(t, 0, task.Progress)
		assert.Equal(t, task.CreatedAt.Add(24*time.Hour), task.ExpiresAt)
	})

	t.Run("rejects malformed URL", func(t *testing.T) {
		t.Parallel()

		_, err := NewTask("https://example.com/watch?v=dQw4w9WgXcQ", 24*time.Hour)
		assert.ErrorIs(t, err, ErrInvalidSourceURL)
	})

	t.Run("rejects empty URL", func(t *testing.T) {
		t.Parallel()

		_, err := NewTask("", 24*time.Hour)
		assert.ErrorIs(t, err, ErrInvalidSourceURL)
	})
}

func TestNewFinishedTask(t *testing.T) {
	t.Parallel()

	task, err := NewFinishedTask(testWatchURL, "some-ref", "Some Title", 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, TaskStatusFinished, task.Status)
	assert.Equal(t, 100, task.Progress)
	assert.Equal(t, "some-ref", task.ArtifactRef)
	assert.Equal(t, "Some Title", task.Title)
	assert.True(t, task.IsTerminal())
}

func TestTask_UpdateStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    TaskStatus
		to      TaskStatus
		wantErr error
	}{
		{"queued to processing", TaskStatusQueued, TaskStatusProcessing, nil},
		{"queued to error", TaskStatusQueued, TaskStatusError, nil},
		{"queued to finished skips processing", TaskStatusQueued, TaskStatusFinished, ErrInvalidTransition},
		{"processing to finished", TaskStatusProcessing, TaskStatusFinished, nil},
		{"processing to error", TaskStatusProcessing, TaskStatusError, nil},
		{"processing to processing", TaskStatusProcessing, TaskStatusProcessing, nil},
		{"processing back to queued", TaskStatusProcessing, TaskStatusQueued, ErrInvalidTransition},
		{"finished is terminal", TaskStatusFinished, TaskStatusProcessing, ErrTerminalState},
		{"finished to error blocked", TaskStatusFinished, TaskStatusError, ErrTerminalState},
		{"error is terminal", TaskStatusError, TaskStatusQueued, ErrTerminalState},
		{"invalid target status", TaskStatusQueued, TaskStatus("bogus"), ErrInvalidTaskStatus},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			task, err := NewTask(testWatchURL, time.Hour)
			require.NoError(t, err)
			task.Status = tt.from

			err = task.UpdateStatus(tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, task.Status, "status must not change on rejected transition")
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, task.Status)
			}
		})
	}
}

func TestTask_SetProgress(t *testing.T) {
	t.Parallel()

	task, err := NewTask(testWatchURL, time.Hour)
	require.NoError(t, err)

	require.NoError(t, task.SetProgress(10))
	assert.Equal(t, 10, task.Progress)

	require.NoError(t, task.SetProgress(60))
	assert.Equal(t, 60, task.Progress)

	// Lower values are clamped, never observed as a regression.
	require.NoError(t, task.SetProgress(20))
	assert.Equal(t, 60, task.Progress)

	assert.ErrorIs(t, task.SetProgress(101), ErrProgressOutOfRange)
	assert.ErrorIs(t, task.SetProgress(-1), ErrProgressOutOfRange)
}

func TestTask_IsExpired(t *testing.T) {
	t.Parallel()

	task, err := NewTask(testWatchURL, time.Hour)
	require.NoError(t, err)

	assert.False(t, task.IsExpired(task.CreatedAt.Add(30*time.Minute)))
	assert.True(t, task.IsExpired(task.CreatedAt.Add(2*time.Hour)))
}

func TestTask_Validate(t *testing.T) {
	t.Parallel()

	task, err := NewTask(testWatchURL, time.Hour)
	require.NoError(t, err)

	task.ID = uuid.Nil
	assert.ErrorIs(t, task.Validate(), ErrEmptyTaskID)

	task.ID = uuid.New()
	task.SourceURL = ""
	assert.ErrorIs(t, task.Validate(), ErrEmptySourceURL)

	task.SourceURL = testWatchURL
	task.Status = TaskStatus("nonsense")
	assert.ErrorIs(t, task.Validate(), ErrInvalidTaskStatus)

	task.Status = TaskStatusQueued
	task.Progress = 101
	assert.ErrorIs(t, task.Validate(), ErrProgressOutOfRange)
}
