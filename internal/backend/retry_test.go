package backend_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubetone/tubetone-api/internal/backend"
)

// scriptedConverter returns the queued outcomes in order and records every
// attempt index it was called with.
type scriptedConverter struct {
	outcomes []error
	result   *backend.Result
	attempts []int
}

func (s *scriptedConverter) Convert(ctx context.Context, videoID string, attempt int, progress backend.ProgressFunc) (*backend.Result, error) {
	s.attempts = append(s.attempts, attempt)
	idx := len(s.attempts) - 1
	if idx < len(s.outcomes) && s.outcomes[idx] != nil {
		return nil, s.outcomes[idx]
	}
	if s.result != nil {
		return s.result, nil
	}
	return &backend.Result{Audio: []byte("mp3"), Title: "ok"}, nil
}

func fastRetryConfig() backend.RetryConfig {
	return backend.RetryConfig{MaxRetries: 3, BaseDelay: 10 * time.Millisecond}
}

func TestConvertWithRetry_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	conv := &scriptedConverter{result: &backend.Result{Audio: []byte("abc"), Title: "Song"}}

	result, err := backend.ConvertWithRetry(
		context.Background(), conv, "dQw4w9WgXcQ", fastRetryConfig(), slog.Default(), nil)

	require.NoError(t, err)
	assert.Equal(t, "Song", result.Title)
	assert.Equal(t, []int{0}, conv.attempts)
}

func TestConvertWithRetry_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	conv := &scriptedConverter{
		outcomes: []error{
			fmt.Errorf("%w: timeout", backend.ErrTransient),
			fmt.Errorf("%w: reset", backend.ErrTransient),
			nil,
		},
		result: &backend.Result{Audio: []byte("abc"), Title: "Song"},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := backend.ConvertWithRetry(
		ctx, conv, "dQw4w9WgXcQ", fastRetryConfig(), slog.Default(), nil)

	require.NoError(t, err)
	assert.Equal(t, "Song", result.Title)
	assert.Equal(t, []int{0, 1, 2}, conv.attempts, "attempt index must increment across retries")
}

func TestConvertWithRetry_PermanentErrorFailsFast(t *testing.T) {
	t.Parallel()

	conv := &scriptedConverter{
		outcomes: []error{fmt.Errorf("%w: video unavailable", backend.ErrPermanent)},
	}

	_, err := backend.ConvertWithRetry(
		context.Background(), conv, "dQw4w9WgXcQ", fastRetryConfig(), slog.Default(), nil)

	require.Error(t, err)
	assert.True(t, backend.IsPermanent(err))
	assert.Len(t, conv.attempts, 1, "permanent errors must not be retried")
}

func TestConvertWithRetry_NotConfiguredFailsFast(t *testing.T) {
	t.Parallel()

	conv := &scriptedConverter{
		outcomes: []error{fmt.Errorf("%w: missing API key", backend.ErrNotConfigured)},
	}

	_, err := backend.ConvertWithRetry(
		context.Background(), conv, "dQw4w9WgXcQ", fastRetryConfig(), slog.Default(), nil)

	require.Error(t, err)
	assert.True(t, backend.IsPermanent(err))
	assert.Len(t, conv.attempts, 1)
}

func TestConvertWithRetry_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	transient := fmt.Errorf("%w: flaky", backend.ErrTransient)
	conv := &scriptedConverter{
		outcomes: []error{transient, transient, transient, transient},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_, err := backend.ConvertWithRetry(
		ctx, conv, "dQw4w9WgXcQ", fastRetryConfig(), slog.Default(), nil)

	require.Error(t, err)
	assert.True(t, backend.IsTransient(err))
	assert.Len(t, conv.attempts, 4, "one initial attempt plus three retries")
}

func TestConvertWithRetry_CancelledDuringDelay(t *testing.T) {
	t.Parallel()

	conv := &scriptedConverter{
		outcomes: []error{
			fmt.Errorf("%w: timeout", backend.ErrTransient),
			fmt.Errorf("%w: timeout", backend.ErrTransient),
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	cfg := backend.RetryConfig{MaxRetries: 3, BaseDelay: 5 * time.Second}
	_, err := backend.ConvertWithRetry(
		ctx, conv, "dQw4w9WgXcQ", cfg, slog.Default(), nil)

	require.Error(t, err)
	assert.True(t, backend.IsTransient(err))
	assert.Len(t, conv.attempts, 1, "cancellation during backoff must stop further attempts")
}
