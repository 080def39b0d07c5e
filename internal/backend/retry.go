package backend

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds the retry policy for conversion attempts.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int

	// BaseDelay is the backoff unit; attempt n waits roughly
	// BaseDelay * 2^n, scaled by jitter.
	BaseDelay time.Duration
}

// DefaultRetryConfig returns the canonical retry policy: three additional
// attempts with a two-second backoff base.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
	}
}

// ConvertWithRetry drives a Converter through the retry policy.
//
// Only transient errors are retried, with exponential backoff and jitter
// between attempts. The zero-based attempt index is passed through to the
// Converter so it can degrade toward a more conservative configuration as
// attempts increase. Permanent and configuration errors fail fast.
func ConvertWithRetry(
	ctx context.Context,
	conv Converter,
	videoID string,
	cfg RetryConfig,
	logger *slog.Logger,
	progress ProgressFunc,
) (*Result, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		logger.Warn("invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}

	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		logger.Warn("invalid retry delay value, using default", "base_delay", "2s")
		baseDelay = 2 * time.Second
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		logger.Info("invoking conversion backend",
			"video_id", videoID,
			"attempt", attempt+1,
			"max_attempts", maxRetries+1)

		result, err := conv.Convert(ctx, videoID, attempt, progress)
		if err == nil {
			logger.Info("conversion succeeded",
				"video_id", videoID,
				"attempt", attempt+1,
				"audio_bytes", len(result.Audio))
			return result, nil
		}
		lastErr = err

		logger.Error("conversion attempt failed",
			"video_id", videoID,
			"attempt", attempt+1,
			"error", err)

		if !IsTransient(err) {
			logger.Warn("non-transient error, not retrying", "video_id", videoID)
			return nil, err
		}

		if attempt >= maxRetries {
			logger.Warn("maximum retry attempts reached",
				"video_id", videoID,
				"max_retries", maxRetries)
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				ErrTransient, maxRetries, err)
		}

		// Exponential backoff with jitter:
		// delay = baseDelay * 2^attempt * (0.5 + rand(0, 0.5))
		backoff := float64(baseDelay) * math.Pow(2, float64(attempt))
		jitterFactor := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoff * jitterFactor)

		logger.Info("retrying after delay",
			"video_id", videoID,
			"attempt", attempt+1,
			"delay", delay.String())

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			logger.Warn("conversion cancelled during retry delay",
				"video_id", videoID,
				"ctx_err", ctx.Err())
			return nil, fmt.Errorf("%w: %v", ErrTransient, ctx.Err())
		}
	}

	return nil, lastErr
}
