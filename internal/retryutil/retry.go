package retryutil

import (
	"context"
	"log/slog"
	"time"
)

const defaultMaxAttempts = 3

type Options struct {
	Name        string
	MaxAttempts int
	// BaseDelay is the unit for exponential backoff: the wait after attempt
	// n is BaseDelay * 2^n. Defaults to one second.
	BaseDelay time.Duration
	Logger    *slog.Logger
	// Retryable decides whether a failure is worth another attempt. A nil
	// Retryable retries everything.
	Retryable func(error) bool
	// Sleep is a test hook; defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Do runs fn up to MaxAttempts times, backing off exponentially between
// attempts. It returns nil on the first success, the last error once
// attempts are exhausted, and immediately stops on a non-retryable error.
func Do(ctx context.Context, opts Options, fn func(ctx context.Context) error) error {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if opts.Retryable != nil && !opts.Retryable(lastErr) {
			return lastErr
		}
		if opts.Logger != nil {
			opts.Logger.Warn(opts.Name+"_attempt_failed", "attempt", attempt+1, "error", lastErr.Error())
		}
		if attempt < maxAttempts-1 {
			sleep(baseDelay << uint(attempt))
		}
	}
	if opts.Logger != nil {
		opts.Logger.Error(opts.Name+"_retries_exhausted", "attempts", maxAttempts, "error", lastErr.Error())
	}
	return lastErr
}
