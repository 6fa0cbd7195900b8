package errors

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures retries of remote collaborator calls.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the doubled delay.
	MaxDelay time.Duration

	// OnRetry is called before each wait. Optional.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultRetryConfig suits connecting to the CMS database.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     4 * time.Second,
	}
}

// retryable reports whether another attempt can change the outcome.
// Fatal and validation errors never can.
func retryable(err error) bool {
	if IsFatal(err) {
		return false
	}
	return GetCategory(err) != CategoryValidation
}

// Retry runs fn until it succeeds, returns a non-retryable error, or the
// retries are used up. The delay doubles up to MaxDelay.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) || attempt == cfg.MaxRetries {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, delay)
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	if !retryable(lastErr) {
		return zero, lastErr
	}
	return zero, fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}
