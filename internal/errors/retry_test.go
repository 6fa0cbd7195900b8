package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(retries int) RetryConfig {
	return RetryConfig{
		MaxRetries:   retries,
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
	}
}

func TestRetry_SucceedsAfterTransientError(t *testing.T) {
	// Given: a connection that fails twice then succeeds
	attempts := 0
	fn := func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("connection refused")
		}
		return "connected", nil
	}

	// When: retrying
	got, err := Retry(context.Background(), fastRetry(3), fn)

	// Then: the third attempt's result is returned
	require.NoError(t, err)
	assert.Equal(t, "connected", got)
	assert.Equal(t, 3, attempts)
}

func TestRetry_FailsAfterMaxRetries(t *testing.T) {
	attempts := 0
	fn := func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("persistent error")
	}

	_, err := Retry(context.Background(), fastRetry(2), fn)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Contains(t, err.Error(), "persistent error")
	assert.Equal(t, 3, attempts)
}

func TestRetry_StopsOnFatalError(t *testing.T) {
	// Given: a fatal configuration error
	attempts := 0
	fn := func(ctx context.Context) (int, error) {
		attempts++
		return 0, ConfigError("bad dsn", nil)
	}

	// When: retrying
	_, err := Retry(context.Background(), fastRetry(5), fn)

	// Then: it is returned unwrapped after one attempt
	assert.Equal(t, 1, attempts)
	assert.Equal(t, ErrCodeConfigInvalid, GetCode(err))
	assert.NotContains(t, err.Error(), "retries")
}

func TestRetry_StopsOnValidationError(t *testing.T) {
	attempts := 0
	fn := func(ctx context.Context) (int, error) {
		attempts++
		return 0, ValidationError("unknown driver", nil)
	}

	_, err := Retry(context.Background(), fastRetry(5), fn)

	assert.Equal(t, 1, attempts)
	assert.Error(t, err)
}

func TestRetry_OnRetryDoublesDelay(t *testing.T) {
	var waits []time.Duration
	cfg := fastRetry(4)
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		waits = append(waits, wait)
	}

	_, _ = Retry(context.Background(), cfg, func(ctx context.Context) (int, error) {
		return 0, errors.New("down")
	})

	assert.Equal(t, []time.Duration{
		time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond, 4 * time.Millisecond,
	}, waits)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	_, err := Retry(ctx, fastRetry(3), func(ctx context.Context) (int, error) {
		attempts++
		return 0, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, attempts)
}
