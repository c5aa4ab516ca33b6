package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig tunes the Retry helper.
type RetryConfig struct {
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the standard retry policy (3 retries, 500ms
// base, 10s cap, 2x backoff).
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		BaseDelay:         500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2,
	}
}

// Retry runs op until it succeeds or the retry budget is exhausted, sleeping
// an exponentially growing delay with 10% jitter between attempts. The last
// error is returned; ctx cancellation aborts the wait early.
func Retry(ctx context.Context, op func() error, cfg RetryConfig) error {
	if cfg.MaxRetries < 0 {
		cfg = DefaultRetryConfig()
	}
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = 2
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := op(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == cfg.MaxRetries {
			break
		}

		delay := cfg.BaseDelay
		for i := 0; i < attempt; i++ {
			delay = time.Duration(float64(delay) * cfg.BackoffMultiplier)
		}
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
		jitter := time.Duration(float64(delay) * 0.1 * (rand.Float64()*2 - 1))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay + jitter):
		}
	}
	return lastErr
}
