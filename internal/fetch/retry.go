package fetch

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds configuration for retry behavior
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// DefaultRetryConfig provides sensible defaults for retry behavior
var DefaultRetryConfig = RetryConfig{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    10 * time.Second,
	Jitter:      true,
}

// RetryableFunc is a function that can be retried
type RetryableFunc func(attempt int) error

// Retry executes fn until it succeeds, returns a non-retryable error or the
// attempts run out
func Retry(ctx context.Context, config RetryConfig, fn RetryableFunc) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt >= config.MaxAttempts {
			break
		}

		delay := calculateDelay(config, attempt)
		if config.Jitter {
			delay = applyJitter(delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}
	}

	return &RetryableError{
		Err:      lastErr,
		Attempts: config.MaxAttempts,
	}
}

// calculateDelay computes the exponential delay between retry attempts:
// baseDelay * 2^(attempt-1), capped at MaxDelay
func calculateDelay(config RetryConfig, attempt int) time.Duration {
	delay := config.BaseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}

// applyJitter adds ±25% random jitter to the delay
func applyJitter(delay time.Duration) time.Duration {
	jitter := (rand.Float64() - 0.5) * 0.5 // [-0.25, 0.25)
	return time.Duration(float64(delay) * (1 + jitter))
}
