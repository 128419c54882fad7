package apierr

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig holds retry parameters for flat-delay retries.
//
// The upstream transcription provider throttles aggressively and recovers on
// its own schedule, so a flat delay between attempts absorbs rate-limit
// rejections better than exponential backoff would. Invalid values are
// normalized:
//   - Attempts < 1 becomes 1 (single attempt)
//   - Delay <= 0 becomes 1ms
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// normalize ensures all RetryConfig fields have valid values.
func (c *RetryConfig) normalize() {
	if c.Attempts < 1 {
		c.Attempts = 1
	}
	if c.Delay <= 0 {
		c.Delay = time.Millisecond
	}
}

// Retry executes fn up to cfg.Attempts times with a flat delay between
// attempts. It retries only if shouldRetry returns true for the error.
// Returns the result of the last attempt.
//
// The inter-attempt wait is interruptible: a cancelled context aborts the
// wait and returns ctx.Err().
func Retry[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func() (T, error),
	shouldRetry func(error) bool,
) (T, error) {
	cfg.normalize()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(cfg.Delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !shouldRetry(lastErr) {
			return zero, lastErr
		}
	}

	return zero, fmt.Errorf("all %d attempts failed: %w", cfg.Attempts, lastErr)
}
