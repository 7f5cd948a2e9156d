package harness

import (
	"context"
	"fmt"
	"time"

	"ioctest/pkg/logging"
)

// RetryPolicy repeats a whole stimulus/measure cycle.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Delay between attempts.
	Delay time.Duration
	// BeforeRetry runs between attempts, before Delay, e.g. to prompt the
	// operator. It receives the number of the attempt that just failed.
	BeforeRetry func(attempt int)
}

// Do calls fn until it succeeds or MaxAttempts is used up. Each call gets
// the 1-based attempt number. On exhaustion it returns an
// *ExhaustedRetriesError wrapping the last failure; the caller fills in the
// best observed value. A cancelled context stops the loop without
// exhausting it.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		logging.Debug("Retry", "attempt %d/%d failed: %v", attempt, attempts, lastErr)
		if p.BeforeRetry != nil {
			p.BeforeRetry(attempt)
		}
		if p.Delay > 0 {
			timer := time.NewTimer(p.Delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("interrupted: %w", ctx.Err())
			}
		}
	}

	return &ExhaustedRetriesError{Attempts: attempts, Err: lastErr}
}
