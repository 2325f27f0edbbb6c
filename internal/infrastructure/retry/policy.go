package retry

import (
	"context"
	"time"
)

// Policy controls how an operation is retried. Retryable decides per error
// whether another attempt is worthwhile; backoff grows linearly per attempt.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	Retryable   func(error) bool
}

// None performs exactly one attempt
func None() Policy {
	return Policy{MaxAttempts: 1}
}

// Default retries transient failures a few times with a short backoff
func Default(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     500 * time.Millisecond,
		Retryable:   retryable,
	}
}

// Do runs fn until it succeeds, attempts are exhausted, the error is not
// retryable, or ctx is done. Returns the last error observed.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		backoff := p.Backoff * time.Duration(attempt)
		if backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}
