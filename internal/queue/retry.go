package queue

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds retries of a queued unit of work. Backoff holds the
// per-attempt delays; when attempts outnumber entries the last one
// repeats.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     []time.Duration
}

// DefaultWebhookRetry mirrors the reconciler's tolerance for transient
// infrastructure failures: a few attempts, exponentially spaced.
func DefaultWebhookRetry() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     []time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second},
	}
}

// Delay returns the pause after the given 1-based failed attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	if attempt > len(p.Backoff) {
		attempt = len(p.Backoff)
	}
	if attempt < 1 {
		attempt = 1
	}
	return p.Backoff[attempt-1]
}

// Run executes fn until it succeeds, returns a permanent error, or the
// attempt budget is exhausted. Permanent errors are terminal outcomes,
// not failures: they are returned immediately and never retried.
func (p RetryPolicy) Run(ctx context.Context, isPermanent func(error) bool, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if isPermanent != nil && isPermanent(err) {
			return err
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		select {
		case <-time.After(p.Delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}
