package indexengine

import (
	"context"
	"time"

	"github.com/opennote/semindex/internal/pkg/apperr"
)

// retryPolicy implements the embedding loop's backoff (spec.md §4.5.1):
// attempts = 5, base delay = 1s, multiplier = 2, max delay = 30s, retried
// only for rate-limited or transient transport failures.
type retryPolicy struct {
	attempts   int
	baseDelay  time.Duration
	multiplier float64
	maxDelay   time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{attempts: 5, baseDelay: time.Second, multiplier: 2, maxDelay: 30 * time.Second}
}

// onRetry is called with the attempt number (1-based, the attempt that just
// failed) before sleeping, so the caller can emit a waiting_for_rate_limit
// progress event.
func (p retryPolicy) run(ctx context.Context, fn func() error, onRetry func(attempt int)) error {
	delay := p.baseDelay
	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !apperr.Retryable(lastErr) {
			return lastErr
		}
		if attempt == p.attempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * p.multiplier)
		if delay > p.maxDelay {
			delay = p.maxDelay
		}
	}
	return lastErr
}
