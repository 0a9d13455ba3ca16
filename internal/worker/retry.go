package worker

import "time"

// RetryPolicy bounds per-key attempts and spaces retries of the same
// key. The delay only blocks the worker currently holding the key.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NewRetryPolicy builds a policy with the configured bound and delays,
// falling back to sane defaults for zero values.
func NewRetryPolicy(maxAttempts int, base, max time.Duration) RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if max <= 0 {
		max = 5 * time.Second
	}
	return RetryPolicy{MaxAttempts: maxAttempts, BaseDelay: base, MaxDelay: max}
}

// ShouldAttempt reports whether another attempt is allowed given the
// persisted attempt count so far.
func (p RetryPolicy) ShouldAttempt(attemptsSoFar int) bool {
	return attemptsSoFar < p.MaxAttempts
}

// Backoff returns the wait before the next attempt, growing linearly
// with the attempt number and capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := time.Duration(attempt) * p.BaseDelay
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}
