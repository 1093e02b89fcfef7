package queue

import (
	"math"
	"time"
)

// RetryPolicy describes the redelivery schedule for failed deliveries:
// how many attempts a message gets in total, how the delay between
// attempts grows, and which errors qualify for redelivery at all.
// The schedule is fixed configuration, not runtime-derived.
type RetryPolicy struct {
	// MaxAttempts is the total number of delivery attempts per message,
	// including the first.
	MaxAttempts int

	// BaseDelay is the delay before the first redelivery.
	BaseDelay time.Duration

	// Multiplier scales the delay on each subsequent redelivery.
	Multiplier float64

	// Retryable reports whether an error qualifies for redelivery.
	// A nil predicate retries nothing.
	Retryable func(error) bool
}

// DefaultRetryPolicy returns the reference redelivery schedule: 3 total
// attempts with delays of 1s and 2s (multiplier 2.0 off a 1s base).
// The retryable predicate is left for the caller to supply.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2.0,
	}
}

// Delay returns the wait before redelivering a message whose attempt-th
// delivery failed: BaseDelay * Multiplier^(attempt-1). Attempts are 1-based.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1)))
}

// ShouldRetry reports whether a delivery that failed with err on the given
// attempt should be redelivered.
func (p RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= p.MaxAttempts {
		return false
	}
	return p.Retryable != nil && p.Retryable(err)
}
