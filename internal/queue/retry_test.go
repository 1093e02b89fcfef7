package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errTransient = errors.New("transient failure")

func TestRetryPolicyDelay(t *testing.T) {
	policy := DefaultRetryPolicy()

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{0, time.Second}, // clamped to attempt 1
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, policy.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRetryPolicyDelayCustomBase(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		Multiplier:  3.0,
	}

	assert.Equal(t, 100*time.Millisecond, policy.Delay(1))
	assert.Equal(t, 300*time.Millisecond, policy.Delay(2))
	assert.Equal(t, 900*time.Millisecond, policy.Delay(3))
}

func TestShouldRetry(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2.0,
		Retryable:   func(err error) bool { return errors.Is(err, errTransient) },
	}

	assert.True(t, policy.ShouldRetry(errTransient, 1))
	assert.True(t, policy.ShouldRetry(errTransient, 2))
	assert.False(t, policy.ShouldRetry(errTransient, 3), "last attempt is never retried")
	assert.False(t, policy.ShouldRetry(errors.New("permanent"), 1), "non-retryable errors are not redelivered")
	assert.False(t, policy.ShouldRetry(nil, 1))
}

func TestShouldRetryNilPredicate(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2.0}
	assert.False(t, policy.ShouldRetry(errTransient, 1), "nil predicate retries nothing")
}
