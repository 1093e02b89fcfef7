package task

import (
	"errors"
	"fmt"
)

// ErrProcessing marks a transient failure of the consumer's work unit.
// Only errors of this kind qualify for redelivery; anything else fails
// the task immediately.
var ErrProcessing = errors.New("Failed to process task")

// ProcessingError wraps err as a retryable processing failure.
func ProcessingError(err error) error {
	return fmt.Errorf("%w: %v", ErrProcessing, err)
}

// IsProcessingError reports whether the error is a retryable processing failure.
// This is the retryable-error predicate wired into the queue's retry policy.
func IsProcessingError(err error) bool {
	return errors.Is(err, ErrProcessing)
}
