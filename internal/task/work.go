package task

import (
	"context"
	"time"

	"github.com/mwhitlock/taskpipe/internal/domain"
)

// WorkFunc is the task's work unit, executed once per delivery attempt.
// Transient failures should be reported via ProcessingError so the
// transport redelivers; any other error fails the task immediately.
type WorkFunc func(ctx context.Context, task *domain.Task) error

// SimulatedWork returns a WorkFunc that idles for the given duration and
// succeeds. It stands in for real processing; deployments plug actual
// work in through the Consumer constructor. The delay yields the worker
// without blocking others and respects context cancellation.
func SimulatedWork(delay time.Duration) WorkFunc {
	return func(ctx context.Context, task *domain.Task) error {
		if delay <= 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}
