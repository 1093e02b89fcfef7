package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mwhitlock/taskpipe/internal/cache"
	"github.com/mwhitlock/taskpipe/internal/domain"
	"github.com/mwhitlock/taskpipe/internal/metrics"
	"github.com/mwhitlock/taskpipe/internal/queue"
	"github.com/mwhitlock/taskpipe/internal/store"
)

// Consumer processes task deliveries from the queue. Per delivery it loads
// the task, transitions it to PROCESSING, runs the work unit, and finalizes
// COMPLETED or FAILED. Every status write evicts the task's status cache
// entry before the call returns.
type Consumer struct {
	store       store.TaskStore
	cache       cache.StatusCache
	metrics     *metrics.Recorder
	work        WorkFunc
	maxAttempts int
	logger      *slog.Logger
}

// NewConsumer creates a Consumer. maxAttempts must match the transport's
// retry policy: the consumer finalizes FAILED on the last attempt, and the
// queue stops redelivering at the same bound.
func NewConsumer(
	taskStore store.TaskStore,
	statusCache cache.StatusCache,
	recorder *metrics.Recorder,
	work WorkFunc,
	maxAttempts int,
	logger *slog.Logger,
) *Consumer {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	return &Consumer{
		store:       taskStore,
		cache:       statusCache,
		metrics:     recorder,
		work:        work,
		maxAttempts: maxAttempts,
		logger:      logger.With("component", "task_consumer"),
	}
}

// Ensure Consumer implements the queue.Handler interface
var _ queue.Handler = (*Consumer)(nil)

// HandleDelivery processes one delivery attempt. A returned processing
// error on a non-final attempt causes the queue to redeliver; any error
// returned from the final attempt has already been recorded as a FAILED
// status here and is propagated only for dead-letter routing.
func (c *Consumer) HandleDelivery(ctx context.Context, d queue.Delivery) error {
	logger := c.logger.With(
		"task_id", d.TaskID,
		"message_id", d.ID,
		"attempt", d.Attempt,
	)

	task, err := c.store.GetByID(ctx, d.TaskID)
	if err != nil {
		logger.Error("failed to load task for delivery", "error", err)
		// Not-found and other load errors are not retryable.
		return err
	}

	// Duplicate deliveries of an already-terminal task are no-ops so the
	// completed/failed metrics are never double-counted.
	if task.IsTerminal() {
		logger.Info("skipping delivery for terminal task", "status", task.Status)
		return nil
	}

	if err := c.transition(ctx, task, domain.TaskStatusProcessing); err != nil {
		logger.Error("failed to mark task processing", "error", err)
		return err
	}

	logger.Info("processing task")

	if err := c.work(ctx, task); err != nil {
		return c.handleWorkFailure(ctx, task, d, err, logger)
	}

	if err := c.transition(ctx, task, domain.TaskStatusCompleted); err != nil {
		logger.Error("failed to mark task completed", "error", err)
		return err
	}
	c.metrics.IncCompleted()

	logger.Info("task completed successfully")
	return nil
}

// handleWorkFailure decides between redelivery and terminal failure.
func (c *Consumer) handleWorkFailure(
	ctx context.Context,
	task *domain.Task,
	d queue.Delivery,
	workErr error,
	logger *slog.Logger,
) error {
	retryable := IsProcessingError(workErr)

	if retryable && d.Attempt < c.maxAttempts {
		logger.Warn("task work failed, leaving redelivery to the transport",
			"error", workErr)
		return workErr
	}

	if err := c.transition(ctx, task, domain.TaskStatusFailed); err != nil {
		logger.Error("failed to mark task failed", "error", err)
		return err
	}
	c.metrics.IncFailed()

	logger.Error("task failed terminally",
		"retryable", retryable,
		"error", workErr)

	// Propagate the original error kind so the transport can dead-letter it.
	return workErr
}

// transition updates the task status, persists it, and evicts the status
// cache entry. The eviction happens synchronously as part of the write.
func (c *Consumer) transition(ctx context.Context, task *domain.Task, status domain.TaskStatus) error {
	if err := task.UpdateStatus(status); err != nil {
		return fmt.Errorf("invalid status transition: %w", err)
	}

	if err := c.store.Update(ctx, task); err != nil {
		return fmt.Errorf("failed to persist status %s: %w", status, err)
	}

	c.cache.Evict(task.ID)
	return nil
}
