package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors returned by the queue
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// Delivery is a single delivery attempt of a queue message to a handler.
// The same message may be delivered more than once under at-least-once
// semantics; Attempt counts deliveries starting at 1.
type Delivery struct {
	// ID identifies the message across all of its delivery attempts.
	ID uuid.UUID

	// TaskID is the task identifier carried by the message.
	TaskID int64

	// Attempt is the 1-based delivery attempt number.
	Attempt int
}

// Handler processes deliveries. A non-nil error marks the delivery failed;
// whether it is redelivered depends on the queue's retry policy.
// Version: 1.0
type Handler interface {
	HandleDelivery(ctx context.Context, d Delivery) error
}

// Publisher enqueues task IDs for asynchronous processing.
// Version: 1.0
type Publisher interface {
	// Publish enqueues the task ID. Returns ErrQueueFull or ErrQueueClosed
	// when the message cannot be accepted.
	Publish(ctx context.Context, taskID int64) error
}

// DeadLetterFunc receives deliveries whose retries are exhausted or whose
// error is not retryable, along with the final error.
type DeadLetterFunc func(d Delivery, err error)

// message is the wire format: the body is a string-encoded task ID, opaque
// beyond that. Full task data is re-read from the store by the consumer.
type message struct {
	id      uuid.UUID
	body    string
	attempt int
}

// Config holds configuration for the in-memory queue.
type Config struct {
	// BufferSize is the capacity of the message buffer.
	BufferSize int

	// WorkerCount determines how many concurrent workers drain the queue.
	WorkerCount int

	// Retry is the redelivery schedule applied to failed deliveries.
	Retry RetryPolicy
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:  100,
		WorkerCount: 2,
		Retry:       DefaultRetryPolicy(),
	}
}

// InMemoryQueue is a buffered, at-least-once task queue drained by a fixed
// pool of workers. Deliveries of a given message are processed serially:
// a redelivery is only scheduled after the previous attempt has returned.
type InMemoryQueue struct {
	messages chan message
	config   Config
	handler  Handler
	dlq      DeadLetterFunc
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewInMemoryQueue creates a queue with the given configuration and handler.
// The dead-letter function may be nil, in which case exhausted deliveries
// are only logged.
func NewInMemoryQueue(config Config, handler Handler, dlq DeadLetterFunc, logger *slog.Logger) *InMemoryQueue {
	if config.BufferSize <= 0 {
		config.BufferSize = 100
	}
	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
		config.WorkerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &InMemoryQueue{
		messages: make(chan message, config.BufferSize),
		config:   config,
		handler:  handler,
		dlq:      dlq,
		logger:   logger.With("component", "task_queue"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ensure InMemoryQueue implements the Publisher interface
var _ Publisher = (*InMemoryQueue)(nil)

// Publish enqueues the task ID for processing.
// Returns an error if the queue is full or closed.
func (q *InMemoryQueue) Publish(ctx context.Context, taskID int64) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrQueueClosed
	}

	m := message{
		id:      uuid.New(),
		body:    strconv.FormatInt(taskID, 10),
		attempt: 1,
	}

	select {
	case q.messages <- m:
		q.logger.Debug("message enqueued",
			"message_id", m.id,
			"task_id", taskID,
			"queue_len", len(q.messages),
			"queue_cap", cap(q.messages))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.messages))
	}
}

// Start launches the worker pool that drains the queue.
func (q *InMemoryQueue) Start() {
	for i := 0; i < q.config.WorkerCount; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop closes the queue to new messages, cancels in-flight work and
// pending redeliveries, and waits for the workers to exit.
func (q *InMemoryQueue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
	q.logger.Info("task queue stopped")
}

// worker consumes messages until the queue is stopped.
func (q *InMemoryQueue) worker(id int) {
	defer q.wg.Done()

	q.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-q.ctx.Done():
			q.logger.Debug("stopping worker", "worker_id", id)
			return

		case m := <-q.messages:
			q.dispatch(m, id)
		}
	}
}

// dispatch delivers a single message to the handler and decides its fate:
// done, redelivered with backoff, or dead-lettered.
func (q *InMemoryQueue) dispatch(m message, workerID int) {
	logger := q.logger.With(
		"message_id", m.id,
		"attempt", m.attempt,
		"worker_id", workerID,
	)

	taskID, err := strconv.ParseInt(m.body, 10, 64)
	if err != nil {
		logger.Error("malformed message body, dead-lettering", "body", m.body, "error", err)
		q.deadLetter(Delivery{ID: m.id, Attempt: m.attempt}, fmt.Errorf("malformed message body %q: %w", m.body, err))
		return
	}

	d := Delivery{ID: m.id, TaskID: taskID, Attempt: m.attempt}

	err = q.handler.HandleDelivery(q.ctx, d)
	if err == nil {
		return
	}

	if q.config.Retry.ShouldRetry(err, m.attempt) {
		delay := q.config.Retry.Delay(m.attempt)
		logger.Info("delivery failed, scheduling redelivery",
			"task_id", taskID,
			"delay", delay,
			"error", err)
		q.scheduleRedelivery(m, delay)
		return
	}

	logger.Error("delivery failed terminally",
		"task_id", taskID,
		"error", err)
	q.deadLetter(d, err)
}

// scheduleRedelivery re-enqueues the message with an incremented attempt
// counter after the backoff delay. The delay is timer-scheduled, never
// busy-waited, and is abandoned if the queue stops first.
func (q *InMemoryQueue) scheduleRedelivery(m message, delay time.Duration) {
	next := message{id: m.id, body: m.body, attempt: m.attempt + 1}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
		}

		select {
		case q.messages <- next:
		case <-q.ctx.Done():
		}
	}()
}

func (q *InMemoryQueue) deadLetter(d Delivery, err error) {
	if q.dlq != nil {
		q.dlq(d, err)
	}
}
