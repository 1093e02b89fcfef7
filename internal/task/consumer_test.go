package task

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitlock/taskpipe/internal/cache"
	"github.com/mwhitlock/taskpipe/internal/domain"
	"github.com/mwhitlock/taskpipe/internal/metrics"
	"github.com/mwhitlock/taskpipe/internal/queue"
	"github.com/mwhitlock/taskpipe/internal/store"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// consumerFixture bundles the consumer with its collaborators for assertions.
type consumerFixture struct {
	store    *store.MemoryTaskStore
	cache    cache.StatusCache
	registry *prometheus.Registry
	recorder *metrics.Recorder
}

func newConsumerFixture(t *testing.T, work WorkFunc, maxAttempts int) (*Consumer, *consumerFixture) {
	t.Helper()

	f := &consumerFixture{
		store:    store.NewMemoryTaskStore(),
		cache:    cache.NewTTLStatusCache(time.Minute),
		registry: prometheus.NewRegistry(),
	}
	f.recorder = metrics.NewRecorder(f.registry)

	consumer := NewConsumer(f.store, f.cache, f.recorder, work, maxAttempts, setupTestLogger())
	return consumer, f
}

func (f *consumerFixture) counter(t *testing.T, name string) float64 {
	t.Helper()

	families, err := f.registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func (f *consumerFixture) createPendingTask(t *testing.T) *domain.Task {
	t.Helper()

	task, err := f.store.Create(context.Background(), "Sample Task", "payload", domain.TaskStatusPending)
	require.NoError(t, err)
	return task
}

func delivery(taskID int64, attempt int) queue.Delivery {
	return queue.Delivery{ID: uuid.New(), TaskID: taskID, Attempt: attempt}
}

func TestHandleDeliverySuccess(t *testing.T) {
	consumer, f := newConsumerFixture(t, SimulatedWork(0), 3)
	task := f.createPendingTask(t)

	// Seed a stale cache entry to verify the eviction discipline.
	f.cache.Put(task.ID, domain.TaskStatusPending)

	err := consumer.HandleDelivery(context.Background(), delivery(task.ID, 1))
	require.NoError(t, err)

	stored, err := f.store.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, stored.Status)

	_, cached := f.cache.Get(task.ID)
	assert.False(t, cached, "status write must evict the cache entry")

	assert.Equal(t, 1.0, f.counter(t, "tasks_completed_total"))
	assert.Equal(t, 0.0, f.counter(t, "tasks_failed_total"))
}

func TestHandleDeliveryRetryableFailureReturnsError(t *testing.T) {
	work := func(ctx context.Context, task *domain.Task) error {
		return ProcessingError(errors.New("downstream unavailable"))
	}
	consumer, f := newConsumerFixture(t, work, 3)
	task := f.createPendingTask(t)

	err := consumer.HandleDelivery(context.Background(), delivery(task.ID, 1))
	require.Error(t, err)
	assert.True(t, IsProcessingError(err))

	// Not final: task stays PROCESSING awaiting redelivery, no failed metric.
	stored, err := f.store.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusProcessing, stored.Status)
	assert.Equal(t, 0.0, f.counter(t, "tasks_failed_total"))
}

func TestHandleDeliveryFinalAttemptFails(t *testing.T) {
	work := func(ctx context.Context, task *domain.Task) error {
		return ProcessingError(errors.New("downstream unavailable"))
	}
	consumer, f := newConsumerFixture(t, work, 3)
	task := f.createPendingTask(t)

	err := consumer.HandleDelivery(context.Background(), delivery(task.ID, 3))
	require.Error(t, err, "the error propagates for dead-letter routing")

	stored, err := f.store.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
	assert.Equal(t, 1.0, f.counter(t, "tasks_failed_total"))
	assert.Equal(t, 0.0, f.counter(t, "tasks_completed_total"))
}

func TestHandleDeliveryNonRetryableFailsImmediately(t *testing.T) {
	work := func(ctx context.Context, task *domain.Task) error {
		return errors.New("payload corrupt")
	}
	consumer, f := newConsumerFixture(t, work, 3)
	task := f.createPendingTask(t)

	err := consumer.HandleDelivery(context.Background(), delivery(task.ID, 1))
	require.Error(t, err)
	assert.False(t, IsProcessingError(err))

	stored, err := f.store.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status, "non-retryable errors fail on the first attempt")
	assert.Equal(t, 1.0, f.counter(t, "tasks_failed_total"))
}

func TestHandleDeliveryDuplicateOfTerminalTask(t *testing.T) {
	consumer, f := newConsumerFixture(t, SimulatedWork(0), 3)
	task := f.createPendingTask(t)

	require.NoError(t, consumer.HandleDelivery(context.Background(), delivery(task.ID, 1)))
	require.Equal(t, 1.0, f.counter(t, "tasks_completed_total"))

	// At-least-once delivery: the same message arrives again.
	err := consumer.HandleDelivery(context.Background(), delivery(task.ID, 1))
	require.NoError(t, err)

	stored, err := f.store.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, stored.Status)
	assert.Equal(t, 1.0, f.counter(t, "tasks_completed_total"), "duplicate deliveries must not double-count")
}

func TestHandleDeliveryUnknownTask(t *testing.T) {
	consumer, f := newConsumerFixture(t, SimulatedWork(0), 3)

	err := consumer.HandleDelivery(context.Background(), delivery(999, 1))
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.Equal(t, 0.0, f.counter(t, "tasks_failed_total"))
}

func TestStatusTransitionOrder(t *testing.T) {
	var observed []domain.TaskStatus

	work := func(ctx context.Context, task *domain.Task) error {
		observed = append(observed, task.Status)
		return nil
	}

	consumer, f := newConsumerFixture(t, work, 3)
	task := f.createPendingTask(t)

	assert.Equal(t, domain.TaskStatusPending, task.Status)

	require.NoError(t, consumer.HandleDelivery(context.Background(), delivery(task.ID, 1)))

	require.Len(t, observed, 1)
	assert.Equal(t, domain.TaskStatusProcessing, observed[0], "work runs after the PROCESSING write")

	stored, err := f.store.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, stored.Status)
}

// TestPipelineEndToEndFailure wires the consumer to a real queue and checks
// the full redelivery contract: a task that fails every attempt ends FAILED
// after exactly three deliveries, and the message is dead-lettered.
func TestPipelineEndToEndFailure(t *testing.T) {
	work := func(ctx context.Context, task *domain.Task) error {
		return ProcessingError(errors.New("downstream unavailable"))
	}
	consumer, f := newConsumerFixture(t, work, 3)

	dead := make(chan queue.Delivery, 1)
	q := queue.NewInMemoryQueue(queue.Config{
		BufferSize:  10,
		WorkerCount: 2,
		Retry: queue.RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   20 * time.Millisecond,
			Multiplier:  2.0,
			Retryable:   IsProcessingError,
		},
	}, consumer, func(d queue.Delivery, err error) {
		dead <- d
	}, setupTestLogger())
	q.Start()
	defer q.Stop()

	task := f.createPendingTask(t)
	require.NoError(t, q.Publish(context.Background(), task.ID))

	select {
	case d := <-dead:
		assert.Equal(t, task.ID, d.TaskID)
		assert.Equal(t, 3, d.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dead-lettered delivery")
	}

	stored, err := f.store.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
	assert.Equal(t, 1.0, f.counter(t, "tasks_failed_total"))
}

// TestPipelineEndToEndSuccess covers the happy path through the real queue.
func TestPipelineEndToEndSuccess(t *testing.T) {
	consumer, f := newConsumerFixture(t, SimulatedWork(5*time.Millisecond), 3)

	q := queue.NewInMemoryQueue(queue.Config{
		BufferSize:  10,
		WorkerCount: 2,
		Retry: queue.RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   20 * time.Millisecond,
			Multiplier:  2.0,
			Retryable:   IsProcessingError,
		},
	}, consumer, nil, setupTestLogger())
	q.Start()
	defer q.Stop()

	task := f.createPendingTask(t)
	require.NoError(t, q.Publish(context.Background(), task.ID))

	assert.Eventually(t, func() bool {
		stored, err := f.store.GetByID(context.Background(), task.ID)
		return err == nil && stored.Status == domain.TaskStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1.0, f.counter(t, "tasks_completed_total"))
}
