package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mwhitlock/taskpipe/internal/cache"
	"github.com/mwhitlock/taskpipe/internal/domain"
	"github.com/mwhitlock/taskpipe/internal/metrics"
	"github.com/mwhitlock/taskpipe/internal/queue"
	"github.com/mwhitlock/taskpipe/internal/store"
)

// SubmitAckMessage is returned to the caller as soon as a submission passes
// validation, before the persist-and-enqueue pipeline has run.
const SubmitAckMessage = "Task Management Initiation Started"

// Listing defaults applied when the caller omits paging or sort parameters.
const (
	DefaultPage      = 0
	DefaultPageSize  = 10
	DefaultSortField = store.SortByID
	DefaultSortDir   = string(store.SortAsc)
)

// Submission retry policies.
const (
	RetryPolicyFixed       = "fixed"
	RetryPolicyExponential = "exponential"
)

// SubmissionAck acknowledges an accepted submission. It carries no task ID:
// the task is persisted asynchronously and may not exist yet.
type SubmissionAck struct {
	TaskName string
	Message  string
}

// Statistics is an aggregate snapshot over every task ever recorded,
// including tasks still in flight. Rates are percentages of the total.
type Statistics struct {
	TotalTasks     int64
	CompletedTasks int64
	FailedTasks    int64
	SuccessRate    float64
	FailureRate    float64
}

// SubmitConfig bounds the asynchronous persist-and-enqueue pipeline.
type SubmitConfig struct {
	// MaxAttempts is the total number of pipeline attempts, including the first.
	MaxAttempts int
	// RetryDelay is the base delay between attempts.
	RetryDelay time.Duration
	// Policy selects the backoff shape: RetryPolicyFixed or RetryPolicyExponential.
	Policy string
}

// TaskService provides task-related operations
type TaskService interface {
	// Submit validates the submission and, when it is well formed, hands it
	// to the asynchronous persist-and-enqueue pipeline. The returned ack only
	// means the submission was accepted; processing happens later.
	Submit(ctx context.Context, name, payload string) (*SubmissionAck, error)

	// GetStatusByID returns the current status of a task, serving from the
	// status cache when possible.
	GetStatusByID(ctx context.Context, id int64) (domain.TaskStatus, error)

	// ListTasks returns one page of tasks ordered by the given field and
	// direction. Page numbering starts at zero.
	ListTasks(ctx context.Context, page, size int, sortBy, sortDir string) ([]*domain.Task, error)

	// GetStatistics aggregates success and failure rates over all tasks.
	GetStatistics(ctx context.Context) (*Statistics, error)

	// Wait blocks until every in-flight asynchronous submission has finished.
	// Called during shutdown.
	Wait()
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	taskStore store.TaskStore
	publisher queue.Publisher
	statuses  cache.StatusCache
	metrics   *metrics.Recorder
	submit    SubmitConfig
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	taskStore store.TaskStore,
	publisher queue.Publisher,
	statuses cache.StatusCache,
	recorder *metrics.Recorder,
	submit SubmitConfig,
	logger *slog.Logger,
) (TaskService, error) {
	if taskStore == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "taskStore cannot be nil",
		}
	}
	if publisher == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "publisher cannot be nil",
		}
	}
	if statuses == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "statuses cannot be nil",
		}
	}
	if recorder == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "recorder cannot be nil",
		}
	}

	if submit.MaxAttempts < 1 {
		submit.MaxAttempts = 1
	}
	if submit.RetryDelay <= 0 {
		submit.RetryDelay = time.Millisecond
	}
	if submit.Policy == "" {
		submit.Policy = RetryPolicyFixed
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		taskStore: taskStore,
		publisher: publisher,
		statuses:  statuses,
		metrics:   recorder,
		submit:    submit,
		logger:    logger.With("component", "task_service"),
	}, nil
}

// Submit validates the request synchronously and launches the
// persist-and-enqueue pipeline in the background. Validation failures are the
// only errors the caller sees; pipeline failures are compensated and logged.
func (s *taskServiceImpl) Submit(ctx context.Context, name, payload string) (*SubmissionAck, error) {
	if err := domain.ValidateName(name); err != nil {
		return nil, err
	}
	if err := domain.ValidatePayload(payload); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// The request context ends when the ack is written, so the pipeline
		// runs under its own context.
		if err := s.submitPipeline(context.Background(), name, payload); err != nil {
			s.logger.Error("task submission pipeline failed terminally",
				"error", err,
				"task_name", name)
		}
	}()

	return &SubmissionAck{TaskName: name, Message: SubmitAckMessage}, nil
}

// submitPipeline persists the task and enqueues its ID, retrying the whole
// sequence on enqueue failure. Each attempt writes its own PENDING row; rows
// from failed attempts are left in place. On exhaustion it writes a
// compensating FAILED row and reports ErrTaskProcessing.
func (s *taskServiceImpl) submitPipeline(ctx context.Context, name, payload string) error {
	var backoff retry.Backoff
	if s.submit.Policy == RetryPolicyExponential {
		backoff = retry.NewExponential(s.submit.RetryDelay)
	} else {
		backoff = retry.NewConstant(s.submit.RetryDelay)
	}
	backoff = retry.WithMaxRetries(uint64(s.submit.MaxAttempts-1), backoff)

	var task *domain.Task
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		created, err := s.createTask(ctx, name, payload, domain.TaskStatusPending)
		if err != nil {
			s.logger.Error("failed to persist submitted task",
				"error", err,
				"task_name", name)
			return fmt.Errorf("persisting task: %w", err)
		}

		if err := s.publisher.Publish(ctx, created.ID); err != nil {
			s.logger.Warn("failed to enqueue task, retrying submission",
				"error", err,
				"task_id", created.ID)
			return retry.RetryableError(fmt.Errorf("enqueueing task %d: %w", created.ID, err))
		}

		task = created
		return nil
	})
	if err != nil {
		return s.compensate(ctx, name, payload, err)
	}

	s.metrics.IncSubmitted()
	s.logger.Info("task submitted",
		"task_id", task.ID,
		"task_name", task.Name)
	return nil
}

// txCapableStore is implemented by SQL-backed stores. Stores that expose
// their connection get their writes wrapped in a transaction.
type txCapableStore interface {
	DB() *sql.DB
}

// createTask persists one task row. When the store is SQL-backed the insert
// runs inside a transaction via the store's WithTx variant; the in-memory
// store writes directly.
func (s *taskServiceImpl) createTask(
	ctx context.Context,
	name, payload string,
	status domain.TaskStatus,
) (*domain.Task, error) {
	ts, ok := s.taskStore.(txCapableStore)
	if !ok || ts.DB() == nil {
		return s.taskStore.Create(ctx, name, payload, status)
	}

	var created *domain.Task
	err := store.RunInTransaction(ctx, ts.DB(), func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		created, txErr = s.taskStore.WithTx(tx).Create(ctx, name, payload, status)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// compensate records the terminal submission failure as a FAILED task so the
// outcome is queryable. The FAILED record is a new row; PENDING rows written
// by earlier attempts are not touched.
func (s *taskServiceImpl) compensate(ctx context.Context, name, payload string, cause error) error {
	if _, err := s.createTask(ctx, name, payload, domain.TaskStatusFailed); err != nil {
		s.logger.Error("failed to write compensating FAILED task",
			"error", err,
			"task_name", name)
	}
	s.metrics.IncFailed()
	return NewTaskServiceError("submit_task", "submission retries exhausted",
		fmt.Errorf("%w: %v", ErrTaskProcessing, cause))
}

// GetStatusByID returns the task's status, preferring the cache. Cache misses
// fall through to the store and repopulate the cache on success.
func (s *taskServiceImpl) GetStatusByID(ctx context.Context, id int64) (domain.TaskStatus, error) {
	if status, ok := s.statuses.Get(id); ok {
		return status, nil
	}

	task, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			return "", &TaskNotFoundError{ID: id}
		}
		s.logger.Error("failed to retrieve task status",
			"error", err,
			"task_id", id)
		return "", NewTaskServiceError("get_status", "failed to load task", err)
	}

	s.statuses.Put(id, task.Status)
	return task.Status, nil
}

// ListTasks validates the sort parameters and returns the requested page.
func (s *taskServiceImpl) ListTasks(ctx context.Context, page, size int, sortBy, sortDir string) ([]*domain.Task, error) {
	if page < 0 {
		page = DefaultPage
	}
	if size <= 0 {
		size = DefaultPageSize
	}

	if !store.ValidSortField(sortBy) {
		return nil, &InvalidSortFieldError{Field: sortBy}
	}

	dir := store.SortDirection(strings.ToLower(sortDir))
	if dir != store.SortAsc && dir != store.SortDesc {
		return nil, &InvalidSortDirectionError{Direction: sortDir}
	}

	tasks, err := s.taskStore.List(ctx, store.ListParams{
		Offset:    page * size,
		Limit:     size,
		SortField: sortBy,
		SortDir:   dir,
	})
	if err != nil {
		s.logger.Error("failed to list tasks",
			"error", err,
			"page", page,
			"size", size)
		return nil, NewTaskServiceError("list_tasks", "failed to list tasks", err)
	}
	return tasks, nil
}

// GetStatistics scans every task and aggregates terminal outcomes. Tasks in
// PENDING or PROCESSING count toward the total but toward neither rate.
func (s *taskServiceImpl) GetStatistics(ctx context.Context) (*Statistics, error) {
	tasks, err := s.taskStore.FindAll(ctx)
	if err != nil {
		s.logger.Error("failed to load tasks for statistics", "error", err)
		return nil, NewTaskServiceError("get_statistics", "failed to load tasks", err)
	}

	stats := &Statistics{TotalTasks: int64(len(tasks))}
	for _, t := range tasks {
		switch t.Status {
		case domain.TaskStatusCompleted:
			stats.CompletedTasks++
		case domain.TaskStatusFailed:
			stats.FailedTasks++
		}
	}
	if stats.TotalTasks > 0 {
		stats.SuccessRate = float64(stats.CompletedTasks) / float64(stats.TotalTasks) * 100
		stats.FailureRate = float64(stats.FailedTasks) / float64(stats.TotalTasks) * 100
	}
	return stats, nil
}

// Wait blocks until in-flight submissions drain.
func (s *taskServiceImpl) Wait() {
	s.wg.Wait()
}
