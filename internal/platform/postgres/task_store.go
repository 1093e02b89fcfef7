package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwhitlock/taskpipe/internal/domain"
	"github.com/mwhitlock/taskpipe/internal/platform/logger"
	"github.com/mwhitlock/taskpipe/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	sqlDB  *sql.DB
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	// Keep the raw connection when one was provided so callers can open
	// transactions; a transaction-scoped store leaves it nil.
	sqlDB, _ := db.(*sql.DB)

	return &PostgresTaskStore{
		db:     db,
		sqlDB:  sqlDB,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// DB returns the underlying database connection, or nil when the store is
// scoped to a transaction. Pair it with store.RunInTransaction and WithTx.
func (s *PostgresTaskStore) DB() *sql.DB {
	return s.sqlDB
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

const taskColumns = "id, name, payload, status, created_at, updated_at"

// Create implements store.TaskStore.Create
// It inserts a new task row and returns the task with its assigned ID.
func (s *PostgresTaskStore) Create(
	ctx context.Context,
	name, payload string,
	status domain.TaskStatus,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()
	task := &domain.Task{
		Name:      name,
		Payload:   payload,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO tasks (name, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := s.db.QueryRowContext(
		ctx,
		query,
		task.Name,
		task.Payload,
		task.Status,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_name", name))
		return nil, store.NewStoreError("task", "create", "failed to insert task", err)
	}

	log.Debug("task created",
		slog.Int64("task_id", task.ID),
		slog.String("status", string(task.Status)))
	return task, nil
}

// GetByID implements store.TaskStore.GetByID
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.Int64("task_id", id))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return nil, store.NewStoreError("task", "get", "failed to query task", err)
	}
	return task, nil
}

// Update implements store.TaskStore.Update
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET name = $1, payload = $2, status = $3, updated_at = $4
		WHERE id = $5
	`
	task.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(
		ctx,
		query,
		task.Name,
		task.Payload,
		task.Status,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", task.ID))
		return store.NewStoreError("task", "update", "failed to update task", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to read rows affected after task update",
			slog.String("error", err.Error()),
			slog.Int64("task_id", task.ID))
		return store.NewStoreError("task", "update", "failed to read rows affected", err)
	}
	if rows == 0 {
		log.Debug("task not found during update", slog.Int64("task_id", task.ID))
		return store.ErrTaskNotFound
	}

	log.Debug("task updated",
		slog.Int64("task_id", task.ID),
		slog.String("status", string(task.Status)))
	return nil
}

// FindAll implements store.TaskStore.FindAll
// It reads every task row; the statistics aggregator depends on the full scan.
func (s *PostgresTaskStore) FindAll(ctx context.Context) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to query all tasks", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "find_all", "failed to query tasks", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTasks(rows)
}

// List implements store.TaskStore.List
// The sort field and direction must already be validated by the caller; they
// are checked again here because they are interpolated into the query.
func (s *PostgresTaskStore) List(ctx context.Context, params store.ListParams) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !store.ValidSortField(params.SortField) {
		return nil, fmt.Errorf("unsortable field %q", params.SortField)
	}
	direction := "ASC"
	if params.SortDir == store.SortDesc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT `+taskColumns+`
		FROM tasks
		ORDER BY %s %s
		LIMIT $1 OFFSET $2
	`, params.SortField, direction)

	rows, err := s.db.QueryContext(ctx, query, params.Limit, params.Offset)
	if err != nil {
		log.Error("failed to list tasks",
			slog.String("error", err.Error()),
			slog.String("sort_field", params.SortField),
			slog.Int("limit", params.Limit),
			slog.Int("offset", params.Offset))
		return nil, store.NewStoreError("task", "list", "failed to query task page", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTasks(rows)
}

// WithTx implements store.TaskStore.WithTx
// It returns a new store instance backed by the provided transaction.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var status string

	err := row.Scan(
		&task.ID,
		&task.Name,
		&task.Payload,
		&status,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	return &task, nil
}

func collectTasks(rows *sql.Rows) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}
