package store

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/mwhitlock/taskpipe/internal/domain"
)

// MemoryTaskStore is an in-memory TaskStore implementation. It backs unit
// tests and local development runs; production deployments use the
// Postgres implementation in internal/platform/postgres.
type MemoryTaskStore struct {
	mu     sync.RWMutex
	tasks  map[int64]*domain.Task
	nextID int64
}

// NewMemoryTaskStore creates an empty MemoryTaskStore.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		tasks:  make(map[int64]*domain.Task),
		nextID: 1,
	}
}

// Ensure MemoryTaskStore implements the TaskStore interface
var _ TaskStore = (*MemoryTaskStore)(nil)

// Create persists a new task and assigns it the next sequential ID.
func (s *MemoryTaskStore) Create(
	ctx context.Context,
	name, payload string,
	status domain.TaskStatus,
) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := &domain.Task{
		ID:      s.nextID,
		Name:    name,
		Payload: payload,
		Status:  status,
	}
	task.CreatedAt = nowUTC()
	task.UpdatedAt = task.CreatedAt

	s.tasks[task.ID] = copyTask(task)
	s.nextID++

	return task, nil
}

// GetByID retrieves a task by ID, or ErrTaskNotFound.
func (s *MemoryTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return copyTask(task), nil
}

// Update replaces the stored task keyed by its ID.
func (s *MemoryTaskStore) Update(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; !ok {
		return ErrTaskNotFound
	}

	updated := copyTask(task)
	updated.UpdatedAt = nowUTC()
	s.tasks[task.ID] = updated

	return nil
}

// FindAll returns every stored task in ID order.
func (s *MemoryTaskStore) FindAll(ctx context.Context) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*domain.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, copyTask(task))
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// List returns a single page of tasks ordered by the given parameters.
func (s *MemoryTaskStore) List(ctx context.Context, params ListParams) ([]*domain.Task, error) {
	tasks, err := s.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		less := lessByField(tasks[i], tasks[j], params.SortField)
		if params.SortDir == SortDesc {
			return !less && !equalByField(tasks[i], tasks[j], params.SortField)
		}
		return less
	})

	if params.Offset >= len(tasks) {
		return []*domain.Task{}, nil
	}

	end := params.Offset + params.Limit
	if end > len(tasks) {
		end = len(tasks)
	}

	return tasks[params.Offset:end], nil
}

// WithTx satisfies the TaskStore interface; the in-memory store has no
// transaction support, so it returns itself.
func (s *MemoryTaskStore) WithTx(tx *sql.Tx) TaskStore {
	return s
}

func lessByField(a, b *domain.Task, field string) bool {
	switch field {
	case SortByName:
		return a.Name < b.Name
	case SortByPayload:
		return a.Payload < b.Payload
	case SortByStatus:
		return a.Status < b.Status
	case SortByCreatedAt:
		return a.CreatedAt.Before(b.CreatedAt)
	case SortByUpdatedAt:
		return a.UpdatedAt.Before(b.UpdatedAt)
	default:
		return a.ID < b.ID
	}
}

func equalByField(a, b *domain.Task, field string) bool {
	switch field {
	case SortByName:
		return a.Name == b.Name
	case SortByPayload:
		return a.Payload == b.Payload
	case SortByStatus:
		return a.Status == b.Status
	case SortByCreatedAt:
		return a.CreatedAt.Equal(b.CreatedAt)
	case SortByUpdatedAt:
		return a.UpdatedAt.Equal(b.UpdatedAt)
	default:
		return a.ID == b.ID
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func copyTask(task *domain.Task) *domain.Task {
	c := *task
	return &c
}
