package store

import (
	"context"
	"database/sql"

	"github.com/mwhitlock/taskpipe/internal/domain"
)

// SortDirection is the ordering applied to a sorted task listing.
type SortDirection string

// Recognized sort directions.
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sortable task attributes. Callers must validate the sort field against
// this set before building ListParams; the store trusts its input.
const (
	SortByID        = "id"
	SortByName      = "name"
	SortByPayload   = "payload"
	SortByStatus    = "status"
	SortByCreatedAt = "created_at"
	SortByUpdatedAt = "updated_at"
)

// ValidSortField reports whether field names a sortable task attribute.
func ValidSortField(field string) bool {
	switch field {
	case SortByID, SortByName, SortByPayload, SortByStatus, SortByCreatedAt, SortByUpdatedAt:
		return true
	default:
		return false
	}
}

// ListParams describes a single page of a sorted task listing.
type ListParams struct {
	Offset    int
	Limit     int
	SortField string
	SortDir   SortDirection
}

// TaskStore defines the interface for task persistence.
// Version: 1.0
type TaskStore interface {
	// Create persists a new task with the given attributes and returns it
	// with its store-assigned ID.
	Create(ctx context.Context, name, payload string, status domain.TaskStatus) (*domain.Task, error)

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Task, error)

	// Update saves changes to an existing task, keyed by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// FindAll retrieves every task in the store. Used by the statistics
	// aggregator, which scans the full table by design.
	FindAll(ctx context.Context) ([]*domain.Task, error)

	// List retrieves a single page of tasks ordered by the given sort
	// parameters. The sort field and direction must already be validated.
	List(ctx context.Context, params ListParams) ([]*domain.Task, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}
