package service

import (
	"errors"
	"fmt"

	"github.com/mwhitlock/taskpipe/internal/store"
)

// Common sentinel errors for TaskService
var (
	// ErrTaskNotFound indicates that the requested task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskProcessing indicates that a submission could not be completed
	// after exhausting its retry budget. A compensating FAILED record has
	// already been written by the time callers see this error.
	ErrTaskProcessing = errors.New("Failed to process task")

	// ErrInvalidSort indicates that a listing request carried an
	// unrecognized sort field or direction.
	ErrInvalidSort = errors.New("invalid sort parameter")
)

// TaskNotFoundError carries the ID of the missing task so the API layer can
// surface it verbatim.
type TaskNotFoundError struct {
	ID int64
}

// Error implements the error interface for TaskNotFoundError.
func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("Task with id %d not found", e.ID)
}

// Unwrap supports errors.Is against both the service and store sentinels.
func (e *TaskNotFoundError) Unwrap() []error {
	return []error{ErrTaskNotFound, store.ErrTaskNotFound}
}

// InvalidSortFieldError indicates a listing request named a field that tasks
// cannot be sorted by.
type InvalidSortFieldError struct {
	Field string
}

// Error implements the error interface for InvalidSortFieldError.
func (e *InvalidSortFieldError) Error() string {
	return fmt.Sprintf("Unrecognized sort field: '%s'", e.Field)
}

// Unwrap returns the sort sentinel to support errors.Is.
func (e *InvalidSortFieldError) Unwrap() error {
	return ErrInvalidSort
}

// InvalidSortDirectionError indicates a listing request carried a sort
// direction other than asc or desc.
type InvalidSortDirectionError struct {
	Direction string
}

// Error implements the error interface for InvalidSortDirectionError.
func (e *InvalidSortDirectionError) Error() string {
	return fmt.Sprintf("Invalid sorting direction: '%s'. Allowed values: 'asc' or 'desc'.", e.Direction)
}

// Unwrap returns the sort sentinel to support errors.Is.
func (e *InvalidSortDirectionError) Unwrap() error {
	return ErrInvalidSort
}

// TaskServiceError wraps errors from the task service with context.
type TaskServiceError struct {
	// Operation is the operation that failed (e.g., "submit_task", "get_status")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
// It returns known sentinel errors directly without wrapping.
func NewTaskServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	// Sentinels and typed service errors pass through unchanged so callers
	// can match on them.
	if errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrTaskProcessing) ||
		errors.Is(err, ErrInvalidSort) {
		return err
	}

	// Map store-level not-found to the service-level sentinel.
	if errors.Is(err, store.ErrTaskNotFound) {
		return ErrTaskNotFound
	}

	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
