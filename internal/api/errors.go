package api

import (
	"errors"
	"net/http"

	"github.com/mwhitlock/taskpipe/internal/domain"
	"github.com/mwhitlock/taskpipe/internal/queue"
	"github.com/mwhitlock/taskpipe/internal/service"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Bad request errors
	case domain.IsValidationError(err),
		errors.Is(err, service.ErrInvalidSort):
		return http.StatusBadRequest

	// Not found errors
	case errors.Is(err, service.ErrTaskNotFound):
		return http.StatusNotFound

	// Overload errors: the queue rejected the work outright
	case errors.Is(err, queue.ErrQueueFull):
		return http.StatusTooManyRequests

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. Validation, sort and not-found errors carry
// messages written for clients and pass through verbatim.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case domain.IsValidationError(err),
		errors.Is(err, service.ErrInvalidSort),
		errors.Is(err, service.ErrTaskNotFound):
		return err.Error()

	case errors.Is(err, queue.ErrQueueFull):
		return "Server capacity exceeded."

	case errors.Is(err, service.ErrTaskProcessing):
		return "Failed to process task"

	default:
		return "An unexpected error occurred"
	}
}
