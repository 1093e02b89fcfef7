package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrNameBlank is returned when a task name is empty or whitespace.
	ErrNameBlank = errors.New("Name cannot be blank")

	// ErrNameCharset is returned when a task name contains anything other
	// than letters and spaces.
	ErrNameCharset = errors.New("Name must contain only letters (A-Z, a-z) and spaces")

	// ErrNameTooLong is returned when a task name exceeds the maximum length.
	ErrNameTooLong = errors.New("Name must be at most 50 characters")

	// ErrPayloadBlank is returned when a task payload is empty.
	ErrPayloadBlank = errors.New("Payload cannot be blank")

	// ErrPayloadTooLong is returned when a task payload exceeds the maximum length.
	ErrPayloadTooLong = errors.New("Payload must be at most 255 characters")

	// ErrInvalidStatus is returned when a task status is not one of the
	// recognized lifecycle values.
	ErrInvalidStatus = errors.New("invalid task status")
)

// IsValidationError reports whether the error is any kind of task validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNameBlank) ||
		errors.Is(err, ErrNameCharset) ||
		errors.Is(err, ErrNameTooLong) ||
		errors.Is(err, ErrPayloadBlank) ||
		errors.Is(err, ErrPayloadTooLong) ||
		errors.Is(err, ErrInvalidStatus)
}
