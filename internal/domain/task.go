package domain

import (
	"time"
	"unicode"
)

// TaskStatus represents the processing state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusFailed     TaskStatus = "FAILED"
)

// Task field limits
const (
	MaxNameLength    = 50
	MaxPayloadLength = 255
)

// Task represents a named unit of work submitted for asynchronous
// processing. It tracks the original submission data and the
// lifecycle state driven by the consumer.
type Task struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Payload   string     `json:"payload"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewTask creates a new Task with the given name and payload.
// The ID is assigned later by the store; the status starts as pending.
// Returns an error if validation fails.
func NewTask(name, payload string) (*Task, error) {
	task := &Task{
		Name:      name,
		Payload:   payload,
		Status:    TaskStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if err := ValidateName(t.Name); err != nil {
		return err
	}

	if err := ValidatePayload(t.Payload); err != nil {
		return err
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidStatus
	}

	return nil
}

// UpdateStatus updates the task's status and the UpdatedAt timestamp.
// Returns an error if the new status is invalid.
func (t *Task) UpdateStatus(status TaskStatus) error {
	if !isValidTaskStatus(status) {
		return ErrInvalidStatus
	}

	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// IsTerminal reports whether the task has reached a final state.
// Terminal tasks are never transitioned again by the pipeline.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// ValidateName checks the task name against the submission rules:
// non-blank, letters and spaces only, at most MaxNameLength characters.
func ValidateName(name string) error {
	if isBlank(name) {
		return ErrNameBlank
	}

	for _, r := range name {
		if !isASCIILetter(r) && r != ' ' {
			return ErrNameCharset
		}
	}

	if len([]rune(name)) > MaxNameLength {
		return ErrNameTooLong
	}

	return nil
}

// ValidatePayload checks the task payload: non-blank and at most
// MaxPayloadLength characters. The content itself is opaque to the pipeline.
func ValidatePayload(payload string) error {
	if isBlank(payload) {
		return ErrPayloadBlank
	}

	if len([]rune(payload)) > MaxPayloadLength {
		return ErrPayloadTooLong
	}

	return nil
}

// isASCIILetter matches the A-Z / a-z character class used for task names.
func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// isBlank reports whether the string is empty or whitespace only.
func isBlank(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}
