package api

import (
	"time"

	"github.com/mwhitlock/taskpipe/internal/domain"
	"github.com/mwhitlock/taskpipe/internal/service"
)

// SubmitTaskRequest represents the request body for submitting a new task.
type SubmitTaskRequest struct {
	Name    string `json:"name"`
	Payload string `json:"payload"`
}

// Validate applies the task field rules at the HTTP boundary. It delegates
// to the domain validators so rejected requests carry the same messages the
// service layer produces.
func (r SubmitTaskRequest) Validate() error {
	if err := domain.ValidateName(r.Name); err != nil {
		return err
	}
	return domain.ValidatePayload(r.Payload)
}

// SubmitTaskResponse acknowledges an accepted submission. Processing happens
// asynchronously, so no task ID is available yet.
type SubmitTaskResponse struct {
	TaskName string `json:"task_name"`
	Message  string `json:"message"`
}

// TaskResponse represents the response data for a single task.
type TaskResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Payload   string    `json:"payload"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskStatusResponse represents the response data for a status lookup.
type TaskStatusResponse struct {
	TaskID int64  `json:"task_id"`
	Status string `json:"status"`
}

// StatisticsResponse represents the aggregate outcome snapshot.
type StatisticsResponse struct {
	TotalTasks     int64   `json:"total_tasks"`
	CompletedTasks int64   `json:"completed_tasks"`
	FailedTasks    int64   `json:"failed_tasks"`
	SuccessRate    float64 `json:"success_rate"`
	FailureRate    float64 `json:"failure_rate"`
}

// taskToResponse converts a domain.Task to a TaskResponse.
func taskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:        task.ID,
		Name:      task.Name,
		Payload:   task.Payload,
		Status:    string(task.Status),
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	}
}

// tasksToResponse converts a slice of tasks, always returning a non-nil
// slice so empty pages serialize as [] rather than null.
func tasksToResponse(tasks []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, taskToResponse(task))
	}
	return out
}

// statisticsToResponse converts service statistics to the response model.
func statisticsToResponse(stats *service.Statistics) StatisticsResponse {
	return StatisticsResponse{
		TotalTasks:     stats.TotalTasks,
		CompletedTasks: stats.CompletedTasks,
		FailedTasks:    stats.FailedTasks,
		SuccessRate:    stats.SuccessRate,
		FailureRate:    stats.FailureRate,
	}
}
