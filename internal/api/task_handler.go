package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mwhitlock/taskpipe/internal/api/shared"
	"github.com/mwhitlock/taskpipe/internal/service"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		taskService: taskService,
		logger:      logger.With("component", "task_handler"),
	}
}

// SubmitTask handles POST /api/tasks requests.
// A well-formed submission is acknowledged with 202 Accepted before the task
// has been persisted; processing happens asynchronously.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var req SubmitTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		h.respondError(w, r, err)
		return
	}

	ack, err := h.taskService.Submit(r.Context(), req.Name, req.Payload)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitTaskResponse{
		TaskName: ack.TaskName,
		Message:  ack.Message,
	})
}

// GetTaskStatus handles GET /api/tasks/{id}/status requests.
func (h *TaskHandler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	status, err := h.taskService.GetStatusByID(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskStatusResponse{
		TaskID: id,
		Status: string(status),
	})
}

// ListTasks handles GET /api/tasks requests.
// Paging and sorting default to page=0, size=10, sorted by id ascending.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", service.DefaultPage)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid page parameter")
		return
	}
	size, err := queryInt(r, "size", service.DefaultPageSize)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid size parameter")
		return
	}

	sortBy := r.URL.Query().Get("sortBy")
	if sortBy == "" {
		sortBy = service.DefaultSortField
	}
	sortDir := r.URL.Query().Get("sortDir")
	if sortDir == "" {
		sortDir = service.DefaultSortDir
	}

	tasks, err := h.taskService.ListTasks(r.Context(), page, size, sortBy, sortDir)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// GetStatistics handles GET /api/tasks/statistics requests.
func (h *TaskHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.taskService.GetStatistics(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, statisticsToResponse(stats))
}

// respondError maps a service or domain error to its HTTP representation.
func (h *TaskHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"error", err,
			"path", r.URL.Path,
			"method", r.Method)
	}
	shared.RespondWithError(w, r, status, GetSafeErrorMessage(err))
}

// queryInt reads an integer query parameter, falling back to def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
