package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mwhitlock/taskpipe/internal/api"
	apiMiddleware "github.com/mwhitlock/taskpipe/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	// Admission control: requests beyond the concurrent capacity are
	// rejected with 429 instead of queueing behind the worker pool.
	if app.config.Server.ThrottleLimit > 0 {
		r.Use(middleware.Throttle(app.config.Server.ThrottleLimit))
	}

	taskHandler := api.NewTaskHandler(app.taskService, app.logger)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/tasks", taskHandler.SubmitTask)
		r.Get("/tasks", taskHandler.ListTasks)
		r.Get("/tasks/statistics", taskHandler.GetStatistics)
		r.Get("/tasks/{id}/status", taskHandler.GetTaskStatus)
	})

	// Metrics endpoint exposing the pipeline counters plus runtime collectors
	r.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
