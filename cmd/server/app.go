package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mwhitlock/taskpipe/internal/cache"
	"github.com/mwhitlock/taskpipe/internal/config"
	"github.com/mwhitlock/taskpipe/internal/metrics"
	"github.com/mwhitlock/taskpipe/internal/platform/postgres"
	"github.com/mwhitlock/taskpipe/internal/queue"
	"github.com/mwhitlock/taskpipe/internal/service"
	"github.com/mwhitlock/taskpipe/internal/store"
	"github.com/mwhitlock/taskpipe/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Observability
	registry *prometheus.Registry
	recorder *metrics.Recorder

	// Pipeline components
	taskStore   store.TaskStore
	statusCache cache.StatusCache
	taskQueue   *queue.InMemoryQueue
	consumer    *task.Consumer
	taskService service.TaskService
}

// newApplication creates a new application instance with all dependencies
// initialized and the queue workers started.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.recorder = metrics.NewRecorder(app.registry)

	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.statusCache = cache.NewTTLStatusCache(
		time.Duration(cfg.Pipeline.CacheTTLMinutes) * time.Minute,
	)

	app.consumer = task.NewConsumer(
		app.taskStore,
		app.statusCache,
		app.recorder,
		task.SimulatedWork(time.Duration(cfg.Pipeline.WorkDelayMs)*time.Millisecond),
		cfg.Pipeline.ConsumerMaxAttempts,
		logger,
	)

	// The queue and the consumer share the attempt bound: the queue stops
	// redelivering where the consumer finalizes FAILED.
	app.taskQueue = queue.NewInMemoryQueue(queue.Config{
		BufferSize:  cfg.Pipeline.QueueSize,
		WorkerCount: cfg.Pipeline.WorkerCount,
		Retry: queue.RetryPolicy{
			MaxAttempts: cfg.Pipeline.ConsumerMaxAttempts,
			BaseDelay:   time.Duration(cfg.Pipeline.ConsumerBaseDelayMs) * time.Millisecond,
			Multiplier:  cfg.Pipeline.ConsumerBackoffMultiplier,
			Retryable:   task.IsProcessingError,
		},
	}, app.consumer, app.deadLetter, logger)
	app.taskQueue.Start()
	logger.Info("Task queue started",
		"worker_count", cfg.Pipeline.WorkerCount,
		"buffer_size", cfg.Pipeline.QueueSize)

	var err error
	app.taskService, err = service.NewTaskService(
		app.taskStore,
		app.taskQueue,
		app.statusCache,
		app.recorder,
		service.SubmitConfig{
			MaxAttempts: cfg.Pipeline.SubmitMaxAttempts,
			RetryDelay:  time.Duration(cfg.Pipeline.SubmitRetryDelayMs) * time.Millisecond,
			Policy:      cfg.Pipeline.SubmitRetryPolicy,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// deadLetter receives deliveries whose retries are exhausted. The consumer
// has already recorded the FAILED status; all that is left is visibility.
func (app *application) deadLetter(d queue.Delivery, err error) {
	app.logger.Error("task delivery exhausted",
		"task_id", d.TaskID,
		"message_id", d.ID,
		"attempt", d.Attempt,
		"error", err)
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Drain in-flight submissions before stopping the queue they publish to.
	if app.taskService != nil {
		app.taskService.Wait()
	}

	if app.taskQueue != nil {
		app.taskQueue.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
