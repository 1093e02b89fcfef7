// Package main implements the entry point for the task pipeline server,
// which accepts task submissions over HTTP, processes them asynchronously
// through a bounded-retry queue, and exposes status, listing and
// statistics endpoints.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/mwhitlock/taskpipe/internal/config"
	"github.com/mwhitlock/taskpipe/internal/platform/logger"
)

// main wires configuration, logging, the database, migrations and the
// application together, then runs the HTTP server until shutdown.
func main() {
	cfg, appLogger, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := runMigrations(db, appLogger); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	app, err := newApplication(cfg, appLogger, db)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration and sets up structured logging.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(logger.LoggerConfig{Level: cfg.Server.LogLevel})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"worker_count", cfg.Pipeline.WorkerCount,
		"queue_size", cfg.Pipeline.QueueSize)

	return cfg, appLogger, nil
}
