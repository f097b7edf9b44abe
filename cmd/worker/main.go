// Package main provides the entry point for the PhotoMotion generation worker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/photomotion/photomotion-api/internal/bootstrap"
	"github.com/photomotion/photomotion-api/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting PhotoMotion worker",
		slog.Int("interval_sec", cfg.WorkerIntervalSec),
		slog.Int("batch_size", cfg.WorkerBatchSize),
		slog.Bool("pixverse_configured", cfg.PixVerseConfigured()),
		slog.Bool("postgres", cfg.DatabaseURL != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.Close()

	// RUN_ONCE=true executes a single pass, for external schedulers.
	if os.Getenv("RUN_ONCE") == "true" {
		return deps.Worker.RunOnce(ctx)
	}

	return deps.Worker.Run(ctx)
}
