// Package main provides the single-binary entry point for PhotoMotion: it
// runs the HTTP API and the generation worker in one process. Dedicated
// entries for each live under cmd/.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/photomotion/photomotion-api/internal/bootstrap"
	"github.com/photomotion/photomotion-api/internal/config"
	"github.com/photomotion/photomotion-api/internal/server"
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

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting PhotoMotion",
		slog.Int("port", cfg.Port),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.Int("worker_interval_sec", cfg.WorkerIntervalSec),
		slog.Bool("pixverse_configured", cfg.PixVerseConfigured()),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
		slog.Bool("postgres", cfg.DatabaseURL != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies using bootstrap
	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.Close()

	// Initialize HTTP handlers and router
	handlers := server.NewHandlers(deps.Jobs, deps.Videos, deps.Credits, deps.Registry, logger,
		server.WithGenerationCost(cfg.GenerationCost),
		server.WithMaxAttempts(cfg.JobMaxAttempts),
		server.WithPreferredProvider(cfg.PreferredProvider),
		server.WithSignupCredits(cfg.SignupCredits),
	)
	srvCfg := server.DefaultConfig()
	srvCfg.MetricsHandler = deps.Metrics.Handler()
	router := server.NewRouter(handlers, logger, srvCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 2)

	// Run the generation worker alongside the API.
	go func() {
		errCh <- deps.Worker.Run(ctx)
	}()

	go func() {
		logger.Info("HTTP server listening",
			slog.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	// Wait for shutdown signal or a fatal component error.
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("shutting down...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("stopped gracefully")
	return nil
}
