// Package bootstrap provides dependency initialization for the PhotoMotion API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/photomotion/photomotion-api/internal/config"
	"github.com/photomotion/photomotion-api/internal/job"
	"github.com/photomotion/photomotion-api/internal/ledger"
	"github.com/photomotion/photomotion-api/internal/metrics"
	"github.com/photomotion/photomotion-api/internal/notify"
	"github.com/photomotion/photomotion-api/internal/pixverse"
	"github.com/photomotion/photomotion-api/internal/provider"
	"github.com/photomotion/photomotion-api/internal/storage"
	"github.com/photomotion/photomotion-api/internal/video"
	"github.com/photomotion/photomotion-api/internal/worker"
)

// Dependencies holds all initialized dependencies for the HTTP server and
// the worker.
type Dependencies struct {
	Jobs     job.Repository
	Videos   video.Repository
	Credits  *ledger.Service
	Registry *provider.Registry
	Notifier notify.Notifier
	Metrics  *metrics.Metrics
	Storage  storage.Storage
	Worker   *worker.Worker

	pool *pgxpool.Pool
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Metrics: metrics.New(),
	}

	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.Storage = store

	if err := initRepositories(ctx, deps, cfg, logger); err != nil {
		return nil, err
	}

	registry, err := initProviders(deps, cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.Registry = registry

	deps.Notifier = initNotifier(cfg, logger)

	deps.Worker = worker.New(
		deps.Jobs,
		deps.Videos,
		deps.Registry,
		deps.Notifier,
		deps.Metrics,
		logger,
		worker.Config{
			Interval:      cfg.WorkerInterval(),
			BatchSize:     cfg.WorkerBatchSize,
			PublicBaseURL: cfg.PublicBaseURL,
		},
	)

	return deps, nil
}

// Close releases held resources, currently the database pool when one exists.
func (d *Dependencies) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

// initRepositories selects Postgres-backed stores when DATABASE_URL is set
// and in-memory stores otherwise.
func initRepositories(ctx context.Context, deps *Dependencies, cfg *config.Config, logger *slog.Logger) error {
	if cfg.DatabaseURL == "" {
		deps.Jobs = job.NewMemoryRepository()
		deps.Videos = video.NewMemoryRepository()
		deps.Credits = ledger.NewService(ledger.NewMemoryStore(), logger)
		logger.Info("in-memory stores configured")
		return nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	deps.pool = pool
	deps.Jobs = job.NewPostgresRepository(pool)
	deps.Videos = video.NewPostgresRepository(pool)
	deps.Credits = ledger.NewService(ledger.NewPostgresStore(pool), logger)
	logger.Info("postgres stores configured")
	return nil
}

// initProviders builds the adapter registry: PixVerse as the primary network
// adapter and the sample adapter as the always-available fallback.
func initProviders(deps *Dependencies, cfg *config.Config, logger *slog.Logger) (*provider.Registry, error) {
	registry := provider.NewRegistry(provider.PixVerseName, provider.SampleName)

	if cfg.PixVerseAPIKey != "" {
		client, err := pixverse.NewClient(cfg.PixVerseAPIKey,
			pixverse.WithBaseURL(cfg.PixVerseAPIURL),
			pixverse.WithTimeout(cfg.ProviderTimeout()),
		)
		if err != nil {
			return nil, fmt.Errorf("create PixVerse client: %w", err)
		}
		enabled := func() bool { return cfg.PixVerseConfigured() }
		registry.Register(provider.NewPixVerseAdapter(client, enabled))
		logger.Info("PixVerse adapter registered",
			slog.String("base_url", cfg.PixVerseAPIURL),
			slog.Bool("enabled", cfg.PixVerseConfigured()),
		)
	} else {
		logger.Info("PixVerse adapter skipped, no API key")
	}

	registry.Register(provider.NewSampleAdapter(deps.Storage, cfg.SampleAssetPath, cfg.SampleThumbPath))
	return registry, nil
}

// initNotifier picks the Telegram notifier when a bot token is configured.
func initNotifier(cfg *config.Config, logger *slog.Logger) notify.Notifier {
	if cfg.TelegramBotToken == "" {
		return notify.NewNoopNotifier(logger)
	}
	logger.Info("telegram notifier configured")
	return notify.NewTelegramNotifier(cfg.TelegramBotToken, logger)
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
