// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrMaxAttemptsInvalid is returned when JOB_MAX_ATTEMPTS is not positive.
	ErrMaxAttemptsInvalid = errors.New("config: JOB_MAX_ATTEMPTS must be at least 1")
	// ErrBatchSizeInvalid is returned when WORKER_BATCH_SIZE is not positive.
	ErrBatchSizeInvalid = errors.New("config: WORKER_BATCH_SIZE must be at least 1")
	// ErrPreferredProviderUnknown is returned when PROVIDER_PREFERRED names no known provider.
	ErrPreferredProviderUnknown = errors.New("config: PROVIDER_PREFERRED must be pixverse, sample, or empty")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port          int    `env:"PORT, default=8080" json:"port"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL, default=http://localhost:8080" json:"public_base_url"`

	// Database settings. Empty DatabaseURL selects in-memory stores.
	DatabaseURL string `env:"DATABASE_URL" json:"-"` // Masked in JSON

	// PixVerse provider settings
	PixVerseAPIKey  string `env:"PIXVERSE_API_KEY" json:"-"` // Masked in JSON
	PixVerseAPIURL  string `env:"PIXVERSE_API_URL, default=https://app-api.pixverse.ai/openapi/v2" json:"pixverse_api_url"`
	PixVerseEnabled bool   `env:"PIXVERSE_ENABLED, default=true" json:"pixverse_enabled"`

	// Provider selection and outbound call budget
	PreferredProvider  string `env:"PROVIDER_PREFERRED" json:"preferred_provider,omitempty"`
	ProviderTimeoutSec int    `env:"PROVIDER_TIMEOUT_SEC, default=30" json:"provider_timeout_sec"`

	// Worker settings
	WorkerIntervalSec int `env:"WORKER_INTERVAL_SEC, default=5" json:"worker_interval_sec"`
	WorkerBatchSize   int `env:"WORKER_BATCH_SIZE, default=5" json:"worker_batch_size"`
	JobMaxAttempts    int `env:"JOB_MAX_ATTEMPTS, default=3" json:"job_max_attempts"`

	// Sample (fallback) provider assets
	SampleAssetPath string `env:"SAMPLE_ASSET_PATH" json:"sample_asset_path,omitempty"`
	SampleThumbPath string `env:"SAMPLE_THUMB_PATH" json:"sample_thumb_path,omitempty"`

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/photomotion" json:"temp_dir"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Notification settings
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN" json:"-"` // Masked in JSON

	// Credits settings
	GenerationCost int `env:"GENERATION_COST, default=1" json:"generation_cost"`
	SignupCredits  int `env:"SIGNUP_CREDITS, default=3" json:"signup_credits"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// PixVerseConfigured returns true if the PixVerse provider has credentials
// and is not explicitly disabled.
func (c *Config) PixVerseConfigured() bool {
	return c.PixVerseEnabled && c.PixVerseAPIKey != ""
}

// ProviderTimeout returns the per-call timeout for outbound provider requests.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutSec) * time.Second
}

// WorkerInterval returns the sleep interval between worker passes.
func (c *Config) WorkerInterval() time.Duration {
	return time.Duration(c.WorkerIntervalSec) * time.Second
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configuration values are internally consistent.
func (c *Config) Validate() error {
	if c.JobMaxAttempts < 1 {
		return ErrMaxAttemptsInvalid
	}
	if c.WorkerBatchSize < 1 {
		return ErrBatchSizeInvalid
	}
	switch c.PreferredProvider {
	case "", "pixverse", "sample":
	default:
		return ErrPreferredProviderUnknown
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, PixVerseEnabled: %t, PreferredProvider: %s, ProviderTimeoutSec: %d, WorkerIntervalSec: %d, WorkerBatchSize: %d, JobMaxAttempts: %d, TempDir: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.PixVerseEnabled,
		c.PreferredProvider,
		c.ProviderTimeoutSec,
		c.WorkerIntervalSec,
		c.WorkerBatchSize,
		c.JobMaxAttempts,
		c.TempDir,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
