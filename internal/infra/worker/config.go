// Package worker holds the host-process plumbing for the digest worker:
// operational configuration, the health endpoints and the cron job
// metrics. Pipeline processing knobs live in internal/config; this
// package only covers scheduling and serving concerns.
package worker

import (
	"fmt"
	"log/slog"
	"time"

	"dailybrief/internal/pkg/config"
)

// WorkerConfig controls when the scheduled digest batch fires, how many
// user pipelines run in parallel and how long each may take.
//
// Values load from environment variables via LoadConfigFromEnv with
// fail-open fallback: an invalid value keeps the default, logs a
// warning and bumps the fallback metrics.
type WorkerConfig struct {
	// CronSchedule fires the daily digest batch. Five-field cron
	// expression. Default: "30 5 * * *"
	CronSchedule string

	// Timezone is the IANA zone the schedule is evaluated in. Per-user
	// rendering zones come from each UserConfig, not from here.
	// Default: "UTC"
	Timezone string

	// MaxConcurrentUsers bounds parallel user pipelines in one batch.
	// Range: 1-32. Default: 4
	MaxConcurrentUsers int

	// UserRunTimeout bounds a single user's pipeline run.
	// Range: 1m-1h. Default: 10m
	UserRunTimeout time.Duration

	// BatchTimeout bounds one whole scheduled batch across all users.
	// Range: 5m-4h. Default: 45m
	BatchTimeout time.Duration

	// DeliveryMaxConcurrent bounds in-flight digest deliveries.
	// Range: 1-50. Default: 8
	DeliveryMaxConcurrent int

	// HealthPort is the port for /health and /health/ready.
	// Range: 1024-65535. Default: 9091
	HealthPort int
}

// DefaultConfig returns the production defaults: one batch per day at
// 05:30 UTC, four pipelines at a time, generous but bounded timeouts.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule:          "30 5 * * *",
		Timezone:              "UTC",
		MaxConcurrentUsers:    4,
		UserRunTimeout:        10 * time.Minute,
		BatchTimeout:          45 * time.Minute,
		DeliveryMaxConcurrent: 8,
		HealthPort:            9091,
	}
}

// Validate checks every field and aggregates the failures.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateIntRange(c.MaxConcurrentUsers, 1, 32); err != nil {
		errs = append(errs, fmt.Errorf("max concurrent users: %w", err))
	}
	if err := config.ValidateDuration(c.UserRunTimeout, time.Minute, time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("user run timeout: %w", err))
	}
	if err := config.ValidateDuration(c.BatchTimeout, 5*time.Minute, 4*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("batch timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.DeliveryMaxConcurrent, 1, 50); err != nil {
		errs = append(errs, fmt.Errorf("delivery max concurrent: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// noteFallback records one fallback result against the logger and the
// worker metrics. Returns true when a fallback was applied.
func noteFallback(logger *slog.Logger, metrics *WorkerMetrics, field string, result config.ConfigLoadResult) bool {
	if !result.FallbackApplied {
		return false
	}

	metrics.RecordValidationError(field)
	metrics.RecordFallback(field)
	for _, warning := range result.Warnings {
		logger.Warn("Configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", warning))
	}
	return true
}

// LoadConfigFromEnv loads the worker configuration with fail-open
// fallback to defaults; it never returns an error, so the worker always
// starts with a usable schedule.
//
// Environment variables:
//   - CRON_SCHEDULE: five-field cron expression (default "30 5 * * *")
//   - WORKER_TIMEZONE: IANA timezone name (default "UTC")
//   - WORKER_MAX_CONCURRENT_USERS: integer 1-32 (default 4)
//   - WORKER_USER_TIMEOUT: duration 1m-1h (default "10m")
//   - WORKER_BATCH_TIMEOUT: duration 5m-4h (default "45m")
//   - DELIVERY_MAX_CONCURRENT: integer 1-50 (default 8)
//   - WORKER_HEALTH_PORT: integer 1024-65535 (default 9091)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	result := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = result.Value.(string)
	fallbackApplied = noteFallback(logger, metrics, "cron_schedule", result) || fallbackApplied

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	fallbackApplied = noteFallback(logger, metrics, "timezone", result) || fallbackApplied

	result = config.LoadEnvInt("WORKER_MAX_CONCURRENT_USERS", cfg.MaxConcurrentUsers, func(v int) error {
		return config.ValidateIntRange(v, 1, 32)
	})
	cfg.MaxConcurrentUsers = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "max_concurrent_users", result) || fallbackApplied

	result = config.LoadEnvDuration("WORKER_USER_TIMEOUT", cfg.UserRunTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Minute, time.Hour)
	})
	cfg.UserRunTimeout = result.Value.(time.Duration)
	fallbackApplied = noteFallback(logger, metrics, "user_run_timeout", result) || fallbackApplied

	result = config.LoadEnvDuration("WORKER_BATCH_TIMEOUT", cfg.BatchTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 5*time.Minute, 4*time.Hour)
	})
	cfg.BatchTimeout = result.Value.(time.Duration)
	fallbackApplied = noteFallback(logger, metrics, "batch_timeout", result) || fallbackApplied

	result = config.LoadEnvInt("DELIVERY_MAX_CONCURRENT", cfg.DeliveryMaxConcurrent, func(v int) error {
		return config.ValidateIntRange(v, 1, 50)
	})
	cfg.DeliveryMaxConcurrent = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "delivery_max_concurrent", result) || fallbackApplied

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "health_port", result) || fallbackApplied

	metrics.SetFallbackActive(fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
