package worker

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

// globalTestMetrics is a shared metrics instance for tests to avoid
// duplicate Prometheus registration errors. In production the metric
// set is created once at startup; this simulates that.
var globalTestMetrics = NewWorkerMetrics()

// setEnv sets an environment variable for the duration of the test.
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	t.Cleanup(func() {
		_ = os.Unsetenv(key)
	})
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

// clearWorkerEnvVars removes every variable LoadConfigFromEnv consults
// so tests start from the documented defaults.
func clearWorkerEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CRON_SCHEDULE",
		"WORKER_TIMEZONE",
		"WORKER_MAX_CONCURRENT_USERS",
		"WORKER_USER_TIMEOUT",
		"WORKER_BATCH_TIMEOUT",
		"DELIVERY_MAX_CONCURRENT",
		"WORKER_HEALTH_PORT",
	} {
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.CronSchedule != "30 5 * * *" {
		t.Errorf("Expected CronSchedule '30 5 * * *', got '%s'", cfg.CronSchedule)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("Expected Timezone 'UTC', got '%s'", cfg.Timezone)
	}
	if cfg.MaxConcurrentUsers != 4 {
		t.Errorf("Expected MaxConcurrentUsers 4, got %d", cfg.MaxConcurrentUsers)
	}
	if cfg.UserRunTimeout != 10*time.Minute {
		t.Errorf("Expected UserRunTimeout 10m, got %v", cfg.UserRunTimeout)
	}
	if cfg.BatchTimeout != 45*time.Minute {
		t.Errorf("Expected BatchTimeout 45m, got %v", cfg.BatchTimeout)
	}
	if cfg.DeliveryMaxConcurrent != 8 {
		t.Errorf("Expected DeliveryMaxConcurrent 8, got %d", cfg.DeliveryMaxConcurrent)
	}
	if cfg.HealthPort != 9091 {
		t.Errorf("Expected HealthPort 9091, got %d", cfg.HealthPort)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got error: %v", err)
	}
}

func TestWorkerConfig_Validate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WorkerConfig)
		wantSub string
	}{
		{
			name:    "bad cron expression",
			mutate:  func(c *WorkerConfig) { c.CronSchedule = "not a schedule" },
			wantSub: "cron schedule",
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *WorkerConfig) { c.Timezone = "Mars/Olympus_Mons" },
			wantSub: "timezone",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *WorkerConfig) { c.MaxConcurrentUsers = 0 },
			wantSub: "max concurrent users",
		},
		{
			name:    "user timeout too short",
			mutate:  func(c *WorkerConfig) { c.UserRunTimeout = time.Second },
			wantSub: "user run timeout",
		},
		{
			name:    "batch timeout too long",
			mutate:  func(c *WorkerConfig) { c.BatchTimeout = 10 * time.Hour },
			wantSub: "batch timeout",
		},
		{
			name:    "delivery concurrency out of range",
			mutate:  func(c *WorkerConfig) { c.DeliveryMaxConcurrent = 100 },
			wantSub: "delivery max concurrent",
		},
		{
			name:    "privileged health port",
			mutate:  func(c *WorkerConfig) { c.HealthPort = 80 },
			wantSub: "health port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("expected error to mention %q, got: %v", tt.wantSub, err)
			}
		})
	}
}

func TestWorkerConfig_Validate_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CronSchedule = "bad"
	cfg.HealthPort = 1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "cron schedule") || !strings.Contains(err.Error(), "health port") {
		t.Errorf("expected both failures reported, got: %v", err)
	}
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	clearWorkerEnvVars(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cfg, err := LoadConfigFromEnv(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := DefaultConfig()
	if *cfg != want {
		t.Errorf("expected defaults %+v, got %+v", want, *cfg)
	}
	if strings.Contains(buf.String(), "fallback") {
		t.Errorf("no fallback warnings expected with clean env, log: %s", buf.String())
	}
}

func TestLoadConfigFromEnv_CustomValues(t *testing.T) {
	clearWorkerEnvVars(t)
	setEnv(t, "CRON_SCHEDULE", "0 7 * * *")
	setEnv(t, "WORKER_TIMEZONE", "Asia/Tokyo")
	setEnv(t, "WORKER_MAX_CONCURRENT_USERS", "8")
	setEnv(t, "WORKER_USER_TIMEOUT", "5m")
	setEnv(t, "WORKER_BATCH_TIMEOUT", "1h")
	setEnv(t, "DELIVERY_MAX_CONCURRENT", "16")
	setEnv(t, "WORKER_HEALTH_PORT", "9191")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cfg, err := LoadConfigFromEnv(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.CronSchedule != "0 7 * * *" {
		t.Errorf("Expected CronSchedule '0 7 * * *', got '%s'", cfg.CronSchedule)
	}
	if cfg.Timezone != "Asia/Tokyo" {
		t.Errorf("Expected Timezone 'Asia/Tokyo', got '%s'", cfg.Timezone)
	}
	if cfg.MaxConcurrentUsers != 8 {
		t.Errorf("Expected MaxConcurrentUsers 8, got %d", cfg.MaxConcurrentUsers)
	}
	if cfg.UserRunTimeout != 5*time.Minute {
		t.Errorf("Expected UserRunTimeout 5m, got %v", cfg.UserRunTimeout)
	}
	if cfg.BatchTimeout != time.Hour {
		t.Errorf("Expected BatchTimeout 1h, got %v", cfg.BatchTimeout)
	}
	if cfg.DeliveryMaxConcurrent != 16 {
		t.Errorf("Expected DeliveryMaxConcurrent 16, got %d", cfg.DeliveryMaxConcurrent)
	}
	if cfg.HealthPort != 9191 {
		t.Errorf("Expected HealthPort 9191, got %d", cfg.HealthPort)
	}
}

func TestLoadConfigFromEnv_FallsBackOnInvalidValues(t *testing.T) {
	clearWorkerEnvVars(t)
	setEnv(t, "CRON_SCHEDULE", "every tuesday")
	setEnv(t, "WORKER_MAX_CONCURRENT_USERS", "9000")
	setEnv(t, "WORKER_USER_TIMEOUT", "2s")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cfg, err := LoadConfigFromEnv(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("fail-open load must not error, got: %v", err)
	}

	want := DefaultConfig()
	if cfg.CronSchedule != want.CronSchedule {
		t.Errorf("Expected fallback schedule %q, got %q", want.CronSchedule, cfg.CronSchedule)
	}
	if cfg.MaxConcurrentUsers != want.MaxConcurrentUsers {
		t.Errorf("Expected fallback concurrency %d, got %d", want.MaxConcurrentUsers, cfg.MaxConcurrentUsers)
	}
	if cfg.UserRunTimeout != want.UserRunTimeout {
		t.Errorf("Expected fallback timeout %v, got %v", want.UserRunTimeout, cfg.UserRunTimeout)
	}
	if !strings.Contains(buf.String(), "Configuration fallback applied") {
		t.Errorf("expected fallback warnings in log, got: %s", buf.String())
	}

	// The loaded config must still pass validation.
	if err := cfg.Validate(); err != nil {
		t.Errorf("fallback config should validate, got: %v", err)
	}
}

func TestLoadConfigFromEnv_UnparseableValuesFallBack(t *testing.T) {
	clearWorkerEnvVars(t)
	setEnv(t, "WORKER_HEALTH_PORT", "not-a-number")
	setEnv(t, "WORKER_BATCH_TIMEOUT", "soon")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cfg, err := LoadConfigFromEnv(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("fail-open load must not error, got: %v", err)
	}

	want := DefaultConfig()
	if cfg.HealthPort != want.HealthPort {
		t.Errorf("Expected fallback port %d, got %d", want.HealthPort, cfg.HealthPort)
	}
	if cfg.BatchTimeout != want.BatchTimeout {
		t.Errorf("Expected fallback batch timeout %v, got %v", want.BatchTimeout, cfg.BatchTimeout)
	}
}
