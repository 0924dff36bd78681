package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// AI provider names for AIConfig.Provider.
const (
	// ProviderAnthropic selects the Anthropic Messages API.
	ProviderAnthropic = "anthropic"

	// ProviderOpenAI selects the OpenAI Chat Completions API.
	ProviderOpenAI = "openai"

	// ProviderDisabled selects the no-op provider. Every call returns a
	// non-retryable error and each processing step applies its
	// documented degraded fallback.
	ProviderDisabled = "disabled"
)

// AIConfig holds configuration for the AI provider integration.
type AIConfig struct {
	// Provider selects the backing API.
	// One of: "anthropic", "openai", "disabled".
	// Default: "disabled" so the pipeline runs without credentials.
	Provider string

	// Model is the provider model identifier. When empty, the provider
	// applies its own default model.
	Model string

	// MaxTokens is the maximum number of tokens for an API response.
	// Default: 1024
	MaxTokens int

	// Timeouts configures per-operation call timeouts.
	Timeouts TimeoutConfig

	// RateLimit bounds the call rate and the per-run call budget.
	RateLimit RateLimitConfig

	// CircuitBreaker for AI provider calls.
	CircuitBreaker CircuitBreakerConfig

	// Observability configures logging and tracing.
	Observability ObservabilityConfig
}

// TimeoutConfig holds per-operation timeout settings.
// All values are configurable via environment variables.
type TimeoutConfig struct {
	// Spam detection timeout. Default: 30s
	Spam time.Duration
	// Quality scoring timeout. Default: 60s
	Quality time.Duration
	// Topic extraction timeout. Default: 30s
	Topics time.Duration
	// Semantic relevance timeout. Default: 30s
	Relevance time.Duration
	// Summarization timeout. Default: 120s
	Summary time.Duration
	// Similarity batch timeout. Default: 60s
	Similarity time.Duration
}

// RateLimitConfig bounds outbound AI traffic. The per-second limit
// smooths bursts across a run; the per-run budget caps total spend for
// one user digest regardless of batch size.
type RateLimitConfig struct {
	// RequestsPerSecond for the shared limiter. Default: 2.0
	RequestsPerSecond float64
	// Burst size for the shared limiter. Default: 5
	Burst int
	// MaxCallsPerRun caps AI calls in a single digest run. Default: 500
	MaxCallsPerRun int
}

// ObservabilityConfig holds logging and tracing settings.
type ObservabilityConfig struct {
	// EnableTracing enables OpenTelemetry distributed tracing.
	EnableTracing bool
	// TracingEndpoint for OTLP exporter. Default: "localhost:4317"
	TracingEndpoint string
	// LogLevel for AI operations. Default: "info"
	LogLevel string
	// EnableMetrics enables Prometheus metrics.
	EnableMetrics bool
}

// CircuitBreakerConfig for AI provider resilience.
type CircuitBreakerConfig struct {
	// MaxRequests in half-open state.
	MaxRequests uint32

	// Interval for clearing failure counts.
	Interval time.Duration

	// Timeout before transitioning from open to half-open.
	Timeout time.Duration

	// FailureThreshold ratio to trip circuit (0.0 to 1.0).
	FailureThreshold float64

	// MinRequests before calculating failure ratio.
	MinRequests uint32
}

// DefaultAIConfig returns the AI configuration defaults without
// consulting the environment.
func DefaultAIConfig() AIConfig {
	return AIConfig{
		Provider:  ProviderDisabled,
		Model:     "",
		MaxTokens: 1024,
		Timeouts: TimeoutConfig{
			Spam:       30 * time.Second,
			Quality:    60 * time.Second,
			Topics:     30 * time.Second,
			Relevance:  30 * time.Second,
			Summary:    120 * time.Second,
			Similarity: 60 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2.0,
			Burst:             5,
			MaxCallsPerRun:    500,
		},
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      3,
			Interval:         10 * time.Second,
			Timeout:          30 * time.Second,
			FailureThreshold: 0.6,
			MinRequests:      5,
		},
		Observability: ObservabilityConfig{
			EnableTracing:   false,
			TracingEndpoint: "localhost:4317",
			LogLevel:        "info",
			EnableMetrics:   true,
		},
	}
}

// LoadAIConfig loads AI configuration from environment variables.
// Returns a config with defaults if environment variables are not set.
// API keys are not part of this config; providers read
// ANTHROPIC_API_KEY or OPENAI_API_KEY at construction.
func LoadAIConfig() (*AIConfig, error) {
	def := DefaultAIConfig()

	config := &AIConfig{
		Provider:  getEnvOrDefault("AI_PROVIDER", def.Provider),
		Model:     getEnvOrDefault("AI_MODEL", def.Model),
		MaxTokens: getEnvInt("AI_MAX_TOKENS", def.MaxTokens),
		Timeouts: TimeoutConfig{
			Spam:       getEnvDuration("AI_TIMEOUT_SPAM", def.Timeouts.Spam),
			Quality:    getEnvDuration("AI_TIMEOUT_QUALITY", def.Timeouts.Quality),
			Topics:     getEnvDuration("AI_TIMEOUT_TOPICS", def.Timeouts.Topics),
			Relevance:  getEnvDuration("AI_TIMEOUT_RELEVANCE", def.Timeouts.Relevance),
			Summary:    getEnvDuration("AI_TIMEOUT_SUMMARY", def.Timeouts.Summary),
			Similarity: getEnvDuration("AI_TIMEOUT_SIMILARITY", def.Timeouts.Similarity),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvFloat("AI_RATE_RPS", def.RateLimit.RequestsPerSecond),
			Burst:             getEnvInt("AI_RATE_BURST", def.RateLimit.Burst),
			MaxCallsPerRun:    getEnvInt("AI_MAX_CALLS_PER_RUN", def.RateLimit.MaxCallsPerRun),
		},
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      uint32(getEnvInt("AI_CB_MAX_REQUESTS", int(def.CircuitBreaker.MaxRequests))),
			Interval:         getEnvDuration("AI_CB_INTERVAL", def.CircuitBreaker.Interval),
			Timeout:          getEnvDuration("AI_CB_TIMEOUT", def.CircuitBreaker.Timeout),
			FailureThreshold: def.CircuitBreaker.FailureThreshold,
			MinRequests:      def.CircuitBreaker.MinRequests,
		},
		Observability: ObservabilityConfig{
			EnableTracing:   getEnvBool("AI_TRACING_ENABLED", def.Observability.EnableTracing),
			TracingEndpoint: getEnvOrDefault("AI_TRACING_ENDPOINT", def.Observability.TracingEndpoint),
			LogLevel:        getEnvOrDefault("AI_LOG_LEVEL", def.Observability.LogLevel),
			EnableMetrics:   getEnvBool("AI_METRICS_ENABLED", def.Observability.EnableMetrics),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	return config, nil
}

// Validate checks configuration correctness.
func (c *AIConfig) Validate() error {
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderDisabled:
	default:
		return fmt.Errorf("AI_PROVIDER must be %q, %q, or %q",
			ProviderAnthropic, ProviderOpenAI, ProviderDisabled)
	}

	if c.MaxTokens <= 0 || c.MaxTokens > 8192 {
		return fmt.Errorf("AI_MAX_TOKENS must be between 1 and 8192")
	}

	if c.Timeouts.Spam <= 0 {
		return fmt.Errorf("AI_TIMEOUT_SPAM must be positive")
	}

	if c.Timeouts.Quality <= 0 {
		return fmt.Errorf("AI_TIMEOUT_QUALITY must be positive")
	}

	if c.Timeouts.Topics <= 0 {
		return fmt.Errorf("AI_TIMEOUT_TOPICS must be positive")
	}

	if c.Timeouts.Relevance <= 0 {
		return fmt.Errorf("AI_TIMEOUT_RELEVANCE must be positive")
	}

	if c.Timeouts.Summary <= 0 {
		return fmt.Errorf("AI_TIMEOUT_SUMMARY must be positive")
	}

	if c.Timeouts.Similarity <= 0 {
		return fmt.Errorf("AI_TIMEOUT_SIMILARITY must be positive")
	}

	if c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("AI_RATE_RPS must be positive")
	}

	if c.RateLimit.Burst <= 0 {
		return fmt.Errorf("AI_RATE_BURST must be positive")
	}

	if c.RateLimit.MaxCallsPerRun <= 0 {
		return fmt.Errorf("AI_MAX_CALLS_PER_RUN must be positive")
	}

	if c.CircuitBreaker.MaxRequests == 0 {
		return fmt.Errorf("AI_CB_MAX_REQUESTS must be positive")
	}

	if c.CircuitBreaker.Interval <= 0 {
		return fmt.Errorf("AI_CB_INTERVAL must be positive")
	}

	if c.CircuitBreaker.Timeout <= 0 {
		return fmt.Errorf("AI_CB_TIMEOUT must be positive")
	}

	return nil
}

// getEnvOrDefault returns environment variable value or default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool parses boolean environment variable with default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt parses integer environment variable with default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvFloat parses float environment variable with default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration parses duration environment variable with default.
// Supports formats like "30s", "1m", "2h".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
