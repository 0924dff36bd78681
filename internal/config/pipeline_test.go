package config

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	pkgconfig "dailybrief/internal/pkg/config"
)

// globalTestMetrics is a shared metrics instance for tests to avoid
// duplicate Prometheus registration errors. In production, metrics are
// created once at startup, so this simulates that behavior.
var globalTestMetrics = pkgconfig.NewConfigMetrics("pipeline_test")

// unsetEnv is a test helper that unsets an environment variable and fails the test if it errors
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("Failed to unset %s: %v", key, err)
	}
}

// clearPipelineEnvVars removes every environment variable consulted by
// LoadPipelineConfig so tests start from the documented defaults.
func clearPipelineEnvVars(t *testing.T) {
	t.Helper()
	envVars := []string{
		"DIGEST_CONFIG_FILE",
		"FETCH_TIMEOUT",
		"FETCH_MAX_RETRIES",
		"FETCH_RETRY_DELAY",
		"FETCH_MAX_ARTICLES_PER_FEED",
		"FETCH_MAX_CONCURRENT",
		"FETCH_USER_AGENT",
		"FETCH_ENHANCE_CONTENT",
		"FETCH_ENHANCE_MIN_LENGTH",
		"CONTENT_MIN_LENGTH",
		"CONTENT_MAX_LENGTH",
		"CONTENT_TITLE_MAX",
		"CONTENT_AUTHOR_MAX",
		"CONTENT_TAG_MAX",
		"CONTENT_MAX_TAGS",
		"CONTENT_SPAM_DETECTION",
		"CONTENT_QUALITY_SCORING",
		"TOPICS_MAX",
		"SUMMARY_MAX_WORDS",
		"SUMMARY_CONTENT_LENGTH",
		"SUMMARY_DEFAULT_STYLE",
		"SIMILARITY_THRESHOLD",
		"SIMILARITY_CACHE_TTL",
		"SIMILARITY_BATCH_SIZE",
		"RELEVANCE_KW_WEIGHT_TITLE",
		"RELEVANCE_KW_WEIGHT_CONTENT",
		"RELEVANCE_KW_WEIGHT_TAGS",
		"RELEVANCE_MAX_KEYWORDS",
		"RELEVANCE_DEFAULT_THRESHOLD",
		"RELEVANCE_DEFAULT_BOOST",
		"RELEVANCE_CACHE_TTL",
		"RELEVANCE_SEMANTIC_SCORING",
		"CACHE_BACKEND",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
	}
	for _, key := range envVars {
		_ = os.Unsetenv(key)
	}
	clearAIEnvVars(t)
}

func TestDefaultPipelineConfig(t *testing.T) {
	config := DefaultPipelineConfig()

	// Fetching
	if config.Fetch.Timeout != 30*time.Second {
		t.Errorf("Expected fetch timeout 30s, got %v", config.Fetch.Timeout)
	}
	if config.Fetch.MaxRetries != 3 {
		t.Errorf("Expected max retries 3, got %d", config.Fetch.MaxRetries)
	}
	if config.Fetch.RetryDelay != 1*time.Second {
		t.Errorf("Expected retry delay 1s, got %v", config.Fetch.RetryDelay)
	}
	if config.Fetch.MaxArticlesPerFeed != 100 {
		t.Errorf("Expected max articles per feed 100, got %d", config.Fetch.MaxArticlesPerFeed)
	}
	if config.Fetch.UserAgent == "" {
		t.Error("Expected non-empty default user agent")
	}
	if config.Fetch.EnhanceContent {
		t.Error("Expected content enhancement disabled by default")
	}

	// Content
	if config.Content.MinLength != 100 {
		t.Errorf("Expected min length 100, got %d", config.Content.MinLength)
	}
	if config.Content.MaxLength != 50000 {
		t.Errorf("Expected max length 50000, got %d", config.Content.MaxLength)
	}
	if config.Content.TitleMax != 500 {
		t.Errorf("Expected title max 500, got %d", config.Content.TitleMax)
	}
	if config.Content.AuthorMax != 100 {
		t.Errorf("Expected author max 100, got %d", config.Content.AuthorMax)
	}
	if config.Content.TagMax != 50 {
		t.Errorf("Expected tag max 50, got %d", config.Content.TagMax)
	}
	if config.Content.MaxTags != 20 {
		t.Errorf("Expected max tags 20, got %d", config.Content.MaxTags)
	}
	if !config.Content.SpamDetectionEnabled {
		t.Error("Expected spam detection enabled by default")
	}
	if !config.Content.QualityScoringEnabled {
		t.Error("Expected quality scoring enabled by default")
	}

	// Topics
	if config.Topics.MaxTopics != 5 {
		t.Errorf("Expected max topics 5, got %d", config.Topics.MaxTopics)
	}

	// Summarization
	if config.Summary.MaxLengthWords != 500 {
		t.Errorf("Expected summary max words 500, got %d", config.Summary.MaxLengthWords)
	}
	if config.Summary.ContentLength != 2000 {
		t.Errorf("Expected summary content length 2000, got %d", config.Summary.ContentLength)
	}
	if config.Summary.DefaultStyle != "brief" {
		t.Errorf("Expected default style 'brief', got %q", config.Summary.DefaultStyle)
	}

	// Similarity
	if config.Similarity.Threshold != 0.7 {
		t.Errorf("Expected similarity threshold 0.7, got %g", config.Similarity.Threshold)
	}
	if config.Similarity.CacheTTL != 24*time.Hour {
		t.Errorf("Expected similarity cache TTL 24h, got %v", config.Similarity.CacheTTL)
	}
	if config.Similarity.BatchSize != 10 {
		t.Errorf("Expected similarity batch size 10, got %d", config.Similarity.BatchSize)
	}

	// Personalization
	if config.Personalization.KwWeightTitle != 3 {
		t.Errorf("Expected title keyword weight 3, got %d", config.Personalization.KwWeightTitle)
	}
	if config.Personalization.KwWeightContent != 2 {
		t.Errorf("Expected content keyword weight 2, got %d", config.Personalization.KwWeightContent)
	}
	if config.Personalization.KwWeightTags != 4 {
		t.Errorf("Expected tag keyword weight 4, got %d", config.Personalization.KwWeightTags)
	}
	if config.Personalization.MaxKeywords != 50 {
		t.Errorf("Expected max keywords 50, got %d", config.Personalization.MaxKeywords)
	}
	if config.Personalization.DefaultThreshold != 40 {
		t.Errorf("Expected default threshold 40, got %d", config.Personalization.DefaultThreshold)
	}
	if config.Personalization.DefaultBoostFactor != 1.0 {
		t.Errorf("Expected default boost factor 1.0, got %g", config.Personalization.DefaultBoostFactor)
	}
	if config.Personalization.CacheTTL != 12*time.Hour {
		t.Errorf("Expected personalization cache TTL 12h, got %v", config.Personalization.CacheTTL)
	}
	if !config.Personalization.EnableSemanticScoring {
		t.Error("Expected semantic scoring enabled by default")
	}

	// Cache
	if config.Cache.Backend != CacheBackendMemory {
		t.Errorf("Expected cache backend 'memory', got %q", config.Cache.Backend)
	}
	if config.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("Expected redis addr 'localhost:6379', got %q", config.Cache.RedisAddr)
	}

	// AI defaults to the disabled provider
	if config.AI.Provider != ProviderDisabled {
		t.Errorf("Expected AI provider 'disabled', got %q", config.AI.Provider)
	}
}

func TestDefaultPipelineConfig_IsValid(t *testing.T) {
	config := DefaultPipelineConfig()

	if err := config.Validate(); err != nil {
		t.Errorf("DefaultPipelineConfig should be valid, got error: %v", err)
	}
}

func TestDefaultPipelineConfig_Immutability(t *testing.T) {
	config1 := DefaultPipelineConfig()
	config2 := DefaultPipelineConfig()

	config1.Similarity.Threshold = 0.2
	config1.Content.MinLength = 999

	if config2.Similarity.Threshold != 0.7 {
		t.Error("DefaultPipelineConfig returned a shared instance instead of a new one")
	}
	if config2.Content.MinLength != 100 {
		t.Error("DefaultPipelineConfig returned a shared instance instead of a new one")
	}
}

func TestPipelineConfig_Validate_InvalidFields(t *testing.T) {
	tests := []struct {
		name     string
		modifyFn func(*PipelineConfig)
	}{
		{
			name: "zero fetch timeout",
			modifyFn: func(c *PipelineConfig) {
				c.Fetch.Timeout = 0
			},
		},
		{
			name: "fetch retries too high",
			modifyFn: func(c *PipelineConfig) {
				c.Fetch.MaxRetries = 11
			},
		},
		{
			name: "empty user agent",
			modifyFn: func(c *PipelineConfig) {
				c.Fetch.UserAgent = ""
			},
		},
		{
			name: "zero content min length",
			modifyFn: func(c *PipelineConfig) {
				c.Content.MinLength = 0
			},
		},
		{
			name: "content max below min",
			modifyFn: func(c *PipelineConfig) {
				c.Content.MinLength = 5000
				c.Content.MaxLength = 4000
			},
		},
		{
			name: "max topics zero",
			modifyFn: func(c *PipelineConfig) {
				c.Topics.MaxTopics = 0
			},
		},
		{
			name: "max topics above ten",
			modifyFn: func(c *PipelineConfig) {
				c.Topics.MaxTopics = 11
			},
		},
		{
			name: "unknown summary style",
			modifyFn: func(c *PipelineConfig) {
				c.Summary.DefaultStyle = "haiku"
			},
		},
		{
			name: "similarity threshold above one",
			modifyFn: func(c *PipelineConfig) {
				c.Similarity.Threshold = 1.1
			},
		},
		{
			name: "similarity threshold negative",
			modifyFn: func(c *PipelineConfig) {
				c.Similarity.Threshold = -0.1
			},
		},
		{
			name: "similarity batch size too large",
			modifyFn: func(c *PipelineConfig) {
				c.Similarity.BatchSize = 51
			},
		},
		{
			name: "boost factor below minimum",
			modifyFn: func(c *PipelineConfig) {
				c.Personalization.DefaultBoostFactor = 0.4
			},
		},
		{
			name: "boost factor above maximum",
			modifyFn: func(c *PipelineConfig) {
				c.Personalization.DefaultBoostFactor = 2.1
			},
		},
		{
			name: "relevance threshold above 100",
			modifyFn: func(c *PipelineConfig) {
				c.Personalization.DefaultThreshold = 101
			},
		},
		{
			name: "unknown cache backend",
			modifyFn: func(c *PipelineConfig) {
				c.Cache.Backend = "memcached"
			},
		},
		{
			name: "redis backend without addr",
			modifyFn: func(c *PipelineConfig) {
				c.Cache.Backend = CacheBackendRedis
				c.Cache.RedisAddr = ""
			},
		},
		{
			name: "invalid ai provider",
			modifyFn: func(c *PipelineConfig) {
				c.AI.Provider = "bogus"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultPipelineConfig()
			tt.modifyFn(&config)

			if err := config.Validate(); err == nil {
				t.Error("Expected validation error but got nil")
			}
		})
	}
}

func TestPipelineConfig_Validate_MultipleErrors(t *testing.T) {
	config := DefaultPipelineConfig()
	config.Fetch.Timeout = 0
	config.Similarity.Threshold = 2.0
	config.Topics.MaxTopics = 0

	err := config.Validate()
	if err == nil {
		t.Fatal("Expected validation errors for multiple invalid fields")
	}

	if !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("Expected aggregated validation error, got: %v", err)
	}
}

func TestLoadPipelineConfig_Defaults(t *testing.T) {
	clearPipelineEnvVars(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	config, err := LoadPipelineConfig(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	defaults := DefaultPipelineConfig()
	if config.Fetch != defaults.Fetch {
		t.Errorf("Expected default fetch config, got %+v", config.Fetch)
	}
	if config.Content != defaults.Content {
		t.Errorf("Expected default content config, got %+v", config.Content)
	}
	if config.Topics != defaults.Topics {
		t.Errorf("Expected default topics config, got %+v", config.Topics)
	}
	if config.Summary != defaults.Summary {
		t.Errorf("Expected default summary config, got %+v", config.Summary)
	}
	if config.Similarity != defaults.Similarity {
		t.Errorf("Expected default similarity config, got %+v", config.Similarity)
	}
	if config.Personalization != defaults.Personalization {
		t.Errorf("Expected default personalization config, got %+v", config.Personalization)
	}
	if config.Cache != defaults.Cache {
		t.Errorf("Expected default cache config, got %+v", config.Cache)
	}
	if config.AI.Provider != ProviderDisabled {
		t.Errorf("Expected disabled AI provider, got %q", config.AI.Provider)
	}

	// No fallback warnings for missing env vars
	if strings.Contains(buf.String(), "Configuration fallback applied") {
		t.Errorf("Expected no fallback warnings, got: %s", buf.String())
	}
}

func TestLoadPipelineConfig_AllEnvVarsValid(t *testing.T) {
	clearPipelineEnvVars(t)

	setEnv(t, "FETCH_TIMEOUT", "45s")
	setEnv(t, "FETCH_MAX_RETRIES", "5")
	setEnv(t, "FETCH_RETRY_DELAY", "2s")
	setEnv(t, "FETCH_MAX_ARTICLES_PER_FEED", "200")
	setEnv(t, "FETCH_MAX_CONCURRENT", "8")
	setEnv(t, "FETCH_USER_AGENT", "custom-agent/2.0")
	setEnv(t, "CONTENT_MIN_LENGTH", "150")
	setEnv(t, "CONTENT_SPAM_DETECTION", "false")
	setEnv(t, "TOPICS_MAX", "7")
	setEnv(t, "SUMMARY_MAX_WORDS", "250")
	setEnv(t, "SUMMARY_DEFAULT_STYLE", "bullet_points")
	setEnv(t, "SIMILARITY_THRESHOLD", "0.85")
	setEnv(t, "SIMILARITY_CACHE_TTL", "12h")
	setEnv(t, "RELEVANCE_DEFAULT_THRESHOLD", "60")
	setEnv(t, "RELEVANCE_DEFAULT_BOOST", "1.5")
	setEnv(t, "CACHE_BACKEND", "redis")
	setEnv(t, "REDIS_ADDR", "cache:6379")
	setEnv(t, "REDIS_DB", "3")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	config, err := LoadPipelineConfig(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.Fetch.Timeout != 45*time.Second {
		t.Errorf("Expected fetch timeout 45s, got %v", config.Fetch.Timeout)
	}
	if config.Fetch.MaxRetries != 5 {
		t.Errorf("Expected max retries 5, got %d", config.Fetch.MaxRetries)
	}
	if config.Fetch.RetryDelay != 2*time.Second {
		t.Errorf("Expected retry delay 2s, got %v", config.Fetch.RetryDelay)
	}
	if config.Fetch.MaxArticlesPerFeed != 200 {
		t.Errorf("Expected max articles 200, got %d", config.Fetch.MaxArticlesPerFeed)
	}
	if config.Fetch.MaxConcurrent != 8 {
		t.Errorf("Expected max concurrent 8, got %d", config.Fetch.MaxConcurrent)
	}
	if config.Fetch.UserAgent != "custom-agent/2.0" {
		t.Errorf("Expected custom user agent, got %q", config.Fetch.UserAgent)
	}
	if config.Content.MinLength != 150 {
		t.Errorf("Expected min length 150, got %d", config.Content.MinLength)
	}
	if config.Content.SpamDetectionEnabled {
		t.Error("Expected spam detection disabled")
	}
	if config.Topics.MaxTopics != 7 {
		t.Errorf("Expected max topics 7, got %d", config.Topics.MaxTopics)
	}
	if config.Summary.MaxLengthWords != 250 {
		t.Errorf("Expected summary max words 250, got %d", config.Summary.MaxLengthWords)
	}
	if config.Summary.DefaultStyle != "bullet_points" {
		t.Errorf("Expected style 'bullet_points', got %q", config.Summary.DefaultStyle)
	}
	if config.Similarity.Threshold != 0.85 {
		t.Errorf("Expected threshold 0.85, got %g", config.Similarity.Threshold)
	}
	if config.Similarity.CacheTTL != 12*time.Hour {
		t.Errorf("Expected similarity cache TTL 12h, got %v", config.Similarity.CacheTTL)
	}
	if config.Personalization.DefaultThreshold != 60 {
		t.Errorf("Expected default threshold 60, got %d", config.Personalization.DefaultThreshold)
	}
	if config.Personalization.DefaultBoostFactor != 1.5 {
		t.Errorf("Expected boost factor 1.5, got %g", config.Personalization.DefaultBoostFactor)
	}
	if config.Cache.Backend != CacheBackendRedis {
		t.Errorf("Expected redis backend, got %q", config.Cache.Backend)
	}
	if config.Cache.RedisAddr != "cache:6379" {
		t.Errorf("Expected redis addr 'cache:6379', got %q", config.Cache.RedisAddr)
	}
	if config.Cache.RedisDB != 3 {
		t.Errorf("Expected redis db 3, got %d", config.Cache.RedisDB)
	}

	if strings.Contains(buf.String(), "Configuration fallback applied") {
		t.Errorf("Expected no fallback warnings, got: %s", buf.String())
	}
}

func TestLoadPipelineConfig_InvalidValueFallsBack(t *testing.T) {
	clearPipelineEnvVars(t)

	// Out of range and unparseable values fall back to defaults.
	setEnv(t, "SIMILARITY_THRESHOLD", "5.0")
	setEnv(t, "FETCH_MAX_RETRIES", "not-a-number")
	setEnv(t, "TOPICS_MAX", "50")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	config, err := LoadPipelineConfig(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("Expected no error (fail-open strategy), got: %v", err)
	}

	if config.Similarity.Threshold != 0.7 {
		t.Errorf("Expected fallback threshold 0.7, got %g", config.Similarity.Threshold)
	}
	if config.Fetch.MaxRetries != 3 {
		t.Errorf("Expected fallback max retries 3, got %d", config.Fetch.MaxRetries)
	}
	if config.Topics.MaxTopics != 5 {
		t.Errorf("Expected fallback max topics 5, got %d", config.Topics.MaxTopics)
	}

	logOutput := buf.String()
	if !strings.Contains(logOutput, "Configuration fallback applied") {
		t.Error("Expected fallback warning in logs")
	}
	if !strings.Contains(logOutput, "similarity_threshold") {
		t.Error("Expected similarity_threshold field in warning")
	}
	if !strings.Contains(logOutput, "fetch_max_retries") {
		t.Error("Expected fetch_max_retries field in warning")
	}
}

func TestLoadPipelineConfig_FileOverlay(t *testing.T) {
	clearPipelineEnvVars(t)

	path := writeConfigFile(t, `similarity:
  threshold: 0.8
  batch_size: 5
content:
  min_length: 250
`)
	setEnv(t, "DIGEST_CONFIG_FILE", path)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	config, err := LoadPipelineConfig(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.Similarity.Threshold != 0.8 {
		t.Errorf("Expected file threshold 0.8, got %g", config.Similarity.Threshold)
	}
	if config.Similarity.BatchSize != 5 {
		t.Errorf("Expected file batch size 5, got %d", config.Similarity.BatchSize)
	}
	if config.Content.MinLength != 250 {
		t.Errorf("Expected file min length 250, got %d", config.Content.MinLength)
	}

	// Fields the file does not mention keep their defaults.
	if config.Content.MaxLength != 50000 {
		t.Errorf("Expected default max length 50000, got %d", config.Content.MaxLength)
	}
}

func TestLoadPipelineConfig_EnvOverridesFile(t *testing.T) {
	clearPipelineEnvVars(t)

	path := writeConfigFile(t, `similarity:
  threshold: 0.8
`)
	setEnv(t, "DIGEST_CONFIG_FILE", path)
	setEnv(t, "SIMILARITY_THRESHOLD", "0.95")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	config, err := LoadPipelineConfig(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.Similarity.Threshold != 0.95 {
		t.Errorf("Expected env threshold 0.95 to win over file, got %g", config.Similarity.Threshold)
	}
}

func TestLoadPipelineConfig_FileNotFound(t *testing.T) {
	clearPipelineEnvVars(t)
	setEnv(t, "DIGEST_CONFIG_FILE", "/nonexistent/config.yaml")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	_, err := LoadPipelineConfig(logger, globalTestMetrics)
	if err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestLoadPipelineConfig_InvalidFileValueFailsClosed(t *testing.T) {
	clearPipelineEnvVars(t)

	// File values bypass the env loaders, so Validate catches them and
	// the load fails instead of silently correcting an explicit file.
	path := writeConfigFile(t, `similarity:
  threshold: 1.5
`)
	setEnv(t, "DIGEST_CONFIG_FILE", path)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	_, err := LoadPipelineConfig(logger, globalTestMetrics)
	if err == nil {
		t.Error("Expected validation error for out-of-range file value")
	}
}

func TestLoadPipelineConfig_InvalidAIProviderFailsClosed(t *testing.T) {
	clearPipelineEnvVars(t)
	setEnv(t, "AI_PROVIDER", "skynet")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	_, err := LoadPipelineConfig(logger, globalTestMetrics)
	if err == nil {
		t.Error("Expected error for unknown AI provider")
	}
}
