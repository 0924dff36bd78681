// Package config assembles the runtime configuration for the digest
// pipeline. Processing knobs load from environment variables with
// validation and fail-open fallback to defaults; an optional YAML file
// (DIGEST_CONFIG_FILE) overlays the defaults before the environment is
// applied. AI provider settings load separately and fail closed.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"dailybrief/internal/domain/entity"
	pkgconfig "dailybrief/internal/pkg/config"
)

// FetchConfig controls feed fetching behavior.
type FetchConfig struct {
	// Timeout is the per-source fetch timeout.
	// Default: 30s
	Timeout time.Duration

	// MaxRetries is the number of attempts per source fetch.
	// Default: 3
	MaxRetries int

	// RetryDelay is the initial backoff delay between fetch attempts.
	// Default: 1s
	RetryDelay time.Duration

	// MaxArticlesPerFeed caps how many items are taken from one feed.
	// Range: 1-1000. Default: 100
	MaxArticlesPerFeed int

	// MaxConcurrent bounds the parallel source fetches per run.
	// Range: 1-50. Default: 5
	MaxConcurrent int

	// UserAgent is sent on every feed and enhancement request.
	UserAgent string

	// EnhanceContent enables fetching the article page for items whose
	// feed body is thin, extracting readable text. Failures fall back
	// to the feed body and never fail the fetch.
	// Default: false
	EnhanceContent bool

	// EnhanceMinLength is the feed-body length below which enhancement
	// is attempted. Default: 500
	EnhanceMinLength int

	// DenyPrivateHosts blocks feed and enhancement URLs whose host
	// resolves to a loopback, link-local or private address.
	// Default: true
	DenyPrivateHosts bool
}

// ContentConfig controls validation and normalization limits.
type ContentConfig struct {
	// MinLength is the minimum content length accepted at validation.
	// Content below this is rejected as too short. Default: 100
	MinLength int

	// MaxLength is the maximum content length kept after normalization.
	// Longer content is truncated at a word boundary. Default: 50000
	MaxLength int

	// TitleMax is the maximum title length. Default: 500
	TitleMax int

	// AuthorMax is the maximum author length. Default: 100
	AuthorMax int

	// TagMax is the maximum length of a single tag. Default: 50
	TagMax int

	// MaxTags caps the number of tags kept per article. Default: 20
	MaxTags int

	// SpamDetectionEnabled toggles the AI spam check during validation.
	// Default: true
	SpamDetectionEnabled bool

	// QualityScoringEnabled toggles the AI half of quality scoring.
	// Default: true
	QualityScoringEnabled bool
}

// TopicsConfig controls topic extraction.
type TopicsConfig struct {
	// MaxTopics caps topics per article. Range: 1-10. Default: 5
	MaxTopics int
}

// SummaryConfig controls summarization.
type SummaryConfig struct {
	// MaxLengthWords caps the summary length in words. Default: 500
	MaxLengthWords int

	// ContentLength is how many characters of article content are sent
	// to the AI provider. Default: 2000
	ContentLength int

	// DefaultStyle is the summary style used when a profile does not
	// set one. One of: brief, detailed, bullet_points. Default: brief
	DefaultStyle string
}

// SimilarityConfig controls article grouping.
type SimilarityConfig struct {
	// Threshold is the minimum similarity for two articles to share a
	// group. Range: 0.0-1.0. Default: 0.7
	Threshold float64

	// CacheTTL is how long pair similarity results are memoized.
	// Default: 24h
	CacheTTL time.Duration

	// BatchSize is how many articles are compared per AI call batch.
	// Range: 1-50. Default: 10
	BatchSize int
}

// PersonalizationConfig controls relevance scoring.
type PersonalizationConfig struct {
	// KwWeightTitle is points per unique keyword matched in the title.
	// Default: 3
	KwWeightTitle int

	// KwWeightContent is points per unique keyword matched in content.
	// Default: 2
	KwWeightContent int

	// KwWeightTags is points per unique keyword matched in tags or
	// extracted topics. Default: 4
	KwWeightTags int

	// MaxKeywords caps the keywords considered from a profile.
	// Default: 50
	MaxKeywords int

	// DefaultThreshold is the relevance threshold used when a profile
	// does not set one. Range: 0-100. Default: 40
	DefaultThreshold int

	// DefaultBoostFactor is the boost applied when a profile does not
	// set one. Range: 0.5-2.0. Default: 1.0
	DefaultBoostFactor float64

	// CacheTTL is how long relevance results are memoized.
	// Default: 12h
	CacheTTL time.Duration

	// EnableSemanticScoring toggles the AI semantic stage. When off,
	// scoring uses keywords plus boosts only. Default: true
	EnableSemanticScoring bool
}

// CacheBackend names for CacheConfig.Backend.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// CacheConfig selects and configures the memoization store.
type CacheConfig struct {
	// Backend is "memory" or "redis". Default: memory
	Backend string

	// RedisAddr is the Redis host:port. Default: localhost:6379
	RedisAddr string

	// RedisPassword is the Redis auth password. Default: empty
	RedisPassword string

	// RedisDB is the Redis database index. Default: 0
	RedisDB int
}

// PipelineConfig is the frozen configuration record handed to the
// workflow and its activities. It is loaded once per process and never
// mutated afterwards, which keeps replay deterministic.
type PipelineConfig struct {
	Fetch           FetchConfig
	Content         ContentConfig
	Topics          TopicsConfig
	Summary         SummaryConfig
	Similarity      SimilarityConfig
	Personalization PersonalizationConfig
	Cache           CacheConfig
	AI              AIConfig
}

// DefaultPipelineConfig returns a PipelineConfig with the documented
// defaults for every knob. The AI section defaults to the disabled
// provider so the binary runs without credentials; every processor
// falls back per its degradation rules.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Fetch: FetchConfig{
			Timeout:            30 * time.Second,
			MaxRetries:         3,
			RetryDelay:         1 * time.Second,
			MaxArticlesPerFeed: 100,
			MaxConcurrent:      5,
			UserAgent:          "dailybrief/1.0 (+https://github.com/dailybrief)",
			EnhanceContent:     false,
			EnhanceMinLength:   500,
			DenyPrivateHosts:   true,
		},
		Content: ContentConfig{
			MinLength:             100,
			MaxLength:             50000,
			TitleMax:              500,
			AuthorMax:             100,
			TagMax:                50,
			MaxTags:               20,
			SpamDetectionEnabled:  true,
			QualityScoringEnabled: true,
		},
		Topics: TopicsConfig{
			MaxTopics: 5,
		},
		Summary: SummaryConfig{
			MaxLengthWords: 500,
			ContentLength:  2000,
			DefaultStyle:   string(entity.StyleBrief),
		},
		Similarity: SimilarityConfig{
			Threshold: 0.7,
			CacheTTL:  24 * time.Hour,
			BatchSize: 10,
		},
		Personalization: PersonalizationConfig{
			KwWeightTitle:         3,
			KwWeightContent:       2,
			KwWeightTags:          4,
			MaxKeywords:           50,
			DefaultThreshold:      40,
			DefaultBoostFactor:    1.0,
			CacheTTL:              12 * time.Hour,
			EnableSemanticScoring: true,
		},
		Cache: CacheConfig{
			Backend:   CacheBackendMemory,
			RedisAddr: "localhost:6379",
			RedisDB:   0,
		},
		AI: DefaultAIConfig(),
	}
}

// Validate checks every knob against its documented range. Ranges match
// the loader validators, so environment-sourced values always pass;
// this catches out-of-range values from the YAML overlay or from code
// constructing configs by hand.
func (c *PipelineConfig) Validate() error {
	var errs []error

	if err := pkgconfig.ValidatePositiveDuration(c.Fetch.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("fetch timeout: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.Fetch.MaxRetries, 1, 10); err != nil {
		errs = append(errs, fmt.Errorf("fetch max retries: %w", err))
	}
	if err := pkgconfig.ValidatePositiveDuration(c.Fetch.RetryDelay); err != nil {
		errs = append(errs, fmt.Errorf("fetch retry delay: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.Fetch.MaxArticlesPerFeed, 1, 1000); err != nil {
		errs = append(errs, fmt.Errorf("max articles per feed: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.Fetch.MaxConcurrent, 1, 50); err != nil {
		errs = append(errs, fmt.Errorf("fetch max concurrent: %w", err))
	}
	if c.Fetch.UserAgent == "" {
		errs = append(errs, fmt.Errorf("fetch user agent: cannot be empty"))
	}
	if err := pkgconfig.ValidateIntRange(c.Fetch.EnhanceMinLength, 0, 10000); err != nil {
		errs = append(errs, fmt.Errorf("enhance min length: %w", err))
	}

	if err := pkgconfig.ValidateIntRange(c.Content.MinLength, 1, 10000); err != nil {
		errs = append(errs, fmt.Errorf("content min length: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.Content.MaxLength, c.Content.MinLength, 1000000); err != nil {
		errs = append(errs, fmt.Errorf("content max length: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.Content.TitleMax, 10, 5000); err != nil {
		errs = append(errs, fmt.Errorf("title max: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.Content.AuthorMax, 10, 1000); err != nil {
		errs = append(errs, fmt.Errorf("author max: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.Content.TagMax, 1, 500); err != nil {
		errs = append(errs, fmt.Errorf("tag max: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.Content.MaxTags, 1, 100); err != nil {
		errs = append(errs, fmt.Errorf("max tags: %w", err))
	}

	if err := pkgconfig.ValidateIntRange(c.Topics.MaxTopics, 1, 10); err != nil {
		errs = append(errs, fmt.Errorf("max topics: %w", err))
	}

	if err := pkgconfig.ValidateIntRange(c.Summary.MaxLengthWords, 50, 2000); err != nil {
		errs = append(errs, fmt.Errorf("summary max words: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.Summary.ContentLength, 100, 20000); err != nil {
		errs = append(errs, fmt.Errorf("summary content length: %w", err))
	}
	if _, err := entity.ParseSummaryStyle(c.Summary.DefaultStyle); err != nil {
		errs = append(errs, fmt.Errorf("summary default style: %w", err))
	}

	if err := pkgconfig.ValidateFloatRange(c.Similarity.Threshold, 0.0, 1.0); err != nil {
		errs = append(errs, fmt.Errorf("similarity threshold: %w", err))
	}
	if err := pkgconfig.ValidatePositiveDuration(c.Similarity.CacheTTL); err != nil {
		errs = append(errs, fmt.Errorf("similarity cache ttl: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.Similarity.BatchSize, 1, 50); err != nil {
		errs = append(errs, fmt.Errorf("similarity batch size: %w", err))
	}

	if err := pkgconfig.ValidateIntRange(c.Personalization.KwWeightTitle, 0, 100); err != nil {
		errs = append(errs, fmt.Errorf("kw weight title: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.Personalization.KwWeightContent, 0, 100); err != nil {
		errs = append(errs, fmt.Errorf("kw weight content: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.Personalization.KwWeightTags, 0, 100); err != nil {
		errs = append(errs, fmt.Errorf("kw weight tags: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.Personalization.MaxKeywords, 1, 500); err != nil {
		errs = append(errs, fmt.Errorf("max keywords: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.Personalization.DefaultThreshold, 0, 100); err != nil {
		errs = append(errs, fmt.Errorf("default threshold: %w", err))
	}
	if err := pkgconfig.ValidateFloatRange(c.Personalization.DefaultBoostFactor, 0.5, 2.0); err != nil {
		errs = append(errs, fmt.Errorf("default boost factor: %w", err))
	}
	if err := pkgconfig.ValidatePositiveDuration(c.Personalization.CacheTTL); err != nil {
		errs = append(errs, fmt.Errorf("personalization cache ttl: %w", err))
	}

	if c.Cache.Backend != CacheBackendMemory && c.Cache.Backend != CacheBackendRedis {
		errs = append(errs, fmt.Errorf("cache backend: must be %q or %q, got %q",
			CacheBackendMemory, CacheBackendRedis, c.Cache.Backend))
	}
	if c.Cache.Backend == CacheBackendRedis && c.Cache.RedisAddr == "" {
		errs = append(errs, fmt.Errorf("cache redis addr: cannot be empty"))
	}

	if err := c.AI.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("ai: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}

	return nil
}

// noteFallback records one fallback result against the logger and the
// pipeline config metrics. Returns true when a fallback was applied so
// callers can track the aggregate flag.
func noteFallback(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics, field string, result pkgconfig.ConfigLoadResult) bool {
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

// LoadPipelineConfig builds the pipeline configuration in three layers:
// documented defaults, then the optional YAML file named by
// DIGEST_CONFIG_FILE, then environment variables. Environment values
// are fail-open: an invalid value logs a warning, bumps the fallback
// metrics, and keeps the layered default. A missing or unparseable
// YAML file and invalid AI settings fail closed.
//
// Environment variables (processing knobs):
//   - FETCH_TIMEOUT, FETCH_MAX_RETRIES, FETCH_RETRY_DELAY,
//     FETCH_MAX_ARTICLES_PER_FEED, FETCH_MAX_CONCURRENT,
//     FETCH_USER_AGENT, FETCH_ENHANCE_CONTENT, FETCH_ENHANCE_MIN_LENGTH,
//     FETCH_DENY_PRIVATE_HOSTS
//   - CONTENT_MIN_LENGTH, CONTENT_MAX_LENGTH, CONTENT_TITLE_MAX,
//     CONTENT_AUTHOR_MAX, CONTENT_TAG_MAX, CONTENT_MAX_TAGS,
//     CONTENT_SPAM_DETECTION, CONTENT_QUALITY_SCORING
//   - TOPICS_MAX
//   - SUMMARY_MAX_WORDS, SUMMARY_CONTENT_LENGTH, SUMMARY_DEFAULT_STYLE
//   - SIMILARITY_THRESHOLD, SIMILARITY_CACHE_TTL, SIMILARITY_BATCH_SIZE
//   - RELEVANCE_KW_WEIGHT_TITLE, RELEVANCE_KW_WEIGHT_CONTENT,
//     RELEVANCE_KW_WEIGHT_TAGS, RELEVANCE_MAX_KEYWORDS,
//     RELEVANCE_DEFAULT_THRESHOLD, RELEVANCE_DEFAULT_BOOST,
//     RELEVANCE_CACHE_TTL, RELEVANCE_SEMANTIC_SCORING
//   - CACHE_BACKEND, REDIS_ADDR, REDIS_PASSWORD, REDIS_DB
//
// AI settings are documented on LoadAIConfig.
func LoadPipelineConfig(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) (*PipelineConfig, error) {
	cfg := DefaultPipelineConfig()
	fallbackApplied := false

	// YAML overlay before environment: env always wins.
	if path := pkgconfig.LoadEnvString("DIGEST_CONFIG_FILE", ""); path != "" {
		fileCfg, err := LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
		fileCfg.Apply(&cfg)
		logger.Info("Applied configuration file overlay",
			slog.String("path", path))
	}

	// Fetching
	result := pkgconfig.LoadEnvDuration("FETCH_TIMEOUT", cfg.Fetch.Timeout, pkgconfig.ValidatePositiveDuration)
	cfg.Fetch.Timeout = result.Value.(time.Duration)
	fallbackApplied = noteFallback(logger, metrics, "fetch_timeout", result) || fallbackApplied

	result = pkgconfig.LoadEnvInt("FETCH_MAX_RETRIES", cfg.Fetch.MaxRetries, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 10)
	})
	cfg.Fetch.MaxRetries = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "fetch_max_retries", result) || fallbackApplied

	result = pkgconfig.LoadEnvDuration("FETCH_RETRY_DELAY", cfg.Fetch.RetryDelay, pkgconfig.ValidatePositiveDuration)
	cfg.Fetch.RetryDelay = result.Value.(time.Duration)
	fallbackApplied = noteFallback(logger, metrics, "fetch_retry_delay", result) || fallbackApplied

	result = pkgconfig.LoadEnvInt("FETCH_MAX_ARTICLES_PER_FEED", cfg.Fetch.MaxArticlesPerFeed, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 1000)
	})
	cfg.Fetch.MaxArticlesPerFeed = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "fetch_max_articles_per_feed", result) || fallbackApplied

	result = pkgconfig.LoadEnvInt("FETCH_MAX_CONCURRENT", cfg.Fetch.MaxConcurrent, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 50)
	})
	cfg.Fetch.MaxConcurrent = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "fetch_max_concurrent", result) || fallbackApplied

	cfg.Fetch.UserAgent = pkgconfig.LoadEnvString("FETCH_USER_AGENT", cfg.Fetch.UserAgent)

	result = pkgconfig.LoadEnvBool("FETCH_ENHANCE_CONTENT", cfg.Fetch.EnhanceContent)
	cfg.Fetch.EnhanceContent = result.Value.(bool)
	fallbackApplied = noteFallback(logger, metrics, "fetch_enhance_content", result) || fallbackApplied

	result = pkgconfig.LoadEnvInt("FETCH_ENHANCE_MIN_LENGTH", cfg.Fetch.EnhanceMinLength, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 0, 10000)
	})
	cfg.Fetch.EnhanceMinLength = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "fetch_enhance_min_length", result) || fallbackApplied

	result = pkgconfig.LoadEnvBool("FETCH_DENY_PRIVATE_HOSTS", cfg.Fetch.DenyPrivateHosts)
	cfg.Fetch.DenyPrivateHosts = result.Value.(bool)
	fallbackApplied = noteFallback(logger, metrics, "fetch_deny_private_hosts", result) || fallbackApplied

	// Content
	result = pkgconfig.LoadEnvInt("CONTENT_MIN_LENGTH", cfg.Content.MinLength, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 10000)
	})
	cfg.Content.MinLength = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "content_min_length", result) || fallbackApplied

	result = pkgconfig.LoadEnvInt("CONTENT_MAX_LENGTH", cfg.Content.MaxLength, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1000, 1000000)
	})
	cfg.Content.MaxLength = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "content_max_length", result) || fallbackApplied

	result = pkgconfig.LoadEnvInt("CONTENT_TITLE_MAX", cfg.Content.TitleMax, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 10, 5000)
	})
	cfg.Content.TitleMax = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "content_title_max", result) || fallbackApplied

	result = pkgconfig.LoadEnvInt("CONTENT_AUTHOR_MAX", cfg.Content.AuthorMax, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 10, 1000)
	})
	cfg.Content.AuthorMax = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "content_author_max", result) || fallbackApplied

	result = pkgconfig.LoadEnvInt("CONTENT_TAG_MAX", cfg.Content.TagMax, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 500)
	})
	cfg.Content.TagMax = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "content_tag_max", result) || fallbackApplied

	result = pkgconfig.LoadEnvInt("CONTENT_MAX_TAGS", cfg.Content.MaxTags, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 100)
	})
	cfg.Content.MaxTags = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "content_max_tags", result) || fallbackApplied

	result = pkgconfig.LoadEnvBool("CONTENT_SPAM_DETECTION", cfg.Content.SpamDetectionEnabled)
	cfg.Content.SpamDetectionEnabled = result.Value.(bool)
	fallbackApplied = noteFallback(logger, metrics, "content_spam_detection", result) || fallbackApplied

	result = pkgconfig.LoadEnvBool("CONTENT_QUALITY_SCORING", cfg.Content.QualityScoringEnabled)
	cfg.Content.QualityScoringEnabled = result.Value.(bool)
	fallbackApplied = noteFallback(logger, metrics, "content_quality_scoring", result) || fallbackApplied

	// Topics
	result = pkgconfig.LoadEnvInt("TOPICS_MAX", cfg.Topics.MaxTopics, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 10)
	})
	cfg.Topics.MaxTopics = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "topics_max", result) || fallbackApplied

	// Summarization
	result = pkgconfig.LoadEnvInt("SUMMARY_MAX_WORDS", cfg.Summary.MaxLengthWords, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 50, 2000)
	})
	cfg.Summary.MaxLengthWords = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "summary_max_words", result) || fallbackApplied

	result = pkgconfig.LoadEnvInt("SUMMARY_CONTENT_LENGTH", cfg.Summary.ContentLength, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 100, 20000)
	})
	cfg.Summary.ContentLength = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "summary_content_length", result) || fallbackApplied

	result = pkgconfig.LoadEnvWithFallback("SUMMARY_DEFAULT_STYLE", cfg.Summary.DefaultStyle, func(s string) error {
		_, err := entity.ParseSummaryStyle(s)
		return err
	})
	cfg.Summary.DefaultStyle = result.Value.(string)
	fallbackApplied = noteFallback(logger, metrics, "summary_default_style", result) || fallbackApplied

	// Similarity
	result = pkgconfig.LoadEnvFloat("SIMILARITY_THRESHOLD", cfg.Similarity.Threshold, func(v float64) error {
		return pkgconfig.ValidateFloatRange(v, 0.0, 1.0)
	})
	cfg.Similarity.Threshold = result.Value.(float64)
	fallbackApplied = noteFallback(logger, metrics, "similarity_threshold", result) || fallbackApplied

	result = pkgconfig.LoadEnvDuration("SIMILARITY_CACHE_TTL", cfg.Similarity.CacheTTL, pkgconfig.ValidatePositiveDuration)
	cfg.Similarity.CacheTTL = result.Value.(time.Duration)
	fallbackApplied = noteFallback(logger, metrics, "similarity_cache_ttl", result) || fallbackApplied

	result = pkgconfig.LoadEnvInt("SIMILARITY_BATCH_SIZE", cfg.Similarity.BatchSize, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 50)
	})
	cfg.Similarity.BatchSize = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "similarity_batch_size", result) || fallbackApplied

	// Personalization
	result = pkgconfig.LoadEnvInt("RELEVANCE_KW_WEIGHT_TITLE", cfg.Personalization.KwWeightTitle, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 0, 100)
	})
	cfg.Personalization.KwWeightTitle = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "relevance_kw_weight_title", result) || fallbackApplied

	result = pkgconfig.LoadEnvInt("RELEVANCE_KW_WEIGHT_CONTENT", cfg.Personalization.KwWeightContent, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 0, 100)
	})
	cfg.Personalization.KwWeightContent = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "relevance_kw_weight_content", result) || fallbackApplied

	result = pkgconfig.LoadEnvInt("RELEVANCE_KW_WEIGHT_TAGS", cfg.Personalization.KwWeightTags, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 0, 100)
	})
	cfg.Personalization.KwWeightTags = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "relevance_kw_weight_tags", result) || fallbackApplied

	result = pkgconfig.LoadEnvInt("RELEVANCE_MAX_KEYWORDS", cfg.Personalization.MaxKeywords, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 500)
	})
	cfg.Personalization.MaxKeywords = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "relevance_max_keywords", result) || fallbackApplied

	result = pkgconfig.LoadEnvInt("RELEVANCE_DEFAULT_THRESHOLD", cfg.Personalization.DefaultThreshold, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 0, 100)
	})
	cfg.Personalization.DefaultThreshold = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "relevance_default_threshold", result) || fallbackApplied

	result = pkgconfig.LoadEnvFloat("RELEVANCE_DEFAULT_BOOST", cfg.Personalization.DefaultBoostFactor, func(v float64) error {
		return pkgconfig.ValidateFloatRange(v, 0.5, 2.0)
	})
	cfg.Personalization.DefaultBoostFactor = result.Value.(float64)
	fallbackApplied = noteFallback(logger, metrics, "relevance_default_boost", result) || fallbackApplied

	result = pkgconfig.LoadEnvDuration("RELEVANCE_CACHE_TTL", cfg.Personalization.CacheTTL, pkgconfig.ValidatePositiveDuration)
	cfg.Personalization.CacheTTL = result.Value.(time.Duration)
	fallbackApplied = noteFallback(logger, metrics, "relevance_cache_ttl", result) || fallbackApplied

	result = pkgconfig.LoadEnvBool("RELEVANCE_SEMANTIC_SCORING", cfg.Personalization.EnableSemanticScoring)
	cfg.Personalization.EnableSemanticScoring = result.Value.(bool)
	fallbackApplied = noteFallback(logger, metrics, "relevance_semantic_scoring", result) || fallbackApplied

	// Cache
	result = pkgconfig.LoadEnvWithFallback("CACHE_BACKEND", cfg.Cache.Backend, func(s string) error {
		if s != CacheBackendMemory && s != CacheBackendRedis {
			return fmt.Errorf("must be %q or %q", CacheBackendMemory, CacheBackendRedis)
		}
		return nil
	})
	cfg.Cache.Backend = result.Value.(string)
	fallbackApplied = noteFallback(logger, metrics, "cache_backend", result) || fallbackApplied

	cfg.Cache.RedisAddr = pkgconfig.LoadEnvString("REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = pkgconfig.LoadEnvString("REDIS_PASSWORD", cfg.Cache.RedisPassword)

	result = pkgconfig.LoadEnvInt("REDIS_DB", cfg.Cache.RedisDB, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 0, 15)
	})
	cfg.Cache.RedisDB = result.Value.(int)
	fallbackApplied = noteFallback(logger, metrics, "redis_db", result) || fallbackApplied

	// AI settings fail closed: a misconfigured provider should stop the
	// process, not silently run without AI.
	aiCfg, err := LoadAIConfig()
	if err != nil {
		return nil, err
	}
	cfg.AI = *aiCfg

	// The YAML overlay is not range-checked by the env loaders, so the
	// composed config still needs one validation pass.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	metrics.SetFallbackActive(fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
