package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML overlay for PipelineConfig. Every field is a
// pointer so an absent key leaves the layered default untouched while
// an explicit zero still applies. Durations use the same units as the
// documented defaults: seconds for fetch timings, minutes for cache
// TTLs.
type FileConfig struct {
	Fetching struct {
		FetchTimeoutS      *int     `yaml:"fetch_timeout_s"`
		MaxRetries         *int     `yaml:"max_retries"`
		RetryDelayS        *float64 `yaml:"retry_delay_s"`
		MaxArticlesPerFeed *int     `yaml:"max_articles_per_feed"`
		MaxConcurrent      *int     `yaml:"max_concurrent"`
		UserAgent          *string  `yaml:"user_agent"`
		EnhanceContent     *bool    `yaml:"enhance_content"`
		EnhanceMinLength   *int     `yaml:"enhance_min_length"`
	} `yaml:"fetching"`

	Content struct {
		MinLength             *int  `yaml:"min_length"`
		MaxLength             *int  `yaml:"max_length"`
		TitleMax              *int  `yaml:"title_max"`
		AuthorMax             *int  `yaml:"author_max"`
		TagMax                *int  `yaml:"tag_max"`
		MaxTags               *int  `yaml:"max_tags"`
		SpamDetectionEnabled  *bool `yaml:"spam_detection_enabled"`
		QualityScoringEnabled *bool `yaml:"quality_scoring_enabled"`
	} `yaml:"content"`

	Topics struct {
		MaxTopics *int `yaml:"max_topics"`
	} `yaml:"topics"`

	Summarization struct {
		MaxLengthWords *int    `yaml:"max_length_words"`
		ContentLength  *int    `yaml:"content_length"`
		Style          *string `yaml:"style"`
	} `yaml:"summarization"`

	Similarity struct {
		Threshold   *float64 `yaml:"threshold"`
		CacheTTLMin *int     `yaml:"cache_ttl_min"`
		BatchSize   *int     `yaml:"batch_size"`
	} `yaml:"similarity"`

	Personalization struct {
		KwWeightTitle             *int     `yaml:"kw_weight_title"`
		KwWeightContent           *int     `yaml:"kw_weight_content"`
		KwWeightTags              *int     `yaml:"kw_weight_tags"`
		MaxKeywords               *int     `yaml:"max_keywords"`
		RelevanceThresholdDefault *int     `yaml:"relevance_threshold_default"`
		BoostFactorDefault        *float64 `yaml:"boost_factor_default"`
		CacheTTLMin               *int     `yaml:"cache_ttl_min"`
		EnableSemanticScoring     *bool    `yaml:"enable_semantic_scoring"`
	} `yaml:"personalization"`

	Cache struct {
		Backend       *string `yaml:"backend"`
		RedisAddr     *string `yaml:"redis_addr"`
		RedisPassword *string `yaml:"redis_password"`
		RedisDB       *int    `yaml:"redis_db"`
	} `yaml:"cache"`
}

// LoadConfigFile reads and parses a YAML overlay file. The path is
// expected to come from a trusted source (DIGEST_CONFIG_FILE or a CLI
// flag). Values are not range-checked here; PipelineConfig.Validate
// runs after the overlay and the environment are applied.
func LoadConfigFile(path string) (*FileConfig, error) {
	// #nosec G304 -- path is provided by trusted source (env var or CLI arg), not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg FileConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &fileCfg, nil
}

// Apply copies every set field onto cfg, converting second and minute
// counts into durations.
func (f *FileConfig) Apply(cfg *PipelineConfig) {
	if f.Fetching.FetchTimeoutS != nil {
		cfg.Fetch.Timeout = time.Duration(*f.Fetching.FetchTimeoutS) * time.Second
	}
	if f.Fetching.MaxRetries != nil {
		cfg.Fetch.MaxRetries = *f.Fetching.MaxRetries
	}
	if f.Fetching.RetryDelayS != nil {
		cfg.Fetch.RetryDelay = time.Duration(*f.Fetching.RetryDelayS * float64(time.Second))
	}
	if f.Fetching.MaxArticlesPerFeed != nil {
		cfg.Fetch.MaxArticlesPerFeed = *f.Fetching.MaxArticlesPerFeed
	}
	if f.Fetching.MaxConcurrent != nil {
		cfg.Fetch.MaxConcurrent = *f.Fetching.MaxConcurrent
	}
	if f.Fetching.UserAgent != nil {
		cfg.Fetch.UserAgent = *f.Fetching.UserAgent
	}
	if f.Fetching.EnhanceContent != nil {
		cfg.Fetch.EnhanceContent = *f.Fetching.EnhanceContent
	}
	if f.Fetching.EnhanceMinLength != nil {
		cfg.Fetch.EnhanceMinLength = *f.Fetching.EnhanceMinLength
	}

	if f.Content.MinLength != nil {
		cfg.Content.MinLength = *f.Content.MinLength
	}
	if f.Content.MaxLength != nil {
		cfg.Content.MaxLength = *f.Content.MaxLength
	}
	if f.Content.TitleMax != nil {
		cfg.Content.TitleMax = *f.Content.TitleMax
	}
	if f.Content.AuthorMax != nil {
		cfg.Content.AuthorMax = *f.Content.AuthorMax
	}
	if f.Content.TagMax != nil {
		cfg.Content.TagMax = *f.Content.TagMax
	}
	if f.Content.MaxTags != nil {
		cfg.Content.MaxTags = *f.Content.MaxTags
	}
	if f.Content.SpamDetectionEnabled != nil {
		cfg.Content.SpamDetectionEnabled = *f.Content.SpamDetectionEnabled
	}
	if f.Content.QualityScoringEnabled != nil {
		cfg.Content.QualityScoringEnabled = *f.Content.QualityScoringEnabled
	}

	if f.Topics.MaxTopics != nil {
		cfg.Topics.MaxTopics = *f.Topics.MaxTopics
	}

	if f.Summarization.MaxLengthWords != nil {
		cfg.Summary.MaxLengthWords = *f.Summarization.MaxLengthWords
	}
	if f.Summarization.ContentLength != nil {
		cfg.Summary.ContentLength = *f.Summarization.ContentLength
	}
	if f.Summarization.Style != nil {
		cfg.Summary.DefaultStyle = *f.Summarization.Style
	}

	if f.Similarity.Threshold != nil {
		cfg.Similarity.Threshold = *f.Similarity.Threshold
	}
	if f.Similarity.CacheTTLMin != nil {
		cfg.Similarity.CacheTTL = time.Duration(*f.Similarity.CacheTTLMin) * time.Minute
	}
	if f.Similarity.BatchSize != nil {
		cfg.Similarity.BatchSize = *f.Similarity.BatchSize
	}

	if f.Personalization.KwWeightTitle != nil {
		cfg.Personalization.KwWeightTitle = *f.Personalization.KwWeightTitle
	}
	if f.Personalization.KwWeightContent != nil {
		cfg.Personalization.KwWeightContent = *f.Personalization.KwWeightContent
	}
	if f.Personalization.KwWeightTags != nil {
		cfg.Personalization.KwWeightTags = *f.Personalization.KwWeightTags
	}
	if f.Personalization.MaxKeywords != nil {
		cfg.Personalization.MaxKeywords = *f.Personalization.MaxKeywords
	}
	if f.Personalization.RelevanceThresholdDefault != nil {
		cfg.Personalization.DefaultThreshold = *f.Personalization.RelevanceThresholdDefault
	}
	if f.Personalization.BoostFactorDefault != nil {
		cfg.Personalization.DefaultBoostFactor = *f.Personalization.BoostFactorDefault
	}
	if f.Personalization.CacheTTLMin != nil {
		cfg.Personalization.CacheTTL = time.Duration(*f.Personalization.CacheTTLMin) * time.Minute
	}
	if f.Personalization.EnableSemanticScoring != nil {
		cfg.Personalization.EnableSemanticScoring = *f.Personalization.EnableSemanticScoring
	}

	if f.Cache.Backend != nil {
		cfg.Cache.Backend = *f.Cache.Backend
	}
	if f.Cache.RedisAddr != nil {
		cfg.Cache.RedisAddr = *f.Cache.RedisAddr
	}
	if f.Cache.RedisPassword != nil {
		cfg.Cache.RedisPassword = *f.Cache.RedisPassword
	}
	if f.Cache.RedisDB != nil {
		cfg.Cache.RedisDB = *f.Cache.RedisDB
	}
}
