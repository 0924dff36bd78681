// Package metrics provides centralized Prometheus metrics for the digest pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Workflow metrics track per-user digest runs end to end
var (
	// DigestRunsTotal counts digest runs by outcome
	DigestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_runs_total",
			Help: "Total number of digest workflow runs",
		},
		[]string{"status"}, // status: success, empty, failure
	)

	// DigestRunDuration measures end-to-end run duration in seconds
	DigestRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_run_duration_seconds",
			Help:    "End-to-end duration of a digest workflow run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 11), // 1s .. ~17min
		},
	)

	// ActivityDuration measures per-activity duration in seconds
	ActivityDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "activity_duration_seconds",
			Help:    "Duration of one pipeline activity execution",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"activity"},
	)

	// ActivityErrorsTotal counts per-article errors accumulated inside activities
	ActivityErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_errors_total",
			Help: "Total number of per-article errors recorded by activities",
		},
		[]string{"activity"},
	)

	// DigestArticles measures how many articles made it into the final digest
	DigestArticles = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_articles",
			Help:    "Number of articles included in an assembled digest",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 40, 80, 160},
		},
	)

	// DigestGroups measures how many story groups made it into the final digest
	DigestGroups = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_groups",
			Help:    "Number of article groups included in an assembled digest",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 40, 80},
		},
	)

	// DigestPayloadSize measures rendered payload sizes in bytes
	DigestPayloadSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "digest_payload_size_bytes",
			Help:    "Size of the rendered digest bodies",
			Buckets: prometheus.ExponentialBuckets(256, 4, 10),
		},
		[]string{"format"}, // format: html, text
	)
)

// Fetch metrics track feed crawling and content enhancement
var (
	// ArticlesFetchedTotal counts articles fetched from each source
	ArticlesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_fetched_total",
			Help: "Total number of articles fetched from sources",
		},
		[]string{"source", "source_id"},
	)

	// FeedCrawlDuration measures time to crawl a feed source
	FeedCrawlDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_crawl_duration_seconds",
			Help:    "Time taken to crawl a feed source",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"source_id"},
	)

	// FeedCrawlErrors counts errors during feed crawling
	FeedCrawlErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_crawl_errors_total",
			Help: "Total number of feed crawl errors",
		},
		[]string{"source_id", "error_type"},
	)

	// ContentFetchAttemptsTotal counts content fetch attempts by result
	ContentFetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_fetch_attempts_total",
			Help: "Total number of content fetch attempts",
		},
		[]string{"result"}, // result: success, failure, skipped
	)

	// ContentFetchDuration measures time to fetch article content
	ContentFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "content_fetch_duration_seconds",
			Help:    "Time taken to fetch article content",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)

	// ContentFetchSize measures fetched content size in bytes
	ContentFetchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "content_fetch_size_bytes",
			Help: "Fetched article content size in bytes",
			Buckets: []float64{
				100, 200, 400, 800, 1600, 3200, 6400, 12800,
				25600, 51200, 102400, 204800, 409600, 819200,
				1638400, 3276800, 6553600, 10485760, // up to 10MB
			},
		},
	)
)

// Processor metrics track per-article outcomes inside the pipeline
var (
	// ArticlesValidatedTotal counts validation outcomes
	ArticlesValidatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_validated_total",
			Help: "Total number of articles validated, by outcome",
		},
		[]string{"outcome"}, // outcome: accepted, empty, too_short, spam
	)

	// ArticlesSummarizedTotal counts articles summarized by status
	ArticlesSummarizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_summarized_total",
			Help: "Total number of articles summarized",
		},
		[]string{"status"}, // status: success, fallback
	)

	// SummarizationDuration measures time to summarize an article
	SummarizationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "summarization_duration_seconds",
			Help:    "Time taken to summarize an article",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
)

// AI metrics track structured-output calls across providers
var (
	// AICallsTotal counts AI provider calls by operation and outcome
	AICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_calls_total",
			Help: "Total number of AI provider calls",
		},
		[]string{"provider", "operation", "status"}, // status: success, error
	)

	// AICallDuration measures AI call latency in seconds
	AICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_call_duration_seconds",
			Help:    "Latency of AI provider calls",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"provider", "operation"},
	)
)

// Cache metrics track memoization effectiveness
var (
	// CacheOperationsTotal counts cache operations by result
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"operation", "result"}, // operation: get, set, delete; result: hit, miss, ok, error, corrupt
	)
)

// Delivery metrics track digest hand-off to the sending layer
var (
	// DigestsDeliveredTotal counts delivered digests by status
	DigestsDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digests_delivered_total",
			Help: "Total number of digests handed to the delivery layer",
		},
		[]string{"status"}, // status: sent, suppressed, failure
	)

	// DeliveryDuration measures time spent handing a digest to the sender
	DeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "delivery_duration_seconds",
			Help:    "Time taken to hand a digest to the delivery layer",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)
)

// Database metrics track user config store performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordOperationDuration records the duration of a named operation
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
