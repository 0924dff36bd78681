// Package activity implements the side-effecting units the digest
// workflow schedules: feed fetching, the per-article processing
// batches and digest assembly. Every batch activity follows the same
// shape: look up the memoized result, compute on a miss, store the
// result (degraded or not) and report counts. Replaying a run against
// a warm cache therefore reproduces identical results with zero AI
// calls.
package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"dailybrief/internal/assemble"
	"dailybrief/internal/config"
	"dailybrief/internal/domain/entity"
	"dailybrief/internal/infra/ai"
	"dailybrief/internal/infra/cache"
	"dailybrief/internal/observability/metrics"
	"dailybrief/internal/observability/tracing"
	"dailybrief/internal/processor"
	"dailybrief/internal/resilience/retry"
)

// Activity names used for spans, metrics labels and log fields.
const (
	ActivityFetchUserConfig = "fetch_user_config"
	ActivityFetchSources    = "fetch_sources"
	ActivityValidate        = "validate_and_filter"
	ActivityNormalize       = "normalize_articles"
	ActivityQuality         = "score_quality"
	ActivityTopics          = "extract_topics"
	ActivityRelevance       = "score_relevance"
	ActivitySummarize       = "summarize_articles"
	ActivitySimilarity      = "detect_similar_articles"
	ActivityAssemble        = "assemble_digest"
)

// SourceFetcher pulls one feed and reports the outcome as a value.
// The concrete fetcher owns its own per-request retries; a failed
// fetch comes back as an unsuccessful FetchResult, not an error.
type SourceFetcher interface {
	Fetch(ctx context.Context, source entity.SourceRef) entity.FetchResult
}

// ConfigStore loads digest configuration records. A missing user maps
// to entity.ErrConfigNotFound.
type ConfigStore interface {
	GetUserConfig(ctx context.Context, userID string) (entity.UserConfig, error)
}

// Activities bundles every activity implementation behind one
// receiver. The processors are built once from the pipeline config
// and shared across runs; all per-run state lives in arguments and
// return values.
type Activities struct {
	cfg     config.PipelineConfig
	memo    *cache.Memo
	configs ConfigStore
	fetcher SourceFetcher

	validator  *processor.Validator
	normalizer *processor.Normalizer
	quality    *processor.QualityScorer
	topics     *processor.TopicExtractor
	relevance  *processor.RelevanceScorer
	summarizer *processor.Summarizer
	similarity *processor.SimilarityDetector
	assembler  *assemble.Assembler

	logger *slog.Logger
}

// New builds the activity set. provider serves every AI-backed
// processor; memo serves every cached one.
func New(
	cfg config.PipelineConfig,
	provider ai.Provider,
	memo *cache.Memo,
	configs ConfigStore,
	fetcher SourceFetcher,
	logger *slog.Logger,
) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		cfg:        cfg,
		memo:       memo,
		configs:    configs,
		fetcher:    fetcher,
		validator:  processor.NewValidator(provider, cfg.Content, cfg.AI.Timeouts),
		normalizer: processor.NewNormalizer(cfg.Content),
		quality:    processor.NewQualityScorer(provider, cfg.Content, cfg.AI.Timeouts),
		topics:     processor.NewTopicExtractor(provider, cfg.Topics, cfg.AI.Timeouts),
		relevance:  processor.NewRelevanceScorer(provider, cfg.Personalization, cfg.AI.Timeouts),
		summarizer: processor.NewSummarizer(provider, cfg.Summary, cfg.AI.Timeouts),
		similarity: processor.NewSimilarityDetector(provider, cfg.Similarity, cfg.AI.Timeouts),
		assembler:  assemble.New(logger),
		logger:     logger,
	}
}

// BatchResult is the accounting one activity execution reports back to
// the workflow. AICalls counts uncached processor computations; a
// computation makes at most one provider call, and a cache hit makes
// none, so a fully warm replay reports AICalls == 0.
type BatchResult struct {
	Activity    string    `json:"activity"`
	Articles    int       `json:"articles"`
	CacheHits   int       `json:"cache_hits"`
	AICalls     int       `json:"ai_calls"`
	ErrorsCount int       `json:"errors_count"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Duration is the wall-clock span of the execution, retries included.
func (b BatchResult) Duration() time.Duration {
	return b.FinishedAt.Sub(b.StartedAt)
}

// reset clears the per-attempt counters. A retried attempt re-reads
// the cache, so counts carried over from an aborted attempt would
// double-book.
func (b *BatchResult) reset() {
	b.Articles = 0
	b.CacheHits = 0
	b.AICalls = 0
	b.ErrorsCount = 0
}

// begin opens the activity span and stamps the batch start time.
func (a *Activities) begin(ctx context.Context, name string) (context.Context, trace.Span, *BatchResult) {
	actx, span := tracing.StartActivity(ctx, name)
	batch := &BatchResult{Activity: name, StartedAt: time.Now().UTC()}
	return actx, span, batch
}

// finish stamps the end time, closes the span and records metrics.
// err is the activity-level failure, if any; per-article errors are
// already counted in the batch.
func (a *Activities) finish(span trace.Span, batch *BatchResult, err error) {
	batch.FinishedAt = time.Now().UTC()
	tracing.RecordBatch(span, batch.Articles, batch.CacheHits, batch.AICalls, batch.ErrorsCount)
	tracing.EndSpan(span, err)
	metrics.RecordActivity(batch.Activity, batch.Duration(), batch.ErrorsCount)

	attrs := []any{
		slog.String("activity", batch.Activity),
		slog.Int("articles", batch.Articles),
		slog.Int("cache_hits", batch.CacheHits),
		slog.Int("ai_calls", batch.AICalls),
		slog.Int("errors", batch.ErrorsCount),
		slog.Duration("duration", batch.Duration()),
	}
	if err != nil {
		a.logger.Warn("activity failed", append(attrs, slog.Any("error", err))...)
		return
	}
	a.logger.Info("activity completed", attrs...)
}

// Policy bounds one activity execution: a wall-clock budget per
// attempt plus the retry class applied between attempts.
type Policy struct {
	Timeout time.Duration
	Retry   retry.Config
}

// UserConfigPolicy bounds the user config read.
func UserConfigPolicy() Policy {
	return Policy{Timeout: 5 * time.Second, Retry: retry.ConfigFetchConfig()}
}

// SourceFetchPolicy bounds one source fetch. The fetcher retries each
// HTTP request itself, so the policy carries no second retry layer.
func SourceFetchPolicy() Policy {
	return Policy{Timeout: 30 * time.Second}
}

// LightBatchPolicy bounds the cheap batch activities: validation,
// normalization and relevance scoring.
func LightBatchPolicy() Policy {
	return Policy{Timeout: 30 * time.Second, Retry: retry.BatchConfig()}
}

// AIBatchPolicy bounds the AI-heavy batch activities: quality, topics,
// summarization and similarity.
func AIBatchPolicy() Policy {
	return Policy{Timeout: 120 * time.Second, Retry: retry.AIBatchConfig()}
}

// AssemblePolicy bounds digest assembly. Assembly is pure, so a failed
// attempt is not retried.
func AssemblePolicy() Policy {
	return Policy{Timeout: 5 * time.Second}
}

// timeoutError reports an attempt that ran out of its per-attempt
// budget while the parent run was still live. It does not unwrap to
// context.DeadlineExceeded: the next attempt starts from whatever the
// previous one already memoized, so the retry layer may try again.
type timeoutError struct {
	activity string
	timeout  time.Duration
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("activity %s timed out after %s", e.activity, e.timeout)
}

func (e *timeoutError) IsRetryable() bool { return true }

// run executes fn under the policy. Every attempt gets a fresh
// timeout; exceeding it while the parent context is still live counts
// as a retryable failure per the policy's class.
func run(ctx context.Context, name string, pol Policy, fn func(ctx context.Context) error) error {
	attempt := func() error {
		actx := ctx
		if pol.Timeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, pol.Timeout)
			defer cancel()
		}
		err := fn(actx)
		if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return &timeoutError{activity: name, timeout: pol.Timeout}
		}
		return err
	}

	if pol.Retry.MaxAttempts <= 1 {
		return attempt()
	}
	return retry.WithBackoff(ctx, pol.Retry, attempt)
}
