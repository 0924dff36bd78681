// Package workflow coordinates one user's digest run. The runner owns
// only sequencing: it calls the activities in their fixed order,
// carries values between them and accumulates the run report. It never
// reads the clock or randomness itself, so a replay against a warm
// cache reproduces the same payload with zero AI calls.
package workflow

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"dailybrief/internal/activity"
	"dailybrief/internal/domain/entity"
	"dailybrief/internal/observability/logging"
	"dailybrief/internal/observability/metrics"
	"dailybrief/internal/observability/tracing"
	"dailybrief/internal/pkg/runid"
)

// Activities is the pipeline step set the runner sequences. The
// production implementation is *activity.Activities; tests swap stubs
// in at the fetcher, provider and cache seams instead of faking this
// interface, so the batch wrappers stay exercised end to end.
type Activities interface {
	FetchUserConfig(ctx context.Context, userID string) (entity.UserConfig, activity.BatchResult, error)
	FetchSources(ctx context.Context, sources []entity.SourceRef) ([]entity.FetchResult, activity.BatchResult, error)
	ValidateAndFilter(ctx context.Context, articles []entity.Article) ([]entity.Article, activity.BatchResult, error)
	NormalizeArticles(ctx context.Context, articles []entity.Article) ([]entity.Article, activity.BatchResult, error)
	ScoreQuality(ctx context.Context, articles []entity.Article) ([]entity.Article, activity.BatchResult, error)
	ExtractTopics(ctx context.Context, articles []entity.Article) ([]entity.Article, activity.BatchResult, error)
	ScoreRelevance(ctx context.Context, articles []entity.Article, profile entity.InterestProfile) (map[string]entity.RelevanceResult, activity.BatchResult, error)
	SummarizeArticles(ctx context.Context, articles []entity.Article, style entity.SummaryStyle) ([]entity.Article, activity.BatchResult, error)
	DetectSimilarArticles(ctx context.Context, articles []entity.Article, relevance map[string]entity.RelevanceResult) ([]entity.ArticleGroup, activity.BatchResult, error)
	AssembleDigest(ctx context.Context, user entity.UserConfig, groups []entity.ArticleGroup, relevance map[string]entity.RelevanceResult, sourceFailures, aiFailures int) (entity.DigestPayload, activity.BatchResult, error)
}

// Runner executes digest runs.
type Runner struct {
	acts   Activities
	logger *slog.Logger
}

func NewRunner(acts Activities, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{acts: acts, logger: logger}
}

// Run produces the digest payload for one user. A failed user config
// read is fatal; every later activity failure is absorbed as a
// degraded step unless the run context itself is gone. The run always
// ends in exactly one of the three statuses, and a payload comes back
// whenever the status is not failure.
func (r *Runner) Run(ctx context.Context, userID string) (entity.DigestPayload, RunReport, error) {
	runID := runid.FromContext(ctx)
	if runID == "" {
		// The ID labels telemetry only; payload content never
		// depends on it.
		runID = runid.New()
		ctx = runid.WithRunID(ctx, runID)
	}
	ctx, span := tracing.StartRun(ctx, runID, userID)
	logger := logging.WithRunID(ctx, r.logger)

	report := RunReport{RunID: runID, UserID: userID}
	logger.Info("digest run started", slog.String("user_id", userID))

	userCfg, batch, err := r.acts.FetchUserConfig(ctx, userID)
	report.record(batch)
	if err != nil {
		return r.finish(span, logger, &report, entity.DigestPayload{}, err)
	}

	fetches, batch, err := r.acts.FetchSources(ctx, userCfg.ActiveSources())
	report.record(batch)
	if err != nil {
		// Non-nil only when the run was cancelled mid-fetch; dead
		// sources are unsuccessful results, not errors.
		return r.finish(span, logger, &report, entity.DigestPayload{}, err)
	}
	report.SourceFailures = failedSources(fetches)

	articles := mergeFetched(fetches)
	report.ArticlesFetched = len(articles)

	valid, batch, err := r.acts.ValidateAndFilter(ctx, articles)
	report.record(batch)
	if fatal := r.absorb(ctx, logger, &report, err); fatal != nil {
		return r.finish(span, logger, &report, entity.DigestPayload{}, fatal)
	}
	report.ArticlesValidated = len(valid)

	normalized, batch, err := r.acts.NormalizeArticles(ctx, valid)
	report.record(batch)
	if fatal := r.absorb(ctx, logger, &report, err); fatal != nil {
		return r.finish(span, logger, &report, entity.DigestPayload{}, fatal)
	}

	scored, batch, err := r.acts.ScoreQuality(ctx, normalized)
	report.record(batch)
	if fatal := r.absorb(ctx, logger, &report, err); fatal != nil {
		return r.finish(span, logger, &report, entity.DigestPayload{}, fatal)
	}

	topical, batch, err := r.acts.ExtractTopics(ctx, scored)
	report.record(batch)
	if fatal := r.absorb(ctx, logger, &report, err); fatal != nil {
		return r.finish(span, logger, &report, entity.DigestPayload{}, fatal)
	}

	relevance, batch, err := r.acts.ScoreRelevance(ctx, topical, userCfg.Profile)
	report.record(batch)
	if fatal := r.absorb(ctx, logger, &report, err); fatal != nil {
		return r.finish(span, logger, &report, entity.DigestPayload{}, fatal)
	}

	summarized, batch, err := r.acts.SummarizeArticles(ctx, topical, userCfg.Profile.Style)
	report.record(batch)
	if fatal := r.absorb(ctx, logger, &report, err); fatal != nil {
		return r.finish(span, logger, &report, entity.DigestPayload{}, fatal)
	}

	groups, batch, err := r.acts.DetectSimilarArticles(ctx, summarized, relevance)
	report.record(batch)
	if fatal := r.absorb(ctx, logger, &report, err); fatal != nil {
		return r.finish(span, logger, &report, entity.DigestPayload{}, fatal)
	}

	report.AIFailures = report.aiFailures()

	payload, batch, err := r.acts.AssembleDigest(ctx, userCfg, groups, relevance, report.SourceFailures, report.AIFailures)
	report.record(batch)
	if err != nil {
		return r.finish(span, logger, &report, entity.DigestPayload{}, err)
	}
	report.GroupsAssembled = payload.Metadata.TotalGroups

	return r.finish(span, logger, &report, payload, nil)
}

// absorb decides whether a failed activity ends the run. A dead run
// context is fatal; anything else is recorded as a degraded step and
// the run continues on whatever partial results the activity returned.
func (r *Runner) absorb(ctx context.Context, logger *slog.Logger, report *RunReport, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	report.Degraded = append(report.Degraded, err.Error())
	logger.Warn("continuing after degraded activity", slog.Any("error", err))
	return nil
}

// finish stamps the terminal status, records run metrics, closes the
// root span and logs the run summary.
func (r *Runner) finish(span trace.Span, logger *slog.Logger, report *RunReport, payload entity.DigestPayload, err error) (entity.DigestPayload, RunReport, error) {
	switch {
	case err != nil:
		report.Status = StatusFailure
	case payload.Empty():
		report.Status = StatusEmpty
	default:
		report.Status = StatusSuccess
	}
	metrics.RecordDigestRun(report.Status, report.Duration())
	tracing.EndSpan(span, err)

	attrs := []any{
		slog.String("status", report.Status),
		slog.Int("articles_fetched", report.ArticlesFetched),
		slog.Int("groups", report.GroupsAssembled),
		slog.Int("cache_hits", report.CacheHits()),
		slog.Int("ai_calls", report.AICalls()),
		slog.Int("source_failures", report.SourceFailures),
		slog.Int("ai_failures", report.AIFailures),
		slog.Duration("duration", report.Duration()),
	}
	if err != nil {
		logger.Error("digest run failed", append(attrs, slog.Any("error", err))...)
		return entity.DigestPayload{}, *report, err
	}
	logger.Info("digest run completed", attrs...)
	return payload, *report, nil
}

// mergeFetched unions the successful fetch results in source order. An
// article's identity within a run is its canonical URL, so a story
// syndicated into several subscribed feeds enters the pipeline once.
func mergeFetched(fetches []entity.FetchResult) []entity.Article {
	seen := make(map[string]struct{})
	var out []entity.Article
	for _, f := range fetches {
		if !f.Success {
			continue
		}
		for _, a := range f.Articles {
			if _, dup := seen[a.URL]; dup {
				continue
			}
			seen[a.URL] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}

func failedSources(fetches []entity.FetchResult) int {
	n := 0
	for _, f := range fetches {
		if !f.Success {
			n++
		}
	}
	return n
}
