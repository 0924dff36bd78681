package activity

import (
	"context"
	"fmt"
	"time"

	"dailybrief/internal/domain/entity"
	"dailybrief/internal/infra/cache"
	"dailybrief/internal/observability/metrics"
)

// SummarizeArticles annotates every article with a summary in the
// given style, plus key points and a fallback marker in metadata.
// Excerpt fallbacks (thin content, degraded AI) are memoized like
// model output, keyed per style so a user switching styles does not
// inherit stale summaries.
func (a *Activities) SummarizeArticles(ctx context.Context, articles []entity.Article, style entity.SummaryStyle) ([]entity.Article, BatchResult, error) {
	actx, span, batch := a.begin(ctx, ActivitySummarize)

	out := make([]entity.Article, 0, len(articles))
	err := run(actx, ActivitySummarize, AIBatchPolicy(), func(rctx context.Context) error {
		out = out[:0]
		batch.reset()
		for i, article := range articles {
			if err := rctx.Err(); err != nil {
				out = append(out, articles[i:]...)
				return err
			}
			batch.Articles++

			key := cache.SummarizerKey(article.URL, string(style))
			var res entity.SummaryResult
			if a.memo.Lookup(rctx, key, &res) {
				batch.CacheHits++
			} else {
				itemStart := time.Now()
				var sErr error
				res, sErr = a.summarizer.Summarize(rctx, article, style)
				metrics.RecordSummarizationDuration(time.Since(itemStart))
				metrics.RecordArticleSummarized(!res.Fallback)
				if sErr != nil {
					batch.ErrorsCount++
				}
				batch.AICalls++
				a.memo.Store(rctx, key, res, cache.TTLSummarizer)
			}

			annotated := article.WithSummary(res.Summary)
			meta := make(map[string]any)
			if len(res.KeyPoints) > 0 {
				meta[entity.MetaSummaryKeyPoints] = res.KeyPoints
			}
			if res.Fallback {
				meta[entity.MetaSummaryFallback] = true
			}
			if len(meta) > 0 {
				annotated = annotated.WithMetadata(meta)
			}
			out = append(out, annotated)
		}
		return nil
	})

	a.finish(span, batch, err)
	if err != nil {
		return out, *batch, fmt.Errorf("%s: %w", ActivitySummarize, err)
	}
	return out, *batch, nil
}
