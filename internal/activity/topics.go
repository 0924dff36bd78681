package activity

import (
	"context"
	"fmt"

	"dailybrief/internal/domain/entity"
	"dailybrief/internal/infra/cache"
)

// ExtractTopics annotates every article with its extracted topics.
// Thin content and degraded extractions both yield empty topics, and
// both are memoized so a replay reproduces them without new AI calls.
func (a *Activities) ExtractTopics(ctx context.Context, articles []entity.Article) ([]entity.Article, BatchResult, error) {
	actx, span, batch := a.begin(ctx, ActivityTopics)

	out := make([]entity.Article, 0, len(articles))
	err := run(actx, ActivityTopics, AIBatchPolicy(), func(rctx context.Context) error {
		out = out[:0]
		batch.reset()
		for i, article := range articles {
			if err := rctx.Err(); err != nil {
				out = append(out, articles[i:]...)
				return err
			}
			batch.Articles++

			key := cache.TopicsKey(article.URL)
			var topics []string
			if a.memo.Lookup(rctx, key, &topics) {
				batch.CacheHits++
			} else {
				var tErr error
				topics, tErr = a.topics.Extract(rctx, article)
				if tErr != nil {
					batch.ErrorsCount++
				}
				batch.AICalls++
				a.memo.Store(rctx, key, topics, cache.TTLTopics)
			}

			out = append(out, article.WithTopics(topics))
		}
		return nil
	})

	a.finish(span, batch, err)
	if err != nil {
		return out, *batch, fmt.Errorf("%s: %w", ActivityTopics, err)
	}
	return out, *batch, nil
}
