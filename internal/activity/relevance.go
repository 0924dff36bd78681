package activity

import (
	"context"
	"fmt"

	"dailybrief/internal/domain/entity"
	"dailybrief/internal/infra/cache"
)

// ScoreRelevance scores every article against the interest profile and
// returns a side table keyed by canonical URL. Cache entries are keyed
// by the profile fingerprint, so editing keywords, threshold or boost
// invalidates them without waiting out the TTL. An article missing
// from the table is treated downstream as not passing the threshold.
func (a *Activities) ScoreRelevance(ctx context.Context, articles []entity.Article, profile entity.InterestProfile) (map[string]entity.RelevanceResult, BatchResult, error) {
	actx, span, batch := a.begin(ctx, ActivityRelevance)

	ttl := a.cfg.Personalization.CacheTTL
	if ttl <= 0 {
		ttl = cache.TTLRelevance
	}
	fingerprint := profile.Fingerprint()

	results := make(map[string]entity.RelevanceResult, len(articles))
	err := run(actx, ActivityRelevance, LightBatchPolicy(), func(rctx context.Context) error {
		clear(results)
		batch.reset()
		for _, article := range articles {
			if err := rctx.Err(); err != nil {
				return err
			}
			batch.Articles++

			key := cache.RelevanceKey(fingerprint, article.URL)
			var res entity.RelevanceResult
			if a.memo.Lookup(rctx, key, &res) {
				batch.CacheHits++
			} else {
				var sErr error
				res, sErr = a.relevance.Score(rctx, article, profile)
				if sErr != nil {
					batch.ErrorsCount++
				}
				batch.AICalls++
				a.memo.Store(rctx, key, res, ttl)
			}
			results[article.URL] = res
		}
		return nil
	})

	a.finish(span, batch, err)
	if err != nil {
		return results, *batch, fmt.Errorf("%s: %w", ActivityRelevance, err)
	}
	return results, *batch, nil
}
