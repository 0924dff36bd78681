package activity

import (
	"context"
	"fmt"

	"dailybrief/internal/domain/entity"
	"dailybrief/internal/infra/cache"
)

// ScoreQuality scores every article and annotates it with
// quality_score and quality_breakdown metadata. When the activity
// fails mid-batch the unscored remainder passes through unannotated;
// downstream stages treat a missing quality score as no boost.
func (a *Activities) ScoreQuality(ctx context.Context, articles []entity.Article) ([]entity.Article, BatchResult, error) {
	actx, span, batch := a.begin(ctx, ActivityQuality)

	out := make([]entity.Article, 0, len(articles))
	err := run(actx, ActivityQuality, AIBatchPolicy(), func(rctx context.Context) error {
		out = out[:0]
		batch.reset()
		for i, article := range articles {
			if err := rctx.Err(); err != nil {
				out = append(out, articles[i:]...)
				return err
			}
			batch.Articles++

			key := cache.QualityKey(article.URL)
			var res entity.ContentQualityResult
			if a.memo.Lookup(rctx, key, &res) {
				batch.CacheHits++
			} else {
				var sErr error
				res, sErr = a.quality.Score(rctx, article)
				if sErr != nil {
					batch.ErrorsCount++
				}
				batch.AICalls++
				a.memo.Store(rctx, key, res, cache.TTLQuality)
			}

			out = append(out, article.WithMetadata(map[string]any{
				entity.MetaQualityScore:     res.QualityScore,
				entity.MetaQualityBreakdown: res.Breakdown,
			}))
		}
		return nil
	})

	a.finish(span, batch, err)
	if err != nil {
		return out, *batch, fmt.Errorf("%s: %w", ActivityQuality, err)
	}
	return out, *batch, nil
}
