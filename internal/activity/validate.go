package activity

import (
	"context"
	"fmt"
	"log/slog"

	"dailybrief/internal/domain/entity"
	"dailybrief/internal/infra/cache"
	"dailybrief/internal/observability/metrics"
)

// ValidateAndFilter validates every article and returns the survivors
// in input order. Rejections (empty, too short, spam) drop the article
// silently; a degraded spam check keeps it and counts one error. On an
// activity-level failure the partial survivor list is returned with
// the error so the workflow can proceed degraded.
func (a *Activities) ValidateAndFilter(ctx context.Context, articles []entity.Article) ([]entity.Article, BatchResult, error) {
	actx, span, batch := a.begin(ctx, ActivityValidate)

	var kept []entity.Article
	err := run(actx, ActivityValidate, LightBatchPolicy(), func(rctx context.Context) error {
		kept = kept[:0]
		batch.reset()
		for _, article := range articles {
			if err := rctx.Err(); err != nil {
				return err
			}
			batch.Articles++

			key := cache.SpamKey(article.Title, article.Content)
			var res entity.ValidationResult
			if a.memo.Lookup(rctx, key, &res) {
				batch.CacheHits++
			} else {
				var vErr error
				res, vErr = a.validator.Validate(rctx, article)
				if vErr != nil {
					batch.ErrorsCount++
				}
				batch.AICalls++
				a.memo.Store(rctx, key, res, cache.TTLSpam)
			}

			metrics.RecordArticleValidated(validationOutcome(res))
			if res.Valid() {
				kept = append(kept, article)
				continue
			}
			a.logger.Debug("article rejected",
				slog.String("url", article.URL),
				slog.String("reason", res.Reason))
		}
		return nil
	})

	a.finish(span, batch, err)
	if err != nil {
		return kept, *batch, fmt.Errorf("%s: %w", ActivityValidate, err)
	}
	return kept, *batch, nil
}

// validationOutcome labels a validation result for metrics.
func validationOutcome(res entity.ValidationResult) string {
	switch {
	case res.IsEmpty:
		return "empty"
	case res.IsTooShort:
		return "too_short"
	case res.IsSpam:
		return "spam"
	default:
		return "accepted"
	}
}
