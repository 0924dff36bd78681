package activity

import (
	"context"
	"fmt"

	"dailybrief/internal/domain/entity"
)

// NormalizeArticles canonicalizes every article: URL, timestamps,
// title, author and tags. The transform is deterministic and cheap,
// so results are not memoized.
func (a *Activities) NormalizeArticles(ctx context.Context, articles []entity.Article) ([]entity.Article, BatchResult, error) {
	actx, span, batch := a.begin(ctx, ActivityNormalize)

	out := make([]entity.Article, 0, len(articles))
	err := run(actx, ActivityNormalize, LightBatchPolicy(), func(rctx context.Context) error {
		out = out[:0]
		batch.reset()
		for _, article := range articles {
			if err := rctx.Err(); err != nil {
				return err
			}
			batch.Articles++
			out = append(out, a.normalizer.Normalize(article))
		}
		return nil
	})

	a.finish(span, batch, err)
	if err != nil {
		return out, *batch, fmt.Errorf("%s: %w", ActivityNormalize, err)
	}
	return out, *batch, nil
}
