package activity

import (
	"context"
	"fmt"
	"sort"

	"dailybrief/internal/domain/entity"
	"dailybrief/internal/infra/cache"
	"dailybrief/internal/processor"
)

// DetectSimilarArticles compares every unordered article pair and
// groups the batch into connected components. Pairs are iterated in
// sorted-URL-pair order so cache keys, AI prompts and iteration order
// are stable across runs; BatchSize pairs run between cancellation
// checks. A failure mid-batch degrades missing edges to "unrelated",
// which splits groups rather than dropping articles.
func (a *Activities) DetectSimilarArticles(ctx context.Context, articles []entity.Article, relevance map[string]entity.RelevanceResult) ([]entity.ArticleGroup, BatchResult, error) {
	actx, span, batch := a.begin(ctx, ActivitySimilarity)

	ttl := a.cfg.Similarity.CacheTTL
	if ttl <= 0 {
		ttl = cache.TTLSimilarity
	}
	window := a.cfg.Similarity.BatchSize
	if window <= 0 {
		window = 1
	}

	pairs := articlePairs(articles)
	sims := make(map[string]processor.SimilarityScore, len(pairs))
	err := run(actx, ActivitySimilarity, AIBatchPolicy(), func(rctx context.Context) error {
		clear(sims)
		batch.reset()
		batch.Articles = len(articles)
		for start := 0; start < len(pairs); start += window {
			if err := rctx.Err(); err != nil {
				return err
			}
			end := min(start+window, len(pairs))
			for _, p := range pairs[start:end] {
				x, y := articles[p.i], articles[p.j]
				key := cache.SimilarityKey(x.URL, y.URL)
				var score processor.SimilarityScore
				if a.memo.Lookup(rctx, key, &score) {
					batch.CacheHits++
				} else {
					var cErr error
					score, cErr = a.similarity.Compare(rctx, x, y)
					if cErr != nil {
						batch.ErrorsCount++
					}
					batch.AICalls++
					a.memo.Store(rctx, key, score, ttl)
				}
				sims[processor.PairKey(x.URL, y.URL)] = score
			}
		}
		return nil
	})

	groups := a.similarity.GroupArticles(articles, sims, relevance)

	a.finish(span, batch, err)
	if err != nil {
		return groups, *batch, fmt.Errorf("%s: %w", ActivitySimilarity, err)
	}
	return groups, *batch, nil
}

type pair struct{ i, j int }

// articlePairs enumerates every unordered index pair, sorted by the
// ordered URL pair rather than input position.
func articlePairs(articles []entity.Article) []pair {
	if len(articles) < 2 {
		return nil
	}
	pairs := make([]pair, 0, len(articles)*(len(articles)-1)/2)
	for i := 0; i < len(articles); i++ {
		for j := i + 1; j < len(articles); j++ {
			pairs = append(pairs, pair{i: i, j: j})
		}
	}
	sort.Slice(pairs, func(x, y int) bool {
		px, py := pairs[x], pairs[y]
		return processor.PairKey(articles[px.i].URL, articles[px.j].URL) <
			processor.PairKey(articles[py.i].URL, articles[py.j].URL)
	})
	return pairs
}
