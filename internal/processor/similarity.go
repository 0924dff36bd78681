package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"dailybrief/internal/config"
	"dailybrief/internal/domain/entity"
	"dailybrief/internal/infra/ai"
	"dailybrief/internal/utils/text"
)

// similarityContentRunes bounds the content sent per article side.
const similarityContentRunes = 600

const similaritySystemPrompt = `You judge whether two articles cover the same story or topic, for de-duplication in a reading digest. Score sim_score from 0.0 for unrelated to 1.0 for the same story told twice. Respond with JSON only, no prose: {"sim_score": number, "reasoning": short string}.`

type similarityVerdict struct {
	SimScore  float64 `json:"sim_score"`
	Reasoning string  `json:"reasoning"`
}

// SimilarityScore is the memoized outcome of one pair comparison.
type SimilarityScore struct {
	Score     float64 `json:"sim_score"`
	Reasoning string  `json:"reasoning,omitempty"`
}

// PairKey returns an order-independent map key for an article pair.
// Both argument orders yield the same key.
func PairKey(u1, u2 string) string {
	if u2 < u1 {
		u1, u2 = u2, u1
	}
	return u1 + "\x00" + u2
}

// SimilarityDetector scores article pairs and groups the batch into
// connected components of the thresholded similarity graph.
type SimilarityDetector struct {
	provider  ai.Provider
	threshold float64
	timeout   time.Duration
}

func NewSimilarityDetector(provider ai.Provider, cfg config.SimilarityConfig, timeouts config.TimeoutConfig) *SimilarityDetector {
	return &SimilarityDetector{
		provider:  provider,
		threshold: cfg.Threshold,
		timeout:   timeouts.Similarity,
	}
}

// Threshold is the minimum pair score that links two articles.
func (d *SimilarityDetector) Threshold() float64 {
	return d.threshold
}

// Compare scores one pair in [0,1]. The pair is ordered by URL before
// prompting so both call orders produce identical prompts and results.
// A failed call scores zero, leaving the articles ungrouped, and
// returns the error with the result.
func (d *SimilarityDetector) Compare(ctx context.Context, a, b entity.Article) (SimilarityScore, error) {
	if b.URL < a.URL {
		a, b = b, a
	}

	user := fmt.Sprintf("Article A\nTitle: %s\nContent:\n%s\n\nArticle B\nTitle: %s\nContent:\n%s",
		a.Title, text.TruncateRunes(a.Content, similarityContentRunes),
		b.Title, text.TruncateRunes(b.Content, similarityContentRunes))

	var verdict similarityVerdict
	req := ai.Request{
		Operation: "similarity",
		System:    similaritySystemPrompt,
		User:      user,
		Timeout:   d.timeout,
	}
	if err := d.provider.RunStructured(ctx, req, &verdict); err != nil {
		if errors.Is(err, ai.ErrDisabled) {
			return SimilarityScore{}, nil
		}
		slog.Warn("similarity comparison unavailable, treating pair as unrelated",
			slog.String("url_a", a.URL),
			slog.String("url_b", b.URL),
			slog.String("error", err.Error()))
		return SimilarityScore{}, err
	}

	return SimilarityScore{
		Score:     clampFloat(verdict.SimScore, 0, 1),
		Reasoning: verdict.Reasoning,
	}, nil
}

// GroupArticles partitions the batch into connected components of the
// graph whose edges are pairs scoring at or above the threshold. The
// sims map is keyed by PairKey; missing pairs count as unrelated.
// Groups come out in input order of their first member, each with the
// most relevant member as primary and the sorted union of member
// topics. Singletons form groups of one.
func (d *SimilarityDetector) GroupArticles(articles []entity.Article, sims map[string]SimilarityScore, relevance map[string]entity.RelevanceResult) []entity.ArticleGroup {
	if len(articles) == 0 {
		return nil
	}

	parent := make([]int, len(articles))
	for i := range parent {
		parent[i] = i
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	// Lower-index roots win so component order follows input order.
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	for i := 0; i < len(articles); i++ {
		for j := i + 1; j < len(articles); j++ {
			if sims[PairKey(articles[i].URL, articles[j].URL)].Score >= d.threshold {
				union(i, j)
			}
		}
	}

	byRoot := make(map[int][]int, len(articles))
	var rootOrder []int
	for i := range articles {
		r := find(i)
		if _, ok := byRoot[r]; !ok {
			rootOrder = append(rootOrder, r)
		}
		byRoot[r] = append(byRoot[r], i)
	}

	groups := make([]entity.ArticleGroup, 0, len(rootOrder))
	for _, r := range rootOrder {
		members := make([]entity.Article, 0, len(byRoot[r]))
		for _, i := range byRoot[r] {
			members = append(members, articles[i])
		}
		groups = append(groups, entity.ArticleGroup{
			Members:          members,
			AggregatedTopics: unionTopics(members),
			Primary:          pickPrimary(members, relevance),
		})
	}
	return groups
}

// pickPrimary selects the member with the highest relevance, breaking
// ties by quality then recency. Remaining ties keep the earlier member.
func pickPrimary(members []entity.Article, relevance map[string]entity.RelevanceResult) entity.Article {
	best := members[0]
	for _, m := range members[1:] {
		if morePrimary(m, best, relevance) {
			best = m
		}
	}
	return best
}

func morePrimary(a, b entity.Article, relevance map[string]entity.RelevanceResult) bool {
	ra, rb := relevance[a.URL].RelevanceScore, relevance[b.URL].RelevanceScore
	if ra != rb {
		return ra > rb
	}
	qa, _ := a.QualityScore()
	qb, _ := b.QualityScore()
	if qa != qb {
		return qa > qb
	}
	return a.PublishedAt.After(b.PublishedAt)
}

func unionTopics(members []entity.Article) []string {
	seen := make(map[string]struct{})
	var topics []string
	for _, m := range members {
		for _, t := range m.Topics {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		return nil
	}
	sort.Strings(topics)
	return topics
}
