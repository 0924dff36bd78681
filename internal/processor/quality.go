package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dailybrief/internal/config"
	"dailybrief/internal/domain/entity"
	"dailybrief/internal/infra/ai"
	"dailybrief/internal/utils/text"
)

// qualityContentRunes bounds the content sent to the quality assessor.
const qualityContentRunes = 2000

const qualitySystemPrompt = `You assess the content quality of articles for a reading digest. Score three dimensions: writing_quality from 0 to 20 (clarity, structure, grammar), informativeness from 0 to 20 (substance, depth, novelty), credibility from 0 to 10 (sourcing, specificity, absence of hype). Respond with JSON only, no prose: {"writing_quality": int, "informativeness": int, "credibility": int, "reasoning": short string}.`

// qualityVerdict is the schema returned by the quality assessment call.
type qualityVerdict struct {
	WritingQuality  int    `json:"writing_quality"`
	Informativeness int    `json:"informativeness"`
	Credibility     int    `json:"credibility"`
	Reasoning       string `json:"reasoning"`
}

// QualityScorer combines a deterministic metadata score with an AI
// content assessment. Each half contributes up to 50 points; when the
// AI half is unavailable the metadata half is rescaled to cover the
// whole range.
type QualityScorer struct {
	provider ai.Provider
	enabled  bool
	timeout  time.Duration
}

func NewQualityScorer(provider ai.Provider, content config.ContentConfig, timeouts config.TimeoutConfig) *QualityScorer {
	return &QualityScorer{
		provider: provider,
		enabled:  content.QualityScoringEnabled,
		timeout:  timeouts.Quality,
	}
}

// Score rates one article in [0,100]. The metadata half awards points
// for an author, a publication date, tags and content length; the AI
// half scores writing, informativeness and credibility. An AI failure
// rescales the metadata half and returns the error with the result.
func (q *QualityScorer) Score(ctx context.Context, article entity.Article) (entity.ContentQualityResult, error) {
	contentLen := text.CountRunes(article.Content)

	breakdown := entity.QualityBreakdown{
		HasAuthor:      article.Author != "",
		HasPublishedAt: !article.PublishedAt.IsZero(),
		HasTags:        len(article.Tags) > 0,
		ContentLength:  contentLen,
	}

	var metadata float64
	if breakdown.HasAuthor {
		metadata += 10
	}
	if breakdown.HasPublishedAt {
		metadata += 10
	}
	if breakdown.HasTags {
		metadata += 5
	}
	if contentLen > 500 {
		metadata += 15
	}
	if contentLen > 1000 {
		metadata += 10
	}

	rescaled := func() entity.ContentQualityResult {
		breakdown.AIUnavailable = true
		return entity.ContentQualityResult{
			QualityScore:  metadata * 2,
			MetadataScore: metadata,
			Breakdown:     breakdown,
		}
	}

	if !q.enabled {
		return rescaled(), nil
	}

	verdict, err := q.assess(ctx, article)
	if err != nil {
		if errors.Is(err, ai.ErrDisabled) {
			return rescaled(), nil
		}
		slog.Warn("ai quality scoring unavailable, rescaling metadata score",
			slog.String("url", article.URL),
			slog.String("error", err.Error()))
		return rescaled(), err
	}

	breakdown.WritingQuality = clampInt(verdict.WritingQuality, 0, 20)
	breakdown.Informativeness = clampInt(verdict.Informativeness, 0, 20)
	breakdown.Credibility = clampInt(verdict.Credibility, 0, 10)
	breakdown.AIReasoning = verdict.Reasoning

	aiScore := float64(breakdown.WritingQuality + breakdown.Informativeness + breakdown.Credibility)

	return entity.ContentQualityResult{
		QualityScore:   metadata + aiScore,
		MetadataScore:  metadata,
		AIContentScore: aiScore,
		Breakdown:      breakdown,
	}, nil
}

func (q *QualityScorer) assess(ctx context.Context, article entity.Article) (qualityVerdict, error) {
	var verdict qualityVerdict
	req := ai.Request{
		Operation: "quality",
		System:    qualitySystemPrompt,
		User: fmt.Sprintf("Title: %s\n\nContent:\n%s",
			article.Title, text.TruncateRunes(article.Content, qualityContentRunes)),
		Timeout: q.timeout,
	}
	if err := q.provider.RunStructured(ctx, req, &verdict); err != nil {
		return qualityVerdict{}, err
	}
	return verdict, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
