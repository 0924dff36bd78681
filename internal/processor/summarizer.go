package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dailybrief/internal/config"
	"dailybrief/internal/domain/entity"
	"dailybrief/internal/infra/ai"
	"dailybrief/internal/utils/text"
)

const (
	// minSummarizableRunes is the content floor below which an excerpt
	// stands in for a summary and no AI call is made.
	minSummarizableRunes = 100

	excerptRunes       = 150
	errorFallbackRunes = 300
	maxKeyPoints       = 5
)

const summaryJSONShape = ` Respond with JSON only, no prose outside it: {"summary": string, "key_points": [3 to 5 short strings], "reasoning": short string}.`

var summaryPrompts = map[entity.SummaryStyle]string{
	entity.StyleBrief:        `You summarize articles for a daily reading digest. Write one to two short paragraphs capturing the core argument and why it matters to a busy reader.` + summaryJSONShape,
	entity.StyleDetailed:     `You summarize articles for a daily reading digest. Write three to four paragraphs covering the argument, the supporting evidence and the implications.` + summaryJSONShape,
	entity.StyleBulletPoints: `You summarize articles for a daily reading digest. Write the summary as four to six bullet lines, one finding per line, each starting with "- ".` + summaryJSONShape,
}

type summaryVerdict struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Reasoning string   `json:"reasoning"`
}

// Summarizer produces a per-article summary in the reader's preferred
// style. Articles too thin to summarize get an excerpt without an AI
// call; a failed call degrades to a longer excerpt so the digest never
// renders an empty slot.
type Summarizer struct {
	provider     ai.Provider
	maxWords     int
	contentRunes int
	defaultStyle entity.SummaryStyle
	timeout      time.Duration
}

func NewSummarizer(provider ai.Provider, cfg config.SummaryConfig, timeouts config.TimeoutConfig) *Summarizer {
	defaultStyle, err := entity.ParseSummaryStyle(cfg.DefaultStyle)
	if err != nil {
		defaultStyle = entity.StyleBrief
	}
	return &Summarizer{
		provider:     provider,
		maxWords:     cfg.MaxLengthWords,
		contentRunes: cfg.ContentLength,
		defaultStyle: defaultStyle,
		timeout:      timeouts.Summary,
	}
}

// Summarize returns a summary for the article in the given style. An
// unknown or empty style falls back to the configured default. The
// Fallback flag marks excerpt results so downstream rendering can tell
// them from model output; for an AI failure the fallback is returned
// together with the error.
func (s *Summarizer) Summarize(ctx context.Context, article entity.Article, style entity.SummaryStyle) (entity.SummaryResult, error) {
	if _, ok := summaryPrompts[style]; !ok {
		style = s.defaultStyle
	}

	if text.CountRunes(article.Content) < minSummarizableRunes {
		return entity.SummaryResult{
			Summary:  text.Excerpt(article.Content, excerptRunes),
			Fallback: true,
		}, nil
	}

	verdict, err := s.generate(ctx, article, style)
	if err != nil {
		fallback := entity.SummaryResult{
			Summary:  text.Excerpt(article.Content, errorFallbackRunes),
			Fallback: true,
		}
		if errors.Is(err, ai.ErrDisabled) {
			return fallback, nil
		}
		slog.Warn("summarization unavailable, using excerpt",
			slog.String("url", article.URL),
			slog.String("style", string(style)),
			slog.String("error", err.Error()))
		return fallback, err
	}

	summary := strings.TrimSpace(verdict.Summary)
	if summary == "" {
		return entity.SummaryResult{
			Summary:  text.Excerpt(article.Content, errorFallbackRunes),
			Fallback: true,
		}, fmt.Errorf("summarizer returned an empty summary for %s", article.URL)
	}

	return entity.SummaryResult{
		Summary:   capWords(summary, s.maxWords),
		KeyPoints: cleanKeyPoints(verdict.KeyPoints),
		Reasoning: verdict.Reasoning,
	}, nil
}

func (s *Summarizer) generate(ctx context.Context, article entity.Article, style entity.SummaryStyle) (summaryVerdict, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", article.Title)
	if len(article.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(article.Tags, ", "))
	}
	if len(article.Topics) > 0 {
		fmt.Fprintf(&b, "Topics: %s\n", strings.Join(article.Topics, ", "))
	}
	fmt.Fprintf(&b, "\nContent:\n%s", text.TruncateRunes(article.Content, s.contentRunes))

	var verdict summaryVerdict
	req := ai.Request{
		Operation: "summarizer",
		System:    summaryPrompts[style],
		User:      b.String(),
		Timeout:   s.timeout,
	}
	if err := s.provider.RunStructured(ctx, req, &verdict); err != nil {
		return summaryVerdict{}, err
	}
	return verdict, nil
}

// capWords truncates s to at most max words. Paragraph breaks survive
// only under the cap; an over-long summary collapses to single-spaced
// words plus an ellipsis.
func capWords(s string, max int) string {
	if max <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) <= max {
		return s
	}
	return strings.Join(words[:max], " ") + "..."
}

func cleanKeyPoints(raw []string) []string {
	points := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		points = append(points, p)
		if len(points) == maxKeyPoints {
			break
		}
	}
	if len(points) == 0 {
		return nil
	}
	return points
}
