// Package processor implements the per-article transformers of the digest
// pipeline: validation, normalization, quality scoring, topic extraction,
// relevance scoring, summarization and similarity grouping. Processors are
// pure over their inputs except for AI calls; they never mutate the article
// they receive and they never fail the pipeline on an AI error. Where the
// AI portion of a stage fails, the processor returns a usable fallback
// envelope together with the error so the activity layer can count the
// degradation. A disabled provider degrades the same way but silently,
// since running without credentials is an expected configuration.
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

// spamConfidenceFloor is the minimum classifier confidence required to
// reject an article as spam.
const spamConfidenceFloor = 0.5

// spamContentRunes is how much content the spam classifier sees. The
// validate cache key hashes the same window, so prompt and key stay in
// step.
const spamContentRunes = 1000

const spamSystemPrompt = `You are a spam classifier for a feed reading service. Decide whether an article is spam: advertising disguised as content, affiliate link farms, SEO keyword stuffing, scams, or machine-generated filler. Legitimate news, blog posts, release notes and tutorials are not spam. Respond with JSON only, no prose: {"is_spam": boolean, "confidence": number from 0 to 1, "reasoning": short string}.`

// spamVerdict is the schema returned by the spam classification call.
type spamVerdict struct {
	IsSpam     bool    `json:"is_spam"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Validator rejects articles that should never reach the digest: empty
// bodies, bodies under the minimum length, and spam.
type Validator struct {
	provider  ai.Provider
	minLength int
	spamCheck bool
	timeout   time.Duration
}

func NewValidator(provider ai.Provider, content config.ContentConfig, timeouts config.TimeoutConfig) *Validator {
	return &Validator{
		provider:  provider,
		minLength: content.MinLength,
		spamCheck: content.SpamDetectionEnabled,
		timeout:   timeouts.Spam,
	}
}

// Validate checks one article. Rules apply in order: empty content, then
// minimum length, then the spam classifier. A spam-classifier failure
// accepts the article (degrade open) and returns the error alongside the
// result so the caller can account for it.
func (v *Validator) Validate(ctx context.Context, article entity.Article) (entity.ValidationResult, error) {
	if strings.TrimSpace(article.Content) == "" {
		return entity.ValidationResult{IsEmpty: true, Reason: "content is empty"}, nil
	}

	if length := text.CountRunes(article.Content); length < v.minLength {
		return entity.ValidationResult{
			IsTooShort: true,
			Reason:     fmt.Sprintf("content length %d below minimum %d", length, v.minLength),
		}, nil
	}

	if !v.spamCheck {
		return entity.ValidationResult{}, nil
	}

	verdict, err := v.classifySpam(ctx, article)
	if err != nil {
		if errors.Is(err, ai.ErrDisabled) {
			return entity.ValidationResult{}, nil
		}
		slog.Warn("spam check unavailable, accepting article",
			slog.String("url", article.URL),
			slog.String("error", err.Error()))
		return entity.ValidationResult{Reason: "spam check unavailable"}, err
	}

	if verdict.IsSpam && verdict.Confidence >= spamConfidenceFloor {
		reason := verdict.Reasoning
		if reason == "" {
			reason = "classified as spam"
		}
		return entity.ValidationResult{
			IsSpam:     true,
			Confidence: verdict.Confidence,
			Reason:     reason,
		}, nil
	}

	return entity.ValidationResult{Confidence: verdict.Confidence}, nil
}

func (v *Validator) classifySpam(ctx context.Context, article entity.Article) (spamVerdict, error) {
	var verdict spamVerdict
	req := ai.Request{
		Operation: "spam",
		System:    spamSystemPrompt,
		User: fmt.Sprintf("Title: %s\n\nContent:\n%s",
			article.Title, text.TruncateRunes(article.Content, spamContentRunes)),
		Timeout: v.timeout,
	}
	if err := v.provider.RunStructured(ctx, req, &verdict); err != nil {
		return spamVerdict{}, err
	}

	verdict.Confidence = clampFloat(verdict.Confidence, 0, 1)
	return verdict, nil
}
