package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"dailybrief/internal/config"
	"dailybrief/internal/domain/entity"
	"dailybrief/internal/infra/ai"
	"dailybrief/internal/utils/text"
)

const (
	maxKeywordScore     = 60
	maxSemanticScore    = 30
	shortCircuitHigh    = 55
	shortCircuitLow     = 15
	contentSnippetRunes = 800
	maxMatchedInterests = 5
	freshnessWindow     = 24 * time.Hour
)

const relevanceSystemPrompt = `You judge how well an article matches a reader's stated interests beyond literal keyword overlap. Score semantic_score from 0 to 30 where 0 is unrelated and 30 is squarely on topic, and list up to five of the reader's interests the article serves. Respond with JSON only, no prose: {"semantic_score": number, "matched_interests": [string, ...], "reasoning": short string}.`

type semanticVerdict struct {
	SemanticScore    float64  `json:"semantic_score"`
	MatchedInterests []string `json:"matched_interests"`
	Reasoning        string   `json:"reasoning"`
}

// RelevanceScorer rates articles against a reader's interest profile in
// three stages: a deterministic keyword score, an optional AI semantic
// lift, and temporal plus quality boosts. The keyword stage decides
// whether the AI stage is worth a call at all.
type RelevanceScorer struct {
	provider ai.Provider
	cfg      config.PersonalizationConfig
	timeout  time.Duration
}

func NewRelevanceScorer(provider ai.Provider, cfg config.PersonalizationConfig, timeouts config.TimeoutConfig) *RelevanceScorer {
	return &RelevanceScorer{
		provider: provider,
		cfg:      cfg,
		timeout:  timeouts.Relevance,
	}
}

// Score produces a relevance result in [0,100] for one article. A
// profile without keywords scores zero but passes the threshold, so
// unconfigured readers still receive a digest. A failed semantic call
// records reason "ai_error", scores on the remaining stages and
// returns the error with the result.
func (s *RelevanceScorer) Score(ctx context.Context, article entity.Article, profile entity.InterestProfile) (entity.RelevanceResult, error) {
	if len(profile.Keywords) == 0 {
		return entity.RelevanceResult{PassesThreshold: true}, nil
	}

	threshold := profile.Threshold
	if threshold <= 0 {
		threshold = s.cfg.DefaultThreshold
	}
	boost := profile.BoostFactor
	if boost == 0 {
		boost = s.cfg.DefaultBoostFactor
	}
	boost = clampFloat(boost, entity.MinBoostFactor, entity.MaxBoostFactor)

	keywords := profile.Keywords
	if len(keywords) > s.cfg.MaxKeywords {
		keywords = keywords[:s.cfg.MaxKeywords]
	}

	kwScore, matched := s.keywordScore(article, keywords)

	breakdown := entity.RelevanceBreakdown{
		KeywordScore:    kwScore,
		MatchedKeywords: matched,
	}

	var scoreErr error
	if s.semanticEligible(kwScore, boost) {
		verdict, err := s.semanticLift(ctx, article, keywords)
		switch {
		case errors.Is(err, ai.ErrDisabled):
			// Credential-less runs score on keywords alone.
		case err != nil:
			breakdown.SemanticReasoning = "ai_error"
			slog.Warn("semantic relevance unavailable, scoring on keywords",
				slog.String("url", article.URL),
				slog.String("error", err.Error()))
			scoreErr = err
		default:
			breakdown.SemanticScore = clampFloat(verdict.SemanticScore, 0, maxSemanticScore)
			breakdown.SemanticReasoning = verdict.Reasoning
			breakdown.MatchedKeywords = mergeMatches(matched, verdict.MatchedInterests)
		}
	}

	breakdown.TemporalBoost = temporalBoost(article.Age(time.Now().UTC()))
	if qs, ok := article.QualityScore(); ok && qs >= 80 && len(matched) > 0 {
		breakdown.QualityBoost = clampFloat(5*(qs-80)/20, 0, 5)
	}

	sum := breakdown.KeywordScore + breakdown.SemanticScore + breakdown.TemporalBoost + breakdown.QualityBoost
	final := clampFloat(clampFloat(sum, 0, 100)*boost, 0, 100)

	return entity.RelevanceResult{
		RelevanceScore:  final,
		Breakdown:       breakdown,
		PassesThreshold: final >= float64(threshold),
	}, scoreErr
}

// semanticEligible gates the AI stage. A keyword score at or above
// shortCircuitHigh already dominates the result; one at or below
// shortCircuitLow cannot reach a typical threshold unless the profile
// boosts above 1.0.
func (s *RelevanceScorer) semanticEligible(kwScore, boost float64) bool {
	if !s.cfg.EnableSemanticScoring {
		return false
	}
	if kwScore >= shortCircuitHigh {
		return false
	}
	if kwScore <= shortCircuitLow && boost <= 1.0 {
		return false
	}
	return true
}

// keywordScore counts unique keyword hits per field, weighting title,
// content snippet and tags-or-topics hits separately. Each keyword
// scores at most once per field however often it occurs.
func (s *RelevanceScorer) keywordScore(article entity.Article, keywords []string) (float64, []string) {
	title := indexText(article.Title)
	content := indexText(text.TruncateRunes(article.Content, contentSnippetRunes))
	labels := indexText(append(append([]string{}, article.Tags...), article.Topics...)...)

	var score float64
	var matched []string
	for _, kw := range keywords {
		norm := strings.Join(tokenize(kw), " ")
		if norm == "" {
			continue
		}
		hit := false
		if title.matches(norm) {
			score += float64(s.cfg.KwWeightTitle)
			hit = true
		}
		if content.matches(norm) {
			score += float64(s.cfg.KwWeightContent)
			hit = true
		}
		if labels.matches(norm) {
			score += float64(s.cfg.KwWeightTags)
			hit = true
		}
		if hit {
			matched = append(matched, kw)
		}
	}
	return clampFloat(score, 0, maxKeywordScore), matched
}

func (s *RelevanceScorer) semanticLift(ctx context.Context, article entity.Article, keywords []string) (semanticVerdict, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Reader interests: %s\n\n", strings.Join(keywords, ", "))
	fmt.Fprintf(&b, "Title: %s\n", article.Title)
	if len(article.Topics) > 0 {
		fmt.Fprintf(&b, "Topics: %s\n", strings.Join(article.Topics, ", "))
	}
	if article.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", article.Summary)
	}
	fmt.Fprintf(&b, "\nContent:\n%s", text.TruncateRunes(article.Content, contentSnippetRunes))

	var verdict semanticVerdict
	req := ai.Request{
		Operation: "relevance",
		System:    relevanceSystemPrompt,
		User:      b.String(),
		Timeout:   s.timeout,
	}
	if err := s.provider.RunStructured(ctx, req, &verdict); err != nil {
		return semanticVerdict{}, err
	}
	if len(verdict.MatchedInterests) > maxMatchedInterests {
		verdict.MatchedInterests = verdict.MatchedInterests[:maxMatchedInterests]
	}
	return verdict, nil
}

// fieldIndex answers word-boundary keyword lookups against one article
// field. Single words resolve through the token set; phrases scan the
// joined form, where a NUL token fences the parts so a phrase never
// matches across two tags.
type fieldIndex struct {
	tokens map[string]struct{}
	joined string
}

func indexText(parts ...string) fieldIndex {
	idx := fieldIndex{tokens: make(map[string]struct{})}
	var b strings.Builder
	b.WriteString(" ")
	for _, part := range parts {
		toks := tokenize(part)
		if len(toks) == 0 {
			continue
		}
		for _, t := range toks {
			idx.tokens[t] = struct{}{}
		}
		b.WriteString(strings.Join(toks, " "))
		b.WriteString(" \x00 ")
	}
	idx.joined = b.String()
	return idx
}

func (f fieldIndex) matches(kw string) bool {
	if kw == "" {
		return false
	}
	if !strings.Contains(kw, " ") {
		_, ok := f.tokens[kw]
		return ok
	}
	return strings.Contains(f.joined, " "+kw+" ")
}

// tokenize lowercases s and splits on every rune that is neither a
// letter nor a digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// mergeMatches appends the model's matched interests after the literal
// keyword hits, dropping blanks and case-insensitive duplicates.
func mergeMatches(matched, interests []string) []string {
	merged := make([]string, 0, len(matched)+len(interests))
	seen := make(map[string]struct{}, len(matched)+len(interests))
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		merged = append(merged, v)
	}
	for _, m := range matched {
		add(m)
	}
	for _, in := range interests {
		add(in)
	}
	return merged
}

// temporalBoost awards up to 5 points linearly inside the freshness
// window. Older articles get nothing.
func temporalBoost(age time.Duration) float64 {
	if age >= freshnessWindow {
		return 0
	}
	return clampFloat(5*(1-age.Hours()/freshnessWindow.Hours()), 0, 5)
}
