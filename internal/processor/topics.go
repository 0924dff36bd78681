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
	// minMeaningfulRunes is the letters-and-digits floor below which an
	// article is too thin to classify and no AI call is made.
	minMeaningfulRunes = 50

	// topicsContentRunes bounds the content sent to the classifier.
	topicsContentRunes = 2000
)

const topicsSystemPrompt = `You label articles for a reading digest. Extract the main topics as short lowercase phrases of one to three words, most significant first. Respond with JSON only, no prose: {"topics": [string, ...]}.`

type topicsVerdict struct {
	Topics []string `json:"topics"`
}

// TopicExtractor assigns topic labels to articles via an AI call.
// Topic extraction is best effort: a failed or disabled provider yields
// no topics rather than an unusable article.
type TopicExtractor struct {
	provider  ai.Provider
	maxTopics int
	timeout   time.Duration
}

func NewTopicExtractor(provider ai.Provider, cfg config.TopicsConfig, timeouts config.TimeoutConfig) *TopicExtractor {
	return &TopicExtractor{
		provider:  provider,
		maxTopics: cfg.MaxTopics,
		timeout:   timeouts.Topics,
	}
}

// Extract returns up to MaxTopics labels for the article. Articles with
// fewer than minMeaningfulRunes letters and digits in their content are
// skipped without a provider call. An AI failure returns no topics
// together with the error.
func (e *TopicExtractor) Extract(ctx context.Context, article entity.Article) ([]string, error) {
	if meaningfulRunes(article.Content) < minMeaningfulRunes {
		return nil, nil
	}

	var verdict topicsVerdict
	req := ai.Request{
		Operation: "topics",
		System:    topicsSystemPrompt,
		User: fmt.Sprintf("Title: %s\n\nContent:\n%s",
			article.Title, text.TruncateRunes(article.Content, topicsContentRunes)),
		Timeout: e.timeout,
	}
	if err := e.provider.RunStructured(ctx, req, &verdict); err != nil {
		if errors.Is(err, ai.ErrDisabled) {
			return nil, nil
		}
		slog.Warn("topic extraction unavailable, continuing without topics",
			slog.String("url", article.URL),
			slog.String("error", err.Error()))
		return nil, err
	}

	return e.cleanTopics(verdict.Topics), nil
}

// cleanTopics lowercases and trims labels, drops empties and
// duplicates, and caps the list at maxTopics preserving model order.
func (e *TopicExtractor) cleanTopics(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	topics := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		topics = append(topics, t)
		if len(topics) == e.maxTopics {
			break
		}
	}
	if len(topics) == 0 {
		return nil
	}
	return topics
}

// meaningfulRunes counts letters and digits, ignoring whitespace and
// punctuation that pad otherwise empty content.
func meaningfulRunes(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
