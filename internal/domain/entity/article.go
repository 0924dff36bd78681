// Package entity defines the core domain entities of the digest pipeline.
// It contains the in-flight Article value, the user-facing configuration
// records (InterestProfile, UserConfig), the result envelopes produced by
// the processors, and the validation rules shared across the pipeline.
package entity

import (
	"time"
)

// Metadata keys written by the scoring and summarization activities
// and read downstream.
const (
	MetaQualityScore     = "quality_score"
	MetaQualityBreakdown = "quality_breakdown"
	MetaSummaryKeyPoints = "summary_key_points"
	MetaSummaryFallback  = "summary_fallback"
)

// Article is a single feed item flowing through the pipeline.
// Articles are passed by value and never mutated in place: processors that
// annotate an article return a fresh copy via the With* methods. Within one
// run an article's identity is its canonical URL.
type Article struct {
	// URL is canonical from the moment the fetcher emits it (see CanonicalURL).
	URL     string   `json:"url"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Author  string   `json:"author,omitempty"`
	Tags    []string `json:"tags,omitempty"`

	// PublishedAt is always UTC once the normalizer has run; the fetcher may
	// leave it zero when the feed omitted a publication date.
	PublishedAt time.Time `json:"published_at"`
	// FetchedAt is the UTC instant the owning fetch produced this article.
	FetchedAt time.Time `json:"fetched_at"`

	// Topics is populated by the topics activity; nil until then.
	Topics []string `json:"ai_topics,omitempty"`
	// Summary is populated by the summarize activity; empty until then.
	Summary string `json:"summary,omitempty"`

	// Metadata carries free-form annotations such as the quality score.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the article. Tags, Topics and Metadata are
// copied so the result shares no mutable state with the receiver.
func (a Article) Clone() Article {
	c := a
	if a.Tags != nil {
		c.Tags = append([]string(nil), a.Tags...)
	}
	if a.Topics != nil {
		c.Topics = append([]string(nil), a.Topics...)
	}
	if a.Metadata != nil {
		c.Metadata = make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// WithTopics returns a copy of the article with Topics set.
func (a Article) WithTopics(topics []string) Article {
	c := a.Clone()
	c.Topics = append([]string(nil), topics...)
	return c
}

// WithSummary returns a copy of the article with Summary set.
func (a Article) WithSummary(summary string) Article {
	c := a.Clone()
	c.Summary = summary
	return c
}

// WithMetadata returns a copy of the article with the given keys merged into
// Metadata. Existing keys are overwritten; the receiver is left untouched.
func (a Article) WithMetadata(kv map[string]any) Article {
	c := a.Clone()
	if c.Metadata == nil {
		c.Metadata = make(map[string]any, len(kv))
	}
	for k, v := range kv {
		c.Metadata[k] = v
	}
	return c
}

// WithPublishedAt returns a copy of the article with PublishedAt set.
func (a Article) WithPublishedAt(t time.Time) Article {
	c := a.Clone()
	c.PublishedAt = t
	return c
}

// QualityScore reads the quality score annotation written by the quality
// activity. The second return is false when the article has not been scored.
func (a Article) QualityScore() (float64, bool) {
	v, ok := a.Metadata[MetaQualityScore]
	if !ok {
		return 0, false
	}
	switch s := v.(type) {
	case float64:
		return s, true
	case int:
		return float64(s), true
	default:
		return 0, false
	}
}

// Age reports how long before the given reference instant the article was
// published. A zero PublishedAt yields a zero age.
func (a Article) Age(now time.Time) time.Duration {
	if a.PublishedAt.IsZero() {
		return 0
	}
	return now.Sub(a.PublishedAt)
}
