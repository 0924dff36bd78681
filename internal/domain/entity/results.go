package entity

import "time"

// ValidationResult reports why an article was accepted or rejected by the
// validation stage. Exactly one rejection flag is set when Valid is false.
type ValidationResult struct {
	IsEmpty    bool    `json:"is_empty"`
	IsTooShort bool    `json:"is_too_short"`
	IsSpam     bool    `json:"is_spam"`
	Confidence float64 `json:"confidence,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// Valid reports whether the article passed every validation rule.
func (r ValidationResult) Valid() bool {
	return !r.IsEmpty && !r.IsTooShort && !r.IsSpam
}

// QualityBreakdown itemizes the two halves of a quality score.
type QualityBreakdown struct {
	HasAuthor       bool   `json:"has_author"`
	HasPublishedAt  bool   `json:"has_published_at"`
	HasTags         bool   `json:"has_tags"`
	ContentLength   int    `json:"content_length"`
	WritingQuality  int    `json:"writing_quality"`
	Informativeness int    `json:"informativeness"`
	Credibility     int    `json:"credibility"`
	AIReasoning     string `json:"ai_reasoning,omitempty"`
	AIUnavailable   bool   `json:"ai_unavailable,omitempty"`
}

// ContentQualityResult is the outcome of the quality scoring stage. The
// overall score stays in [0,100]; when AI scoring is unavailable the
// metadata half is rescaled to cover the full range.
type ContentQualityResult struct {
	QualityScore   float64          `json:"quality_score"`
	MetadataScore  float64          `json:"metadata_score"`
	AIContentScore float64          `json:"ai_content_score"`
	Breakdown      QualityBreakdown `json:"breakdown"`
}

// RelevanceBreakdown records the contribution of each relevance stage.
type RelevanceBreakdown struct {
	KeywordScore      float64  `json:"keyword_score"`
	SemanticScore     float64  `json:"semantic_score"`
	TemporalBoost     float64  `json:"temporal_boost"`
	QualityBoost      float64  `json:"quality_boost"`
	MatchedKeywords   []string `json:"matched_keywords,omitempty"`
	SemanticReasoning string   `json:"semantic_reasoning,omitempty"`
}

// RelevanceResult is the outcome of three-stage relevance scoring for one
// article against one interest profile.
type RelevanceResult struct {
	RelevanceScore  float64            `json:"relevance_score"`
	Breakdown       RelevanceBreakdown `json:"breakdown"`
	PassesThreshold bool               `json:"passes_threshold"`
}

// SummaryResult is the outcome of the summarization stage.
type SummaryResult struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points,omitempty"`
	Reasoning string   `json:"reasoning,omitempty"`
	Fallback  bool     `json:"fallback,omitempty"`
}

// ArticleGroup bundles articles covering the same story. Primary is the
// member shown first in the digest; the others render as related links.
type ArticleGroup struct {
	Members          []Article `json:"members"`
	AggregatedTopics []string  `json:"aggregated_topics,omitempty"`
	Primary          Article   `json:"primary"`
}

// SourceInfo identifies the feed a fetch result came from.
type SourceInfo struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	FeedURL string `json:"feed_url"`
}

// FetchResult is the per-source outcome of the fetch fan-out. A failed
// fetch carries Success=false and Error; the workflow continues with the
// remaining sources.
type FetchResult struct {
	Source         SourceInfo `json:"source_info"`
	Articles       []Article  `json:"articles"`
	FetchTimestamp time.Time  `json:"fetch_timestamp"`
	Success        bool       `json:"success"`
	Error          string     `json:"error,omitempty"`
}

// GroupSummary is the per-group line item included in digest metadata so
// the delivery layer can describe the digest without parsing the HTML.
type GroupSummary struct {
	PrimaryTitle string   `json:"primary_title"`
	PrimaryURL   string   `json:"primary_url"`
	MemberCount  int      `json:"member_count"`
	Topics       []string `json:"topics,omitempty"`
}

// DigestMetadata describes the assembled digest. Failure counts let the
// sending layer annotate or suppress a degraded digest.
type DigestMetadata struct {
	TotalGroups    int   `json:"total_groups"`
	TotalArticles  int   `json:"total_articles"`
	HTMLSize       int   `json:"html_size"`
	TextSize       int   `json:"text_size"`
	AssemblyMillis int64 `json:"assembly_ms"`
	SourceFailures int   `json:"source_failures"`
	AIFailures     int   `json:"ai_failures"`
}

// DigestPayload is the final product of a pipeline run, ready for an email
// transport. A run always produces a payload, possibly with zero groups.
type DigestPayload struct {
	UserID              string         `json:"user_id"`
	Email               string         `json:"email"`
	GenerationTimestamp time.Time      `json:"generation_timestamp"`
	HTMLBody            string         `json:"html_body"`
	TextBody            string         `json:"text_body"`
	GroupsSummary       []GroupSummary `json:"groups_summary"`
	Metadata            DigestMetadata `json:"metadata"`
}

// Empty reports whether the digest carries no groups at all.
func (p DigestPayload) Empty() bool {
	return p.Metadata.TotalGroups == 0
}
