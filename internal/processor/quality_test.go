package processor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailybrief/internal/domain/entity"
	"dailybrief/internal/infra/ai"
)

func metadataOnlyScorer(stub *stubProvider) *QualityScorer {
	cfg := testContentConfig()
	cfg.QualityScoringEnabled = false
	return NewQualityScorer(stub, cfg, testTimeouts())
}

/* ───────── Metadata Half ───────── */

func TestQualityScorer_MetadataPoints(t *testing.T) {
	stub := &stubProvider{}
	q := metadataOnlyScorer(stub)

	tests := []struct {
		name    string
		article entity.Article
		want    float64
	}{
		{
			"bare article",
			entity.Article{URL: "https://e.test/a", Content: "short"},
			0,
		},
		{
			"author only",
			entity.Article{URL: "https://e.test/b", Content: "short", Author: "Jane Doe"},
			10,
		},
		{
			"everything",
			entity.Article{
				URL:         "https://e.test/c",
				Content:     strings.Repeat("a", 1001),
				Author:      "Jane Doe",
				Tags:        []string{"go"},
				PublishedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
			},
			50,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := q.Score(context.Background(), tt.article)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.MetadataScore)
			assert.Equal(t, tt.want*2, result.QualityScore)
			assert.True(t, result.Breakdown.AIUnavailable)
		})
	}
	assert.Zero(t, stub.callCount())
}

// TestQualityScorer_ContentLengthBoundaries tests the two length
// tiers: points start strictly above 500 and strictly above 1000 runes.
func TestQualityScorer_ContentLengthBoundaries(t *testing.T) {
	q := metadataOnlyScorer(&stubProvider{})

	tests := []struct {
		runes int
		want  float64
	}{
		{500, 0},
		{501, 15},
		{1000, 15},
		{1001, 25},
	}
	for _, tt := range tests {
		article := entity.Article{URL: "https://e.test/len", Content: strings.Repeat("a", tt.runes)}
		result, err := q.Score(context.Background(), article)
		require.NoError(t, err)
		assert.Equal(t, tt.want, result.MetadataScore, "content of %d runes", tt.runes)
		assert.Equal(t, tt.runes, result.Breakdown.ContentLength)
	}
}

/* ───────── AI Assessment ───────── */

func TestQualityScorer_CombinedScore(t *testing.T) {
	stub := &stubProvider{response: `{"writing_quality": 18, "informativeness": 16, "credibility": 9, "reasoning": "well sourced analysis"}`}
	q := NewQualityScorer(stub, testContentConfig(), testTimeouts())

	article := testArticle()
	article.Content = strings.Repeat("a", 1001)

	result, err := q.Score(context.Background(), article)
	require.NoError(t, err)
	assert.Equal(t, 50.0, result.MetadataScore)
	assert.Equal(t, 43.0, result.AIContentScore)
	assert.Equal(t, 93.0, result.QualityScore)
	assert.Equal(t, 18, result.Breakdown.WritingQuality)
	assert.Equal(t, 16, result.Breakdown.Informativeness)
	assert.Equal(t, 9, result.Breakdown.Credibility)
	assert.Equal(t, "well sourced analysis", result.Breakdown.AIReasoning)
	assert.False(t, result.Breakdown.AIUnavailable)
}

func TestQualityScorer_VerdictClamped(t *testing.T) {
	stub := &stubProvider{response: `{"writing_quality": 99, "informativeness": -5, "credibility": 40}`}
	q := NewQualityScorer(stub, testContentConfig(), testTimeouts())

	result, err := q.Score(context.Background(), testArticle())
	require.NoError(t, err)
	assert.Equal(t, 20, result.Breakdown.WritingQuality)
	assert.Equal(t, 0, result.Breakdown.Informativeness)
	assert.Equal(t, 10, result.Breakdown.Credibility)
	assert.Equal(t, 30.0, result.AIContentScore)
}

func TestQualityScorer_RequestShape(t *testing.T) {
	stub := &stubProvider{response: `{"writing_quality": 10, "informativeness": 10, "credibility": 5}`}
	q := NewQualityScorer(stub, testContentConfig(), testTimeouts())

	article := testArticle()
	article.Content = strings.Repeat("y", 2500)
	_, err := q.Score(context.Background(), article)
	require.NoError(t, err)

	call := stub.lastCall()
	assert.Equal(t, "quality", call.Operation)
	assert.Contains(t, call.User, article.Title)
	assert.Equal(t, 2000, strings.Count(call.User, "y"))
	assert.Equal(t, testTimeouts().Quality, call.Timeout)
}

/* ───────── Degraded Operation ───────── */

// TestQualityScorer_AIErrorRescales tests that a failed assessment
// rescales the metadata half over the full range and surfaces the
// error.
func TestQualityScorer_AIErrorRescales(t *testing.T) {
	stub := &stubProvider{err: stubError("quality")}
	q := NewQualityScorer(stub, testContentConfig(), testTimeouts())

	article := entity.Article{
		URL:         "https://e.test/degraded",
		Content:     strings.Repeat("a", 501),
		Author:      "Jane Doe",
		PublishedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}

	result, err := q.Score(context.Background(), article)
	require.Error(t, err)
	assert.Equal(t, 35.0, result.MetadataScore)
	assert.Equal(t, 70.0, result.QualityScore)
	assert.Zero(t, result.AIContentScore)
	assert.True(t, result.Breakdown.AIUnavailable)
}

func TestQualityScorer_DisabledProvider(t *testing.T) {
	q := NewQualityScorer(ai.NewDisabled(), testContentConfig(), testTimeouts())

	result, err := q.Score(context.Background(), testArticle())
	require.NoError(t, err, "running without credentials is not an error")
	assert.True(t, result.Breakdown.AIUnavailable)
	assert.Equal(t, result.MetadataScore*2, result.QualityScore)
}
