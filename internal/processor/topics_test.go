package processor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailybrief/internal/config"
	"dailybrief/internal/infra/ai"
)

func testTopicsConfig() config.TopicsConfig {
	return config.TopicsConfig{MaxTopics: 5}
}

/* ───────── Content Gate ───────── */

// TestTopicExtractor_ThinContentSkipped tests that punctuation and
// whitespace do not count toward the classification floor and that no
// provider call is made below it.
func TestTopicExtractor_ThinContentSkipped(t *testing.T) {
	stub := &stubProvider{response: `{"topics": ["go"]}`}
	e := NewTopicExtractor(stub, testTopicsConfig(), testTimeouts())

	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"punctuation only", strings.Repeat("!? ...  -- ", 20)},
		{"one rune short", strings.Repeat("a", 49) + strings.Repeat("! ", 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article := testArticle()
			article.Content = tt.content

			topics, err := e.Extract(context.Background(), article)
			require.NoError(t, err)
			assert.Nil(t, topics)
		})
	}
	assert.Zero(t, stub.callCount())
}

func TestTopicExtractor_FloorBoundary(t *testing.T) {
	stub := &stubProvider{response: `{"topics": ["go"]}`}
	e := NewTopicExtractor(stub, testTopicsConfig(), testTimeouts())

	article := testArticle()
	article.Content = strings.Repeat("ab ", 25) // 50 letters

	topics, err := e.Extract(context.Background(), article)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, topics)
	assert.Equal(t, 1, stub.callCount())
}

/* ───────── Extraction ───────── */

func TestTopicExtractor_CleansModelOutput(t *testing.T) {
	stub := &stubProvider{response: `{"topics": [" Machine Learning ", "machine learning", "GO", "", "rust", "k8s", "wasm"]}`}
	e := NewTopicExtractor(stub, testTopicsConfig(), testTimeouts())

	topics, err := e.Extract(context.Background(), testArticle())
	require.NoError(t, err)
	assert.Equal(t, []string{"machine learning", "go", "rust", "k8s", "wasm"}, topics)
}

func TestTopicExtractor_CapsAtMaxTopics(t *testing.T) {
	stub := &stubProvider{response: `{"topics": ["one", "two", "three"]}`}
	e := NewTopicExtractor(stub, config.TopicsConfig{MaxTopics: 2}, testTimeouts())

	topics, err := e.Extract(context.Background(), testArticle())
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, topics)
}

func TestTopicExtractor_EmptyVerdict(t *testing.T) {
	stub := &stubProvider{response: `{"topics": []}`}
	e := NewTopicExtractor(stub, testTopicsConfig(), testTimeouts())

	topics, err := e.Extract(context.Background(), testArticle())
	require.NoError(t, err)
	assert.Nil(t, topics)
}

func TestTopicExtractor_RequestShape(t *testing.T) {
	stub := &stubProvider{response: `{"topics": ["go"]}`}
	e := NewTopicExtractor(stub, testTopicsConfig(), testTimeouts())

	article := testArticle()
	_, err := e.Extract(context.Background(), article)
	require.NoError(t, err)

	call := stub.lastCall()
	assert.Equal(t, "topics", call.Operation)
	assert.Contains(t, call.User, article.Title)
	assert.Equal(t, testTimeouts().Topics, call.Timeout)
}

/* ───────── Degraded Operation ───────── */

func TestTopicExtractor_AIError(t *testing.T) {
	stub := &stubProvider{err: stubError("topics")}
	e := NewTopicExtractor(stub, testTopicsConfig(), testTimeouts())

	topics, err := e.Extract(context.Background(), testArticle())
	require.Error(t, err)
	assert.Nil(t, topics)
}

func TestTopicExtractor_DisabledProvider(t *testing.T) {
	e := NewTopicExtractor(ai.NewDisabled(), testTopicsConfig(), testTimeouts())

	topics, err := e.Extract(context.Background(), testArticle())
	require.NoError(t, err, "running without credentials is not an error")
	assert.Nil(t, topics)
}
