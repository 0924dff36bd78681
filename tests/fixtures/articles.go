// Package fixtures generates article content for pipeline tests. The
// generators produce coherent English or Japanese prose at a requested
// length, so validation thresholds, excerpt fallbacks and rendering can
// be exercised against realistic multi-byte text without checking large
// literals into every test file.
package fixtures

import (
	"strings"
)

// ArticleOptions configures the generated article content.
type ArticleOptions struct {
	// Length is the approximate rune count (target length, ±10% variance allowed)
	Length int

	// Language specifies the content language ("english" or "japanese")
	Language string

	// IncludeEmoji specifies whether to sprinkle emoji sentences into the content
	IncludeEmoji bool
}

// GenerateArticle generates article content based on the provided options.
// Any language other than "japanese" yields English prose.
//
// Example:
//
//	content := fixtures.GenerateArticle(fixtures.ArticleOptions{
//	    Length:   2000,
//	    Language: "japanese",
//	})
func GenerateArticle(opts ArticleOptions) string {
	if opts.Language == "japanese" {
		return compose(japaneseSentences, japaneseEmojiSentences, opts.Length, opts.IncludeEmoji)
	}
	return compose(englishSentences, englishEmojiSentences, opts.Length, opts.IncludeEmoji)
}

// GenerateShortArticle generates a short English article (~500 runes),
// sized like a release note or changelog entry.
func GenerateShortArticle() string {
	return GenerateArticle(ArticleOptions{Length: 500, Language: "english"})
}

// GenerateMediumArticle generates a typical blog-post-length English
// article (~2000 runes).
func GenerateMediumArticle() string {
	return GenerateArticle(ArticleOptions{Length: 2000, Language: "english"})
}

// GenerateLongArticle generates a long-form English article (~10000
// runes), enough to force content truncation in prompt building.
func GenerateLongArticle() string {
	return GenerateArticle(ArticleOptions{Length: 10000, Language: "english"})
}

// GenerateArticleWithEmoji generates an English article that includes
// emoji characters, for exercising rune-aware counting and truncation.
func GenerateArticleWithEmoji() string {
	return GenerateArticle(ArticleOptions{Length: 2000, Language: "english", IncludeEmoji: true})
}

// compose builds prose from the sentence bank until the rune count lands
// inside the ±10% window around targetLength. Emoji sentences, when
// requested, are sprinkled in at roughly every fifth of the target.
func compose(base, emoji []string, targetLength int, includeEmoji bool) string {
	interval := targetLength / 5
	if interval < 1 {
		interval = 1
	}

	var builder strings.Builder
	currentLength := 0
	sentenceIndex := 0
	emojiIndex := 0

	for {
		var sentence string
		if includeEmoji && currentLength%interval < 100 && emojiIndex < len(emoji) {
			sentence = emoji[emojiIndex]
			emojiIndex++
		} else {
			sentence = base[sentenceIndex%len(base)]
			sentenceIndex++
		}

		sentenceLength := len([]rune(sentence))
		if currentLength > 0 {
			sentenceLength++ // separating space
		}
		potentialLength := currentLength + sentenceLength

		// Inside the window already: stop rather than overshoot past 110%.
		if currentLength >= int(float64(targetLength)*0.9) {
			if potentialLength > int(float64(targetLength)*1.1) {
				break
			}
		}

		if currentLength > 0 {
			builder.WriteString(" ")
		}
		builder.WriteString(sentence)
		currentLength = len([]rune(builder.String()))

		if currentLength >= targetLength {
			break
		}
	}

	return builder.String()
}

var englishSentences = []string{
	"Feed readers aggregate content from dozens of publishers into a single timeline.",
	"A content pipeline normalizes encoding and markup before any scoring takes place.",
	"Relevance ranking blends keyword matching with semantic signals from a language model.",
	"Deduplication collapses syndicated copies of the same story into one entry.",
	"Caching intermediate results keeps repeated runs cheap and deterministic.",
	"Connection pooling spreads database load across a small number of long-lived sessions.",
	"Retry with exponential backoff absorbs transient network failures without operator involvement.",
	"Circuit breakers stop a failing dependency from dragging down the whole batch.",
	"Structured logging makes production incidents traceable long after they happen.",
	"Metrics exported in the Prometheus format feed dashboards and alerting rules.",
	"Graceful shutdown drains in-flight work before the process exits.",
	"Idempotent migrations let every binary apply the schema safely at startup.",
	"Rate limiting protects upstream publishers from aggressive polling.",
	"Timezone-aware scheduling delivers each digest at a sensible local hour.",
	"Content-addressed keys guarantee that identical inputs reuse identical results.",
}

var englishEmojiSentences = []string{
	"Shipping a readable digest every morning is the whole point 🚀",
	"Good summaries save readers real time ⏱️✨",
	"Healthy feeds make healthy digests 🌱",
	"Observability turns guesswork into engineering 📊",
	"Small batches, steady progress 🔁",
}

var japaneseSentences = []string{
	"フィードリーダーは複数の配信元から記事を集約して一つのタイムラインにまとめます。",
	"コンテンツパイプラインはスコアリングの前に文字コードとマークアップを正規化します。",
	"関連度のランキングはキーワード一致と言語モデルの意味的な信号を組み合わせます。",
	"重複排除は同じ記事の転載をひとつのエントリに統合します。",
	"中間結果のキャッシュにより再実行が安価で決定的になります。",
	"コネクションプーリングは少数の長寿命セッションにデータベース負荷を分散します。",
	"指数バックオフ付きのリトライは一時的なネットワーク障害を吸収します。",
	"サーキットブレーカーは障害のある依存先がバッチ全体を巻き込むのを防ぎます。",
	"構造化ログは本番障害の追跡を容易にします。",
	"Prometheus形式のメトリクスはダッシュボードとアラートに利用されます。",
	"グレースフルシャットダウンは処理中の作業を完了させてからプロセスを終了します。",
	"冪等なマイグレーションによりどのバイナリも安全にスキーマを適用できます。",
	"レートリミットは配信元への過剰なポーリングを防ぎます。",
	"タイムゾーンを考慮したスケジューリングは適切な現地時刻にダイジェストを届けます。",
	"コンテンツアドレスのキーは同一入力に対する結果の再利用を保証します。",
}

var japaneseEmojiSentences = []string{
	"毎朝読みやすいダイジェストを届けることがすべてです 🚀",
	"良い要約は読者の時間を節約します ⏱️✨",
	"健全なフィードが健全なダイジェストを作ります 🌱",
	"可観測性は推測を工学に変えます 📊",
	"小さなバッチで着実に前進 🔁",
}
