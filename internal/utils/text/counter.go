// Package text provides text measurement and shaping helpers shared by
// the normalizer, the summarizer fallbacks and the AI prompt builders.
// Feeds deliver arbitrary Unicode, so every operation here works on
// runes, never bytes.
package text

// CountRunes counts the number of Unicode characters (runes) in the
// given text. Multi-byte characters such as Japanese, emoji and
// accented letters count as one each.
//
// Examples:
//
//	CountRunes("hello")    // returns 5
//	CountRunes("こんにちは")    // returns 5
//	CountRunes("hello世界")  // returns 7
//	CountRunes("")         // returns 0
func CountRunes(text string) int {
	return len([]rune(text))
}
