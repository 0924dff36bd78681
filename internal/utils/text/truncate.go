package text

import (
	"strings"
	"unicode"
)

// TruncateRunes cuts s to at most max runes with no regard for word
// boundaries. Prompt bounding wants a hard cap, not pretty output.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// TruncateAtWordBoundary cuts s to at most max runes without splitting
// the final word. When the window lands mid-word, the cut backs up to
// the previous space; text with no spaces in the window (URLs, CJK) is
// cut hard at max.
func TruncateAtWordBoundary(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	// The rune just past the window being a space means the last word
	// ends exactly at the boundary.
	if unicode.IsSpace(runes[max]) {
		return strings.TrimRightFunc(string(runes[:max]), unicode.IsSpace)
	}

	cut := runes[:max]
	for i := len(cut) - 1; i > 0; i-- {
		if unicode.IsSpace(cut[i]) {
			return strings.TrimRightFunc(string(cut[:i]), unicode.IsSpace)
		}
	}
	return string(cut)
}

// Excerpt returns the leading portion of s for use as a fallback
// summary: at most max runes, cut at a word boundary, with "..."
// appended when anything was dropped.
func Excerpt(s string, max int) string {
	trimmed := strings.TrimSpace(s)
	if CountRunes(trimmed) <= max {
		return trimmed
	}
	return TruncateAtWordBoundary(trimmed, max) + "..."
}
