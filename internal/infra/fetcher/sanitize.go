package fetcher

import (
	"strings"

	"dailybrief/internal/utils/text"

	"github.com/PuerkitoBio/goquery"
)

// sanitizeHTML reduces feed markup to plain text: tags stripped,
// entities decoded, whitespace collapsed. Plain text passes through
// with its whitespace collapsed. Input the parser cannot handle falls
// back to whitespace collapsing only.
func sanitizeHTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return text.CollapseWhitespace(s)
	}

	doc.Find("script, style, noscript, iframe").Remove()

	// Block elements get a trailing space so adjacent paragraphs do
	// not run together into one word after tag stripping.
	doc.Find("p, div, li, br, h1, h2, h3, h4, h5, h6, blockquote").AfterHtml(" ")

	return text.CollapseWhitespace(doc.Text())
}
