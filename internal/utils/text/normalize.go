package text

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CollapseWhitespace trims s and replaces every internal run of
// whitespace, including newlines and tabs, with a single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TitleCase capitalizes each word of an author name ("jane doe" becomes
// "Jane Doe", "JOHN DOE" becomes "John Doe"). The caser is built per
// call because cases.Caser carries state and is not safe to share
// between goroutines.
func TitleCase(s string) string {
	return cases.Title(language.Und).String(s)
}
