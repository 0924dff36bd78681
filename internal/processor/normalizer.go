package processor

import (
	"strings"

	"dailybrief/internal/config"
	"dailybrief/internal/domain/entity"
	"dailybrief/internal/utils/text"
)

// untitledFallback replaces a title that normalizes away to nothing.
const untitledFallback = "Untitled Article"

// Normalizer brings every article onto the shapes the rest of the
// pipeline assumes. It annotates and bounds, it never filters.
type Normalizer struct {
	titleMax   int
	authorMax  int
	tagMax     int
	maxTags    int
	contentMax int
}

func NewNormalizer(content config.ContentConfig) *Normalizer {
	return &Normalizer{
		titleMax:   content.TitleMax,
		authorMax:  content.AuthorMax,
		tagMax:     content.TagMax,
		maxTags:    content.MaxTags,
		contentMax: content.MaxLength,
	}
}

// Normalize returns a normalized copy of the article:
//
//   - a zero published_at becomes the fetch timestamp; both instants UTC
//   - title whitespace collapsed, word-boundary truncated, empty replaced
//   - author trimmed, title-cased, truncated
//   - tags lowercased, trimmed, deduplicated in insertion order, capped
//   - URL canonicalized
//   - content word-boundary truncated to the configured maximum
//
// Normalize is idempotent: applying it to its own output returns an
// identical article.
func (n *Normalizer) Normalize(article entity.Article) entity.Article {
	out := article.Clone()

	if out.PublishedAt.IsZero() {
		out.PublishedAt = out.FetchedAt
	}
	out.PublishedAt = out.PublishedAt.UTC()
	out.FetchedAt = out.FetchedAt.UTC()

	title := text.CollapseWhitespace(out.Title)
	title = text.TruncateAtWordBoundary(title, n.titleMax)
	if title == "" {
		title = untitledFallback
	}
	out.Title = title

	author := strings.TrimSpace(out.Author)
	if author != "" {
		author = text.TitleCase(author)
		author = text.TruncateRunes(author, n.authorMax)
	}
	out.Author = author

	out.Tags = n.normalizeTags(out.Tags)

	if canonical, err := entity.CanonicalURL(out.URL); err == nil {
		out.URL = canonical
	}

	out.Content = text.TruncateAtWordBoundary(out.Content, n.contentMax)

	return out
}

func (n *Normalizer) normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, min(len(tags), n.maxTags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		t = text.TruncateRunes(t, n.tagMax)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == n.maxTags {
			break
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
