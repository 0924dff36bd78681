package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Activity names used as key prefixes. The keyspace is flat: every key
// is "{activity}:{hash}" where the hash covers exactly the inputs the
// cached result depends on.
const (
	ActivitySpam       = "spam"
	ActivityQuality    = "quality"
	ActivityTopics     = "topics"
	ActivityRelevance  = "relevance"
	ActivitySimilarity = "similarity"
	ActivitySummarizer = "summarizer"
)

// Default TTLs per activity. Relevance and similarity TTLs are
// configurable; the rest use these values directly. Spam and quality
// track the article itself, relevance additionally tracks the profile,
// so profile-sensitive entries expire faster.
const (
	TTLSpam       = 24 * time.Hour
	TTLQuality    = 12 * time.Hour
	TTLTopics     = 24 * time.Hour
	TTLRelevance  = 12 * time.Hour
	TTLSimilarity = 24 * time.Hour
	TTLSummarizer = 24 * time.Hour
)

// hashedKeyLen is how many hex characters of the SHA-256 digest make up
// the key suffix. 16 hex chars (64 bits) keeps keys short while making
// accidental collisions within one activity's keyspace negligible.
const hashedKeyLen = 16

// contentHash hashes the concatenated parts and returns the truncated
// hex digest used in cache keys.
func contentHash(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))[:hashedKeyLen]
}

// spamKeyContentLen bounds how much of the article body feeds the spam
// key. Spam verdicts do not change when an article's tail changes, and
// hashing the full body of very long articles is wasted work.
const spamKeyContentLen = 1000

// SpamKey addresses a spam-classification result by article title and
// the leading portion of its content.
func SpamKey(title, content string) string {
	runes := []rune(content)
	if len(runes) > spamKeyContentLen {
		runes = runes[:spamKeyContentLen]
	}
	return ActivitySpam + ":" + contentHash(title, string(runes))
}

// QualityKey addresses a quality-score result by canonical URL.
func QualityKey(canonicalURL string) string {
	return ActivityQuality + ":" + contentHash(canonicalURL)
}

// TopicsKey addresses a topic-extraction result by canonical URL.
func TopicsKey(canonicalURL string) string {
	return ActivityTopics + ":" + contentHash(canonicalURL)
}

// RelevanceKey addresses a relevance score by profile fingerprint and
// canonical URL. Editing the profile changes the fingerprint, so stale
// scores are never reused after a profile change.
func RelevanceKey(profileFingerprint, canonicalURL string) string {
	return ActivityRelevance + ":" + contentHash(profileFingerprint, canonicalURL)
}

// SummarizerKey addresses a summary by canonical URL and summary style.
// The same article summarized in two styles occupies two entries.
func SummarizerKey(canonicalURL, style string) string {
	return ActivitySummarizer + ":" + contentHash(canonicalURL, style)
}

// SimilarityKey addresses a pair-similarity result by the two canonical
// URLs. The pair is ordered lexicographically before hashing, so the
// key does not depend on argument order.
func SimilarityKey(urlA, urlB string) string {
	if urlB < urlA {
		urlA, urlB = urlB, urlA
	}
	return ActivitySimilarity + ":" + contentHash(urlA, urlB)
}
