package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SummaryStyle selects the output shape produced by the summarization stage.
type SummaryStyle string

const (
	StyleBrief        SummaryStyle = "brief"
	StyleDetailed     SummaryStyle = "detailed"
	StyleBulletPoints SummaryStyle = "bullet_points"
)

// ParseSummaryStyle converts a raw string into a SummaryStyle, falling back
// to StyleBrief for empty input.
func ParseSummaryStyle(s string) (SummaryStyle, error) {
	switch SummaryStyle(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return StyleBrief, nil
	case StyleBrief:
		return StyleBrief, nil
	case StyleDetailed:
		return StyleDetailed, nil
	case StyleBulletPoints:
		return StyleBulletPoints, nil
	default:
		return "", &ValidationError{Field: "summary_style", Message: fmt.Sprintf("unknown summary style: %q", s)}
	}
}

// Interest profile bounds.
const (
	MaxProfileKeywords = 50
	MinThreshold       = 0
	MaxThreshold       = 100
	DefaultThreshold   = 40
	MinBoostFactor     = 0.5
	MaxBoostFactor     = 2.0
	DefaultBoostFactor = 1.0
)

// InterestProfile captures what a user cares about. Relevance scoring
// compares every article against the profile, and the profile fingerprint
// keys relevance cache entries so stale scores are never reused after a
// profile edit.
type InterestProfile struct {
	Keywords    []string     `json:"keywords"`
	Threshold   int          `json:"relevance_threshold"`
	BoostFactor float64      `json:"boost_factor"`
	Style       SummaryStyle `json:"summary_style"`
}

// NewInterestProfile normalizes and validates profile inputs. Keywords are
// lowercased, trimmed and deduplicated; threshold and boost factor fall back
// to their defaults when zero-valued and are rejected when out of range.
func NewInterestProfile(keywords []string, threshold int, boost float64, style SummaryStyle) (InterestProfile, error) {
	normalized := normalizeKeywords(keywords)
	if len(normalized) > MaxProfileKeywords {
		return InterestProfile{}, &ValidationError{
			Field:   "keywords",
			Message: fmt.Sprintf("at most %d keywords allowed, got %d", MaxProfileKeywords, len(normalized)),
		}
	}

	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold < MinThreshold || threshold > MaxThreshold {
		return InterestProfile{}, &ValidationError{
			Field:   "relevance_threshold",
			Message: fmt.Sprintf("threshold must be between %d and %d, got %d", MinThreshold, MaxThreshold, threshold),
		}
	}

	if boost == 0 {
		boost = DefaultBoostFactor
	}
	if boost < MinBoostFactor || boost > MaxBoostFactor {
		return InterestProfile{}, &ValidationError{
			Field:   "boost_factor",
			Message: fmt.Sprintf("boost factor must be between %.1f and %.1f, got %.2f", MinBoostFactor, MaxBoostFactor, boost),
		}
	}

	if style == "" {
		style = StyleBrief
	}

	return InterestProfile{
		Keywords:    normalized,
		Threshold:   threshold,
		BoostFactor: boost,
		Style:       style,
	}, nil
}

func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		k := strings.ToLower(strings.TrimSpace(kw))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// Fingerprint returns a stable hash of the profile fields that influence
// relevance scoring. Keyword order does not matter: the hash input sorts
// keywords first, so two profiles with the same keyword set, threshold and
// boost produce the same fingerprint.
func (p InterestProfile) Fingerprint() string {
	sorted := make([]string, len(p.Keywords))
	copy(sorted, p.Keywords)
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString(strings.Join(sorted, ","))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(p.Threshold))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(p.BoostFactor, 'f', 2, 64))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
