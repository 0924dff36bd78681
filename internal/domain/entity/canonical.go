package entity

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Tracking query parameters stripped during canonicalization. Any parameter
// with the utm_ prefix is stripped as well.
var trackingParams = map[string]bool{
	"ref":      true,
	"referrer": true,
	"campaign": true,
	"source":   true,
	"fbclid":   true,
	"gclid":    true,
	"mc_cid":   true,
	"mc_eid":   true,
}

// CanonicalURL derives the canonical form of an article URL, the identity
// key used throughout a pipeline run:
//
//   - scheme and host are lowercased, http is upgraded to https
//   - tracking parameters (utm_*, ref, campaign, ...) are removed
//   - the remaining query is sorted by key for a stable ordering
//   - the fragment is dropped
//
// Canonicalization is idempotent: CanonicalURL(CanonicalURL(u)) == CanonicalURL(u).
func CanonicalURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &ValidationError{Field: "url", Message: "URL is required"}
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", &ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}
	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		keys := make([]string, 0, len(q))
		for k := range q {
			if trackingParams[strings.ToLower(k)] || strings.HasPrefix(strings.ToLower(k), "utm_") {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		for _, k := range keys {
			vals := q[k]
			sort.Strings(vals)
			for _, v := range vals {
				if b.Len() > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(k))
				if v != "" {
					b.WriteByte('=')
					b.WriteString(url.QueryEscape(v))
				}
			}
		}
		u.RawQuery = b.String()
	}

	return u.String(), nil
}
