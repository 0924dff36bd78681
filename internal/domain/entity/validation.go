package entity

import (
	"fmt"
	"net"
	"net/url"
)

// maxURLLength caps accepted URLs. Feed entries are untrusted input.
const maxURLLength = 2048

// ValidateFetchURL reports whether the fetcher may request rawURL: it
// must parse, use http or https and carry a host. With denyPrivate set
// the host is also resolved and rejected when any of its addresses
// lands in a restricted range, so a hostile feed entry cannot steer
// the fetcher at internal services. Production callers set denyPrivate;
// fixtures served on loopback clear it.
func ValidateFetchURL(rawURL string, denyPrivate bool) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}
	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}
	if u.Host == "" {
		return &ValidationError{Field: "url", Message: "URL must have a valid host"}
	}

	if denyPrivate {
		// SSRF対策: プライベートIPアドレスをブロック
		return rejectPrivateHost(u.Hostname())
	}
	return nil
}

// rejectPrivateHost resolves host and fails when any of its addresses
// is restricted. Resolution failures pass here; the fetcher surfaces
// the DNS error itself on the actual request.
func rejectPrivateHost(host string) error {
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil
	}
	for _, ip := range ips {
		if isRestrictedIP(ip) {
			return &ValidationError{Field: "url", Message: "url cannot point to private network"}
		}
	}
	return nil
}

// isRestrictedIP covers loopback (127.0.0.0/8, ::1), link-local
// (169.254.0.0/16 including the cloud metadata endpoint, fe80::/10),
// the RFC 1918 ranges and the unspecified address.
func isRestrictedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() ||
		ip.IsUnspecified()
}
