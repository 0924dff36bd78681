package entity

import (
	"fmt"
	"strings"
	"time"
)

// SourceRef points at a single feed a user subscribes to.
type SourceRef struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	FeedURL string `json:"feed_url"`
	Active  bool   `json:"active"`
}

// Validate checks that the reference is usable for fetching.
func (s SourceRef) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ValidationError{Field: "name", Message: "source name is required"}
	}
	u := strings.TrimSpace(s.FeedURL)
	if u == "" {
		return &ValidationError{Field: "feed_url", Message: "feed URL is required"}
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return &ValidationError{Field: "feed_url", Message: "feed URL must start with http:// or https://"}
	}
	return nil
}

// UserConfig is everything a digest run needs to know about one user: who
// they are, where their digest goes, which sources to pull and how to score
// what comes back.
type UserConfig struct {
	UserID    string          `json:"user_id"`
	Email     string          `json:"email"`
	Timezone  string          `json:"timezone"`
	Profile   InterestProfile `json:"profile"`
	Sources   []SourceRef     `json:"sources"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Validate checks the config fields a run depends on. A config with zero
// sources is valid: the run produces an empty digest rather than failing.
func (c UserConfig) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return &ValidationError{Field: "user_id", Message: "user ID is required"}
	}
	if strings.TrimSpace(c.Email) == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	if !strings.Contains(c.Email, "@") {
		return &ValidationError{Field: "email", Message: "email must contain @"}
	}
	for i, src := range c.Sources {
		if err := src.Validate(); err != nil {
			return fmt.Errorf("source %d (%s): %w", i, src.Name, err)
		}
	}
	return nil
}

// ActiveSources filters the subscription list down to sources marked active.
func (c UserConfig) ActiveSources() []SourceRef {
	out := make([]SourceRef, 0, len(c.Sources))
	for _, s := range c.Sources {
		if s.Active {
			out = append(out, s)
		}
	}
	return out
}

// Location resolves the user's timezone, falling back to UTC when the zone
// is empty or unknown.
func (c UserConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
