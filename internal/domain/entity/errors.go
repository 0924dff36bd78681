package entity

import (
	"errors"
	"fmt"
)

// ErrConfigNotFound reports that a user has no digest configuration.
// The workflow treats it as fatal for the run: without a config there
// is nothing to fetch and nowhere to deliver.
var ErrConfigNotFound = errors.New("user config not found")

// ValidationError reports one rejected field. The feed fetcher matches
// on it with errors.As to tell permanently bad source URLs apart from
// transient network failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
