// Package logging owns the process logger. Daemons call NewLogger once
// at startup and install it with slog.SetDefault; the workflow runner
// derives a per-run logger with WithRunID so one user's digest can be
// traced end to end. SanitizeError scrubs secrets from error text
// before it reaches a log line.
//
// Two environment knobs shape output:
//
//	LOG_LEVEL:  debug | info | warn | error (default info)
//	LOG_FORMAT: json | text (default json)
package logging
