package logging

import "regexp"

// maskRule pairs a credential pattern with its replacement. Rules run
// in order: the Anthropic key pattern is a prefix of the OpenAI one,
// so it has to fire first.
type maskRule struct {
	pattern *regexp.Regexp
	mask    string
}

var maskRules = []maskRule{
	{regexp.MustCompile(`sk-ant-[a-zA-Z0-9-_]+`), "sk-ant-****"},
	{regexp.MustCompile(`sk-[a-zA-Z0-9]{10,}`), "sk-****"},
	// Basic auth in any URL: DATABASE_URL, authenticated feed origins.
	{regexp.MustCompile(`://([^:/]+):([^@\s]+)@`), "://$1:****@"},
	// Credentials some feed providers take as query parameters.
	{regexp.MustCompile(`(?i)\b(api_key|apikey|access_token|token)=[^&\s"']+`), "$1=****"},
}

// SanitizeError renders err with credentials masked. Provider and
// fetch errors echo request URLs and API keys, so every message headed
// for a log line passes through here first.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, r := range maskRules {
		msg = r.pattern.ReplaceAllString(msg, r.mask)
	}
	return msg
}
