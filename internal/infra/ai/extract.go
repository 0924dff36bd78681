package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// maxResponseBytes bounds how much model output the decoder will touch.
// Structured outputs here are verdicts, topic lists and summaries; 64KB
// is far beyond any legitimate response.
const maxResponseBytes = 64 * 1024

// decodeStructured validates and unmarshals raw model output into out.
// Decode failures are permanent, not transient: the model answered, the
// answer does not match the schema.
func decodeStructured(provider, operation, raw string, out any) error {
	if len(raw) > maxResponseBytes {
		return &Error{
			Provider:  provider,
			Operation: operation,
			Message:   fmt.Sprintf("response of %d bytes exceeds %d byte bound", len(raw), maxResponseBytes),
		}
	}

	doc, err := extractJSON(raw)
	if err != nil {
		return &Error{
			Provider:  provider,
			Operation: operation,
			Message:   "no JSON document in response",
			Err:       err,
		}
	}

	if err := json.Unmarshal([]byte(doc), out); err != nil {
		return &Error{
			Provider:  provider,
			Operation: operation,
			Message:   "response does not match schema",
			Err:       err,
		}
	}
	return nil
}

// extractJSON locates the JSON document in raw model output. Models
// asked for JSON still like to wrap it in markdown fences or lead-in
// prose, so strip fences first and fall back to the outermost brackets.
func extractJSON(s string) (string, error) {
	cleaned := strings.TrimSpace(s)

	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	if strings.HasPrefix(cleaned, "{") || strings.HasPrefix(cleaned, "[") {
		return cleaned, nil
	}

	start := strings.IndexAny(cleaned, "{[")
	if start < 0 {
		return "", fmt.Errorf("no opening bracket in %d bytes of output", len(s))
	}

	closing := byte('}')
	if cleaned[start] == '[' {
		closing = ']'
	}
	end := strings.LastIndexByte(cleaned, closing)
	if end <= start {
		return "", fmt.Errorf("unterminated JSON document in output")
	}

	return cleaned[start : end+1], nil
}
