package text_test

import (
	"testing"

	"dailybrief/internal/utils/text"
)

func TestCountRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{
			name:     "ASCII title",
			input:    "Go 1.25 Released",
			expected: 16,
		},
		{
			name:     "Japanese title",
			input:    "こんにちは世界",
			expected: 7,
		},
		{
			name:     "mixed languages",
			input:    "Kubernetesの運用",
			expected: 13,
		},
		{
			name:     "emoji",
			input:    "Release 🚀",
			expected: 9,
		},
		{
			name:     "empty string",
			input:    "",
			expected: 0,
		},
		{
			name:     "whitespace only",
			input:    " \t\n ",
			expected: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := text.CountRunes(tt.input)
			if result != tt.expected {
				t.Errorf("CountRunes(%q) = %d, expected %d", tt.input, result, tt.expected)
			}
		})
	}
}
