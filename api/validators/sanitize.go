package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims the input, drops control characters other than line
// breaks and tabs, and caps the result at maxLen runes. Customer notes carry
// accented Portuguese text, so truncation never splits a rune.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(input))

	if maxLen <= 0 {
		return cleaned
	}
	runes := []rune(cleaned)
	if len(runes) <= maxLen {
		return cleaned
	}
	return strings.TrimSpace(string(runes[:maxLen]))
}
