// Package phone normalizes customer phone numbers typed into checkout forms
// and received from the WhatsApp integration.
package phone

import "strings"

// Digits strips every non-digit rune.
func Digits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Mask keeps the last four digits and stars out the rest.
func Mask(value string) string {
	digits := Digits(value)
	if len(digits) <= 4 {
		return strings.Repeat("*", len(digits))
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}
