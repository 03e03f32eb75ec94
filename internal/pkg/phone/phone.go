// Package phone normalizes and masks phone numbers used as passcode identifiers.
package phone

import "strings"

// Normalize strips separators so "+1 (555) 123-0000" and "+15551230000"
// address the same passcode record.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range strings.TrimSpace(s) {
		if r >= '0' && r <= '9' || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Mask hides the middle of a number for logs: +15551230000 -> +155*****0000.
func Mask(s string) string {
	if len(s) <= 6 {
		return strings.Repeat("*", len(s))
	}
	head, tail := 4, 4
	if len(s) < head+tail+1 {
		head, tail = 2, 2
	}
	return s[:head] + strings.Repeat("*", len(s)-head-tail) + s[len(s)-tail:]
}
