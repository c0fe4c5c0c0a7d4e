// Package phone canonicalises customer phone numbers so one person maps to one
// Customer row regardless of how staff typed the number.
package phone

import "strings"

// Normalize keeps digits only and returns a +<digits> form. Ten digit numbers
// are treated as North American and get a leading 1. Empty input or input
// without digits yields "".
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) == 10 {
		digits = "1" + digits
	}
	return "+" + digits
}
