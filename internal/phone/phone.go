// Package phone normalizes the loosely formatted phone numbers members type
// into forms the store and SMS provider can compare and dial.
package phone

import "strings"

// Digits strips everything but 0-9.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// MatchKey returns the last 10 digits of s, so "+1 (555) 123-4567" and
// "555.123.4567" compare equal. Shorter inputs are returned as-is.
func MatchKey(s string) string {
	d := Digits(s)
	if len(d) > 10 {
		return d[len(d)-10:]
	}
	return d
}

// Valid reports whether s carries at least a full 10-digit number.
func Valid(s string) bool {
	return len(Digits(s)) >= 10
}

// E164 formats s for SMS delivery, assuming North American numbers when no
// country code is present.
func E164(s string) string {
	d := Digits(s)
	switch {
	case len(d) == 10:
		return "+1" + d
	case len(d) == 11 && d[0] == '1':
		return "+" + d
	default:
		return "+" + d
	}
}
