// Package fieldname holds the single rule for turning raw text into a field
// name. Table definitions, data tags, criteria and sort strings all pass their
// field names through Normalize so that lookups agree everywhere.
package fieldname

import (
	"strings"
	"unicode/utf8"
)

// MaxBytes is the storage width of a field name.
const MaxBytes = 255

// forbidden characters can never appear in a field name.
const forbidden = ":[-"

// Normalize returns the normalized form of raw, or "" if raw is not a usable
// field name. Leading whitespace and underscores are stripped, the result is
// cut to MaxBytes (on a rune boundary) and trailing whitespace is removed.
func Normalize(raw string) string {
	name := strings.TrimLeft(raw, " \t\n\r\x00\x0B_")
	name = Truncate(name, MaxBytes)
	name = strings.TrimRight(name, " \t\n\r\x00\x0B")
	if strings.ContainsAny(name, forbidden) {
		return ""
	}
	return name
}

// IsValid reports whether raw normalizes to a non-empty name.
func IsValid(raw string) bool {
	return Normalize(raw) != ""
}

// Truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
