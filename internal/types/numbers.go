package types

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	normalisedNumberRe  = regexp.MustCompile(`^-?([0-9]+(\.[0-9]*)?|[0-9]*\.[0-9]+)$`)
	normalisedIntegerRe = regexp.MustCompile(`^-?[0-9]+$`)
)

// sortWidth is the zero-padded width of the integer part of a numeric sort
// key. Together with the leading space, the sign byte and the decimal point it
// fills half of the 255-byte field.
const sortWidth = 126

// IsNumeric reports whether value is a number once delocalised. Grouping
// separators are ignored, so "12,34" is accepted.
func (l Locale) IsNumeric(value string) bool {
	return normalisedNumberRe.MatchString(l.Delocalise(value))
}

// IsInteger is IsNumeric without a fractional part. "5.0" is not an integer.
func (l Locale) IsInteger(value string) bool {
	return normalisedIntegerRe.MatchString(l.Delocalise(value))
}

// ParseNumber converts value to a float, returning 0 for non-numbers.
func (l Locale) ParseNumber(value string) float64 {
	value = l.Delocalise(value)
	if !normalisedNumberRe.MatchString(value) {
		return 0
	}
	f, _ := strconv.ParseFloat(value, 64)
	return f
}

// IsValidNumberFormat is the strict check used for type guessing. The value
// must be a well-formed number in either English or the locale's own format:
// a single leading minus, at most one decimal separator with digits after it,
// digits from one set only, and any grouping exactly as the locale would
// produce it.
func (l Locale) IsValidNumberFormat(value string) bool {
	if isValidNumber(value, asciiDigits, ".", ",") {
		return true
	}
	return isValidNumber(value, l.digits(), l.decimal(), l.group())
}

func isValidNumber(value string, digits [10]rune, decimal, group string) bool {
	switch strings.Index(value, "-") {
	case -1:
	case 0:
		value = value[1:]
	default:
		return false
	}

	parts := strings.Split(value, decimal)
	if len(parts) > 2 || (len(parts) == 2 && parts[1] == "") {
		return false
	}

	shrunk := strings.Map(func(r rune) rune {
		if digitValue(r, digits) >= 0 {
			return -1
		}
		return r
	}, value)
	if len(shrunk) == len(value) {
		return false
	}
	shrunk = strings.ReplaceAll(shrunk, decimal, "")
	shrunk = strings.ReplaceAll(shrunk, group, "")
	if shrunk != "" {
		return false
	}

	if strings.Contains(value, group) {
		ungrouped := strings.ReplaceAll(value, group, "")
		if groupDigits(ungrouped, decimal, group) != value {
			return false
		}
	}
	return true
}

// FormatInteger formats a normalised integer for display: leading zeros are
// removed and digits grouped, except that a four-character result (e.g. a year
// like "1976") is returned ungrouped.
func (l Locale) FormatInteger(value string) string {
	neg := strings.HasPrefix(value, "-")
	if neg {
		value = value[1:]
	}
	value = strings.TrimLeft(value, "0")
	if value == "" || value[0] == '.' {
		value = "0" + value
	}
	if neg && strings.Trim(value, "0.") != "" {
		value = "-" + value
	}

	if len(value) == 4 {
		return value
	}
	return l.FormatNum(value)
}

// FormatFloat formats a normalised decimal for display with six digits of
// precision, trailing zeros removed but at least one fractional digit kept.
func (l Locale) FormatFloat(value string) string {
	f, _ := strconv.ParseFloat(value, 64)
	s := strconv.FormatFloat(f, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	if s == "-0.0" {
		s = "0.0"
	}
	return l.FormatNum(s)
}

// SortKey returns a key whose byte order matches numeric order, or "" if value
// is not a number. Numerically equal inputs ("5", "5.0", "05") produce equal
// keys.
//
// Layout: a space (numbers sort before other strings), a sign byte ('n' before
// 'p'), the integer part zero-padded to 126 digits, ".", then the fraction
// without trailing zeros ("0" if empty). Negative keys store the nines'
// complement of both parts and end the fraction with '~', so larger
// magnitudes sort first. This departs from the legacy key, which stored the
// plain magnitude and misordered negative numbers among themselves.
func (l Locale) SortKey(value string) string {
	if value == "" || !l.IsNumeric(value) {
		return ""
	}
	value = l.Delocalise(value)

	neg := strings.HasPrefix(value, "-")
	if neg {
		value = value[1:]
	}
	intPart, frac, _ := strings.Cut(value, ".")
	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		frac = "0"
	}
	if intPart == "0" && frac == "0" {
		neg = false
	}

	if len(intPart) < sortWidth {
		intPart = strings.Repeat("0", sortWidth-len(intPart)) + intPart
	}
	if !neg {
		return " p" + intPart + "." + frac
	}
	return " n" + ninesComplement(intPart) + "." + ninesComplement(frac) + "~"
}

func ninesComplement(digits string) string {
	b := []byte(digits)
	for i, c := range b {
		b[i] = '9' - (c - '0')
	}
	return string(b)
}
