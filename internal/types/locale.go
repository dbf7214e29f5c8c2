package types

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var asciiDigits = [10]rune{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9'}

// Locale holds the number conventions of the wiki's content language.
type Locale struct {
	Tag     language.Tag
	Digits  [10]rune // Glyphs for 0-9.
	Decimal string   // Decimal separator.
	Group   string   // Thousands separator.
}

// English is the normalised number format: ASCII digits, "." and ",".
var English = Locale{Tag: language.English, Digits: asciiDigits, Decimal: ".", Group: ","}

// ParseLocale returns the Locale for a BCP 47 tag such as "en" or "de-CH".
func ParseLocale(s string) (Locale, error) {
	tag, err := language.Parse(s)
	if err != nil {
		return Locale{}, fmt.Errorf("parse locale %q: %w", s, err)
	}
	return LocaleFor(tag), nil
}

// LocaleFor derives digits and separators for tag from CLDR data by
// formatting known numbers and reading the glyphs back.
func LocaleFor(tag language.Tag) Locale {
	p := message.NewPrinter(tag)
	loc := Locale{Tag: tag}

	for i := range loc.Digits {
		r, _ := utf8.DecodeRuneInString(p.Sprint(number.Decimal(i)))
		if r == utf8.RuneError {
			r = asciiDigits[i]
		}
		loc.Digits[i] = r
	}

	loc.Decimal = nonDigitRun(p.Sprint(number.Decimal(1.5, number.MinFractionDigits(1))), loc.Digits)
	loc.Group = nonDigitRun(p.Sprint(number.Decimal(1234567)), loc.Digits)
	if loc.Decimal == "" {
		loc.Decimal = "."
	}
	if loc.Group == "" || loc.Group == loc.Decimal {
		loc.Group = ","
		if loc.Decimal == "," {
			loc.Group = "."
		}
	}
	return loc
}

// nonDigitRun returns the first run of characters in s that are not digits.
func nonDigitRun(s string, digits [10]rune) string {
	start := -1
	for i, r := range s {
		isDigit := digitValue(r, digits) >= 0
		switch {
		case !isDigit && start < 0:
			start = i
		case isDigit && start >= 0:
			return s[start:i]
		}
	}
	if start >= 0 {
		return s[start:]
	}
	return ""
}

func digitValue(r rune, digits [10]rune) int {
	for i, d := range digits {
		if d == r {
			return i
		}
	}
	return -1
}

func (l Locale) digits() [10]rune {
	if l.Digits == ([10]rune{}) {
		return asciiDigits
	}
	return l.Digits
}

func (l Locale) decimal() string {
	if l.Decimal == "" {
		return "."
	}
	return l.Decimal
}

func (l Locale) group() string {
	if l.Group == "" {
		return ","
	}
	return l.Group
}

// Delocalise maps locale digits and separators to the normalised form:
// ASCII digits, "." as decimal point and no grouping. The result need not be
// a number. "-0" becomes "0".
func (l Locale) Delocalise(value string) string {
	digits := l.digits()
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch d := digitValue(r, digits); {
		case d >= 0:
			b.WriteByte(byte('0' + d))
		case r == '−':
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}

	s := strings.NewReplacer(l.decimal(), ".", l.group(), ",").Replace(b.String())
	s = strings.ReplaceAll(s, ",", "")
	if s == "-0" {
		s = "0"
	}
	return s
}

// FormatNum groups the integer part of a normalised number and renders it
// with the locale's digits and separators.
func (l Locale) FormatNum(value string) string {
	neg := strings.HasPrefix(value, "-")
	if neg {
		value = value[1:]
	}
	grouped := groupDigits(value, ".", ",")

	digits := l.digits()
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for _, r := range grouped {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(digits[r-'0'])
		case r == ',':
			b.WriteString(l.group())
		case r == '.':
			b.WriteString(l.decimal())
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// groupDigits inserts group after every third character of the integer part
// of s, counting from the decimal separator.
func groupDigits(s, decimal, group string) string {
	intPart, frac, hasFrac := strings.Cut(s, decimal)
	runes := []rune(intPart)

	var b strings.Builder
	for i, r := range runes {
		if i > 0 && (len(runes)-i)%3 == 0 {
			b.WriteString(group)
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteString(decimal)
		b.WriteString(frac)
	}
	return b.String()
}
