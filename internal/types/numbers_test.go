package types

import (
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

var german = Locale{Tag: language.German, Digits: asciiDigits, Decimal: ",", Group: "."}

var arabic = Locale{
	Tag:     language.Arabic,
	Digits:  [10]rune{'٠', '١', '٢', '٣', '٤', '٥', '٦', '٧', '٨', '٩'},
	Decimal: "٫",
	Group:   "٬",
}

func TestLocale_Delocalise(t *testing.T) {
	tests := []struct {
		name  string
		loc   Locale
		input string
		want  string
	}{
		{"english grouping removed", English, "1,234.5", "1234.5"},
		{"negative zero", English, "-0", "0"},
		{"negative zero decimal kept", English, "-0.0", "-0.0"},
		{"not a number", English, "abc", "abc"},
		{"german separators swapped", german, "1.234,5", "1234.5"},
		{"arabic digits", arabic, "١٬٢٣٤٫٥", "1234.5"},
		{"unicode minus", English, "−12", "-12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.loc.Delocalise(tt.input))
		})
	}
}

func TestLocale_FormatNum(t *testing.T) {
	assert.Equal(t, "1,234,567.5", English.FormatNum("1234567.5"))
	assert.Equal(t, "-123", English.FormatNum("-123"))
	assert.Equal(t, "1.234.567,5", german.FormatNum("1234567.5"))
	assert.Equal(t, "١٬٢٣٤٫٥", arabic.FormatNum("1234.5"))
}

func TestLocale_IsValidNumberFormat(t *testing.T) {
	assert.True(t, german.IsValidNumberFormat("1.234,5"))
	assert.True(t, german.IsValidNumberFormat("1234,5"))
	assert.False(t, german.IsValidNumberFormat("12.34,5"))

	assert.True(t, arabic.IsValidNumberFormat("١٬٢٣٤"))
	assert.False(t, arabic.IsValidNumberFormat("1٢3"), "mixed digit sets")

	assert.False(t, English.IsValidNumberFormat(""))
	assert.False(t, English.IsValidNumberFormat(",,,"))
	assert.False(t, English.IsValidNumberFormat("1-2"))
}

func TestLocale_IsNumericLoose(t *testing.T) {
	assert.True(t, English.IsNumeric("12,34"))
	assert.True(t, English.IsNumeric(".5"))
	assert.True(t, English.IsNumeric("5."))
	assert.False(t, English.IsNumeric("1.2.3"))
	assert.True(t, English.IsInteger("-1,234"))
	assert.False(t, English.IsInteger("5.0"))
}

func TestLocale_SortKey_Equivalence(t *testing.T) {
	groups := [][]string{
		{"5", "5.0", "5.00", "05", "5.000"},
		{".1", "0.1", "00.10"},
		{"-0", "0", "0.0", "-0.0", "000"},
		{"-2.50", "-2.5"},
		{"1,234", "1234", "1234.0"},
	}

	for _, group := range groups {
		want := English.SortKey(group[0])
		assert.NotEmpty(t, want)
		for _, v := range group[1:] {
			assert.Equal(t, want, English.SortKey(v), "%q vs %q", group[0], v)
		}
	}
}

func TestLocale_SortKey_Monotonic(t *testing.T) {
	inputs := []string{"12", "-1.5", "0", "-1.55", "-10", "0.5", "-0.5", "3", "-1", "1.05", "1", "-1.05", "100", "0.05"}

	byKey := append([]string(nil), inputs...)
	sort.SliceStable(byKey, func(a, b int) bool { return English.SortKey(byKey[a]) < English.SortKey(byKey[b]) })

	byValue := append([]string(nil), inputs...)
	sort.SliceStable(byValue, func(a, b int) bool {
		fa, _ := strconv.ParseFloat(byValue[a], 64)
		fb, _ := strconv.ParseFloat(byValue[b], 64)
		return fa < fb
	})

	assert.Equal(t, byValue, byKey)
}

func TestLocale_SortKey_Layout(t *testing.T) {
	key := English.SortKey("42.50")
	assert.Equal(t, " p"+strings.Repeat("0", 124)+"42.5", key)
	assert.Less(t, key, "a", "numbers sort before text")

	assert.Equal(t, "", English.SortKey(""))
	assert.Equal(t, "", English.SortKey("forty"))
	assert.True(t, strings.HasPrefix(English.SortKey("-1"), " n"))

	// Negative keys hold the complemented magnitude, so -2 sorts before -1.
	assert.True(t, strings.HasSuffix(English.SortKey("-1"), "~"))
	assert.Less(t, English.SortKey("-2"), English.SortKey("-1"))
	assert.Less(t, English.SortKey("-1.5"), English.SortKey("-1.05"))
}

func TestLocale_FormatInteger(t *testing.T) {
	assert.Equal(t, "1976", English.FormatInteger("1976"))
	assert.Equal(t, "-123", English.FormatInteger("-123"))
	assert.Equal(t, "0", English.FormatInteger("-000"))
	assert.Equal(t, "1234", german.FormatInteger("01234"))
	assert.Equal(t, "12.345", german.FormatInteger("12345"))
}

func TestLocale_FormatFloat(t *testing.T) {
	assert.Equal(t, "1,234.5", English.FormatFloat("1234.500"))
	assert.Equal(t, "0.333333", English.FormatFloat("0.3333333"))
	assert.Equal(t, "0.0", English.FormatFloat("-0.0000001"))
	assert.Equal(t, "1.234,5", german.FormatFloat("1234.5"))
}

func TestLocaleFor(t *testing.T) {
	en := LocaleFor(language.English)
	assert.Equal(t, asciiDigits, en.Digits)
	assert.Equal(t, ".", en.Decimal)
	assert.Equal(t, ",", en.Group)

	de := LocaleFor(language.German)
	assert.Equal(t, ",", de.Decimal)
	assert.Equal(t, ".", de.Group)
}

func TestParseLocale(t *testing.T) {
	loc, err := ParseLocale("en-GB")
	assert.NoError(t, err)
	assert.Equal(t, ".", loc.Decimal)

	_, err = ParseLocale("not a tag!")
	assert.Error(t, err)
}
