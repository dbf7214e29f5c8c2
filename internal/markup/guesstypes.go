package markup

import (
	"strings"

	"github.com/roach88/wikidb/internal/types"
)

// GuessLine is one "description: value" line of guesstypes input, with the
// type guessed for the value and its formatted forms.
type GuessLine struct {
	Description string `json:"description"`
	Data        string `json:"data"`
	Type        string `json:"type"`
	Display     string `json:"display"`
	Sort        string `json:"sort"`

	// ExpectedType and ExpectedOutput come from a following "=type:output"
	// line. HasExpected is false if there was none.
	ExpectedType   string `json:"expected_type,omitempty"`
	ExpectedOutput string `json:"expected_output,omitempty"`
	HasExpected    bool   `json:"has_expected,omitempty"`
}

// TypeMatches reports whether the guessed type is the expected one. Lines
// without an expected type always match.
func (g GuessLine) TypeMatches() bool {
	return g.ExpectedType == "" || g.ExpectedType == g.Type
}

// OutputMatches reports whether the display value is the expected one.
func (g GuessLine) OutputMatches() bool {
	return !g.HasExpected || g.ExpectedOutput == g.Display
}

// ParseGuessTypes parses guesstypes input and guesses a type for every value.
//
// A line "description: value" adds an entry; the text after the first colon
// is the value. A line "=type:output" or "=output" sets the expectation for
// the previous entry; the type may be left empty so that the output can
// contain a colon. Other lines are ignored.
func ParseGuessTypes(input string, reg *types.Registry) []GuessLine {
	var out []GuessLine
	for _, line := range strings.Split(input, "\n") {
		if rest, ok := strings.CutPrefix(line, "="); ok {
			if len(out) == 0 {
				continue
			}
			last := &out[len(out)-1]
			typ, output, found := strings.Cut(rest, ":")
			if !found {
				typ, output = "", rest
			}
			last.ExpectedType = types.NormalizeName(typ)
			last.ExpectedOutput = output
			last.HasExpected = true
			continue
		}

		desc, data, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		data = strings.Trim(data, phpSpace)
		typ := reg.GuessType(data, nil)
		out = append(out, GuessLine{
			Description: strings.Trim(desc, phpSpace),
			Data:        data,
			Type:        typ,
			Display:     reg.FormatForDisplay(typ, data, nil),
			Sort:        reg.FormatForSorting(typ, data),
		})
	}
	return out
}
