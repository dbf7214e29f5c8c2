package types

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/wikidb/internal/fieldname"
	"github.com/roach88/wikidb/internal/wiki"
)

// Built-in type names, in registration order.
const (
	TypeWikiString = "wikistring"
	TypeString     = "string"
	TypeInteger    = "integer"
	TypeNumber     = "number"
	TypeInt        = "int"
	TypeImage      = "image"
	TypeLink       = "link"
)

// DefaultImageWidth is the width in pixels used when an image field has no
// size options.
const DefaultImageWidth = 75

// Env supplies the wiki configuration the built-in handlers depend on.
type Env struct {
	Namespaces        *wiki.Namespaces
	Locale            Locale
	DefaultImageWidth int
}

// NewBuiltinRegistry returns a registry holding the built-in types.
func NewBuiltinRegistry(env Env) *Registry {
	r := NewRegistry()
	RegisterBuiltins(r, env)
	return r
}

// RegisterBuiltins adds the built-in types to r. The registration order
// decides type-guessing ties, so wikistring comes first as the fallback.
func RegisterBuiltins(r *Registry, env Env) {
	if env.Namespaces == nil {
		env.Namespaces = wiki.MustNamespaces()
	}
	if env.Locale.Decimal == "" && env.Locale.Group == "" {
		env.Locale = English
	}
	if env.DefaultImageWidth <= 0 {
		env.DefaultImageWidth = DefaultImageWidth
	}

	integer := integerType{loc: env.Locale}
	r.Register(TypeWikiString, wikiStringType{})
	r.Register(TypeString, stringType{loc: env.Locale})
	r.Register(TypeInteger, integer)
	r.Register(TypeNumber, numberType{loc: env.Locale})
	r.Register(TypeInt, integer)
	r.Register(TypeImage, newImageType(env))
	r.Register(TypeLink, linkType{ns: env.Namespaces})
}

// BuiltinTypes returns the names of the built-in types.
func BuiltinTypes() []string {
	return []string{TypeWikiString, TypeString, TypeInteger, TypeNumber, TypeInt, TypeImage, TypeLink}
}

// intOption returns options[i] as an integer if it is numeric.
func intOption(loc Locale, options []string, i int) (int, bool) {
	if i >= len(options) || !loc.IsNumeric(options[i]) {
		return 0, false
	}
	return int(loc.ParseNumber(options[i])), true
}

// floatOption returns options[i] as a float if it is numeric.
func floatOption(loc Locale, options []string, i int) (float64, bool) {
	if i >= len(options) || !loc.IsNumeric(options[i]) {
		return 0, false
	}
	return loc.ParseNumber(options[i]), true
}

// inRange applies the optional (min, max) options to v.
func inRange(loc Locale, options []string, v float64) bool {
	if lo, ok := floatOption(loc, options, 0); ok && v < lo {
		return false
	}
	if hi, ok := floatOption(loc, options, 1); ok && v > hi {
		return false
	}
	return true
}

type wikiStringType struct{}

func (wikiStringType) Validate(string, []string) bool { return true }
func (wikiStringType) FormatForDisplay(v string, _ []string) string { return v }
func (wikiStringType) FormatForSorting(v string, _ []string) string { return v }
func (wikiStringType) Similarity(string, []string) int { return 0 }

// stringType is text that is never interpreted as markup. Option 0 is the
// maximum length in bytes.
type stringType struct {
	loc Locale
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func (t stringType) Validate(value string, options []string) bool {
	if max, ok := intOption(t.loc, options, 0); ok && len(value) > max {
		return false
	}
	return true
}

func (t stringType) FormatForDisplay(value string, options []string) string {
	if value == "" {
		return ""
	}
	if max, ok := intOption(t.loc, options, 0); ok && max >= 0 {
		value = fieldname.Truncate(value, max)
	}
	return "<nowiki>" + htmlEscaper.Replace(value) + "</nowiki>"
}

func (stringType) FormatForSorting(value string, _ []string) string { return value }
func (stringType) Similarity(string, []string) int { return 0 }

// integerType accepts whole numbers. Options are (min, max), inclusive.
type integerType struct {
	loc Locale
}

func (t integerType) Validate(value string, options []string) bool {
	if !t.loc.IsInteger(value) {
		return false
	}
	return inRange(t.loc, roundOptions(t.loc, options), t.loc.ParseNumber(value))
}

func (t integerType) FormatForDisplay(value string, options []string) string {
	if !t.loc.IsInteger(value) {
		return ""
	}
	value = t.loc.Delocalise(value)
	f, _ := strconv.ParseFloat(value, 64)
	if !inRange(t.loc, roundOptions(t.loc, options), f) {
		return ""
	}
	return t.loc.FormatInteger(value)
}

func (t integerType) FormatForSorting(value string, _ []string) string {
	return t.loc.SortKey(value)
}

// Similarity requires the strict number format and a whole number.
func (t integerType) Similarity(value string, _ []string) int {
	if t.loc.IsValidNumberFormat(value) && t.loc.IsInteger(value) {
		return 10
	}
	return 0
}

// roundOptions truncates numeric range options to whole numbers.
func roundOptions(loc Locale, options []string) []string {
	out := make([]string, len(options))
	for i, o := range options {
		if loc.IsNumeric(o) {
			o = strconv.FormatFloat(math.Trunc(loc.ParseNumber(o)), 'f', -1, 64)
		}
		out[i] = o
	}
	return out
}

// numberType accepts any decimal number. Options are (min, max), inclusive.
type numberType struct {
	loc Locale
}

func (t numberType) Validate(value string, options []string) bool {
	if !t.loc.IsNumeric(value) {
		return false
	}
	return inRange(t.loc, options, t.loc.ParseNumber(value))
}

func (t numberType) FormatForDisplay(value string, options []string) string {
	if value == "" {
		return ""
	}
	value = t.loc.Delocalise(value)
	f, _ := strconv.ParseFloat(value, 64)
	if !inRange(t.loc, options, f) {
		return ""
	}
	if strings.Contains(value, ".") {
		return t.loc.FormatFloat(value)
	}
	return t.loc.FormatInteger(value)
}

func (t numberType) FormatForSorting(value string, _ []string) string {
	return t.loc.SortKey(value)
}

func (t numberType) Similarity(value string, _ []string) int {
	if t.loc.IsValidNumberFormat(value) {
		return 10
	}
	return 0
}

var (
	bracketedRe     = regexp.MustCompile(`^\[\[(.*)\]\]$`)
	doubleBracketRe = regexp.MustCompile(`^\[\[.*\]\]$`)
)

// imageType renders a file link. Options are (width, height) in pixels.
type imageType struct {
	ns           *wiki.Namespaces
	loc          Locale
	defaultWidth int
	explicitRe   *regexp.Regexp // [[File:...]] with any file namespace alias
	prefixRe     *regexp.Regexp // optional file namespace prefix
}

func newImageType(env Env) imageType {
	var names []string
	for _, name := range env.Namespaces.Names(wiki.NSFile) {
		quoted := regexp.QuoteMeta(name)
		names = append(names, strings.ReplaceAll(quoted, " ", "[ _]"))
	}
	alt := strings.Join(names, "|")
	return imageType{
		ns:           env.Namespaces,
		loc:          env.Locale,
		defaultWidth: env.DefaultImageWidth,
		explicitRe:   regexp.MustCompile(`(?i)^\[\[(?:` + alt + `):.*\]\]$`),
		prefixRe:     regexp.MustCompile(`(?i)^:?(?:(?:` + alt + `):)?([^|]*)`),
	}
}

func (imageType) Validate(string, []string) bool { return true }

func (t imageType) FormatForDisplay(value string, options []string) string {
	title, ok := t.title(value)
	if !ok {
		return ""
	}
	return "[[" + title.PrefixedDBKey() + t.scale(options) + "]]"
}

// FormatForSorting keeps the namespace so image keys sort sensibly next to
// other values.
func (t imageType) FormatForSorting(value string, _ []string) string {
	title, ok := t.title(value)
	if !ok {
		return ""
	}
	return title.PrefixedDBKey()
}

// Similarity is certain for [[File:...]] links. A leading colon makes the
// value a plain link instead.
func (t imageType) Similarity(value string, _ []string) int {
	if t.explicitRe.MatchString(value) {
		return 10
	}
	return 0
}

func (t imageType) title(value string) (wiki.Title, bool) {
	if m := bracketedRe.FindStringSubmatch(value); m != nil {
		value = m[1]
	}
	value = strings.TrimPrefix(value, ":")
	if i := strings.IndexByte(value, '|'); i >= 0 {
		value = value[:i]
	}
	if value == "" {
		return wiki.Title{}, false
	}
	name := t.prefixRe.FindStringSubmatch(value)[1]
	title, err := t.ns.ParseTitle(name, wiki.NSFile)
	if err != nil {
		return wiki.Title{}, false
	}
	return title, true
}

// scale builds the "|WxHpx|" size argument. With no options the default width
// is used; a lone height also becomes the width, since a file link cannot
// give a height on its own.
func (t imageType) scale(options []string) string {
	width, hasWidth := intOption(t.loc, options, 0)
	height, hasHeight := intOption(t.loc, options, 1)
	if !hasWidth {
		if hasHeight {
			width = height
		} else {
			width = t.defaultWidth
		}
	}
	s := strconv.Itoa(width)
	if hasHeight {
		s += "x" + strconv.Itoa(height)
	}
	return "|" + s + "px|"
}

// linkType renders wiki links. Stored and sorted values use the canonical
// page key; display keeps the link as entered.
type linkType struct {
	ns *wiki.Namespaces
}

var linkMarkupRe = regexp.MustCompile(`^\[\[:?(.*?)\]\]`)

type parsedLink struct {
	link    string
	display string
	title   wiki.Title
	valid   bool
}

func (t linkType) parse(value string) parsedLink {
	if m := linkMarkupRe.FindStringSubmatch(value); m != nil {
		value = m[1]
	}
	var pl parsedLink
	if value == "" {
		return pl
	}
	pl.link = value
	if i := strings.IndexByte(value[1:], '|'); i >= 0 {
		pl.link = value[:i+1]
		pl.display = value[i+2:]
	}
	if title, err := t.ns.ParseTitle(pl.link, wiki.NSMain); err == nil {
		pl.title = title
		pl.valid = true
	}
	return pl
}

func (linkType) Validate(string, []string) bool { return true }

func (t linkType) FormatForDisplay(value string, _ []string) string {
	if value == "" {
		return ""
	}
	pl := t.parse(value)
	if pl.link == "" {
		return ""
	}
	out := pl.link
	if strings.TrimSpace(pl.display) != "" {
		out += "|" + pl.display
	}
	// Links to files and categories need a colon to avoid embedding the file
	// or categorising the page.
	if pl.valid && (pl.title.Namespace() == wiki.NSFile || pl.title.Namespace() == wiki.NSCategory) {
		out = ":" + out
	}
	return "[[" + out + "]]"
}

func (t linkType) FormatForSorting(value string, _ []string) string {
	if value == "" {
		return ""
	}
	pl := t.parse(value)
	if !pl.valid {
		return ""
	}
	return pl.title.PrefixedDBKey()
}

// Similarity is moderate for bracketed values so that more specific link
// types (images) win.
func (linkType) Similarity(value string, _ []string) int {
	if doubleBracketRe.MatchString(value) {
		return 5
	}
	return 0
}
