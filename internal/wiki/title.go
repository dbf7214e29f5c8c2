package wiki

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxTitleBytes is the longest DB key a title may have.
const MaxTitleBytes = 255

// ErrInvalidTitle is returned when text cannot be parsed as a page title.
var ErrInvalidTitle = errors.New("invalid title")

// illegalTitleChars may never appear in a title.
const illegalTitleChars = "[]{}<>|"

// Title identifies a wiki page by namespace and DB key.
//
// The DB key is the underscore form of the page name with the namespace
// prefix removed ("Main_Page"). Titles are comparable with ==, which compares
// namespace, key and fragment.
type Title struct {
	ns       int
	prefix   string
	dbKey    string
	fragment string
}

// Namespace returns the namespace ID.
func (t Title) Namespace() int { return t.ns }

// DBKey returns the name in DB key form, without namespace prefix.
func (t Title) DBKey() string { return t.dbKey }

// Text returns the name with spaces, without namespace prefix.
func (t Title) Text() string { return strings.ReplaceAll(t.dbKey, "_", " ") }

// Fragment returns the section fragment, if the title had one.
func (t Title) Fragment() string { return t.fragment }

// FullText returns the prefixed name with spaces ("Table:Foo bar").
func (t Title) FullText() string {
	if t.prefix == "" {
		return t.Text()
	}
	return t.prefix + ":" + t.Text()
}

// PrefixedDBKey returns the prefixed name in DB key form ("Table:Foo_bar").
func (t Title) PrefixedDBKey() string {
	if t.prefix == "" {
		return t.dbKey
	}
	return strings.ReplaceAll(t.prefix, " ", "_") + ":" + t.dbKey
}

// IsZero reports whether t is the zero Title.
func (t Title) IsZero() bool { return t == Title{} }

// String implements fmt.Stringer.
func (t Title) String() string { return t.FullText() }

// MakeTitle builds a Title from a stored namespace and DB key. The key is
// trusted to be in normalized form already.
func (n *Namespaces) MakeTitle(ns int, dbKey string) Title {
	return Title{ns: ns, prefix: n.Name(ns), dbKey: dbKey}
}

// ParseTitle parses user-supplied text into a Title. Text without a known
// namespace prefix is placed in defaultNS. A leading colon forces the Main
// namespace unless a prefix follows it.
//
// Normalization follows the wiki's rules: NFC, underscores read as spaces,
// runs of whitespace collapsed, the first letter upper-cased. Empty names,
// names containing any of []{}<>| and names longer than MaxTitleBytes are
// rejected with ErrInvalidTitle.
func (n *Namespaces) ParseTitle(text string, defaultNS int) (Title, error) {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "_", " ")
	text = strings.Join(strings.Fields(text), " ")

	if strings.HasPrefix(text, ":") {
		text = strings.TrimSpace(text[1:])
		defaultNS = NSMain
	}

	var fragment string
	if i := strings.IndexByte(text, '#'); i >= 0 {
		fragment = strings.TrimSpace(text[i+1:])
		text = strings.TrimSpace(text[:i])
	}

	ns := defaultNS
	if i := strings.IndexByte(text, ':'); i > 0 {
		if id, ok := n.Lookup(text[:i]); ok {
			ns = id
			text = strings.TrimSpace(text[i+1:])
		}
	}

	if text == "" || strings.ContainsAny(text, illegalTitleChars) {
		return Title{}, ErrInvalidTitle
	}

	text = upperFirst(text)
	dbKey := strings.ReplaceAll(text, " ", "_")
	if len(dbKey) > MaxTitleBytes {
		return Title{}, ErrInvalidTitle
	}

	return Title{ns: ns, prefix: n.Name(ns), dbKey: dbKey, fragment: fragment}, nil
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
