package wiki

import "regexp"

var redirectRe = regexp.MustCompile(`(?is)^\s*#REDIRECT\s*:?\s*\[\[([^\]|]+)(?:\|[^\]]*)?\]\]`)

// ParseRedirect returns the target of a redirect page. The redirect must be
// the first thing in the text. Returns false if text is not a redirect or the
// target is not a valid title.
func (n *Namespaces) ParseRedirect(text string) (Title, bool) {
	m := redirectRe.FindStringSubmatch(text)
	if m == nil {
		return Title{}, false
	}
	t, err := n.ParseTitle(m[1], NSMain)
	if err != nil {
		return Title{}, false
	}
	t.fragment = ""
	return t, true
}
