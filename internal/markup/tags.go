package markup

import (
	"regexp"
	"strings"

	"github.com/roach88/wikidb/internal/schema"
)

var (
	// dataTagRe matches a <data ...> tag. An unterminated tag runs to the end
	// of the text.
	dataTagRe = regexp.MustCompile(`(?is)<\s*data\s+(.*?)>(.*?)(?:<\s*/data\s*>|$)`)

	attrRe = regexp.MustCompile(`([A-Za-z_][\w\-]*)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'>]+))`)
)

// DataTag is one <data> tag found in page text.
type DataTag struct {
	// Table is the raw table attribute, resolved against the table
	// namespace by the caller.
	Table string
	// Fields is the field list of a multi-row tag, or nil in single-row mode.
	Fields    []string
	Separator string
	Content   string
}

// Rows parses the tag content.
func (t DataTag) Rows() []*schema.Record {
	return ParseDataTag(t.Content, t.Fields, t.Separator)
}

// ExtractTags returns the <data> tags in text, in order. Tags without a
// table attribute are skipped.
func ExtractTags(text string) []DataTag {
	var tags []DataTag
	for _, m := range dataTagRe.FindAllStringSubmatch(text, -1) {
		attrs := ParseAttributes(m[1])
		table, ok := attrs["table"]
		if !ok || strings.TrimSpace(table) == "" {
			continue
		}

		tag := DataTag{
			Table:     table,
			Separator: DefaultSeparator,
			Content:   m[2],
		}
		if fields, ok := attrs["fields"]; ok {
			tag.Fields = strings.Split(fields, ",")
		}
		if sep, ok := attrs["separator"]; ok && sep != "" {
			tag.Separator = sep
		}
		tags = append(tags, tag)
	}
	return tags
}

// ParseAttributes parses the attribute part of an opening tag. Names are
// lowercased and the first occurrence of a name wins.
func ParseAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrRe.FindAllStringSubmatch(s, -1) {
		name := strings.ToLower(m[1])
		if _, dup := attrs[name]; dup {
			continue
		}
		switch {
		case m[2] != "":
			attrs[name] = m[2]
		case m[3] != "":
			attrs[name] = m[3]
		default:
			attrs[name] = m[4]
		}
	}
	return attrs
}
