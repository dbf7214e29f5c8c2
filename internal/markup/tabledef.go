package markup

import (
	"regexp"
	"strings"

	"github.com/roach88/wikidb/internal/fieldname"
	"github.com/roach88/wikidb/internal/schema"
	"github.com/roach88/wikidb/internal/types"
)

// fieldLineRe matches one field definition line:
//
//	> Name :type (arg, arg) [[#Alias]] -- comment
//
// Groups: 1 name, 2 type, 3 args, 4 link target, 5 comment.
var fieldLineRe = regexp.MustCompile(
	`^>\s*([^:\[\-]+)` +
		`(?::\s*([^\s\[(\-]*)\s*(?:\((.*?)\))?)?` +
		`\s*(?:\[\[(.*?)\]\])?` +
		`\s*(?:--(.*))?$`)

const (
	commentOpen  = "<!--"
	commentClose = "-->"
)

// phpSpace is the set of characters trimmed from names and values.
const phpSpace = " \t\n\r\x00\x0B"

// ParseTableDef parses the text of a table page.
//
// Every line matching the field grammar outside an HTML comment becomes a
// field. When includeText is set, runs of other lines are kept as text
// entries between the fields, each line terminated by "\n".
func ParseTableDef(text string, includeText bool) *schema.Definition {
	def := schema.NewDefinition()

	var pending strings.Builder
	inComment := false
	for _, line := range strings.Split(text, "\n") {
		if !inComment {
			if f, ok := ParseFieldLine(line); ok {
				if includeText && pending.Len() > 0 {
					def.AddText(pending.String())
					pending.Reset()
				}
				def.AddField(f)
				continue
			}
		}
		pending.WriteString(line)
		pending.WriteByte('\n')
		inComment = commentState(line, inComment)
	}

	if includeText && pending.Len() > 0 {
		def.AddText(pending.String())
	}
	return def
}

// commentState returns whether an HTML comment is open at the end of line,
// given whether one was open at its start.
func commentState(line string, inComment bool) bool {
	for {
		marker := commentOpen
		if inComment {
			marker = commentClose
		}
		i := strings.Index(line, marker)
		if i < 0 {
			return inComment
		}
		line = line[i+len(marker):]
		inComment = !inComment
	}
}

// ParseFieldLine parses a single field definition line. It reports false if
// the line is not a definition or its field name normalizes to nothing.
func ParseFieldLine(line string) (schema.FieldDef, bool) {
	m := fieldLineRe.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
	if m == nil {
		return schema.FieldDef{}, false
	}

	f := schema.FieldDef{Name: fieldname.Normalize(m[1])}
	if f.Name == "" {
		return schema.FieldDef{}, false
	}

	// A link is either a field alias (#Field) or a foreign key, which has no
	// behaviour and is dropped.
	if link := strings.TrimLeft(m[4], phpSpace); strings.HasPrefix(link, "#") {
		f.AliasOf = fieldname.Normalize(link[1:])
	}

	if !f.IsAlias() && m[2] != "" {
		f.Type = types.NormalizeName(m[2])
		if m[3] != "" {
			for _, opt := range strings.Split(m[3], ",") {
				f.Options = append(f.Options, strings.Trim(opt, phpSpace))
			}
		}
	}

	if m[5] != "" {
		f.Comment = strings.Trim(m[5], phpSpace)
	}
	return f, true
}
