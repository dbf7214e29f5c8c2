package markup

import (
	"strings"

	"github.com/roach88/wikidb/internal/fieldname"
	"github.com/roach88/wikidb/internal/schema"
)

// DefaultSeparator splits values in multi-row data and in {} sets.
const DefaultSeparator = ","

// ParseDataTag parses the content of a <data> tag into rows.
//
// With fields == nil the content is in single-row mode: every "name=value"
// line sets one field of a single row, and other lines are ignored. A value
// wrapped in {} holds several values split on separator.
//
// Otherwise each non-blank, non-heading line is a row whose values, split on
// separator, are assigned to fields in order. Extra values are dropped and
// missing ones are empty. A {} group spanning several separated values is one
// multi-valued cell. Invalid field names keep their position but are not set.
func ParseDataTag(content string, fields []string, separator string) []*schema.Record {
	if separator == "" {
		separator = DefaultSeparator
	}
	lines := strings.Split(content, "\n")
	if fields == nil {
		return parseSingleRow(lines, separator)
	}
	return parseMultiRow(lines, fields, separator)
}

func parseSingleRow(lines []string, separator string) []*schema.Record {
	row := schema.NewRecord()
	for _, line := range lines {
		i := strings.IndexByte(line, '=')
		if i < 1 {
			continue
		}
		name := fieldname.Normalize(line[:i])
		if name == "" {
			continue
		}
		row.Set(name, parseSetValue(strings.Trim(line[i+1:], phpSpace), separator))
	}
	if row.Len() == 0 {
		return nil
	}
	return []*schema.Record{row}
}

// parseSetValue turns "{a,b}" into a Multi. A set with a single item collapses
// to a Scalar, as does any value not wrapped in braces.
func parseSetValue(value, separator string) schema.Value {
	if len(value) < 2 || value[0] != '{' || value[len(value)-1] != '}' {
		return schema.Scalar(value)
	}
	parts := strings.Split(value[1:len(value)-1], separator)
	for i, p := range parts {
		parts[i] = strings.Trim(p, phpSpace)
	}
	return collapse(parts)
}

func collapse(items []string) schema.Value {
	switch len(items) {
	case 0:
		return schema.Scalar("")
	case 1:
		return schema.Scalar(items[0])
	default:
		return schema.Multi(items)
	}
}

func parseMultiRow(lines, fields []string, separator string) []*schema.Record {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = fieldname.Normalize(f)
	}

	var rows []*schema.Record
	for _, line := range lines {
		if strings.Trim(line, phpSpace) == "" || isHeading(line) {
			continue
		}

		values := strings.Split(line, separator)
		next := func() (string, bool) {
			if len(values) == 0 {
				return "", false
			}
			v := values[0]
			values = values[1:]
			return strings.Trim(v, phpSpace), true
		}

		row := schema.NewRecord()
		for _, name := range names {
			cell := readCell(next)
			if name != "" {
				row.Set(name, collapse(cell))
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// readCell consumes one cell: a single value, or a {} group that may span
// several separated values. An unclosed group ends with the line.
func readCell(next func() (string, bool)) []string {
	v, _ := next()
	if !strings.HasPrefix(v, "{") {
		return []string{v}
	}
	v = v[1:]

	var items []string
	for {
		if strings.HasSuffix(v, "}") {
			return append(items, strings.Trim(v[:len(v)-1], phpSpace))
		}
		items = append(items, strings.Trim(v, phpSpace))

		var ok bool
		if v, ok = next(); !ok {
			return items
		}
	}
}

// isHeading reports whether line is a wikitext heading such as "== Name ==".
func isHeading(line string) bool {
	t := strings.TrimRight(line, " \t\n\v\f\r")
	for n := 1; n <= 6; n++ {
		marks := strings.Repeat("=", n)
		if len(t) > 2*n && strings.HasPrefix(t, marks) && strings.HasSuffix(t, marks) {
			return true
		}
	}
	return false
}
