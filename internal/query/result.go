package query

import (
	"log/slog"
	"strconv"

	"github.com/roach88/wikidb/internal/schema"
	"github.com/roach88/wikidb/internal/table"
	"github.com/roach88/wikidb/internal/wiki"
)

// MultiValueSeparator joins the items of a multi-value field for display.
const MultiValueSeparator = " &bull; "

// Row is one result row.
type Row struct {
	// Number is the 1-based position of the row in the whole result.
	Number int

	// Source is the page the row is defined on.
	Source wiki.Title

	// Data holds the field values as stored.
	Data *schema.Record
}

// Result holds the rows returned by a query, or the rows defined on a
// page, together with the table they belong to.
type Result struct {
	tbl    *table.Table
	rows   []Row
	offset int
	limit  int

	undefined []string
	migrated  []map[string]string
}

// NewResultFromData builds a result from rows that have not been stored,
// such as the data tags of a page being previewed. Rows are numbered from 1.
func NewResultFromData(tbl *table.Table, data []*schema.Record, source wiki.Title) *Result {
	rows := make([]Row, len(data))
	for i, rec := range data {
		rows[i] = Row{Number: i + 1, Source: source, Data: rec}
	}
	return newResult(tbl, rows, 0, -1)
}

func newResult(tbl *table.Table, rows []Row, offset, limit int) *Result {
	r := &Result{
		tbl:      tbl,
		rows:     rows,
		offset:   offset,
		limit:    limit,
		migrated: make([]map[string]string, len(rows)),
	}

	seen := map[string]bool{}
	for i, row := range rows {
		for _, name := range row.Data.Fields() {
			switch {
			case tbl.FieldIsAlias(name):
				if r.migrated[i] == nil {
					r.migrated[i] = map[string]string{}
				}
				r.migrated[i][name] = tbl.ResolveFieldAlias(name)
			case !tbl.FieldIsDefined(name) && !seen[name]:
				seen[name] = true
				r.undefined = append(r.undefined, name)
			}
		}
	}
	return r
}

// Table returns the table the rows belong to. It is nil for the empty
// result of a query whose table name was rejected.
func (r *Result) Table() *table.Table { return r.tbl }

// Rows returns the rows in order.
func (r *Result) Rows() []Row { return r.rows }

// Offset returns the 0-based offset the rows start at.
func (r *Result) Offset() int { return r.offset }

// Limit returns the requested row limit, negative for none.
func (r *Result) Limit() int { return r.limit }

// Len returns the number of rows held.
func (r *Result) Len() int { return len(r.rows) }

// MetaDataFields returns the names of the meta-data fields, or nil when
// there are no rows.
func (r *Result) MetaDataFields() []string {
	if len(r.rows) == 0 {
		return nil
	}
	return table.MetaDataFields()
}

// DefinedFields returns the fields defined by the table, in definition
// order, excluding aliases.
func (r *Result) DefinedFields() []string {
	if r.tbl == nil {
		return nil
	}
	return r.tbl.Definition().FieldNames(false)
}

// UndefinedFields returns the fields present in the data but not defined by
// the table, in the order they were first seen.
func (r *Result) UndefinedFields() []string { return r.undefined }

// HasUndefinedFields reports whether any row holds an undefined field.
func (r *Result) HasUndefinedFields() bool { return len(r.undefined) > 0 }

// MigratedFields returns, for one row (0-based), the stored field names
// that are now aliases, mapped to the field they resolve to.
func (r *Result) MigratedFields(row int) map[string]string {
	if row < 0 || row >= len(r.migrated) || r.migrated[row] == nil {
		return map[string]string{}
	}
	return r.migrated[row]
}

// HasMigratedFields reports whether a row holds any field stored under a
// name that is now an alias.
func (r *Result) HasMigratedFields(row int) bool {
	return len(r.MigratedFields(row)) > 0
}

func (r *Result) row(i int, op string) (Row, bool) {
	if i < 0 || i >= len(r.rows) {
		slog.Warn("non-existent row", "op", op, "row", i)
		return Row{}, false
	}
	return r.rows[i], true
}

// FieldsInRow returns the fields present in a row, meta-data fields first
// unless ignoreMeta is set.
func (r *Result) FieldsInRow(row int, ignoreMeta bool) []string {
	rw, ok := r.row(row, "FieldsInRow")
	if !ok {
		return nil
	}
	var out []string
	if !ignoreMeta {
		out = append(out, table.MetaDataFields()...)
	}
	return append(out, rw.Data.Fields()...)
}

// RawFieldValue returns a field of a row as stored.
//
// The exact name is tried first, then every synonym of the field with the
// real field first. Missing fields and rows read as "".
func (r *Result) RawFieldValue(row int, field string) schema.Value {
	rw, ok := r.row(row, "RawFieldValue")
	if !ok {
		return schema.Scalar("")
	}

	if table.IsMetaDataField(field) {
		switch field {
		case table.MetaRow:
			return schema.Scalar(strconv.Itoa(rw.Number))
		default:
			return schema.Scalar(rw.Source.FullText())
		}
	}

	if v, ok := rw.Data.Get(field); ok {
		return v
	}
	if r.tbl == nil {
		return schema.Scalar("")
	}
	for _, name := range r.tbl.Synonyms(field) {
		if v, ok := rw.Data.Get(name); ok {
			return v
		}
	}
	return schema.Scalar("")
}

// FieldValue returns a field of a row formatted for display, with the
// items of a multi-value field joined by MultiValueSeparator.
func (r *Result) FieldValue(row int, field string) string {
	v := r.RawFieldValue(row, field)
	switch {
	case field == table.MetaSourceArticle:
		if rw, ok := r.row(row, "FieldValue"); ok {
			return "[[" + rw.Source.FullText() + "]]"
		}
		return ""
	case table.IsMetaDataField(field):
	case r.tbl != nil:
		v = r.tbl.FormatForDisplay(field, v)
	}
	return schema.Join(v, MultiValueSeparator)
}

// FieldValues returns the display values of fields in a row, in the order
// given. A nil list means every field in the row.
func (r *Result) FieldValues(row int, fields []string) *schema.Record {
	if fields == nil {
		fields = r.FieldsInRow(row, false)
	}
	_, exists := r.row(row, "FieldValues")

	out := schema.NewRecord()
	for _, f := range fields {
		v := ""
		if exists {
			v = r.FieldValue(row, f)
		}
		out.Set(f, schema.Scalar(v))
	}
	return out
}

// MetaDataFieldValues returns the display values of the meta-data fields.
func (r *Result) MetaDataFieldValues(row int) *schema.Record {
	return r.FieldValues(row, emptyIfNil(r.MetaDataFields()))
}

// DefinedFieldValues returns the display values of the defined fields.
func (r *Result) DefinedFieldValues(row int) *schema.Record {
	return r.FieldValues(row, emptyIfNil(r.DefinedFields()))
}

// UndefinedFieldValues returns the display values of the undefined fields.
func (r *Result) UndefinedFieldValues(row int) *schema.Record {
	return r.FieldValues(row, emptyIfNil(r.UndefinedFields()))
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// NormalisedRow returns a row keyed by real field names, for display.
//
// Meta-data comes first, then the stored fields with aliases resolved.
// Every field the table defines is then present: an alias missing from the
// data takes the value of the field it names, anything else reads as "".
func (r *Result) NormalisedRow(row int) *schema.Record {
	rw, ok := r.row(row, "NormalisedRow")
	if !ok {
		return schema.NewRecord()
	}

	raw := schema.NewRecord()
	for _, f := range table.MetaDataFields() {
		raw.Set(f, r.RawFieldValue(row, f))
	}
	for _, f := range rw.Data.Fields() {
		v, _ := rw.Data.Get(f)
		raw.Set(r.resolve(f), v)
	}
	if r.tbl != nil {
		for _, def := range r.tbl.Fields(true) {
			if raw.Has(def.Name) {
				continue
			}
			v := schema.Value(schema.Scalar(""))
			if def.IsAlias() {
				if target, ok := raw.Get(def.AliasOf); ok {
					v = target
				}
			}
			raw.Set(def.Name, v)
		}
	}

	out := schema.NewRecord()
	for _, f := range raw.Fields() {
		v, _ := raw.Get(f)
		if !table.IsMetaDataField(f) && r.tbl != nil {
			v = r.tbl.FormatForDisplay(f, v)
		}
		out.Set(f, schema.Scalar(schema.Join(v, MultiValueSeparator)))
	}
	return out
}

func (r *Result) resolve(field string) string {
	if r.tbl == nil {
		return field
	}
	return r.tbl.ResolveFieldAlias(field)
}
