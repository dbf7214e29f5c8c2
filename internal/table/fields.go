package table

import (
	"github.com/roach88/wikidb/internal/fieldname"
	"github.com/roach88/wikidb/internal/schema"
	"github.com/roach88/wikidb/internal/types"
)

// FieldIsDefined reports whether name appears in the definition.
func (t *Table) FieldIsDefined(name string) bool {
	return t.def.HasField(name)
}

// FieldIsAlias reports whether name is defined as an alias of another field.
func (t *Table) FieldIsAlias(name string) bool {
	f, ok := t.def.Field(name)
	return ok && f.IsAlias()
}

// Fields returns the defined fields in definition order.
func (t *Table) Fields(includeAliases bool) []schema.FieldDef {
	return t.def.Fields(includeAliases)
}

// ResolveFieldAlias follows alias definitions from name to the field they
// finally name, which need not be defined itself. Names that are not
// aliases come back unchanged, as does name when the aliases form a loop.
func (t *Table) ResolveFieldAlias(name string) string {
	visited := map[string]bool{name: true}
	cur := name
	for {
		f, ok := t.def.Field(cur)
		if !ok || !f.IsAlias() {
			return cur
		}
		cur = f.AliasOf
		if visited[cur] {
			return name
		}
		visited[cur] = true
	}
}

// AliasesOf returns name followed by every field defined as an alias of
// it, directly or through other aliases, in breadth-first order.
func (t *Table) AliasesOf(name string) []string {
	out := []string{name}
	seen := map[string]bool{name: true}
	fields := t.def.Fields(true)

	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, f := range fields {
			if f.AliasOf != cur || seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			out = append(out, f.Name)
			queue = append(queue, f.Name)
		}
	}
	return out
}

// Synonyms returns every name that refers to the same field as name. The
// field all the others resolve to comes first.
func (t *Table) Synonyms(name string) []string {
	return t.AliasesOf(t.ResolveFieldAlias(name))
}

// FieldType returns the declared type of name, or "" if it has none.
// Aliases are not resolved.
func (t *Table) FieldType(name string) string {
	f, _ := t.def.Field(name)
	return f.Type
}

// TypeForValue returns the declared type of name. Untyped fields get the
// type guessed from value.
func (t *Table) TypeForValue(name, value string) string {
	if typ := t.FieldType(name); typ != "" {
		return typ
	}
	return t.s.reg.GuessType(value, nil)
}

// IsValidFieldValue reports whether value is valid for the declared type
// of name. Undeclared fields accept anything.
func (t *Table) IsValidFieldValue(name, value string) bool {
	typ := t.FieldType(name)
	if typ == "" {
		return true
	}
	return t.s.reg.Validate(typ, value)
}

// FormatForSorting returns the key stored in the field index for value.
// Aliases are resolved first. Untyped fields keep the raw value. Keys are
// cut to fieldname.MaxBytes, the width of the index column.
func (t *Table) FormatForSorting(name, value string) string {
	if typ := t.FieldType(t.ResolveFieldAlias(name)); typ != "" {
		value = t.s.reg.FormatForSorting(typ, value)
	}
	if value == "" {
		return ""
	}
	return fieldname.Truncate(value, fieldname.MaxBytes)
}

// FormatForDisplay formats every item of v for display as field name.
// Aliases are resolved first; untyped items get a guessed type each.
func (t *Table) FormatForDisplay(name string, v schema.Value) schema.Value {
	f, _ := t.def.Field(t.ResolveFieldAlias(name))
	return schema.Map(v, func(item string) string {
		return t.formatItem(item, f.Type, f.Options)
	})
}

func (t *Table) formatItem(value, typ string, options []string) string {
	if typ == "" {
		typ = t.s.reg.GuessType(value, nil)
	}
	return t.s.reg.FormatForDisplay(typ, value, options)
}

// FormatRecordForDisplay returns a copy of r with every field formatted.
func (t *Table) FormatRecordForDisplay(r *schema.Record) *schema.Record {
	out := schema.NewRecord()
	for _, name := range r.Fields() {
		v, _ := r.Get(name)
		out.Set(name, t.FormatForDisplay(name, v))
	}
	return out
}

// Registry returns the type registry the table formats with.
func (t *Table) Registry() *types.Registry { return t.s.reg }
