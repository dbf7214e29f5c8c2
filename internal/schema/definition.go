package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// TextKeyPrefix starts the key of every text block in a Definition. Field
// names never begin with an underscore, so the keys cannot collide.
const TextKeyPrefix = "_text"

// FieldDef describes one field of a table.
//
// A field is either a data field (Type, Options) or an alias of another field
// (AliasOf), never both.
type FieldDef struct {
	Name    string   `json:"name"`
	Type    string   `json:"type,omitempty"`
	Options []string `json:"options,omitempty"`
	AliasOf string   `json:"alias,omitempty"`
	Comment string   `json:"comment,omitempty"`
}

// IsAlias reports whether the field is an alias of another field.
func (f FieldDef) IsAlias() bool { return f.AliasOf != "" }

// Entry is one item of a Definition: a field or a block of other text.
type Entry struct {
	Key   string    `json:"key"`
	Field *FieldDef `json:"field,omitempty"`
	Text  string    `json:"text,omitempty"`
}

// IsText reports whether the entry is a text block.
func (e Entry) IsText() bool { return e.Field == nil }

// Definition is a parsed table definition: field definitions in source order,
// optionally interleaved with the page text between them.
type Definition struct {
	keys   []string
	fields map[string]FieldDef
	texts  map[string]string
}

// NewDefinition returns an empty definition.
func NewDefinition() *Definition {
	return &Definition{}
}

// AddField adds or replaces a field. A redefined field keeps its position.
func (d *Definition) AddField(f FieldDef) {
	if d.fields == nil {
		d.fields = make(map[string]FieldDef)
	}
	if _, ok := d.fields[f.Name]; !ok {
		d.keys = append(d.keys, f.Name)
	}
	d.fields[f.Name] = f
}

// AddText appends a text block and returns its key.
func (d *Definition) AddText(text string) string {
	if d.texts == nil {
		d.texts = make(map[string]string)
	}
	key := TextKeyPrefix + strconv.Itoa(len(d.texts))
	d.texts[key] = text
	d.keys = append(d.keys, key)
	return key
}

// Field returns the named field.
func (d *Definition) Field(name string) (FieldDef, bool) {
	if d == nil {
		return FieldDef{}, false
	}
	f, ok := d.fields[name]
	return f, ok
}

// HasField reports whether name is defined, as a data field or an alias.
func (d *Definition) HasField(name string) bool {
	_, ok := d.Field(name)
	return ok
}

// Fields returns the field definitions in source order. Aliases are included
// only when includeAliases is set.
func (d *Definition) Fields(includeAliases bool) []FieldDef {
	if d == nil {
		return nil
	}
	var out []FieldDef
	for _, key := range d.keys {
		f, ok := d.fields[key]
		if !ok || (f.IsAlias() && !includeAliases) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// FieldNames returns the names of Fields(includeAliases).
func (d *Definition) FieldNames(includeAliases bool) []string {
	fields := d.Fields(includeAliases)
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Entries returns fields and text blocks in source order.
func (d *Definition) Entries() []Entry {
	if d == nil {
		return nil
	}
	out := make([]Entry, 0, len(d.keys))
	for _, key := range d.keys {
		if f, ok := d.fields[key]; ok {
			out = append(out, Entry{Key: key, Field: &f})
			continue
		}
		out = append(out, Entry{Key: key, Text: d.texts[key]})
	}
	return out
}

// Len returns the number of entries, text blocks included.
func (d *Definition) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// MarshalJSON encodes the definition as its entry list.
func (d *Definition) MarshalJSON() ([]byte, error) {
	entries := d.Entries()
	if entries == nil {
		entries = []Entry{}
	}
	return json.Marshal(entries)
}

// UnmarshalJSON decodes an entry list written by MarshalJSON.
func (d *Definition) UnmarshalJSON(data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*d = Definition{}
	for i, e := range entries {
		if e.Field != nil {
			if e.Field.Name == "" {
				return fmt.Errorf("entry %d: field without a name", i)
			}
			d.AddField(*e.Field)
			continue
		}
		d.AddText(e.Text)
	}
	return nil
}

// ParseDefinition decodes a definition stored by MarshalJSON.
func ParseDefinition(data []byte) (*Definition, error) {
	d := NewDefinition()
	if err := d.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	return d, nil
}
