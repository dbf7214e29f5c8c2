package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one row of data: field names mapped to values, in the order the
// fields were first set. The zero Record is empty and ready to use.
type Record struct {
	names  []string
	values map[string]Value
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{}
}

// Set stores v under name. Overwriting a field keeps its original position.
func (r *Record) Set(name string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = v
}

// Get returns the value stored under name.
func (r *Record) Get(name string) (Value, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[name]
	return v, ok
}

// Has reports whether name is set.
func (r *Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Fields returns the field names in insertion order.
func (r *Record) Fields() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Clone returns a copy of r.
func (r *Record) Clone() *Record {
	out := NewRecord()
	for _, name := range r.Fields() {
		v, _ := r.Get(name)
		out.Set(name, v)
	}
	return out
}

// MarshalJSON encodes the record as a JSON object with keys in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalString(name)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := MarshalValue(r.values[name])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object")
	}

	*r = Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record key must be a string, got %T", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("record key %q: %w", name, err)
		}
		v, err := UnmarshalValue(raw)
		if err != nil {
			return fmt.Errorf("record key %q: %w", name, err)
		}
		r.Set(name, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// ParseRecord decodes a record stored by MarshalJSON.
func ParseRecord(data []byte) (*Record, error) {
	r := NewRecord()
	if err := r.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	return r, nil
}
