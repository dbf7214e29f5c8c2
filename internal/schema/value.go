package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Value is a field value in a data row.
//
// This is a sealed interface: only Scalar and Multi implement it. Multi holds
// the items of a "{a,b,c}" value in source order. Consumers switch on the
// concrete type rather than treating a one-item Multi as a Scalar.
type Value interface {
	fieldValue() // Sealed
}

// Scalar is a single field value.
type Scalar string

func (Scalar) fieldValue() {}

// Multi is a multi-valued field.
type Multi []string

func (Multi) fieldValue() {}

// Items returns the individual values of v. A Scalar yields one item.
func Items(v Value) []string {
	switch val := v.(type) {
	case Scalar:
		return []string{string(val)}
	case Multi:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return nil
	}
}

// Join flattens v to one string, placing sep between multiple items.
func Join(v Value, sep string) string {
	switch val := v.(type) {
	case Scalar:
		return string(val)
	case Multi:
		return strings.Join(val, sep)
	default:
		return ""
	}
}

// Map applies fn to every item of v, keeping its shape.
func Map(v Value, fn func(string) string) Value {
	switch val := v.(type) {
	case Scalar:
		return Scalar(fn(string(val)))
	case Multi:
		out := make(Multi, len(val))
		for i, s := range val {
			out[i] = fn(s)
		}
		return out
	default:
		return v
	}
}

// MarshalValue encodes a Scalar as a JSON string and a Multi as an array of
// strings. HTML characters are not escaped, so stored wikitext stays readable.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Scalar:
		return marshalString(string(val))
	case Multi:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, s := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := marshalString(s)
			if err != nil {
				return nil, fmt.Errorf("multi[%d]: %w", i, err)
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown value type: %T", v)
	}
}

// UnmarshalValue decodes the output of MarshalValue.
func UnmarshalValue(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return Scalar(s), nil
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		if items == nil {
			items = []string{}
		}
		return Multi(items), nil
	default:
		return nil, fmt.Errorf("field value must be a string or array of strings: %s", data)
	}
}

func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
