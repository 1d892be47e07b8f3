package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

// errNotObject is returned when Fields is decoded from a non-object JSON value.
var errNotObject = errors.New("fields: expected a JSON object")

// Fields is an insertion-ordered string map.
// Setting an existing key replaces its value but keeps its position, so the
// column order of an export follows the order in which fields were first seen.
//
// The zero value is ready to use.
type Fields struct {
	keys   []string
	values map[string]string
}

// NewFields creates an empty Fields with room for n keys.
func NewFields(n int) Fields {
	return Fields{
		keys:   make([]string, 0, n),
		values: make(map[string]string, n),
	}
}

// Set stores value under key. Empty keys are ignored.
func (f *Fields) Set(key, value string) {
	if key == "" {
		return
	}
	if f.values == nil {
		f.values = make(map[string]string)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Get returns the value for key and whether it exists.
func (f Fields) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Value returns the value for key, or "" when absent.
func (f Fields) Value(key string) string {
	return f.values[key]
}

// Keys returns the keys in insertion order.
// The returned slice is a copy.
func (f Fields) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Len returns the number of keys.
func (f Fields) Len() int {
	return len(f.keys)
}

// Merge copies every key of other into f, in other's order.
func (f *Fields) Merge(other Fields) {
	for _, k := range other.keys {
		f.Set(k, other.values[k])
	}
}

// Clone returns a deep copy of f.
func (f Fields) Clone() Fields {
	c := NewFields(len(f.keys))
	c.Merge(f)
	return c
}

// MarshalJSON encodes the fields as a JSON object preserving key order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(f.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the document's key order.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*f = Fields{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errNotObject
	}
	out := NewFields(0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string) //nolint:errcheck // object keys are always strings
		var value string
		if err := dec.Decode(&value); err != nil {
			return err
		}
		out.Set(key, value)
	}
	*f = out
	return nil
}

// ColumnUnion returns the union of field keys across records in
// first-appearance order.
func ColumnUnion(records []Record) []string {
	seen := make(map[string]bool)
	cols := make([]string, 0)
	for _, r := range records {
		for _, k := range r.Fields.keys {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}
