package parser

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// object is a decoded JSON object. Numbers are kept as json.Number so
// prices and ratings render exactly as the service sent them.
type object map[string]any

// decodeObject decodes data into an object.
func decodeObject(data []byte) (object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj object
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errNotJSONObject
	}
	return obj, nil
}

// obj returns the nested object under key, or nil.
func (o object) obj(key string) object {
	if m, ok := o[key].(map[string]any); ok {
		return object(m)
	}
	return nil
}

// list returns the objects in the array under key, skipping other values.
func (o object) list(key string) []object {
	arr, ok := o[key].([]any)
	if !ok {
		return nil
	}
	out := make([]object, 0, len(arr))
	for _, v := range arr {
		if m, ok := v.(map[string]any); ok {
			out = append(out, object(m))
		}
	}
	return out
}

// texts returns the array under key rendered as strings.
func (o object) texts(key string) []string {
	arr, ok := o[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s := text(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// has reports whether key is present.
func (o object) has(key string) bool {
	_, ok := o[key]
	return ok
}

// str returns the value under key rendered as a string.
func (o object) str(key string) string {
	return text(o[key])
}

// text renders a decoded JSON value as a cell string.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := text(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
