package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeJSON parses a single JSON document into plain Go values. Integral
// numbers become int64 and other numbers float64, the same types the
// executors return for numeric columns.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode JSON value: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("failed to decode JSON value: trailing data")
	}
	return NormalizeNumbers(v), nil
}

// NormalizeNumbers replaces json.Number values in v, including nested
// ones, with int64 or float64.
func NormalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case []any:
		for i := range val {
			val[i] = NormalizeNumbers(val[i])
		}
		return val
	case map[string]any:
		for k, item := range val {
			val[k] = NormalizeNumbers(item)
		}
		return val
	default:
		return v
	}
}
