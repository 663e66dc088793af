package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// decodeJSON decodes data keeping integral numbers as int, so they check
// against int without coercion.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// parseArgs decodes a JSON array of positional arguments. Empty means none.
func parseArgs(s string) ([]any, error) {
	if s == "" {
		return nil, nil
	}
	var raw []any
	if err := decodeJSON([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("--args must be a JSON array: %w", err)
	}
	return normalizeSlice(raw), nil
}

// parseKwargs decodes a JSON object of keyword arguments. Empty means none.
func parseKwargs(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var raw map[string]any
	if err := decodeJSON([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("--kwargs must be a JSON object: %w", err)
	}
	return normalizeMap(raw), nil
}

// normalize replaces json.Number with int or float64 throughout v.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
			return int(i)
		}
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	case []any:
		return normalizeSlice(t)
	case map[string]any:
		return normalizeMap(t)
	default:
		return v
	}
}

func normalizeSlice(s []any) []any {
	if s == nil {
		return nil
	}
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = normalize(v)
	}
	return out
}

func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}
