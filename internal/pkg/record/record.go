// Package record reads loosely-typed search provider results.
//
// Provider documents decode into map[string]any and the same datum often
// lives under several alternate keys. Record centralizes the "try these keys
// in order, treat falsy as absent" rule so callers never dig through maps by hand.
package record

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Record is a single decoded JSON object.
type Record map[string]any

// Path addresses a value nested under one or more object keys.
type Path []string

// P builds a Path.
func P(keys ...string) Path { return Path(keys) }

// From converts a decoded JSON value into a Record when it is an object.
func From(v any) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, m != nil
	case map[string]any:
		return Record(m), m != nil
	}
	return nil, false
}

// List converts a decoded JSON array into records, skipping non-objects.
func List(v any) []Record {
	items, ok := v.([]any)
	if !ok {
		if recs, ok := v.([]Record); ok {
			return recs
		}
		if maps, ok := v.([]map[string]any); ok {
			out := make([]Record, 0, len(maps))
			for _, m := range maps {
				out = append(out, Record(m))
			}
			return out
		}
		return nil
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if r, ok := From(item); ok {
			out = append(out, r)
		}
	}
	return out
}

// Lookup walks path and reports whether every key was present.
func (r Record) Lookup(path ...string) (any, bool) {
	var cur any = r
	for _, key := range path {
		m, ok := From(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the first key holding a non-empty string, or "".
func (r Record) String(keys ...string) string {
	for _, key := range keys {
		if s, ok := r[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Number returns the first truthy numeric value found along paths, or 0.
// Zero, empty and unparseable values fall through to the next path.
func (r Record) Number(paths ...Path) float64 {
	for _, p := range paths {
		v, ok := r.Lookup(p...)
		if !ok || !Truthy(v) {
			continue
		}
		if f, ok := ToFloat(v); ok && f != 0 {
			return f
		}
	}
	return 0
}

// Int is Number truncated to an int.
func (r Record) Int(paths ...Path) int {
	return int(math.Trunc(r.Number(paths...)))
}

// Map returns the nested object stored under key.
func (r Record) Map(key string) (Record, bool) {
	return From(r[key])
}

// Slice returns the array stored under key.
func (r Record) Slice(key string) ([]any, bool) {
	s, ok := r[key].([]any)
	return s, ok
}

// Truthy mirrors the usual dynamic-language notion of truthiness for
// decoded JSON: nil, false, zero, "" and empty containers are falsy.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case float32:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case map[string]any:
		return len(t) > 0
	case Record:
		return len(t) > 0
	case []any:
		return len(t) > 0
	}
	return true
}

// ToFloat coerces JSON scalars to float64. Strings such as "PKR 12,500"
// are reduced to their first numeric token, so "Rs. 12,500" is 12500 and a
// range "12,500 - 15,000" yields its lower bound.
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		return parseNumeric(t)
	}
	return 0, false
}

// numericToken matches the first number in a display string, with optional
// thousands separators.
var numericToken = regexp.MustCompile(`[-+]?\d[\d,]*(?:\.\d+)?`)

func parseNumeric(s string) (float64, bool) {
	tok := numericToken.FindString(s)
	if tok == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(tok, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
