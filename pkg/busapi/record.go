package busapi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is a loosely typed JSON object as returned by the backend
type Record map[string]interface{}

// UnwrapPayload returns payload.data when present, otherwise the payload itself
func UnwrapPayload(payload interface{}) interface{} {
	if obj, ok := payload.(map[string]interface{}); ok {
		if data, ok := obj["data"]; ok && data != nil {
			return data
		}
	}
	return payload
}

// ExtractResults pulls a list out of the envelopes the backend uses:
// a bare array, {results: [...]}, {data: [...]} or {data: {results: [...]}}.
func ExtractResults(payload interface{}) []Record {
	data := UnwrapPayload(payload)
	if list, ok := data.([]interface{}); ok {
		return toRecords(list)
	}
	if obj, ok := data.(map[string]interface{}); ok {
		if list, ok := obj["results"].([]interface{}); ok {
			return toRecords(list)
		}
		if list, ok := obj["data"].([]interface{}); ok {
			return toRecords(list)
		}
	}
	return []Record{}
}

// ExtractRecord unwraps a single object response
func ExtractRecord(payload interface{}) Record {
	if obj, ok := UnwrapPayload(payload).(map[string]interface{}); ok {
		return Record(obj)
	}
	return Record{}
}

func toRecords(list []interface{}) []Record {
	records := make([]Record, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]interface{}); ok {
			records = append(records, Record(obj))
		}
	}
	return records
}

// Has reports whether the key is present with a non-null value
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// String returns the value as text. Numbers are formatted without exponent.
func (r Record) String(key string) string {
	return Stringify(r[key])
}

// FirstString returns the first non-empty string among the keys
func (r Record) FirstString(keys ...string) string {
	for _, key := range keys {
		if s := r.String(key); s != "" {
			return s
		}
	}
	return ""
}

// Float returns the value as a number, parsing strings when needed
func (r Record) Float(key string) float64 {
	f, _ := toFloat(r[key])
	return f
}

// Int returns the value truncated to an int
func (r Record) Int(key string) int {
	return int(r.Float(key))
}

// Object returns a nested object, or nil
func (r Record) Object(key string) Record {
	if obj, ok := r[key].(map[string]interface{}); ok {
		return Record(obj)
	}
	return nil
}

// List returns a nested array, or nil
func (r Record) List(key string) []interface{} {
	if list, ok := r[key].([]interface{}); ok {
		return list
	}
	return nil
}

// Strings returns a nested array with every element stringified
func (r Record) Strings(key string) []string {
	list := r.List(key)
	if list == nil {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s := Stringify(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Stringify formats a decoded JSON scalar as text
func Stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	case int:
		return float64(val), true
	}
	return 0, false
}

// Truthy mirrors how the backend's optional fields are treated: absent, null,
// false, zero and "" all count as missing.
func Truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case float64:
		return val != 0
	case bool:
		return val
	}
	return true
}
