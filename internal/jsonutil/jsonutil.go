// Package jsonutil provides helpers for extracting typed values from
// unstructured JSON maps (map[string]any).
package jsonutil

import "encoding/json"

// IntFromAny converts various numeric types to int.
func IntFromAny(value any) int {
	switch num := value.(type) {
	case float64:
		return int(num)
	case int:
		return num
	case int64:
		return int(num)
	case json.Number:
		i, _ := num.Int64()
		return int(i)
	default:
		return 0
	}
}

// StringFromAny safely converts any value to string.
func StringFromAny(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// MapFromAny safely converts any value to a JSON object map.
func MapFromAny(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

// NestedInt walks the given keys through nested objects and converts the
// final value to int. Returns 0 if any step is missing or mistyped.
func NestedInt(data map[string]any, keys ...string) int {
	current := data
	for i, key := range keys {
		if i == len(keys)-1 {
			return IntFromAny(current[key])
		}
		next, ok := current[key].(map[string]any)
		if !ok {
			return 0
		}
		current = next
	}
	return 0
}

// NestedString walks the given keys through nested objects and returns the
// final value as a string. Returns "" if any step is missing or mistyped.
func NestedString(data map[string]any, keys ...string) string {
	current := data
	for i, key := range keys {
		if i == len(keys)-1 {
			return StringFromAny(current[key])
		}
		next, ok := current[key].(map[string]any)
		if !ok {
			return ""
		}
		current = next
	}
	return ""
}
