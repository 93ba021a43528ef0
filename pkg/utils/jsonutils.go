package utils

import (
	"encoding/json"
	"fmt"
)

// ParseJSON parses a JSON string into a map
func ParseJSON(jsonStr string) (map[string]interface{}, error) {
	var result map[string]interface{}
	err := json.Unmarshal([]byte(jsonStr), &result)
	if err != nil {
		return nil, fmt.Errorf("error parsing JSON: %w", err)
	}
	return result, nil
}

// GetNestedString extracts a string from a nested map, walking the keys in
// order. Returns "" without error when any key along the path is absent, so
// callers can treat optional audit-record fields uniformly.
func GetNestedString(data map[string]interface{}, keys ...string) string {
	var current interface{} = data

	for i, key := range keys {
		m, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		if i == len(keys)-1 {
			if str, ok := m[key].(string); ok {
				return str
			}
			return ""
		}
		current = m[key]
	}
	return ""
}
