package platform

import "fmt"

// ToInt64 converts a decoded numeric payload value to int64.
func ToInt64(v any) (int64, bool) {
	return toInt64(v)
}

// ToFloat64 converts a decoded numeric payload value to float64.
func ToFloat64(v any) (float64, bool) {
	return toFloat64(v)
}

// ParseString extracts a string from a decoded payload value.
func ParseString(v any) string {
	return parseString(v)
}

// ParseBool extracts a bool from a decoded payload value.
func ParseBool(v any) bool {
	return parseBool(v)
}

// ParseMap extracts a map from a decoded payload value.
func ParseMap(v any) map[string]any {
	return parseMap(v)
}

// ParseStrings extracts a string list from a decoded payload value.
// Non-string elements are skipped.
func ParseStrings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		if s, ok := v.([]string); ok {
			return append([]string(nil), s...)
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

func parseString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

func parseBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

func parseMap(value any) map[string]any {
	if value == nil {
		return nil
	}
	if m, ok := value.(map[string]any); ok {
		return m
	}
	if m, ok := value.(map[any]any); ok {
		converted := make(map[string]any, len(m))
		for key, val := range m {
			if keyString, ok := key.(string); ok {
				converted[keyString] = val
			}
		}
		return converted
	}
	return nil
}
