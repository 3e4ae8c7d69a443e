package platform

import (
	"fmt"
	"math"
)

// AsInt64 converts the numeric types produced by codecs and test doubles to int64.
// Floats must hold an integral value.
func AsInt64(v any) (int64, bool) {
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
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

// AsFloat64 converts the numeric types produced by codecs and test doubles to float64.
func AsFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// AsString extracts a string from an any value.
func AsString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}

// AsMap extracts a map[string]any from an any value. YAML decoders produce
// map[any]any, so string keys are copied out of those.
func AsMap(value any) (map[string]any, bool) {
	switch m := value.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		converted := make(map[string]any, len(m))
		for key, val := range m {
			if keyString, ok := key.(string); ok {
				converted[keyString] = val
			}
		}
		return converted, true
	default:
		return nil, false
	}
}
