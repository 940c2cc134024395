package filter

import "math"

// Defensive field extraction helpers. Configs may be arbitrary deserialized
// JSON, so every access type-checks.

func stringField(c Config, key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

func boolField(c Config, key string, def bool) bool {
	if v, ok := c[key].(bool); ok {
		return v
	}
	return def
}

// numberField accepts the numeric types JSON decoding and programmatic
// construction produce. The second result is false for non-numbers and
// non-finite floats.
func numberField(c Config, key string) (float64, bool) {
	switch v := c[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// stringSlice converts a []string or []any-of-strings value. The second
// result is false when v is neither, or when any element is not a string.
func stringSlice(v any) ([]string, bool) {
	switch vals := v.(type) {
	case []string:
		out := make([]string, len(vals))
		copy(out, vals)
		return out, true
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// configSlice converts the "filters" field of a composite config into child
// configs. The second result is false when v is not a list of objects.
func configSlice(v any) ([]Config, bool) {
	switch vals := v.(type) {
	case []Config:
		out := make([]Config, len(vals))
		copy(out, vals)
		return out, true
	case []map[string]any:
		out := make([]Config, 0, len(vals))
		for _, item := range vals {
			out = append(out, Config(item))
		}
		return out, true
	case []any:
		out := make([]Config, 0, len(vals))
		for _, item := range vals {
			switch m := item.(type) {
			case Config:
				out = append(out, m)
			case map[string]any:
				out = append(out, Config(m))
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}
