package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Schema validators: one pure, total function per filter kind. Input is raw
// deserialized JSON, so every field is defensively type-checked. Each
// validator collects every violation in one pass instead of stopping at the
// first, and never panics.

// SchemaValidator is the signature the registry accepts for per-type schema
// validation.
type SchemaValidator func(Config) ValidationResult

// checkTagList validates an optional list-of-strings field and returns the
// parsed values when well-formed.
func checkTagList(cfg Config, key string, errs *[]string) []string {
	raw, present := cfg[key]
	if !present {
		return nil
	}
	vals, ok := stringSlice(raw)
	if !ok {
		*errs = append(*errs, key+": Must be an array of strings")
		return nil
	}
	for _, v := range vals {
		if strings.TrimSpace(v) == "" {
			*errs = append(*errs, key+": Tags must be non-empty strings")
			break
		}
	}
	return vals
}

func checkBool(cfg Config, key string, errs *[]string) {
	if raw, present := cfg[key]; present {
		if _, ok := raw.(bool); !ok {
			*errs = append(*errs, key+": Must be a boolean")
		}
	}
}

// TagSchema validates a TAG filter config.
func TagSchema(cfg Config) ValidationResult {
	var errs []string

	tags := checkTagList(cfg, "tags", &errs)
	excl := checkTagList(cfg, "excludeTags", &errs)
	if len(tags) == 0 && len(excl) == 0 {
		errs = append(errs, "At least one of tags or excludeTags is required")
	}

	if raw, present := cfg["operator"]; present {
		op, ok := raw.(string)
		if !ok || (op != OpAnd && op != OpOr) {
			errs = append(errs, fmt.Sprintf("operator: Must be %s or %s", OpAnd, OpOr))
		}
	}
	checkBool(cfg, "caseSensitive", &errs)

	if len(errs) > 0 {
		return invalidResult(errs)
	}
	return validResult()
}

// DateRangeSchema validates a DATE_RANGE filter config.
func DateRangeSchema(cfg Config) ValidationResult {
	var errs []string

	field, ok := stringField(cfg, "field")
	switch {
	case !ok || field == "":
		errs = append(errs, "field: Field is required")
	case field != FieldCreatedAt && field != FieldModifiedAt:
		errs = append(errs, fmt.Sprintf("field: Must be %s or %s", FieldCreatedAt, FieldModifiedAt))
	}

	_, presetPresent := cfg["preset"]
	if presetPresent {
		preset, ok := cfg["preset"].(string)
		if !ok {
			errs = append(errs, "preset: Must be a string")
		} else if _, known := datePresets[preset]; !known {
			errs = append(errs, fmt.Sprintf("preset: Unknown preset %q", preset))
		}
	}

	checkBound := func(key string) (float64, bool) {
		if _, present := cfg[key]; !present {
			return 0, false
		}
		v, ok := numberField(cfg, key)
		if !ok {
			errs = append(errs, key+": Must be a finite number")
			return 0, false
		}
		return v, true
	}
	start, hasStart := checkBound("start")
	end, hasEnd := checkBound("end")

	_, startPresent := cfg["start"]
	_, endPresent := cfg["end"]
	if !presetPresent && !startPresent && !endPresent {
		errs = append(errs, "Either preset or start/end is required")
	}
	if hasStart && hasEnd && start > end {
		errs = append(errs, "start: Must not be greater than end")
	}

	if len(errs) > 0 {
		return invalidResult(errs)
	}
	return validResult()
}

// ContentSchema validates a CONTENT filter config, including that a regex
// pattern compiles when the operator is MATCHES_REGEX.
func ContentSchema(cfg Config) ValidationResult {
	var errs []string

	checkText := func(key string) string {
		raw, present := cfg[key]
		if !present {
			return ""
		}
		s, ok := raw.(string)
		if !ok {
			errs = append(errs, key+": Must be a string")
			return ""
		}
		return s
	}
	query := checkText("query")
	pattern := checkText("pattern")
	if strings.TrimSpace(query) == "" && strings.TrimSpace(pattern) == "" {
		errs = append(errs, "Either query or pattern is required")
	}

	operator := OpContains
	if raw, present := cfg["operator"]; present {
		op, ok := raw.(string)
		if !ok {
			errs = append(errs, "operator: Must be a string")
		} else if _, known := contentOperators[op]; !known {
			errs = append(errs, fmt.Sprintf("operator: Unknown operator %q", op))
		} else {
			operator = op
		}
	}

	checkBool(cfg, "caseSensitive", &errs)
	checkBool(cfg, "searchTitle", &errs)
	checkBool(cfg, "searchContent", &errs)
	if !boolField(cfg, "searchTitle", true) && !boolField(cfg, "searchContent", true) {
		errs = append(errs, "At least one of searchTitle or searchContent must be enabled")
	}

	if operator == OpMatchesRegex {
		expr := pattern
		if expr == "" {
			expr = query
		}
		if expr != "" {
			if _, err := regexp.Compile(expr); err != nil {
				errs = append(errs, fmt.Sprintf("pattern: Invalid regex pattern: %v", err))
			}
		}
	}

	if len(errs) > 0 {
		return invalidResult(errs)
	}
	return validResult()
}

// CompositeSchema validates a COMPOSITE filter config's own shape. Child
// configs are checked structurally here; their type-specific validation runs
// when the registry builds each child.
func CompositeSchema(cfg Config) ValidationResult {
	var errs []string

	operator, _ := stringField(cfg, "operator")
	switch operator {
	case OpAnd, OpOr, OpNot:
	case "":
		errs = append(errs, "operator: Operator is required")
	default:
		errs = append(errs, fmt.Sprintf("operator: Must be %s, %s or %s", OpAnd, OpOr, OpNot))
	}

	raw, present := cfg["filters"]
	if !present {
		errs = append(errs, "filters: At least one filter is required")
	} else {
		children, ok := configSlice(raw)
		switch {
		case !ok:
			errs = append(errs, "filters: Must be an array of filter configs")
		case len(children) == 0:
			errs = append(errs, "filters: At least one filter is required")
		default:
			for i, child := range children {
				if child.Type() == "" {
					errs = append(errs, fmt.Sprintf("filters: Filter %d must have a type", i+1))
				}
			}
			if operator == OpNot && len(children) != 1 {
				errs = append(errs, "NOT operator must have exactly one filter")
			}
		}
	}

	if len(errs) > 0 {
		return invalidResult(errs)
	}
	return validResult()
}
