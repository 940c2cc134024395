// Package filter implements the composable note-filter engine: the Filter
// contract, the four built-in filter kinds, and the pure schema validators
// that guard construction from raw configuration.
package filter

import "github.com/starford/ansuz/internal/models"

// Filter type discriminators. These values appear in persisted configs and
// must not be renamed.
const (
	TypeTag       = "TAG"
	TypeDateRange = "DATE_RANGE"
	TypeContent   = "CONTENT"
	TypeComposite = "COMPOSITE"
)

// Boolean operators shared by TagFilter and CompositeFilter.
const (
	OpAnd = "AND"
	OpOr  = "OR"
	OpNot = "NOT"
)

// Config is a raw filter configuration: the wire and storage shape before a
// type is known. Concrete fields are interpreted by the filter the "type"
// discriminator selects.
type Config map[string]any

// Type returns the "type" discriminator, or empty string when absent or not
// a string.
func (c Config) Type() string {
	t, _ := c["type"].(string)
	return t
}

// Clone returns a deep copy sharing no maps or slices with the original.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Config:
		return val.Clone()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case []Config:
		out := make([]Config, len(val))
		for i, item := range val {
			out[i] = item.Clone()
		}
		return out
	default:
		return val
	}
}

// ValidationResult reports the outcome of config or instance validation.
// Errors carries every violation found, not just the first.
type ValidationResult struct {
	Valid  bool     `json:"isValid"`
	Errors []string `json:"errors"`
}

func validResult() ValidationResult {
	return ValidationResult{Valid: true, Errors: []string{}}
}

func invalidResult(errs []string) ValidationResult {
	return ValidationResult{Valid: false, Errors: errs}
}

// Filter is the contract every filter kind implements. Filters are immutable
// after construction; all methods are pure and safe for concurrent use.
type Filter interface {
	// Apply returns the notes matching the filter, preserving input order.
	Apply(notes []models.Note) []models.Note
	// ApplyWithContent is Apply over content-carrying notes.
	ApplyWithContent(notes []models.NoteWithContent) []models.NoteWithContent
	// Matches reports whether a note's metadata satisfies the filter.
	Matches(n models.Note) bool
	// MatchesWithContent reports whether a note (including body) satisfies
	// the filter.
	MatchesWithContent(n models.NoteWithContent) bool
	// Serialize returns a config deep-equal to the one the filter was built
	// from. The result shares no structure with the filter's internal state.
	Serialize() Config
	// Validate re-checks the filter's own configuration.
	Validate() ValidationResult
	// Describe returns a human-readable one-line summary.
	Describe() string
	// Clone returns an independent deep copy.
	Clone() Filter
}

// Builder constructs a Filter from a raw config. CompositeFilter receives one
// at construction so it never depends on the registry package directly.
type Builder func(Config) (Filter, error)

// applyFilter implements Apply in terms of Matches; shared by all kinds.
func applyFilter(f Filter, notes []models.Note) []models.Note {
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if f.Matches(n) {
			out = append(out, n)
		}
	}
	return out
}

func applyFilterWithContent(f Filter, notes []models.NoteWithContent) []models.NoteWithContent {
	out := make([]models.NoteWithContent, 0, len(notes))
	for _, n := range notes {
		if f.MatchesWithContent(n) {
			out = append(out, n)
		}
	}
	return out
}
