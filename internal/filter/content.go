package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// Text comparison operators for ContentFilter.
const (
	OpEquals       = "EQUALS"
	OpNotEquals    = "NOT_EQUALS"
	OpContains     = "CONTAINS"
	OpNotContains  = "NOT_CONTAINS"
	OpStartsWith   = "STARTS_WITH"
	OpEndsWith     = "ENDS_WITH"
	OpMatchesRegex = "MATCHES_REGEX"
)

var contentOperators = map[string]struct{}{
	OpEquals:       {},
	OpNotEquals:    {},
	OpContains:     {},
	OpNotContains:  {},
	OpStartsWith:   {},
	OpEndsWith:     {},
	OpMatchesRegex: {},
}

// ContentFilter matches notes by text comparison against the title and,
// in content-aware mode, the body. A regex that fails to compile does not
// fail construction; the error is held back until Validate.
type ContentFilter struct {
	cfg           Config
	text          string
	operator      string
	caseSensitive bool
	searchTitle   bool
	searchContent bool

	re    *regexp.Regexp
	reErr error
}

// NewContent builds a ContentFilter from a raw config. Construction never
// fails, even on an invalid regex pattern.
func NewContent(cfg Config) *ContentFilter {
	f := &ContentFilter{
		cfg:      cfg.Clone(),
		operator: OpContains,
	}
	query, _ := stringField(cfg, "query")
	pattern, _ := stringField(cfg, "pattern")
	f.text = query
	if f.text == "" {
		f.text = pattern
	}
	if op, ok := stringField(cfg, "operator"); ok {
		f.operator = op
	}
	f.caseSensitive = boolField(cfg, "caseSensitive", false)
	f.searchTitle = boolField(cfg, "searchTitle", true)
	f.searchContent = boolField(cfg, "searchContent", true)

	if f.operator == OpMatchesRegex {
		expr := pattern
		if expr == "" {
			expr = query
		}
		if !f.caseSensitive {
			expr = "(?i)" + expr
		}
		f.re, f.reErr = regexp.Compile(expr)
	}
	return f
}

// matchText compares a single text field against the configured criterion.
func (f *ContentFilter) matchText(s string) bool {
	if f.operator == OpMatchesRegex {
		return f.re != nil && f.re.MatchString(s)
	}

	text, query := s, f.text
	if !f.caseSensitive {
		text = strings.ToLower(text)
		query = strings.ToLower(query)
	}

	switch f.operator {
	case OpEquals:
		return text == query
	case OpNotEquals:
		return text != query
	case OpContains:
		return strings.Contains(text, query)
	case OpNotContains:
		return !strings.Contains(text, query)
	case OpStartsWith:
		return strings.HasPrefix(text, query)
	case OpEndsWith:
		return strings.HasSuffix(text, query)
	}
	return false
}

// Matches checks the title only; the body is unavailable in metadata mode.
func (f *ContentFilter) Matches(n models.Note) bool {
	if !f.searchTitle {
		return false
	}
	return f.matchText(n.Title)
}

// MatchesWithContent ORs the match across whichever of title and content are
// enabled.
func (f *ContentFilter) MatchesWithContent(n models.NoteWithContent) bool {
	if f.searchTitle && f.matchText(n.Title) {
		return true
	}
	if f.searchContent && f.matchText(n.Content) {
		return true
	}
	return false
}

// Apply returns the notes matching the filter.
func (f *ContentFilter) Apply(notes []models.Note) []models.Note {
	return applyFilter(f, notes)
}

// ApplyWithContent returns the content-carrying notes matching the filter.
func (f *ContentFilter) ApplyWithContent(notes []models.NoteWithContent) []models.NoteWithContent {
	return applyFilterWithContent(f, notes)
}

// Serialize returns a deep copy of the original config.
func (f *ContentFilter) Serialize() Config {
	return f.cfg.Clone()
}

// Validate re-runs the content schema checks. A regex compile failure
// swallowed at construction surfaces here.
func (f *ContentFilter) Validate() ValidationResult {
	res := ContentSchema(f.cfg)
	if f.reErr != nil && res.Valid {
		return invalidResult([]string{fmt.Sprintf("pattern: Invalid regex pattern: %v", f.reErr)})
	}
	return res
}

// Describe returns a one-line summary of the criteria.
func (f *ContentFilter) Describe() string {
	targets := "title or content"
	switch {
	case f.searchTitle && !f.searchContent:
		targets = "title"
	case !f.searchTitle && f.searchContent:
		targets = "content"
	}
	return fmt.Sprintf("%s %s %q", targets, f.operator, f.text)
}

// Clone returns an independent deep copy.
func (f *ContentFilter) Clone() Filter {
	return NewContent(f.cfg)
}
