package filter

import (
	"fmt"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// TagFilter matches notes by their tag set. Tags listed in excludeTags reject
// a note unconditionally; the operator only governs the required tags list.
type TagFilter struct {
	cfg           Config
	tags          []string
	excludeTags   []string
	operator      string
	caseSensitive bool
}

// NewTag builds a TagFilter from a raw config. Construction never fails;
// malformed fields are reported by Validate.
func NewTag(cfg Config) *TagFilter {
	f := &TagFilter{
		cfg:      cfg.Clone(),
		operator: OpOr,
	}
	if tags, ok := stringSlice(cfg["tags"]); ok {
		f.tags = tags
	}
	if excl, ok := stringSlice(cfg["excludeTags"]); ok {
		f.excludeTags = excl
	}
	if op, ok := stringField(cfg, "operator"); ok {
		f.operator = op
	}
	f.caseSensitive = boolField(cfg, "caseSensitive", false)
	return f
}

func (f *TagFilter) normalize(tag string) string {
	if f.caseSensitive {
		return tag
	}
	return strings.ToLower(tag)
}

// Matches applies exclusion first, then the required-tags check. A note with
// an excluded tag never matches, regardless of operator.
func (f *TagFilter) Matches(n models.Note) bool {
	noteTags := make(map[string]struct{}, len(n.Tags))
	for _, t := range n.Tags {
		noteTags[f.normalize(t)] = struct{}{}
	}

	for _, excl := range f.excludeTags {
		if _, ok := noteTags[f.normalize(excl)]; ok {
			return false
		}
	}

	if len(f.tags) == 0 {
		return true
	}

	if f.operator == OpAnd {
		for _, t := range f.tags {
			if _, ok := noteTags[f.normalize(t)]; !ok {
				return false
			}
		}
		return true
	}
	for _, t := range f.tags {
		if _, ok := noteTags[f.normalize(t)]; ok {
			return true
		}
	}
	return false
}

// MatchesWithContent is identical to Matches; tags live in metadata.
func (f *TagFilter) MatchesWithContent(n models.NoteWithContent) bool {
	return f.Matches(n.Note)
}

// Apply returns the notes matching the filter.
func (f *TagFilter) Apply(notes []models.Note) []models.Note {
	return applyFilter(f, notes)
}

// ApplyWithContent returns the content-carrying notes matching the filter.
func (f *TagFilter) ApplyWithContent(notes []models.NoteWithContent) []models.NoteWithContent {
	return applyFilterWithContent(f, notes)
}

// Serialize returns a deep copy of the original config.
func (f *TagFilter) Serialize() Config {
	return f.cfg.Clone()
}

// Validate re-runs the tag schema checks against the stored config.
func (f *TagFilter) Validate() ValidationResult {
	return TagSchema(f.cfg)
}

// Describe returns a one-line summary of the criteria.
func (f *TagFilter) Describe() string {
	var parts []string
	if len(f.tags) > 0 {
		word := "any of"
		if f.operator == OpAnd {
			word = "all of"
		}
		parts = append(parts, fmt.Sprintf("tagged with %s [%s]", word, strings.Join(f.tags, ", ")))
	}
	if len(f.excludeTags) > 0 {
		parts = append(parts, fmt.Sprintf("excluding [%s]", strings.Join(f.excludeTags, ", ")))
	}
	if len(parts) == 0 {
		return "any tags"
	}
	return strings.Join(parts, ", ")
}

// Clone returns an independent deep copy.
func (f *TagFilter) Clone() Filter {
	return NewTag(f.cfg)
}
