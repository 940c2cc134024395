package filter

import (
	"fmt"
	"time"

	"github.com/starford/ansuz/internal/models"
)

// Note timestamp fields a DateRangeFilter can target.
const (
	FieldCreatedAt  = "created_at"
	FieldModifiedAt = "modified_at"
)

// Named date-range presets. Presets resolve to concrete bounds at evaluation
// time, so a saved TODAY filter always matches the day it runs on.
const (
	PresetToday      = "TODAY"
	PresetYesterday  = "YESTERDAY"
	PresetLast7Days  = "LAST_7_DAYS"
	PresetLast30Days = "LAST_30_DAYS"
	PresetLast90Days = "LAST_90_DAYS"
	PresetThisWeek   = "THIS_WEEK"
	PresetLastWeek   = "LAST_WEEK"
	PresetThisMonth  = "THIS_MONTH"
	PresetLastMonth  = "LAST_MONTH"
	PresetThisYear   = "THIS_YEAR"
	PresetLastYear   = "LAST_YEAR"
)

var datePresets = map[string]struct{}{
	PresetToday:      {},
	PresetYesterday:  {},
	PresetLast7Days:  {},
	PresetLast30Days: {},
	PresetLast90Days: {},
	PresetThisWeek:   {},
	PresetLastWeek:   {},
	PresetThisMonth:  {},
	PresetLastMonth:  {},
	PresetThisYear:   {},
	PresetLastYear:   {},
}

// DateRangeFilter matches notes whose created_at or modified_at timestamp
// falls inside an inclusive range given either as a named preset or as
// explicit unix-second bounds.
type DateRangeFilter struct {
	cfg    Config
	field  string
	preset string

	start, end       int64
	hasStart, hasEnd bool

	now func() time.Time
}

// NewDateRange builds a DateRangeFilter from a raw config. Construction never
// fails; malformed fields are reported by Validate.
func NewDateRange(cfg Config) *DateRangeFilter {
	f := &DateRangeFilter{
		cfg: cfg.Clone(),
		now: time.Now,
	}
	f.field, _ = stringField(cfg, "field")
	f.preset, _ = stringField(cfg, "preset")
	if v, ok := numberField(cfg, "start"); ok {
		f.start, f.hasStart = int64(v), true
	}
	if v, ok := numberField(cfg, "end"); ok {
		f.end, f.hasEnd = int64(v), true
	}
	return f
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// weekStart returns the Monday 00:00 of t's week.
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return dayStart(t).AddDate(0, 0, -offset)
}

// resolve returns the effective inclusive bounds. Presets are recomputed
// against the clock on every call.
func (f *DateRangeFilter) resolve() (start, end int64, hasStart, hasEnd bool) {
	if f.preset == "" {
		return f.start, f.end, f.hasStart, f.hasEnd
	}

	now := f.now()
	span := func(from, to time.Time) (int64, int64, bool, bool) {
		return from.Unix(), to.Unix() - 1, true, true
	}

	switch f.preset {
	case PresetToday:
		s := dayStart(now)
		return span(s, s.AddDate(0, 0, 1))
	case PresetYesterday:
		s := dayStart(now).AddDate(0, 0, -1)
		return span(s, s.AddDate(0, 0, 1))
	case PresetLast7Days:
		return now.AddDate(0, 0, -7).Unix(), now.Unix(), true, true
	case PresetLast30Days:
		return now.AddDate(0, 0, -30).Unix(), now.Unix(), true, true
	case PresetLast90Days:
		return now.AddDate(0, 0, -90).Unix(), now.Unix(), true, true
	case PresetThisWeek:
		s := weekStart(now)
		return span(s, s.AddDate(0, 0, 7))
	case PresetLastWeek:
		s := weekStart(now).AddDate(0, 0, -7)
		return span(s, s.AddDate(0, 0, 7))
	case PresetThisMonth:
		s := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return span(s, s.AddDate(0, 1, 0))
	case PresetLastMonth:
		s := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
		return span(s, s.AddDate(0, 1, 0))
	case PresetThisYear:
		s := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return span(s, s.AddDate(1, 0, 0))
	case PresetLastYear:
		s := time.Date(now.Year()-1, 1, 1, 0, 0, 0, 0, now.Location())
		return span(s, s.AddDate(1, 0, 0))
	}
	// Unknown preset: unbounded. Validate reports it.
	return 0, 0, false, false
}

// Matches performs an inclusive bounds check on the configured field.
func (f *DateRangeFilter) Matches(n models.Note) bool {
	var v int64
	switch f.field {
	case FieldCreatedAt:
		v = n.CreatedAt
	case FieldModifiedAt:
		v = n.ModifiedAt
	default:
		return false
	}

	start, end, hasStart, hasEnd := f.resolve()
	if hasStart && v < start {
		return false
	}
	if hasEnd && v > end {
		return false
	}
	return true
}

// MatchesWithContent is identical to Matches; timestamps live in metadata.
func (f *DateRangeFilter) MatchesWithContent(n models.NoteWithContent) bool {
	return f.Matches(n.Note)
}

// Apply returns the notes matching the filter.
func (f *DateRangeFilter) Apply(notes []models.Note) []models.Note {
	return applyFilter(f, notes)
}

// ApplyWithContent returns the content-carrying notes matching the filter.
func (f *DateRangeFilter) ApplyWithContent(notes []models.NoteWithContent) []models.NoteWithContent {
	return applyFilterWithContent(f, notes)
}

// Serialize returns a deep copy of the original config.
func (f *DateRangeFilter) Serialize() Config {
	return f.cfg.Clone()
}

// Validate re-runs the date-range schema checks against the stored config.
func (f *DateRangeFilter) Validate() ValidationResult {
	return DateRangeSchema(f.cfg)
}

// Describe returns a one-line summary of the criteria.
func (f *DateRangeFilter) Describe() string {
	if f.preset != "" {
		return fmt.Sprintf("%s within %s", f.field, f.preset)
	}
	format := func(v int64) string {
		return time.Unix(v, 0).Format("2006-01-02")
	}
	switch {
	case f.hasStart && f.hasEnd:
		return fmt.Sprintf("%s between %s and %s", f.field, format(f.start), format(f.end))
	case f.hasStart:
		return fmt.Sprintf("%s after %s", f.field, format(f.start))
	case f.hasEnd:
		return fmt.Sprintf("%s before %s", f.field, format(f.end))
	}
	return fmt.Sprintf("%s in any range", f.field)
}

// Clone returns an independent deep copy.
func (f *DateRangeFilter) Clone() Filter {
	c := NewDateRange(f.cfg)
	c.now = f.now
	return c
}
