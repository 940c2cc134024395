package filterservice

import (
	"strings"

	"github.com/starford/ansuz/internal/filter"
	"github.com/starford/ansuz/internal/store"
)

// PresetPrefix is the reserved id prefix for built-in filters. Preset ids
// never collide with stored ids, and update/delete on them always fails.
const PresetPrefix = "preset:"

// presets are the built-in, read-only filter configurations. Accessors
// return deep copies so callers can never mutate these.
var presets = []store.SavedFilter{
	{
		Metadata: store.FilterMetadata{
			ID:          PresetPrefix + "today",
			Name:        "Created today",
			Description: "Notes created since midnight.",
			IsPreset:    true,
			Icon:        "calendar",
		},
		Config: filter.Config{
			"type":   filter.TypeDateRange,
			"field":  filter.FieldCreatedAt,
			"preset": filter.PresetToday,
		},
	},
	{
		Metadata: store.FilterMetadata{
			ID:          PresetPrefix + "recent",
			Name:        "Recently modified",
			Description: "Notes modified in the last 7 days.",
			IsPreset:    true,
			Icon:        "clock",
		},
		Config: filter.Config{
			"type":   filter.TypeDateRange,
			"field":  filter.FieldModifiedAt,
			"preset": filter.PresetLast7Days,
		},
	},
	{
		Metadata: store.FilterMetadata{
			ID:          PresetPrefix + "this-week",
			Name:        "Created this week",
			Description: "Notes created since Monday.",
			IsPreset:    true,
			Icon:        "calendar-week",
		},
		Config: filter.Config{
			"type":   filter.TypeDateRange,
			"field":  filter.FieldCreatedAt,
			"preset": filter.PresetThisWeek,
		},
	},
	{
		Metadata: store.FilterMetadata{
			ID:          PresetPrefix + "this-month",
			Name:        "Created this month",
			Description: "Notes created since the first of the month.",
			IsPreset:    true,
			Icon:        "calendar-month",
		},
		Config: filter.Config{
			"type":   filter.TypeDateRange,
			"field":  filter.FieldCreatedAt,
			"preset": filter.PresetThisMonth,
		},
	},
	{
		Metadata: store.FilterMetadata{
			ID:          PresetPrefix + "not-archived",
			Name:        "Not archived",
			Description: "Notes without the archived tag.",
			IsPreset:    true,
			Icon:        "inbox",
		},
		Config: filter.Config{
			"type":        filter.TypeTag,
			"excludeTags": []any{"archived"},
		},
	},
}

// IsPresetID reports whether id addresses a built-in preset.
func IsPresetID(id string) bool {
	return strings.HasPrefix(id, PresetPrefix)
}

// Presets returns deep copies of every built-in filter.
func Presets() []store.SavedFilter {
	out := make([]store.SavedFilter, len(presets))
	for i, p := range presets {
		out[i] = copyPreset(p)
	}
	return out
}

// PresetByID returns a deep copy of the preset with the given id, if any.
func PresetByID(id string) (*store.SavedFilter, bool) {
	for _, p := range presets {
		if p.Metadata.ID == id {
			c := copyPreset(p)
			return &c, true
		}
	}
	return nil, false
}

func copyPreset(p store.SavedFilter) store.SavedFilter {
	out := p
	if p.Metadata.Tags != nil {
		out.Metadata.Tags = append([]string(nil), p.Metadata.Tags...)
	}
	out.Config = p.Config.Clone()
	return out
}
