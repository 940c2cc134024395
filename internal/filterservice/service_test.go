package filterservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/filter"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/testutil"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(testutil.TestStore(t), registry.NewDefault())
	// Deterministic ids and timestamps.
	seq := 0
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	return svc
}

func tagConfig(tags ...string) filter.Config {
	list := make([]any, len(tags))
	for i, tag := range tags {
		list[i] = tag
	}
	return filter.Config{"type": filter.TypeTag, "tags": list}
}

// nestedComposite wraps a TAG config in depth levels of composites.
func nestedComposite(depth int) filter.Config {
	cfg := map[string]any(tagConfig("x"))
	for i := 0; i < depth; i++ {
		cfg = map[string]any{
			"type":     filter.TypeComposite,
			"operator": filter.OpAnd,
			"filters":  []any{cfg},
		}
	}
	return filter.Config(cfg)
}

func TestValidateFilterConfig_Valid(t *testing.T) {
	svc := newTestService(t)
	res := svc.ValidateFilterConfig(tagConfig("work"))
	if !res.Valid || len(res.Errors) != 0 || len(res.Warnings) != 0 {
		t.Errorf("result = %+v, want clean pass", res)
	}
	if res.Depth != 0 {
		t.Errorf("depth = %d, want 0 for a leaf config", res.Depth)
	}
}

func TestValidateFilterConfig_NestingDepth(t *testing.T) {
	svc := newTestService(t)

	cases := []struct {
		depth     int
		wantValid bool
		wantWarn  bool
	}{
		{3, true, false},
		{4, true, true},
		{5, true, true},
		{6, false, false},
	}
	for _, tc := range cases {
		res := svc.ValidateFilterConfig(nestedComposite(tc.depth))
		if res.Depth != tc.depth {
			t.Errorf("depth %d: reported %d", tc.depth, res.Depth)
		}
		if res.Valid != tc.wantValid {
			t.Errorf("depth %d: valid = %v, want %v (errors: %v)", tc.depth, res.Valid, tc.wantValid, res.Errors)
		}
		if (len(res.Warnings) > 0) != tc.wantWarn {
			t.Errorf("depth %d: warnings = %v, want warn=%v", tc.depth, res.Warnings, tc.wantWarn)
		}
	}
}

func TestValidateFilterConfig_RegistryErrorsSurface(t *testing.T) {
	svc := newTestService(t)
	res := svc.ValidateFilterConfig(filter.Config{"type": filter.TypeTag})
	if res.Valid {
		t.Fatal("schema-invalid config must be invalid")
	}
	if len(res.Errors) == 0 || !strings.Contains(res.Errors[0], "tags or excludeTags") {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestSaveFilter(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sf, err := svc.SaveFilter(ctx, "Work notes", "all work", tagConfig("work"), &SaveOptions{
		Tags:  []string{"starred"},
		Icon:  "briefcase",
		Color: "#ff0000",
	})
	if err != nil {
		t.Fatalf("SaveFilter: %v", err)
	}
	if sf.Metadata.ID != "id-1" {
		t.Errorf("id = %q, want generated id-1", sf.Metadata.ID)
	}
	if sf.Metadata.CreatedAt != 1700000000 || sf.Metadata.ModifiedAt != 1700000000 {
		t.Errorf("timestamps = %d/%d", sf.Metadata.CreatedAt, sf.Metadata.ModifiedAt)
	}

	got, err := svc.GetFilter(ctx, "id-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Metadata.Name != "Work notes" || got.Metadata.Icon != "briefcase" {
		t.Errorf("stored = %+v", got.Metadata)
	}
}

func TestSaveFilter_Rejections(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SaveFilter(ctx, "  ", "", tagConfig("x"), nil); err == nil ||
		!strings.Contains(err.Error(), "name is required") {
		t.Errorf("blank name error = %v", err)
	}
	if _, err := svc.SaveFilter(ctx, "bad", "", filter.Config{"type": "NOPE"}, nil); err == nil ||
		!strings.Contains(err.Error(), "invalid filter config") {
		t.Errorf("invalid config error = %v", err)
	}
}

func TestGetFilter_Preset(t *testing.T) {
	svc := newTestService(t)
	p, err := svc.GetFilter(context.Background(), PresetPrefix+"recent")
	if err != nil {
		t.Fatalf("GetFilter(preset): %v", err)
	}
	if !p.Metadata.IsPreset || p.Config.Type() != filter.TypeDateRange {
		t.Errorf("preset = %+v", p)
	}

	if _, err := svc.GetFilter(context.Background(), PresetPrefix+"nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown preset err = %v, want ErrNotFound", err)
	}
}

func TestListFilters_PresetsFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SaveFilter(ctx, "mine", "", tagConfig("x"), nil); err != nil {
		t.Fatal(err)
	}

	all, err := svc.ListFilters(ctx)
	if err != nil {
		t.Fatal(err)
	}
	presetCount := len(Presets())
	if len(all) != presetCount+1 {
		t.Fatalf("len = %d, want %d presets + 1 stored", len(all), presetCount)
	}
	for i := 0; i < presetCount; i++ {
		if !all[i].Metadata.IsPreset {
			t.Errorf("entry %d should be a preset", i)
		}
	}
	if all[presetCount].Metadata.Name != "mine" {
		t.Errorf("last entry = %+v, want the stored filter", all[presetCount].Metadata)
	}
}

func TestUpdateFilter_Partial(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sf, err := svc.SaveFilter(ctx, "original", "desc", tagConfig("a"), nil)
	if err != nil {
		t.Fatal(err)
	}

	svc.now = func() time.Time { return time.Unix(1700000500, 0) }
	name := "renamed"
	got, err := svc.UpdateFilter(ctx, sf.Metadata.ID, FilterUpdate{Name: &name})
	if err != nil {
		t.Fatalf("UpdateFilter: %v", err)
	}
	if got.Metadata.Name != "renamed" {
		t.Errorf("name = %q", got.Metadata.Name)
	}
	if got.Metadata.Description != "desc" {
		t.Error("unset fields must be left unchanged")
	}
	if got.Metadata.ModifiedAt != 1700000500 {
		t.Errorf("modifiedAt = %d, want refreshed", got.Metadata.ModifiedAt)
	}
	if got.Metadata.CreatedAt != 1700000000 {
		t.Errorf("createdAt = %d, want untouched", got.Metadata.CreatedAt)
	}
}

func TestUpdateFilter_InvalidConfigRejected(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sf, err := svc.SaveFilter(ctx, "f", "", tagConfig("a"), nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.UpdateFilter(ctx, sf.Metadata.ID, FilterUpdate{Config: filter.Config{"type": filter.TypeTag}})
	if err == nil || !strings.Contains(err.Error(), "invalid filter config") {
		t.Errorf("err = %v", err)
	}

	// The stored config must be untouched.
	got, err := svc.GetFilter(ctx, sf.Metadata.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.Config["tags"]; !ok {
		t.Errorf("config = %v, want original preserved", got.Config)
	}
}

func TestPresetsAreImmutable(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := PresetPrefix + "today"

	name := "x"
	if _, err := svc.UpdateFilter(ctx, id, FilterUpdate{Name: &name}); !errors.Is(err, apperr.ErrPresetImmutable) {
		t.Errorf("update err = %v, want ErrPresetImmutable", err)
	}
	if err := svc.DeleteFilter(ctx, id); !errors.Is(err, apperr.ErrPresetImmutable) {
		t.Errorf("delete err = %v, want ErrPresetImmutable", err)
	}
}

func TestDeleteFilter(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sf, err := svc.SaveFilter(ctx, "f", "", tagConfig("a"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteFilter(ctx, sf.Metadata.ID); err != nil {
		t.Fatalf("DeleteFilter: %v", err)
	}
	if _, err := svc.GetFilter(ctx, sf.Metadata.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("after delete err = %v, want ErrNotFound", err)
	}
}

func TestSearchFilters_IncludesPresets(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SaveFilter(ctx, "archived projects", "", tagConfig("project"), nil); err != nil {
		t.Fatal(err)
	}

	// Matches the "Not archived" preset and the stored filter.
	got, err := svc.SearchFilters(ctx, "archived")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("results = %d, want 2", len(got))
	}
	if !got[0].Metadata.IsPreset {
		t.Error("presets should come first in search results")
	}
}

func TestExportFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, _ := svc.SaveFilter(ctx, "a", "", tagConfig("a"), nil)
	b, _ := svc.SaveFilter(ctx, "b", "", tagConfig("b"), nil)

	// Empty ids exports everything stored.
	all, err := svc.ExportFilters(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if all.Version != ExportVersion || len(all.Filters) != 2 {
		t.Errorf("export all = %+v", all)
	}

	// Explicit ids: one good, one preset, one missing.
	res, err := svc.ExportFilters(ctx, []string{a.Metadata.ID, PresetPrefix + "today", "ghost"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Filters) != 2 {
		t.Errorf("filters = %d, want stored + preset", len(res.Filters))
	}
	if len(res.Errors) != 1 || res.Errors[0].ID != "ghost" {
		t.Errorf("errors = %v, want one for ghost", res.Errors)
	}
	_ = b
}

func TestImportFilters_PartialSuccess(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	items := []store.SavedFilter{
		{
			Metadata: store.FilterMetadata{ID: "preset:fake", Name: "good", IsPreset: true},
			Config:   tagConfig("a"),
		},
		{
			Metadata: store.FilterMetadata{Name: "bad config"},
			Config:   filter.Config{"type": filter.TypeTag},
		},
		{
			Metadata: store.FilterMetadata{Name: ""},
			Config:   tagConfig("c"),
		},
	}
	res := svc.ImportFilters(ctx, items)

	if len(res.Imported) != 1 {
		t.Fatalf("imported = %d, want 1", len(res.Imported))
	}
	got := res.Imported[0]
	if got.Metadata.ID == "preset:fake" {
		t.Error("import must assign a fresh id")
	}
	if got.Metadata.IsPreset {
		t.Error("imported filters are never presets")
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors = %v, want 2", res.Errors)
	}
	if res.Errors[0].Name != "bad config" {
		t.Errorf("first error = %+v", res.Errors[0])
	}
	if res.Errors[1].Error != "name is required" {
		t.Errorf("second error = %+v", res.Errors[1])
	}

	// The good item is actually persisted.
	if _, err := svc.GetFilter(ctx, got.Metadata.ID); err != nil {
		t.Errorf("imported filter not stored: %v", err)
	}
}

func TestEvaluateSaved(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sf, err := svc.SaveFilter(ctx, "work", "", tagConfig("work"), nil)
	if err != nil {
		t.Fatal(err)
	}

	notes := []models.NoteWithContent{
		{Note: models.Note{ID: "1", Tags: []string{"work"}}},
		{Note: models.Note{ID: "2", Tags: []string{"home"}}},
	}
	got, err := svc.EvaluateSaved(ctx, sf.Metadata.ID, notes)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("matched = %v, want note 1", got)
	}

	if _, err := svc.EvaluateSaved(ctx, "ghost", notes); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPresets_ReturnCopies(t *testing.T) {
	a := Presets()
	a[0].Config["type"] = "MUTATED"
	b := Presets()
	if b[0].Config.Type() == "MUTATED" {
		t.Error("Presets must return independent copies")
	}
}
