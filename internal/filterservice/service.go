// Package filterservice orchestrates saved-filter persistence: validation
// through the registry, preset handling, nesting-depth checks, and bulk
// import/export with partial-success semantics.
package filterservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/filter"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/store"
)

// Nesting-depth limits for composite configs. Depth beyond warnNestingDepth
// draws a warning; beyond maxNestingDepth the config is rejected.
const (
	maxNestingDepth  = 5
	warnNestingDepth = 3
)

// Service coordinates the registry and the filter store.
type Service struct {
	store    store.FilterStore
	registry *registry.Registry

	now   func() time.Time
	newID func() string
}

// NewService creates a filter config service over the given store and
// registry.
func NewService(st store.FilterStore, reg *registry.Registry) *Service {
	return &Service{
		store:    st,
		registry: reg,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SaveOptions carries the optional cosmetic fields of a saved filter.
type SaveOptions struct {
	Tags  []string
	Icon  string
	Color string
}

// ConfigValidation is the outcome of ValidateFilterConfig. Warnings are
// advisory and do not make the config invalid.
type ConfigValidation struct {
	Valid    bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Depth    int      `json:"depth"`
}

// ValidateFilterConfig runs the full validation path (structural, schema,
// instance) through the registry and additionally checks composite nesting
// depth.
func (s *Service) ValidateFilterConfig(cfg filter.Config) ConfigValidation {
	errs := []string{}
	warnings := []string{}

	if _, err := s.registry.CreateFromConfig(cfg); err != nil {
		errs = append(errs, err.Error())
	}

	depth := nestingDepth(cfg)
	switch {
	case depth > maxNestingDepth:
		errs = append(errs, fmt.Sprintf("filter nesting depth %d exceeds the maximum of %d", depth, maxNestingDepth))
	case depth > warnNestingDepth:
		warnings = append(warnings, fmt.Sprintf("filter nesting depth %d exceeds %d; consider flattening", depth, warnNestingDepth))
	}

	return ConfigValidation{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
		Depth:    depth,
	}
}

// nestingDepth counts the deepest chain of COMPOSITE configs. A leaf config
// has depth 0.
func nestingDepth(cfg filter.Config) int {
	if cfg.Type() != filter.TypeComposite {
		return 0
	}
	deepest := 0
	for _, child := range filter.ChildConfigs(cfg) {
		if d := nestingDepth(child); d > deepest {
			deepest = d
		}
	}
	return 1 + deepest
}

// Build constructs a live filter from a config via the registry.
func (s *Service) Build(cfg filter.Config) (filter.Filter, error) {
	return s.registry.CreateFromConfig(cfg)
}

// SaveFilter validates the config and persists it under a fresh id.
func (s *Service) SaveFilter(ctx context.Context, name, description string, cfg filter.Config, opts *SaveOptions) (*store.SavedFilter, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("filterservice: name is required")
	}
	if res := s.ValidateFilterConfig(cfg); !res.Valid {
		return nil, fmt.Errorf("filterservice: invalid filter config: %s", strings.Join(res.Errors, "; "))
	}

	now := s.now().Unix()
	sf := store.SavedFilter{
		Metadata: store.FilterMetadata{
			ID:          s.newID(),
			Name:        name,
			Description: description,
			CreatedAt:   now,
			ModifiedAt:  now,
		},
		Config: cfg.Clone(),
	}
	if opts != nil {
		sf.Metadata.Tags = append([]string(nil), opts.Tags...)
		sf.Metadata.Icon = opts.Icon
		sf.Metadata.Color = opts.Color
	}

	if err := s.store.Save(ctx, sf); err != nil {
		return nil, err
	}
	return &sf, nil
}

// GetFilter returns a saved filter by id, resolving preset: ids to the
// built-ins.
func (s *Service) GetFilter(ctx context.Context, id string) (*store.SavedFilter, error) {
	if IsPresetID(id) {
		p, ok := PresetByID(id)
		if !ok {
			return nil, apperr.ErrNotFound
		}
		return p, nil
	}
	return s.store.GetByID(ctx, id)
}

// ListFilters returns the built-in presets followed by every stored filter.
func (s *Service) ListFilters(ctx context.Context) ([]store.SavedFilter, error) {
	stored, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return append(Presets(), stored...), nil
}

// FilterUpdate describes a partial update. Nil fields are left unchanged;
// a non-nil Config replaces the old one after validation.
type FilterUpdate struct {
	Name        *string
	Description *string
	Tags        *[]string
	Icon        *string
	Color       *string
	Config      filter.Config
}

// UpdateFilter applies a partial update to a stored filter. Presets are
// immutable: updating a preset: id fails with apperr.ErrPresetImmutable.
func (s *Service) UpdateFilter(ctx context.Context, id string, upd FilterUpdate) (*store.SavedFilter, error) {
	if IsPresetID(id) {
		return nil, fmt.Errorf("filterservice: update %s: %w", id, apperr.ErrPresetImmutable)
	}

	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			return nil, fmt.Errorf("filterservice: name is required")
		}
		existing.Metadata.Name = *upd.Name
	}
	if upd.Description != nil {
		existing.Metadata.Description = *upd.Description
	}
	if upd.Tags != nil {
		existing.Metadata.Tags = append([]string(nil), (*upd.Tags)...)
	}
	if upd.Icon != nil {
		existing.Metadata.Icon = *upd.Icon
	}
	if upd.Color != nil {
		existing.Metadata.Color = *upd.Color
	}
	if upd.Config != nil {
		if res := s.ValidateFilterConfig(upd.Config); !res.Valid {
			return nil, fmt.Errorf("filterservice: invalid filter config: %s", strings.Join(res.Errors, "; "))
		}
		existing.Config = upd.Config.Clone()
	}
	existing.Metadata.ModifiedAt = s.now().Unix()

	if err := s.store.Update(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// DeleteFilter removes a stored filter. Presets are immutable: deleting a
// preset: id fails with apperr.ErrPresetImmutable.
func (s *Service) DeleteFilter(ctx context.Context, id string) error {
	if IsPresetID(id) {
		return fmt.Errorf("filterservice: delete %s: %w", id, apperr.ErrPresetImmutable)
	}
	return s.store.Delete(ctx, id)
}

// SearchFilters returns stored filters matching the query, plus any presets
// whose name or description contains it case-insensitively.
func (s *Service) SearchFilters(ctx context.Context, query string) ([]store.SavedFilter, error) {
	stored, err := s.store.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	var out []store.SavedFilter
	for _, p := range Presets() {
		if strings.Contains(strings.ToLower(p.Metadata.Name), q) ||
			strings.Contains(strings.ToLower(p.Metadata.Description), q) {
			out = append(out, p)
		}
	}
	return append(out, stored...), nil
}

// ItemError records a single item failure in a bulk operation.
type ItemError struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error"`
}

// ExportResult carries the exported filters alongside per-item failures.
// A failed item never aborts the batch.
type ExportResult struct {
	Version    int                 `json:"version"`
	ExportedAt int64               `json:"exportedAt"`
	Filters    []store.SavedFilter `json:"filters"`
	Errors     []ItemError         `json:"errors,omitempty"`
}

// ExportVersion is the current export payload version.
const ExportVersion = 1

// ExportFilters exports the filters with the given ids, or every stored
// filter when ids is empty. Preset ids export the built-in definition.
func (s *Service) ExportFilters(ctx context.Context, ids []string) (*ExportResult, error) {
	res := &ExportResult{
		Version:    ExportVersion,
		ExportedAt: s.now().Unix(),
		Filters:    []store.SavedFilter{},
	}

	if len(ids) == 0 {
		stored, err := s.store.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		res.Filters = stored
		return res, nil
	}

	for _, id := range ids {
		f, err := s.GetFilter(ctx, id)
		if err != nil {
			res.Errors = append(res.Errors, ItemError{ID: id, Error: err.Error()})
			continue
		}
		res.Filters = append(res.Filters, *f)
	}
	return res, nil
}

// ImportResult carries the imported filters alongside per-item failures.
type ImportResult struct {
	Imported []store.SavedFilter `json:"imported"`
	Errors   []ItemError         `json:"errors,omitempty"`
}

// ImportFilters validates and persists each filter independently: invalid
// items are collected as errors while the rest import. Imported filters
// receive fresh ids and timestamps and are never presets.
func (s *Service) ImportFilters(ctx context.Context, filters []store.SavedFilter) *ImportResult {
	res := &ImportResult{Imported: []store.SavedFilter{}}

	for i, f := range filters {
		name := f.Metadata.Name
		if strings.TrimSpace(name) == "" {
			res.Errors = append(res.Errors, ItemError{
				Name:  fmt.Sprintf("filter %d", i+1),
				Error: "name is required",
			})
			continue
		}
		if v := s.ValidateFilterConfig(f.Config); !v.Valid {
			res.Errors = append(res.Errors, ItemError{
				Name:  name,
				Error: strings.Join(v.Errors, "; "),
			})
			continue
		}

		now := s.now().Unix()
		imported := store.SavedFilter{
			Metadata: store.FilterMetadata{
				ID:          s.newID(),
				Name:        name,
				Description: f.Metadata.Description,
				Tags:        append([]string(nil), f.Metadata.Tags...),
				CreatedAt:   now,
				ModifiedAt:  now,
				Icon:        f.Metadata.Icon,
				Color:       f.Metadata.Color,
			},
			Config: f.Config.Clone(),
		}
		if err := s.store.Save(ctx, imported); err != nil {
			res.Errors = append(res.Errors, ItemError{Name: name, Error: err.Error()})
			continue
		}
		res.Imported = append(res.Imported, imported)
	}
	return res
}

// EvaluateConfig builds a filter from cfg and applies it to the notes.
func (s *Service) EvaluateConfig(cfg filter.Config, notes []models.NoteWithContent) ([]models.NoteWithContent, error) {
	f, err := s.Build(cfg)
	if err != nil {
		return nil, err
	}
	return f.ApplyWithContent(notes), nil
}

// EvaluateSaved resolves a saved filter (or preset) by id and applies it to
// the notes.
func (s *Service) EvaluateSaved(ctx context.Context, id string, notes []models.NoteWithContent) ([]models.NoteWithContent, error) {
	sf, err := s.GetFilter(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.EvaluateConfig(sf.Config, notes)
}
