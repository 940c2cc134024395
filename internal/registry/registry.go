// Package registry maps filter type discriminators to factories and
// metadata. Registry.CreateFromConfig is the only sanctioned path from raw,
// possibly untrusted configuration to a live filter graph: schema validation
// always runs before a factory sees the config.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/filter"
)

// Factory constructs a concrete filter from a raw config. When it runs, the
// config has already passed the structural check and the type's schema
// validator (if one is registered).
type Factory func(filter.Config) (filter.Filter, error)

// Metadata describes a registered filter type. ConfigSchema, when set, is
// run by CreateFromConfig before the factory.
type Metadata struct {
	DisplayName  string
	Description  string
	Category     string
	Example      filter.Config
	ConfigSchema filter.SchemaValidator
}

// Validate checks the metadata's required fields and the example's shape.
func (m Metadata) Validate() error {
	err := validation.ValidateStruct(&m,
		validation.Field(&m.DisplayName, validation.Required),
		validation.Field(&m.Description, validation.Required),
	)
	if err != nil {
		return err
	}
	if m.Example != nil && m.Example.Type() == "" {
		return fmt.Errorf("example: must have a non-empty string type")
	}
	return nil
}

type entry struct {
	factory Factory
	meta    Metadata
	hasMeta bool
}

// Registry associates filter type discriminators with factories. Instances
// are explicit values threaded through call sites; there is no package-level
// registry. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// NewDefault returns a registry with the four built-in filter types wired,
// each with its schema validator. The composite factory receives the
// registry's own CreateFromConfig as its child-builder capability.
func NewDefault() *Registry {
	r := New()

	mustRegister := func(typ string, factory Factory, meta Metadata) {
		if err := r.Register(typ, factory, &meta); err != nil {
			panic(fmt.Sprintf("registry: register built-in %s: %v", typ, err))
		}
	}

	mustRegister(filter.TypeTag,
		func(cfg filter.Config) (filter.Filter, error) { return filter.NewTag(cfg), nil },
		Metadata{
			DisplayName: "Tags",
			Description: "Match notes by required and excluded tags.",
			Category:    "metadata",
			Example: filter.Config{
				"type": filter.TypeTag,
				"tags": []any{"work", "urgent"},
			},
			ConfigSchema: filter.TagSchema,
		})

	mustRegister(filter.TypeDateRange,
		func(cfg filter.Config) (filter.Filter, error) { return filter.NewDateRange(cfg), nil },
		Metadata{
			DisplayName: "Date range",
			Description: "Match notes created or modified inside a date range.",
			Category:    "metadata",
			Example: filter.Config{
				"type":   filter.TypeDateRange,
				"field":  filter.FieldModifiedAt,
				"preset": filter.PresetLast7Days,
			},
			ConfigSchema: filter.DateRangeSchema,
		})

	mustRegister(filter.TypeContent,
		func(cfg filter.Config) (filter.Filter, error) { return filter.NewContent(cfg), nil },
		Metadata{
			DisplayName: "Content",
			Description: "Match notes by text in the title or body.",
			Category:    "content",
			Example: filter.Config{
				"type":  filter.TypeContent,
				"query": "meeting",
			},
			ConfigSchema: filter.ContentSchema,
		})

	mustRegister(filter.TypeComposite,
		func(cfg filter.Config) (filter.Filter, error) {
			return filter.NewComposite(cfg, r.CreateFromConfig)
		},
		Metadata{
			DisplayName: "Composite",
			Description: "Combine other filters with AND, OR, or NOT.",
			Category:    "logic",
			Example: filter.Config{
				"type":     filter.TypeComposite,
				"operator": filter.OpAnd,
				"filters": []any{
					map[string]any{"type": filter.TypeTag, "tags": []any{"work"}},
				},
			},
			ConfigSchema: filter.CompositeSchema,
		})

	return r
}

// Register associates typ with a factory and optional metadata. Registering
// an already-known type is an error, never a silent overwrite.
func (r *Registry) Register(typ string, factory Factory, meta *Metadata) error {
	if strings.TrimSpace(typ) == "" {
		return fmt.Errorf("registry: filter type must be a non-empty string")
	}
	if factory == nil {
		return fmt.Errorf("registry: factory for %q must not be nil", typ)
	}
	if meta != nil {
		if err := meta.Validate(); err != nil {
			return fmt.Errorf("registry: invalid metadata for %q: %w", typ, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[typ]; exists {
		return fmt.Errorf("registry: filter type %q already registered", typ)
	}
	e := entry{factory: factory}
	if meta != nil {
		e.meta = *meta
		e.hasMeta = true
	}
	r.entries[typ] = e
	return nil
}

// CreateFromConfig turns a raw config into a validated, live filter. Steps,
// in strict order: structural check, factory lookup, schema validation,
// factory invocation, instance validation. A schema-invalid config never
// reaches the factory.
func (r *Registry) CreateFromConfig(cfg filter.Config) (filter.Filter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("registry: config must be a non-null object")
	}
	typ := cfg.Type()
	if typ == "" {
		return nil, fmt.Errorf("registry: config must have a non-empty string type")
	}

	r.mu.RLock()
	e, ok := r.entries[typ]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: unknown filter type %q (available: %s)",
			typ, strings.Join(r.Types(), ", "))
	}

	if e.hasMeta && e.meta.ConfigSchema != nil {
		if res := e.meta.ConfigSchema(cfg); !res.Valid {
			return nil, fmt.Errorf("registry: invalid %s config: %s", typ, strings.Join(res.Errors, "; "))
		}
	}

	f, err := e.factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("registry: build %s filter: %w", typ, err)
	}

	// Final safety net: the filter's own validation covers types registered
	// without a schema.
	if res := f.Validate(); !res.Valid {
		return nil, fmt.Errorf("registry: %s filter failed validation: %s", typ, strings.Join(res.Errors, "; "))
	}
	return f, nil
}

// Unregister removes a type, reporting whether it was present. Intended for
// test isolation.
func (r *Registry) Unregister(typ string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[typ]
	delete(r.entries, typ)
	return ok
}

// Clear removes every registered type. Intended for test isolation.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]entry)
}

// Has reports whether typ is registered.
func (r *Registry) Has(typ string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[typ]
	return ok
}

// Types returns the registered type discriminators, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for typ := range r.entries {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

// MetadataFor returns the metadata registered for typ, if any.
func (r *Registry) MetadataFor(typ string) (Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[typ]
	if !ok || !e.hasMeta {
		return Metadata{}, false
	}
	return e.meta, true
}
