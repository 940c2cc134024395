// Package store provides SQLite-backed persistence for saved filter
// configurations.
package store

import (
	"context"

	"github.com/starford/ansuz/internal/filter"
)

// FilterMetadata describes a saved filter independent of its config.
// Timestamps are unix seconds.
type FilterMetadata struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CreatedAt   int64    `json:"createdAt"`
	ModifiedAt  int64    `json:"modifiedAt"`
	IsPreset    bool     `json:"isPreset"`
	Icon        string   `json:"icon,omitempty"`
	Color       string   `json:"color,omitempty"`
}

// SavedFilter is a persisted filter configuration with its metadata. The
// config is stored as data; a live filter is rebuilt from it on demand.
type SavedFilter struct {
	Metadata FilterMetadata `json:"metadata"`
	Config   filter.Config  `json:"config"`
}

// FilterStore is the repository interface the filter config service depends
// on. Consumers should depend on this interface rather than the concrete
// *DB type to facilitate testing with mocks.
type FilterStore interface {
	Save(ctx context.Context, f SavedFilter) error
	GetByID(ctx context.Context, id string) (*SavedFilter, error)
	GetAll(ctx context.Context) ([]SavedFilter, error)
	Update(ctx context.Context, f SavedFilter) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]SavedFilter, error)
	Close() error
}

// Verify *DB satisfies FilterStore at compile time.
var _ FilterStore = (*DB)(nil)
