package api

import (
	"github.com/starford/ansuz/internal/filter"
	"github.com/starford/ansuz/internal/filterservice"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/store"
)

// SaveFilterRequest is the request body for creating a saved filter.
type SaveFilterRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Config      filter.Config `json:"config"`
	Tags        []string      `json:"tags,omitempty"`
	Icon        string        `json:"icon,omitempty"`
	Color       string        `json:"color,omitempty"`
}

// UpdateFilterRequest is the request body for updating a saved filter.
// Absent fields are left unchanged.
type UpdateFilterRequest struct {
	Name        *string       `json:"name,omitempty"`
	Description *string       `json:"description,omitempty"`
	Tags        *[]string     `json:"tags,omitempty"`
	Icon        *string       `json:"icon,omitempty"`
	Color       *string       `json:"color,omitempty"`
	Config      filter.Config `json:"config,omitempty"`
}

// ValidateRequest wraps a config for POST /filters/validate.
type ValidateRequest struct {
	Config filter.Config `json:"config"`
}

// EvaluateRequest selects the filter to evaluate: a saved id (presets
// included) or an inline config. Exactly one must be given.
type EvaluateRequest struct {
	ID     string        `json:"id,omitempty"`
	Config filter.Config `json:"config,omitempty"`
}

// EvaluateResponse carries the matching notes, in snapshot order.
type EvaluateResponse struct {
	Notes       []models.Note `json:"notes"`
	Total       int           `json:"total"`
	Description string        `json:"description"`
}

// FilterListResponse wraps saved-filter listings.
type FilterListResponse struct {
	Filters []store.SavedFilter `json:"filters"`
	Total   int                 `json:"total"`
}

// NoteListResponse wraps the snapshot note listing.
type NoteListResponse struct {
	Notes []models.Note `json:"notes"`
	Total int           `json:"total"`
}

// FilterTypeInfo describes one registered filter type.
type FilterTypeInfo struct {
	Type        string        `json:"type"`
	DisplayName string        `json:"displayName"`
	Description string        `json:"description"`
	Category    string        `json:"category,omitempty"`
	Example     filter.Config `json:"example,omitempty"`
}

// ImportRequest is the request body for bulk import.
type ImportRequest struct {
	Filters []store.SavedFilter `json:"filters"`
}

// ImportResponse is the partial-success result of a bulk import.
type ImportResponse = filterservice.ImportResult

// ExportResponse is the partial-success result of a bulk export.
type ExportResponse = filterservice.ExportResult
