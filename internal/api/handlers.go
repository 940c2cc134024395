package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/filterservice"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/vault"
)

const maxBodySize = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc    *filterservice.Service
	reg    *registry.Registry
	snap   *vault.Snapshot
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil; filter events are
// then not published.
func NewHandler(svc *filterservice.Service, reg *registry.Registry, snap *vault.Snapshot, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, reg: reg, snap: snap, broker: broker}
}

func (h *Handler) publish(kind, id string) {
	if h.broker != nil {
		h.broker.PublishFilterEvent(kind, id)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrPresetImmutable):
		writeJSON(w, http.StatusForbidden, errorBody(err.Error()))
	default:
		slog.Error("filter request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListFilterTypes handles GET /filter-types.
func (h *Handler) ListFilterTypes(w http.ResponseWriter, _ *http.Request) {
	types := h.reg.Types()
	infos := make([]FilterTypeInfo, 0, len(types))
	for _, typ := range types {
		info := FilterTypeInfo{Type: typ}
		if meta, ok := h.reg.MetadataFor(typ); ok {
			info.DisplayName = meta.DisplayName
			info.Description = meta.Description
			info.Category = meta.Category
			info.Example = meta.Example
		}
		infos = append(infos, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": infos})
}

// SaveFilter handles POST /filters.
func (h *Handler) SaveFilter(w http.ResponseWriter, r *http.Request) {
	var req SaveFilterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	saved, err := h.svc.SaveFilter(r.Context(), req.Name, req.Description, req.Config, &filterservice.SaveOptions{
		Tags:  req.Tags,
		Icon:  req.Icon,
		Color: req.Color,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) || isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		writeServiceError(w, err)
		return
	}
	h.publish(sse.FilterCreated, saved.Metadata.ID)
	writeJSON(w, http.StatusCreated, saved)
}

// isValidationError distinguishes bad-request failures from storage faults.
func isValidationError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid filter config") ||
		strings.Contains(msg, "name is required")
}

// ListFilters handles GET /filters.
func (h *Handler) ListFilters(w http.ResponseWriter, r *http.Request) {
	filters, err := h.svc.ListFilters(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FilterListResponse{Filters: filters, Total: len(filters)})
}

// SearchFilters handles GET /filters/search.
func (h *Handler) SearchFilters(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	filters, err := h.svc.SearchFilters(r.Context(), query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FilterListResponse{Filters: filters, Total: len(filters)})
}

// GetFilter handles GET /filters/{id}.
func (h *Handler) GetFilter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, err := h.svc.GetFilter(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// UpdateFilter handles PUT /filters/{id}.
func (h *Handler) UpdateFilter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateFilterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	updated, err := h.svc.UpdateFilter(r.Context(), id, filterservice.FilterUpdate{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		Icon:        req.Icon,
		Color:       req.Color,
		Config:      req.Config,
	})
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		writeServiceError(w, err)
		return
	}
	h.publish(sse.FilterUpdated, id)
	writeJSON(w, http.StatusOK, updated)
}

// DeleteFilter handles DELETE /filters/{id}.
func (h *Handler) DeleteFilter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteFilter(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.publish(sse.FilterDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}

// ValidateFilter handles POST /filters/validate.
func (h *Handler) ValidateFilter(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.ValidateFilterConfig(req.Config))
}

// EvaluateFilter handles POST /filters/evaluate. The filter runs over the
// current vault snapshot in content-aware mode.
func (h *Handler) EvaluateFilter(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if (req.ID == "") == (req.Config == nil) {
		writeJSON(w, http.StatusBadRequest, errorBody("exactly one of id or config is required"))
		return
	}

	cfg := req.Config
	if req.ID != "" {
		saved, err := h.svc.GetFilter(r.Context(), req.ID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		cfg = saved.Config
	}

	f, err := h.svc.Build(cfg)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	matched := f.ApplyWithContent(h.snap.Notes())
	notes := make([]models.Note, len(matched))
	for i, n := range matched {
		notes[i] = n.Note
	}
	writeJSON(w, http.StatusOK, EvaluateResponse{
		Notes:       notes,
		Total:       len(notes),
		Description: f.Describe(),
	})
}

// ExportFilters handles GET /filters/export. Optional ids query selects a
// subset (comma-separated); otherwise every stored filter exports.
func (h *Handler) ExportFilters(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if raw := r.URL.Query().Get("ids"); raw != "" {
		ids = strings.Split(raw, ",")
	}
	res, err := h.svc.ExportFilters(r.Context(), ids)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ImportFilters handles POST /filters/import.
func (h *Handler) ImportFilters(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res := h.svc.ImportFilters(r.Context(), req.Filters)
	for _, f := range res.Imported {
		h.publish(sse.FilterCreated, f.Metadata.ID)
	}
	writeJSON(w, http.StatusOK, res)
}

// ListNotes handles GET /notes: the current snapshot, metadata only.
func (h *Handler) ListNotes(w http.ResponseWriter, _ *http.Request) {
	notes := h.snap.Meta()
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}
