package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/filterservice"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/vault"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *filterservice.Service, reg *registry.Registry, snap *vault.Snapshot, broker *sse.Broker, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, reg, snap, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Registry introspection.
	r.Get("/filter-types", h.ListFilterTypes)

	// Saved filter CRUD. Static segments must be registered alongside the
	// {id} routes; chi prefers the literal match.
	r.Get("/filters", h.ListFilters)
	r.Post("/filters", h.SaveFilter)
	r.Get("/filters/search", h.SearchFilters)
	r.Get("/filters/export", h.ExportFilters)
	r.Post("/filters/import", h.ImportFilters)
	r.Post("/filters/validate", h.ValidateFilter)
	r.Post("/filters/evaluate", h.EvaluateFilter)
	r.Get("/filters/{id}", h.GetFilter)
	r.Put("/filters/{id}", h.UpdateFilter)
	r.Delete("/filters/{id}", h.DeleteFilter)

	// Vault snapshot.
	r.Get("/notes", h.ListNotes)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
