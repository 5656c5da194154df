package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lorekeep/internal/entryservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *entryservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/entries", func(r chi.Router) {
		r.Get("/", h.ListEntries)
		r.Post("/", h.CreateEntry)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetEntry)
			r.Put("/", h.UpdateEntry)
			r.Delete("/", h.DeleteEntry)
			r.Get("/relationships", h.ListRelationships)
			r.Post("/relationships", h.AddRelationship)
			r.Post("/select", h.SelectEntry)
		})
	})
	r.Delete("/relationships/{id}", h.DeleteRelationship)

	r.Get("/search", h.Search)

	r.Get("/graph", h.Graph)
	r.Get("/graph.png", h.GraphImage(entryservice.FormatPNG))
	r.Get("/graph.svg", h.GraphImage(entryservice.FormatSVG))

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
