package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lorekeep/internal/entryservice"
	"github.com/starford/lorekeep/internal/layout"
	"github.com/starford/lorekeep/internal/scene"
)

const maxBody = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *entryservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *entryservice.Service) *Handler {
	return &Handler{svc: svc}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func queryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("query parameter %q must be a positive integer", name)
	}
	return id, nil
}

func setETag(w http.ResponseWriter, etag string) {
	w.Header().Set("ETag", `"`+etag+`"`)
}

// ListEntries handles GET /api/entries.
//
//	@Summary		List entries, optionally by category
//	@Tags			entries
//	@Produce		json
//	@Param			category	query		string	false	"Filter by category"
//	@Success		200			{object}	EntryListResponse
//	@Security		BearerAuth
//	@Router			/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListEntries(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, "list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, EntryListResponse{Entries: items, Total: len(items)})
}

// GetEntry handles GET /api/entries/{id}.
//
//	@Summary		Get an entry with its relationships
//	@Tags			entries
//	@Produce		json
//	@Param			id	path		int	true	"Entry id"
//	@Success		200	{object}	EntryDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id} [get]
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	d, err := h.svc.GetEntry(r.Context(), id)
	if err != nil {
		writeError(w, "get entry", err)
		return
	}
	setETag(w, d.ETag)
	writeJSON(w, http.StatusOK, d)
}

// CreateEntry handles POST /api/entries.
//
//	@Summary		Create an entry
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			body	body		EntryRequest	true	"Entry to create"
//	@Success		201		{object}	EntryDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries [post]
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	d, err := h.svc.CreateEntry(r.Context(), req.entry(0))
	if err != nil {
		writeError(w, "create entry", err)
		return
	}
	setETag(w, d.ETag)
	writeJSON(w, http.StatusCreated, d)
}

// UpdateEntry handles PUT /api/entries/{id}.
//
//	@Summary		Replace an entry with optimistic concurrency
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			id			path		int				true	"Entry id"
//	@Param			If-Match	header		string			false	"ETag from a previous read"
//	@Param			body		body		EntryRequest	true	"New entry fields"
//	@Success		200			{object}	EntryDetail
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id} [put]
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	d, err := h.svc.UpdateEntry(r.Context(), req.entry(id), r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "update entry", err)
		return
	}
	setETag(w, d.ETag)
	writeJSON(w, http.StatusOK, d)
}

// DeleteEntry handles DELETE /api/entries/{id}.
//
//	@Summary		Delete an entry and its relationships
//	@Tags			entries
//	@Param			id	path	int	true	"Entry id"
//	@Success		204	"Entry deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id} [delete]
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	if err := h.svc.DeleteEntry(r.Context(), id); err != nil {
		writeError(w, "delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRelationships handles GET /api/entries/{id}/relationships.
//
//	@Summary		Relationships with the entry at either end
//	@Tags			relationships
//	@Produce		json
//	@Param			id	path		int	true	"Entry id"
//	@Success		200	{object}	RelationshipListResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id}/relationships [get]
func (h *Handler) ListRelationships(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	rels, err := h.svc.Relationships(r.Context(), id)
	if err != nil {
		writeError(w, "list relationships", err)
		return
	}
	writeJSON(w, http.StatusOK, RelationshipListResponse{Relationships: rels})
}

// AddRelationship handles POST /api/entries/{id}/relationships.
//
//	@Summary		Link the entry to another
//	@Tags			relationships
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int					true	"Source entry id"
//	@Param			body	body		RelationshipRequest	true	"Target and type"
//	@Success		201		{object}	models.Relationship
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id}/relationships [post]
func (h *Handler) AddRelationship(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	var req RelationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.To <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("to is required"))
		return
	}
	rel, err := h.svc.AddRelationship(r.Context(), id, req.To, req.Type)
	if err != nil {
		writeError(w, "add relationship", err)
		return
	}
	writeJSON(w, http.StatusCreated, rel)
}

// DeleteRelationship handles DELETE /api/relationships/{id}.
//
//	@Summary		Delete a relationship
//	@Tags			relationships
//	@Param			id	path	int	true	"Relationship id"
//	@Success		204	"Relationship deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/relationships/{id} [delete]
func (h *Handler) DeleteRelationship(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	if err := h.svc.DeleteRelationship(r.Context(), id); err != nil {
		writeError(w, "delete relationship", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Fuzzy search across entries
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// mapRequest reads layout, root, focus, width and height from the query.
func mapRequest(r *http.Request) (entryservice.MapRequest, error) {
	var req entryservice.MapRequest
	q := r.URL.Query()

	var err error
	if v := q.Get("layout"); v != "" {
		if req.Layout, err = layout.ParseStrategy(v); err != nil {
			return req, err
		}
	}
	if req.Root, err = queryID(r, "root"); err != nil {
		return req, err
	}
	if req.Focus, err = queryID(r, "focus"); err != nil {
		return req, err
	}
	if req.Width, err = querySize(r, "width"); err != nil {
		return req, err
	}
	if req.Height, err = querySize(r, "height"); err != nil {
		return req, err
	}
	return req, nil
}

// querySize reads an optional positive, finite pixel size.
func querySize(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("query parameter %q must be a positive number", name)
	}
	return v, nil
}

// Graph handles GET /api/graph.
//
//	@Summary		Laid-out relationship map
//	@Tags			graph
//	@Produce		json
//	@Param			layout	query		string	false	"tree or force"	Enums(tree, force)
//	@Param			root	query		int		false	"Tree root entry"
//	@Param			focus	query		int		false	"Entry to highlight"
//	@Success		200		{object}	scene.Snapshot
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	req, err := mapRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	res, err := h.svc.Map(r.Context(), req)
	if err != nil {
		writeError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, res.Snapshot)
}

// SelectEntry handles POST /api/entries/{id}/select: a click on the map.
// The entry and its neighbours are highlighted and an entry.selected event
// goes out to subscribers.
//
//	@Summary		Select an entry on the map
//	@Tags			graph
//	@Produce		json
//	@Param			id		path		int		true	"Entry ID"
//	@Param			layout	query		string	false	"tree or force"	Enums(tree, force)
//	@Param			root	query		int		false	"Tree root entry"
//	@Success		200		{object}	scene.Snapshot
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id}/select [post]
func (h *Handler) SelectEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	req, err := mapRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	req.Focus, req.Select = id, true
	res, err := h.svc.Map(r.Context(), req)
	if err != nil {
		writeError(w, "select entry", err)
		return
	}
	writeJSON(w, http.StatusOK, res.Snapshot)
}

// GraphImage returns the handler for GET /api/graph.png and /api/graph.svg.
// An empty map yields 204.
func (h *Handler) GraphImage(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := mapRequest(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		req.Format = format
		res, err := h.svc.Map(r.Context(), req)
		if errors.Is(err, scene.ErrEmpty) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err != nil {
			writeError(w, "graph "+format, err)
			return
		}
		w.Header().Set("Content-Type", res.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(res.Image)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(res.Image); err != nil {
			slog.Debug("graph image write failed", slog.String("error", err.Error()))
		}
	}
}
