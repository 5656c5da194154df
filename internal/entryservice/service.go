// Package entryservice coordinates the record store, search, the relationship
// map and the Markdown mirror for every host surface (REST, MCP, CLI).
package entryservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/lorekeep/internal/apperr"
	"github.com/starford/lorekeep/internal/checksum"
	"github.com/starford/lorekeep/internal/layout"
	"github.com/starford/lorekeep/internal/metrics"
	"github.com/starford/lorekeep/internal/models"
	"github.com/starford/lorekeep/internal/scene"
	"github.com/starford/lorekeep/internal/search"
	"github.com/starford/lorekeep/internal/sse"
	"github.com/starford/lorekeep/internal/store"
	"github.com/starford/lorekeep/internal/vault"
)

// EventSink receives change notifications. *sse.Broker implements it.
type EventSink interface {
	PublishChange(resource, kind string, id int64)
	PublishSelected(id int64)
}

// EntryDetail is an entry with every relationship touching it.
type EntryDetail struct {
	models.Entry
	ETag          string                `json:"etag"`
	Relationships []models.Relationship `json:"relationships"`
}

// SearchResult is a ranked entry.
type SearchResult struct {
	Entry models.Entry `json:"entry"`
	Score int          `json:"score"`
}

// Service is safe for concurrent use to the extent the store is.
type Service struct {
	store   store.RecordStore
	mirror  *vault.Mirror
	events  EventSink
	metrics *metrics.Registry
	layout  layout.Config
	theme   scene.Theme
	width   float64
	height  float64
	log     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithMirror(m *vault.Mirror) Option { return func(s *Service) { s.mirror = m } }
func WithEvents(e EventSink) Option { return func(s *Service) { s.events = e } }
func WithMetrics(r *metrics.Registry) Option { return func(s *Service) { s.metrics = r } }
func WithLayoutConfig(c layout.Config) Option { return func(s *Service) { s.layout = c } }
func WithTheme(t scene.Theme) Option { return func(s *Service) { s.theme = t } }
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

// WithViewportSize sets the map size used when a request does not give one.
func WithViewportSize(w, h float64) Option {
	return func(s *Service) { s.width, s.height = w, h }
}

// New creates a service over st.
func New(st store.RecordStore, opts ...Option) *Service {
	s := &Service{
		store:  st,
		layout: layout.DefaultConfig(),
		theme:  scene.DefaultTheme(),
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ETag returns the concurrency tag of an entry: the SHA-256 of its JSON.
func ETag(e models.Entry) string {
	sum, _ := checksum.JSON(e)
	return sum
}

func (s *Service) record(op string, err error) {
	if s.metrics != nil {
		s.metrics.RecordStoreOperation(op, err)
	}
}

func (s *Service) publish(resource, kind string, id int64) {
	if s.events != nil {
		s.events.PublishChange(resource, kind, id)
	}
}

// Select announces that an entry was picked on the map.
func (s *Service) Select(id int64) {
	s.log.Debug("entry selected", slog.Int64("id", id))
	if s.events != nil {
		s.events.PublishSelected(id)
	}
}

// CreateEntry stores a new entry. An empty title becomes models.DefaultEntryTitle.
func (s *Service) CreateEntry(ctx context.Context, e models.Entry) (*EntryDetail, error) {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		e.Title = models.DefaultEntryTitle
	}
	id, err := s.store.AddEntry(e)
	s.record("add_entry", err)
	if err != nil {
		return nil, err
	}
	e.ID = id

	s.mirrorEntry(ctx, id)
	s.publish(sse.ResourceEntry, sse.KindCreated, id)
	return s.detail(e)
}

// GetEntry returns an entry with its relationships.
func (s *Service) GetEntry(_ context.Context, id int64) (*EntryDetail, error) {
	e, err := s.store.GetEntry(id)
	s.record("get_entry", err)
	if err != nil {
		return nil, err
	}
	return s.detail(*e)
}

// ListEntries returns every entry, optionally only those of one category.
func (s *Service) ListEntries(_ context.Context, category string) ([]models.Entry, error) {
	all, err := s.store.AllEntries()
	s.record("all_entries", err)
	if err != nil {
		return nil, err
	}
	out := make([]models.Entry, 0, len(all))
	for _, e := range all {
		if category == "" || strings.EqualFold(e.Category, category) {
			out = append(out, e)
		}
	}
	return out, nil
}

// UpdateEntry overwrites an entry. A non-empty ifMatch must equal the
// current ETag or apperr.ErrConflict is returned.
func (s *Service) UpdateEntry(ctx context.Context, e models.Entry, ifMatch string) (*EntryDetail, error) {
	cur, err := s.store.GetEntry(e.ID)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && strings.Trim(ifMatch, `"`) != ETag(*cur) {
		return nil, apperr.ErrConflict
	}
	err = s.store.UpdateEntry(e)
	s.record("update_entry", err)
	if err != nil {
		return nil, err
	}

	s.mirrorEntry(ctx, e.ID)
	s.publish(sse.ResourceEntry, sse.KindUpdated, e.ID)
	return s.detail(e)
}

// DeleteEntry removes an entry and every relationship touching it.
func (s *Service) DeleteEntry(ctx context.Context, id int64) error {
	rels, err := s.store.RelationshipsForEntry(id)
	if err != nil {
		return err
	}
	err = s.store.DeleteEntry(id)
	s.record("delete_entry", err)
	if err != nil {
		return err
	}

	if s.mirror != nil {
		if err := s.mirror.Remove(id); err != nil {
			s.log.Warn("mirror remove failed", slog.Int64("id", id), slog.String("error", err.Error()))
		}
	}
	for _, r := range rels {
		if r.EntryA != id {
			s.mirrorEntry(ctx, r.EntryA)
		}
		s.publish(sse.ResourceRelationship, sse.KindDeleted, r.ID)
	}
	s.publish(sse.ResourceEntry, sse.KindDeleted, id)
	return nil
}

// AddRelationship links a to b. Both entries must exist.
func (s *Service) AddRelationship(ctx context.Context, a, b int64, relType string) (*models.Relationship, error) {
	relType = strings.TrimSpace(relType)
	id, err := s.store.AddRelationship(a, b, relType)
	s.record("add_relationship", err)
	if err != nil {
		return nil, err
	}
	s.mirrorEntry(ctx, a)
	s.publish(sse.ResourceRelationship, sse.KindCreated, id)
	return &models.Relationship{ID: id, EntryA: a, EntryB: b, Type: relType}, nil
}

// Relationships lists every relationship with id at either end.
func (s *Service) Relationships(_ context.Context, id int64) ([]models.Relationship, error) {
	if _, err := s.store.GetEntry(id); err != nil {
		return nil, err
	}
	rels, err := s.store.RelationshipsForEntry(id)
	s.record("relationships_for_entry", err)
	if err != nil {
		return nil, err
	}
	return nonNil(rels), nil
}

// DeleteRelationship removes one relationship.
func (s *Service) DeleteRelationship(ctx context.Context, id int64) error {
	r, err := s.store.GetRelationship(id)
	if err != nil {
		return err
	}
	err = s.store.DeleteRelationship(id)
	s.record("delete_relationship", err)
	if err != nil {
		return err
	}
	s.mirrorEntry(ctx, r.EntryA)
	s.publish(sse.ResourceRelationship, sse.KindDeleted, id)
	return nil
}

// Search ranks entries by fuzzy similarity to query.
func (s *Service) Search(_ context.Context, query string, limit int) ([]SearchResult, error) {
	entries, err := s.store.AllEntries()
	s.record("all_entries", err)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	hits := search.Rank(query, entries, limit)
	out := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		out = append(out, SearchResult{Entry: byID[h.EntryID], Score: h.Score})
	}
	return out, nil
}

// ImportEntry applies an edited Markdown file. Only the text fields are
// taken; relationships are managed through the store.
func (s *Service) ImportEntry(ctx context.Context, e models.Entry) error {
	cur, err := s.store.GetEntry(e.ID)
	if err != nil {
		return fmt.Errorf("entryservice: import %d: %w", e.ID, err)
	}
	if strings.TrimSpace(e.Title) == "" {
		e.Title = cur.Title
	}
	if e == *cur {
		return nil
	}
	err = s.store.UpdateEntry(e)
	s.record("update_entry", err)
	if err != nil {
		return err
	}
	s.mirrorEntry(ctx, e.ID)
	s.publish(sse.ResourceEntry, sse.KindUpdated, e.ID)
	s.log.Info("entry imported from mirror", slog.Int64("id", e.ID))
	return nil
}

// SyncMirror rewrites the whole mirror from the store.
func (s *Service) SyncMirror(_ context.Context) error {
	if s.mirror == nil {
		return nil
	}
	entries, err := s.store.AllEntries()
	if err != nil {
		return err
	}
	rels, err := s.store.AllRelationships()
	if err != nil {
		return err
	}
	return s.mirror.Rebuild(entries, rels)
}

// mirrorEntry rewrites one mirrored file. Mirror failures never fail the
// store operation that triggered them.
func (s *Service) mirrorEntry(_ context.Context, id int64) {
	if s.mirror == nil {
		return
	}
	err := func() error {
		e, err := s.store.GetEntry(id)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		rels, err := s.store.RelationshipsForEntry(id)
		if err != nil {
			return err
		}
		return s.mirror.Put(*e, rels)
	}()
	if err != nil {
		s.log.Warn("mirror write failed", slog.Int64("id", id), slog.String("error", err.Error()))
	}
}

func (s *Service) detail(e models.Entry) (*EntryDetail, error) {
	rels, err := s.store.RelationshipsForEntry(e.ID)
	if err != nil {
		return nil, err
	}
	return &EntryDetail{Entry: e, ETag: ETag(e), Relationships: nonNil(rels)}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
