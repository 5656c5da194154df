package entryservice

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/starford/lorekeep/internal/apperr"
	"github.com/starford/lorekeep/internal/graph"
	"github.com/starford/lorekeep/internal/layout"
	"github.com/starford/lorekeep/internal/scene"
)

// Map output formats.
const (
	FormatJSON = "json"
	FormatPNG  = "png"
	FormatSVG  = "svg"
)

// MapRequest describes one rendering of the relationship map.
type MapRequest struct {
	Layout layout.Strategy
	Root   int64 // 0: none
	Focus  int64 // 0: none; otherwise highlighted after layout
	// Select treats Focus as a click on the map: besides the highlight, the
	// entry is announced to event subscribers as selected.
	Select bool
	Format string
	Width  float64
	Height float64
}

// MapResult carries the scene state and, for image formats, the encoding.
type MapResult struct {
	Snapshot    scene.Snapshot
	Image       []byte
	ContentType string
}

// Graph builds the relationship graph from the current store contents.
func (s *Service) Graph(_ context.Context) (*graph.Graph, error) {
	entries, err := s.store.AllEntries()
	s.record("all_entries", err)
	if err != nil {
		return nil, err
	}
	rels, err := s.store.AllRelationships()
	s.record("all_relationships", err)
	if err != nil {
		return nil, err
	}
	return graph.Build(entries, rels), nil
}

func (s *Service) viewer(ctx context.Context, req MapRequest) (*scene.Viewer, error) {
	g, err := s.Graph(ctx)
	if err != nil {
		return nil, err
	}
	opts := []scene.Option{
		scene.WithTheme(s.theme),
		scene.WithLayoutConfig(s.layout),
		scene.WithLogger(s.log),
		scene.WithClickHandler(s.Select),
	}
	if req.Layout != "" {
		opts = append(opts, scene.WithStrategy(req.Layout))
	}
	if req.Root != 0 {
		opts = append(opts, scene.WithRoot(req.Root))
	}
	switch {
	case validSize(req.Width, req.Height):
		opts = append(opts, scene.WithViewportSize(req.Width, req.Height))
	case validSize(s.width, s.height):
		opts = append(opts, scene.WithViewportSize(s.width, s.height))
	}
	if s.metrics != nil {
		opts = append(opts, scene.WithObserver(s.metrics))
	}

	v := scene.New(g, opts...)
	if req.Focus != 0 {
		focus := v.Highlight
		if req.Select {
			focus = v.Click
		}
		if !focus(req.Focus) {
			return nil, fmt.Errorf("entryservice: focus %d: %w", req.Focus, apperr.ErrNotFound)
		}
	}
	return v, nil
}

// validSize reports whether w and h are usable viewport dimensions.
func validSize(w, h float64) bool {
	return w > 0 && h > 0 && !math.IsInf(w, 0) && !math.IsInf(h, 0)
}

// Map lays out and renders the relationship map. For image formats on an
// empty graph scene.ErrEmpty is returned.
func (s *Service) Map(ctx context.Context, req MapRequest) (*MapResult, error) {
	v, err := s.viewer(ctx, req)
	if err != nil {
		return nil, err
	}
	res := &MapResult{Snapshot: v.Snapshot()}

	var buf bytes.Buffer
	switch req.Format {
	case "", FormatJSON:
		res.ContentType = "application/json"
		return res, nil
	case FormatPNG:
		err = v.WritePNG(&buf)
		res.ContentType = "image/png"
	case FormatSVG:
		err = v.WriteSVG(&buf)
		res.ContentType = "image/svg+xml"
	default:
		return nil, fmt.Errorf("entryservice: unknown map format %q", req.Format)
	}
	if err != nil {
		return nil, err
	}
	res.Image = buf.Bytes()
	return res, nil
}

// ExportMap renders the map to path. The format follows the file extension
// unless req.Format is set. It reports false, writing nothing, for an empty
// graph or an empty path.
func (s *Service) ExportMap(ctx context.Context, req MapRequest, path string) (bool, error) {
	format := req.Format
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	v, err := s.viewer(ctx, req)
	if err != nil {
		return false, err
	}
	switch format {
	case FormatSVG:
		return v.ExportSVG(path)
	case FormatPNG, "":
		return v.ExportPNG(path)
	}
	return false, fmt.Errorf("entryservice: unknown export format %q", format)
}
