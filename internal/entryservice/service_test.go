package entryservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/starford/lorekeep/internal/apperr"
	"github.com/starford/lorekeep/internal/layout"
	"github.com/starford/lorekeep/internal/metrics"
	"github.com/starford/lorekeep/internal/models"
	"github.com/starford/lorekeep/internal/scene"
	"github.com/starford/lorekeep/internal/testutil"
	"github.com/starford/lorekeep/internal/vault"
)

type recordedEvent struct {
	name string
	id   int64
}

type fakeSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeSink) PublishChange(resource, kind string, id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{name: resource + "." + kind, id: id})
}

func (f *fakeSink) PublishSelected(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{name: "entry.selected", id: id})
}

func (f *fakeSink) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.name
	}
	return out
}

type env struct {
	svc  *Service
	sink *fakeSink
	dir  string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir, mirror := testutil.TestMirror(t)
	sink := &fakeSink{}
	svc := New(testutil.TestStore(t),
		WithMirror(mirror),
		WithEvents(sink),
		WithMetrics(metrics.NewRegistry()),
		WithLogger(testutil.QuietLogger()),
	)
	return env{svc: svc, sink: sink, dir: dir}
}

func mustCreate(t *testing.T, svc *Service, e models.Entry) int64 {
	t.Helper()
	d, err := svc.CreateEntry(context.Background(), e)
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	return d.ID
}

func TestCreateEntry_DefaultsAndMirror(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	d, err := e.svc.CreateEntry(ctx, models.Entry{Title: "  "})
	if err != nil {
		t.Fatal(err)
	}
	if d.Title != models.DefaultEntryTitle {
		t.Errorf("title = %q, want %q", d.Title, models.DefaultEntryTitle)
	}
	if d.ETag == "" || d.Relationships == nil {
		t.Errorf("detail not populated: %+v", d)
	}

	data, err := os.ReadFile(filepath.Join(e.dir, vault.EntryPath(d.ID)))
	if err != nil {
		t.Fatalf("mirror file: %v", err)
	}
	if !strings.Contains(string(data), "title: New Entry") {
		t.Errorf("mirror content:\n%s", data)
	}
	if got := e.sink.names(); len(got) != 1 || got[0] != "entry.created" {
		t.Errorf("events = %v", got)
	}
}

func TestUpdateEntry_ETag(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	d, _ := e.svc.CreateEntry(ctx, models.Entry{Title: "Aria"})

	upd := d.Entry
	upd.Description = "A bard"
	if _, err := e.svc.UpdateEntry(ctx, upd, "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	got, err := e.svc.UpdateEntry(ctx, upd, `"`+d.ETag+`"`)
	if err != nil {
		t.Fatal(err)
	}
	if got.ETag == d.ETag || got.Description != "A bard" {
		t.Errorf("update not applied: %+v", got)
	}

	upd.ID = 999
	if _, err := e.svc.UpdateEntry(ctx, upd, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListEntries_CategoryFilter(t *testing.T) {
	e := newEnv(t)
	mustCreate(t, e.svc, models.Entry{Title: "Aria", Category: models.CategoryCharacter})
	mustCreate(t, e.svc, models.Entry{Title: "Ironhold", Category: models.CategoryLocation})

	all, _ := e.svc.ListEntries(context.Background(), "")
	chars, _ := e.svc.ListEntries(context.Background(), "character")
	if len(all) != 2 || len(chars) != 1 || chars[0].Title != "Aria" {
		t.Errorf("all=%v chars=%v", all, chars)
	}
}

func TestRelationships_Lifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := mustCreate(t, e.svc, models.Entry{Title: "Aria"})
	b := mustCreate(t, e.svc, models.Entry{Title: "Ironhold"})

	r, err := e.svc.AddRelationship(ctx, a, b, " lives in ")
	if err != nil {
		t.Fatal(err)
	}
	if r.Type != "lives in" {
		t.Errorf("type = %q", r.Type)
	}
	if _, err := e.svc.AddRelationship(ctx, a, 404, "x"); !errors.Is(err, apperr.ErrInvalidReference) {
		t.Errorf("err = %v, want ErrInvalidReference", err)
	}

	rels, err := e.svc.Relationships(ctx, b)
	if err != nil || len(rels) != 1 {
		t.Fatalf("rels = %v, err = %v", rels, err)
	}
	if _, err := e.svc.Relationships(ctx, 404); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	data, _ := os.ReadFile(filepath.Join(e.dir, vault.EntryPath(a)))
	if !strings.Contains(string(data), "type: lives in") {
		t.Errorf("source mirror missing relationship:\n%s", data)
	}

	if err := e.svc.DeleteRelationship(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(filepath.Join(e.dir, vault.EntryPath(a)))
	if strings.Contains(string(data), "lives in") {
		t.Errorf("relationship still mirrored:\n%s", data)
	}
	if err := e.svc.DeleteRelationship(ctx, r.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteEntry_Cascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := mustCreate(t, e.svc, models.Entry{Title: "Aria"})
	b := mustCreate(t, e.svc, models.Entry{Title: "Ironhold"})
	if _, err := e.svc.AddRelationship(ctx, a, b, "visits"); err != nil {
		t.Fatal(err)
	}

	if err := e.svc.DeleteEntry(ctx, b); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(e.dir, vault.EntryPath(b))); !os.IsNotExist(err) {
		t.Errorf("mirror file of deleted entry remains")
	}
	rels, _ := e.svc.Relationships(ctx, a)
	if len(rels) != 0 {
		t.Errorf("relationships survived: %v", rels)
	}

	names := e.sink.names()
	tail := names[len(names)-2:]
	if tail[0] != "relationship.deleted" || tail[1] != "entry.deleted" {
		t.Errorf("events = %v", names)
	}
	if err := e.svc.DeleteEntry(ctx, b); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSearch(t *testing.T) {
	e := newEnv(t)
	mustCreate(t, e.svc, models.Entry{Title: "Aria", Description: "wandering bard"})
	mustCreate(t, e.svc, models.Entry{Title: "Sunblade", Tags: "relic"})

	res, err := e.svc.Search(context.Background(), "relic", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Entry.Title != "Sunblade" {
		t.Errorf("results = %+v", res)
	}
}

func TestImportEntry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := mustCreate(t, e.svc, models.Entry{Title: "Aria"})
	before := len(e.sink.names())

	// Unchanged import is a no-op.
	if err := e.svc.ImportEntry(ctx, models.Entry{ID: id, Title: "Aria"}); err != nil {
		t.Fatal(err)
	}
	if len(e.sink.names()) != before {
		t.Errorf("no-op import published events")
	}

	if err := e.svc.ImportEntry(ctx, models.Entry{ID: id, Description: "edited"}); err != nil {
		t.Fatal(err)
	}
	got, _ := e.svc.GetEntry(ctx, id)
	if got.Title != "Aria" || got.Description != "edited" {
		t.Errorf("imported = %+v", got.Entry)
	}
	if err := e.svc.ImportEntry(ctx, models.Entry{ID: 404, Title: "x"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestImportEntry_MirroredFileKeepsUntouchedFields(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	orig := models.Entry{Title: "Aria", Description: "\n\nbody\n\n", Tags: "a,b", Synonyms: "x ,y"}
	id := mustCreate(t, e.svc, orig)
	path := filepath.Join(e.dir, vault.EntryPath(id))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// The file as mirrored decodes to the stored entry: importing it changes nothing.
	before := len(e.sink.names())
	same, _, err := vault.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.svc.ImportEntry(ctx, same); err != nil {
		t.Fatal(err)
	}
	if len(e.sink.names()) != before {
		t.Errorf("unchanged file caused an update: %v", e.sink.names()[before:])
	}

	// Editing only the title leaves every other field byte-identical.
	edited := strings.Replace(string(data), "title: Aria\n", "title: Aria the Bard\n", 1)
	in, _, err := vault.Decode([]byte(edited))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.svc.ImportEntry(ctx, in); err != nil {
		t.Fatal(err)
	}
	got, _ := e.svc.GetEntry(ctx, id)
	want := orig
	want.ID, want.Title = id, "Aria the Bard"
	if got.Entry != want {
		t.Errorf("stored = %#v, want %#v", got.Entry, want)
	}
}

func seedMap(t *testing.T, svc *Service) (int64, int64, int64) {
	t.Helper()
	ctx := context.Background()
	a := mustCreate(t, svc, models.Entry{Title: "Aria", Category: models.CategoryCharacter})
	b := mustCreate(t, svc, models.Entry{Title: "Ironhold", Category: models.CategoryLocation})
	c := mustCreate(t, svc, models.Entry{Title: "Sunblade", Category: models.CategoryItem})
	if _, err := svc.AddRelationship(ctx, a, b, "lives in"); err != nil {
		t.Fatal(err)
	}
	return a, b, c
}

func TestMap_JSONWithFocus(t *testing.T) {
	e := newEnv(t)
	a, b, _ := seedMap(t, e.svc)

	res, err := e.svc.Map(context.Background(), MapRequest{Layout: layout.StrategyTree, Root: a, Focus: b})
	if err != nil {
		t.Fatal(err)
	}
	snap := res.Snapshot
	if snap.Strategy != layout.StrategyTree || len(snap.Nodes) != 3 || len(snap.Edges) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if len(snap.Highlighted) != 2 {
		t.Errorf("highlighted = %v", snap.Highlighted)
	}
	for _, name := range e.sink.names() {
		if name == "entry.selected" {
			t.Fatalf("focus on a read published a selection: %v", e.sink.names())
		}
	}

	res, err = e.svc.Map(context.Background(), MapRequest{Focus: b, Select: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Snapshot.Highlighted) != 2 {
		t.Errorf("selected highlight = %v", res.Snapshot.Highlighted)
	}
	names := e.sink.names()
	if names[len(names)-1] != "entry.selected" {
		t.Errorf("events = %v", names)
	}

	if _, err := e.svc.Map(context.Background(), MapRequest{Focus: 404}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMap_IgnoresUnusableViewportSize(t *testing.T) {
	e := newEnv(t)
	seedMap(t, e.svc)

	for _, size := range [][2]float64{{math.Inf(1), math.Inf(1)}, {math.NaN(), 600}, {-1, 600}} {
		res, err := e.svc.Map(context.Background(), MapRequest{Width: size[0], Height: size[1]})
		if err != nil {
			t.Fatalf("Map(%v): %v", size, err)
		}
		if _, err := json.Marshal(res.Snapshot); err != nil {
			t.Errorf("Map(%v) snapshot does not encode: %v", size, err)
		}
		if vp := res.Snapshot.Viewport; vp.Width != 1200 || vp.Height != 800 {
			t.Errorf("Map(%v) viewport = %vx%v, want default", size, vp.Width, vp.Height)
		}
	}
}

func TestMap_Images(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.svc.Map(ctx, MapRequest{Format: FormatPNG}); !errors.Is(err, scene.ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}

	seedMap(t, e.svc)
	res, err := e.svc.Map(ctx, MapRequest{Format: FormatPNG, Layout: layout.StrategyForce})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(bytes.NewReader(res.Image)); err != nil {
		t.Errorf("invalid png: %v", err)
	}

	res, err = e.svc.Map(ctx, MapRequest{Format: FormatSVG})
	if err != nil {
		t.Fatal(err)
	}
	if res.ContentType != "image/svg+xml" || !bytes.Contains(res.Image, []byte("Sunblade")) {
		t.Errorf("svg = %s", res.Image)
	}

	if _, err := e.svc.Map(ctx, MapRequest{Format: "gif"}); err == nil {
		t.Error("expected unknown format error")
	}
}

func TestExportMap(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "map.svg")

	ok, err := e.svc.ExportMap(ctx, MapRequest{}, out)
	if err != nil || ok {
		t.Fatalf("empty export: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatal("empty export created a file")
	}

	seedMap(t, e.svc)
	ok, err = e.svc.ExportMap(ctx, MapRequest{}, out)
	if err != nil || !ok {
		t.Fatalf("export: ok=%v err=%v", ok, err)
	}
	data, _ := os.ReadFile(out)
	if !bytes.HasPrefix(data, []byte("<?xml")) {
		t.Errorf("not svg: %.40s", data)
	}
}

func TestSyncMirror(t *testing.T) {
	e := newEnv(t)
	seedMap(t, e.svc)
	stale := filepath.Join(e.dir, vault.EntryPath(77))
	if err := os.WriteFile(stale, []byte("---\nid: 77\n---\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := e.svc.SyncMirror(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale file kept")
	}
}
