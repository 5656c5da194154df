package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/lorekeep/internal/entryservice"
	"github.com/starford/lorekeep/internal/scene"
	"github.com/starford/lorekeep/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	svc := entryservice.New(testutil.TestStore(t), entryservice.WithLogger(testutil.QuietLogger()))
	return New(svc)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so dispatch to the
	// handler functions by name.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_entries":
		result, err = srv.searchEntries(ctx, req)
	case "read_entry":
		result, err = srv.readEntry(ctx, req)
	case "create_entry":
		result, err = srv.createEntry(ctx, req)
	case "list_entries":
		result, err = srv.listEntries(ctx, req)
	case "get_relationships":
		result, err = srv.getRelationships(ctx, req)
	case "add_relationship":
		result, err = srv.addRelationship(ctx, req)
	case "render_map":
		result, err = srv.renderMap(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// seed creates Aria (1), Harbor (2) and Lute (3) with Aria linked to both.
func seed(t *testing.T, srv *Server) {
	t.Helper()
	for _, e := range []map[string]any{
		{"title": "Aria", "category": "Character", "tags": "music, travel"},
		{"title": "Harbor", "category": "Location"},
		{"title": "Lute", "category": "Item"},
	} {
		if r := callTool(t, srv, "create_entry", e); r.IsError {
			t.Fatalf("create %v: %s", e["title"], resultText(r))
		}
	}
	for _, l := range []map[string]any{
		{"from": float64(1), "to": float64(2), "type": "lives in"},
		{"from": float64(1), "to": float64(3), "type": "owns"},
	} {
		if r := callTool(t, srv, "add_relationship", l); r.IsError {
			t.Fatalf("link: %s", resultText(r))
		}
	}
}

func TestCreateAndReadEntry(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "create_entry", map[string]any{
		"title":       "Aria",
		"description": "A wandering bard",
		"category":    "Character",
	})
	if text := resultText(r); text != "created: 1 Aria" {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "read_entry", map[string]any{"id": float64(1)})
	var d entryservice.EntryDetail
	if err := json.Unmarshal([]byte(resultText(r)), &d); err != nil {
		t.Fatalf("read result: %v", err)
	}
	if d.Title != "Aria" || d.Description != "A wandering bard" {
		t.Errorf("entry = %+v", d.Entry)
	}
}

func TestReadEntryMissing(t *testing.T) {
	srv := testServer(t)

	if r := callTool(t, srv, "read_entry", map[string]any{"id": float64(7)}); !r.IsError {
		t.Error("expected error for missing entry")
	}
	if r := callTool(t, srv, "read_entry", map[string]any{"id": 1.5}); !r.IsError {
		t.Error("expected error for fractional id")
	}
	if r := callTool(t, srv, "read_entry", map[string]any{}); !r.IsError {
		t.Error("expected error for missing id")
	}
}

func TestListEntries(t *testing.T) {
	srv := testServer(t)
	seed(t, srv)

	text := resultText(callTool(t, srv, "list_entries", map[string]any{}))
	if got := len(strings.Split(text, "\n")); got != 3 {
		t.Errorf("list lines = %d, want 3: %q", got, text)
	}

	text = resultText(callTool(t, srv, "list_entries", map[string]any{"category": "location"}))
	if text != "2\tHarbor\tLocation" {
		t.Errorf("location list = %q", text)
	}
}

func TestSearchEntries(t *testing.T) {
	srv := testServer(t)
	seed(t, srv)

	text := resultText(callTool(t, srv, "search_entries", map[string]any{"query": "music"}))
	var results []entryservice.SearchResult
	if err := json.Unmarshal([]byte(text), &results); err != nil {
		t.Fatalf("search result %q: %v", text, err)
	}
	if len(results) == 0 || results[0].Entry.Title != "Aria" {
		t.Errorf("results = %+v", results)
	}

	text = resultText(callTool(t, srv, "search_entries", map[string]any{"query": "zzzzqqq"}))
	if text != "no entries found" {
		t.Errorf("empty search = %q", text)
	}
}

func TestRelationships(t *testing.T) {
	srv := testServer(t)
	seed(t, srv)

	text := resultText(callTool(t, srv, "get_relationships", map[string]any{"id": float64(2)}))
	if text != "1\t1 -[lives in]-> 2" {
		t.Errorf("relationships = %q", text)
	}

	r := callTool(t, srv, "add_relationship", map[string]any{"from": float64(1), "to": float64(99)})
	if !r.IsError {
		t.Error("expected error linking to a missing entry")
	}
}

func TestRenderMap_JSON(t *testing.T) {
	srv := testServer(t)
	seed(t, srv)

	text := resultText(callTool(t, srv, "render_map", map[string]any{
		"layout": "tree",
		"root":   float64(1),
		"focus":  float64(2),
	}))
	var snap scene.Snapshot
	if err := json.Unmarshal([]byte(text), &snap); err != nil {
		t.Fatalf("snapshot %q: %v", text, err)
	}
	if snap.Strategy != "tree" || len(snap.Nodes) != 3 || len(snap.Edges) != 2 {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(snap.Highlighted) != 2 {
		t.Errorf("highlighted = %v, want focus and its neighbour", snap.Highlighted)
	}
}

func TestRenderMap_Image(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "render_map", map[string]any{"format": "png"})
	if text := resultText(r); text != "the map is empty" {
		t.Errorf("empty map = %q", text)
	}

	seed(t, srv)
	r = callTool(t, srv, "render_map", map[string]any{"format": "png", "layout": "force"})
	if r.IsError || len(r.Content) != 2 {
		t.Fatalf("png result = %+v", r)
	}
	img, ok := r.Content[1].(mcp.ImageContent)
	if !ok || img.MIMEType != "image/png" || img.Data == "" {
		t.Errorf("image content = %+v", r.Content[1])
	}

	r = callTool(t, srv, "render_map", map[string]any{"format": "svg"})
	if !strings.Contains(resultText(r), "<svg") {
		t.Error("svg result is not an SVG document")
	}

	if r := callTool(t, srv, "render_map", map[string]any{"layout": "spiral"}); !r.IsError {
		t.Error("expected error for unknown layout")
	}
}

func TestCategoriesResource(t *testing.T) {
	srv := testServer(t)

	contents, err := srv.readCategoriesResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != "lorekeep://categories" {
		t.Fatalf("contents = %+v", contents)
	}
	for _, c := range []string{"Character", "Location", "Item", "Event"} {
		if !strings.Contains(tc.Text, c) {
			t.Errorf("contract missing category %s", c)
		}
	}
}
