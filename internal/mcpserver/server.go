// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Lorekeep tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/lorekeep/internal/entryservice"
	"github.com/starford/lorekeep/internal/layout"
	"github.com/starford/lorekeep/internal/models"
	"github.com/starford/lorekeep/internal/scene"
)

const categoriesURI = "lorekeep://categories"

// Server wraps the MCP server with Lorekeep tools.
type Server struct {
	mcp *server.MCPServer
	svc *entryservice.Service
}

// New creates a new MCP server with all Lorekeep tools registered.
func New(svc *entryservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Lorekeep",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_entries",
		mcp.WithDescription("Fuzzy search across entry titles, descriptions, categories, tags and synonyms."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchEntries)

	s.mcp.AddTool(mcp.NewTool("read_entry",
		mcp.WithDescription("Read an entry with all of its relationships."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Entry id")),
	), s.readEntry)

	s.mcp.AddTool(mcp.NewTool("create_entry",
		mcp.WithDescription("Create a new entry. Read the lorekeep://categories resource "+
			"for the category and tag conventions."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Entry title")),
		mcp.WithString("description", mcp.Description("Free-text description")),
		mcp.WithString("category", mcp.Description("Character, Location, Item or Event")),
		mcp.WithString("tags", mcp.Description("Comma-delimited tags")),
		mcp.WithString("synonyms", mcp.Description("Comma-delimited alternative names")),
	), s.createEntry)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List all entries or the entries of one category."),
		mcp.WithString("category", mcp.Description("Optional category filter (empty for all)")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("get_relationships",
		mcp.WithDescription("List the relationships that start or end at an entry."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Entry id")),
	), s.getRelationships)

	s.mcp.AddTool(mcp.NewTool("add_relationship",
		mcp.WithDescription("Link one entry to another with a typed relationship."),
		mcp.WithNumber("from", mcp.Required(), mcp.Description("Source entry id")),
		mcp.WithNumber("to", mcp.Required(), mcp.Description("Target entry id")),
		mcp.WithString("type", mcp.Description("Relationship label, e.g. 'lives in'")),
	), s.addRelationship)

	s.mcp.AddTool(mcp.NewTool("render_map",
		mcp.WithDescription("Lay out the relationship map and return node positions or an image."),
		mcp.WithString("layout", mcp.Description("tree or force (default: tree when root is set)")),
		mcp.WithNumber("root", mcp.Description("Root entry id for the tree layout")),
		mcp.WithNumber("focus", mcp.Description("Entry to highlight with its neighbours")),
		mcp.WithString("format", mcp.Description("json (default), png or svg")),
	), s.renderMap)

	s.mcp.AddResource(
		mcp.NewResource(categoriesURI, "Entry Categories",
			mcp.WithResourceDescription("Category, tag and relationship conventions for entries."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCategoriesResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func requireID(req mcp.CallToolRequest, key string) (int64, error) {
	v, err := req.RequireFloat(key)
	if err != nil {
		return 0, err
	}
	if v <= 0 || v != float64(int64(v)) {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return int64(v), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no entries found"), nil
	}
	return jsonResult(results)
}

func (s *Server) readEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetEntry(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %d", id)), nil
	}
	return jsonResult(d)
}

func (s *Server) createEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.CreateEntry(ctx, models.Entry{
		Title:       title,
		Description: req.GetString("description", ""),
		Category:    req.GetString("category", ""),
		Tags:        req.GetString("tags", ""),
		Synonyms:    req.GetString("synonyms", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %d %s", d.ID, d.Title)), nil
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.svc.ListEntries(ctx, req.GetString("category", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%d\t%s\t%s", e.ID, e.Title, e.Category))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getRelationships(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rels, err := s.svc.Relationships(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(rels) == 0 {
		return mcp.NewToolResultText("no relationships found"), nil
	}
	lines := make([]string, 0, len(rels))
	for _, r := range rels {
		lines = append(lines, fmt.Sprintf("%d\t%d -[%s]-> %d", r.ID, r.EntryA, r.Type, r.EntryB))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) addRelationship(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := requireID(req, "from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := requireID(req, "to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rel, err := s.svc.AddRelationship(ctx, from, to, req.GetString("type", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("linked: %d", rel.ID)), nil
}

func (s *Server) renderMap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var mr entryservice.MapRequest
	if v := req.GetString("layout", ""); v != "" {
		st, err := layout.ParseStrategy(v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		mr.Layout = st
	}
	mr.Root = int64(req.GetInt("root", 0))
	mr.Focus = int64(req.GetInt("focus", 0))
	mr.Format = req.GetString("format", entryservice.FormatJSON)

	res, err := s.svc.Map(ctx, mr)
	if errors.Is(err, scene.ErrEmpty) {
		return mcp.NewToolResultText("the map is empty"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.Image == nil {
		return jsonResult(res.Snapshot)
	}
	if mr.Format == entryservice.FormatSVG {
		return mcp.NewToolResultText(string(res.Image)), nil
	}
	summary := fmt.Sprintf("%d entries, %d relationships, %s layout",
		len(res.Snapshot.Nodes), len(res.Snapshot.Edges), res.Snapshot.Strategy)
	return mcp.NewToolResultImage(summary, base64.StdEncoding.EncodeToString(res.Image), res.ContentType), nil
}

func (s *Server) readCategoriesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      categoriesURI,
			MIMEType: "text/markdown",
			Text:     CategoryContract,
		},
	}, nil
}
