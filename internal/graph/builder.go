package graph

import (
	"fmt"

	"github.com/starford/lorekeep/internal/models"
)

// Fallback attribute values for missing fields.
const (
	DefaultCategory = models.CategoryDefault
	DefaultEdgeType = "relationship"
)

// Build projects entry and relationship rows into a directed graph.
// Relationships referencing entries absent from entries are dropped silently.
func Build(entries []models.Entry, relationships []models.Relationship) *Graph {
	g := New()
	for _, e := range entries {
		g.AddNode(NodeFor(e))
	}
	for _, r := range relationships {
		label := r.Type
		if label == "" {
			label = DefaultEdgeType
		}
		g.AddEdge(r.EntryA, r.EntryB, label)
	}
	return g
}

// NodeFor derives a node from an entry, applying label/category defaults.
func NodeFor(e models.Entry) Node {
	label := e.Title
	if label == "" {
		label = fmt.Sprintf("ID %d", e.ID)
	}
	category := e.Category
	if category == "" {
		category = DefaultCategory
	}
	return Node{ID: e.ID, Label: label, Category: category}
}
