package graph

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/lorekeep/internal/models"
)

func TestBuild_Defaults(t *testing.T) {
	g := Build(
		[]models.Entry{{ID: 1, Title: "Aria", Category: "Character"}, {ID: 2}},
		[]models.Relationship{{ID: 1, EntryA: 1, EntryB: 2}},
	)

	n, ok := g.Node(2)
	require.True(t, ok)
	assert.Equal(t, "ID 2", n.Label)
	assert.Equal(t, "default", n.Category)

	e, ok := g.Edge(1, 2)
	require.True(t, ok)
	assert.Equal(t, "relationship", e.Label)
}

func TestBuild_DropsDanglingRelationships(t *testing.T) {
	g := Build(
		[]models.Entry{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}},
		[]models.Relationship{{ID: 1, EntryA: 1, EntryB: 3, Type: "Ally"}},
	)
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 0, g.EdgeCount())
}

func TestBuild_PreservesTypesAndDirection(t *testing.T) {
	g := Build(
		[]models.Entry{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}, {ID: 3, Title: "C"}},
		[]models.Relationship{
			{ID: 1, EntryA: 1, EntryB: 2, Type: "Ally"},
			{ID: 2, EntryA: 2, EntryB: 3, Type: "Enemy"},
		},
	)
	assert.Equal(t, []Edge{
		{From: 1, To: 2, Label: "Ally"},
		{From: 2, To: 3, Label: "Enemy"},
	}, g.Edges())
	assert.Equal(t, []int64{3}, g.Successors(2))
	assert.Equal(t, []int64{1}, g.Predecessors(2))
	assert.Equal(t, []int64{3, 1}, g.Neighbors(2))
}

func TestBuild_RepeatedRelationshipKeepsSlotTakesLastLabel(t *testing.T) {
	g := Build(
		[]models.Entry{{ID: 1}, {ID: 2}, {ID: 3}},
		[]models.Relationship{
			{ID: 1, EntryA: 1, EntryB: 2, Type: "Ally"},
			{ID: 2, EntryA: 1, EntryB: 3, Type: "Sibling"},
			{ID: 3, EntryA: 1, EntryB: 2, Type: "Rival"},
		},
	)
	edges := g.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, Edge{From: 1, To: 2, Label: "Rival"}, edges[0])
	assert.Equal(t, 2, g.Degree(1))
}

func TestEdges_IterateBySourceNodeOrder(t *testing.T) {
	g := Build(
		[]models.Entry{{ID: 1}, {ID: 2}, {ID: 3}},
		[]models.Relationship{
			{ID: 1, EntryA: 3, EntryB: 1},
			{ID: 2, EntryA: 1, EntryB: 2},
		},
	)
	edges := g.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, int64(1), edges[0].From)
	assert.Equal(t, int64(3), edges[1].From)
}

func TestDegree_DirectedAndUndirected(t *testing.T) {
	g := Build(
		[]models.Entry{{ID: 1}, {ID: 2}, {ID: 3}},
		[]models.Relationship{
			{ID: 1, EntryA: 1, EntryB: 2},
			{ID: 2, EntryA: 2, EntryB: 1},
			{ID: 3, EntryA: 3, EntryB: 3},
		},
	)
	assert.Equal(t, 2, g.Degree(1))
	assert.Equal(t, 2, g.Degree(3))

	u := g.Undirected()
	assert.Equal(t, 1, u.Degree(1))
	assert.Equal(t, []int64{2}, u.Neighbors(1))
	assert.Equal(t, 2, u.Degree(3))
}

func genRows() gopter.Gen {
	return gopter.CombineGens(
		gen.SliceOfN(8, gen.Int64Range(1, 12)),
		gen.SliceOf(gen.SliceOfN(2, gen.Int64Range(1, 15))),
	)
}

func TestBuild_Invariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("every node is an input entry and no edge dangles", prop.ForAll(
		func(values []interface{}) bool {
			ids := values[0].([]int64)
			pairs := values[1].([][]int64)

			var entries []models.Entry
			input := make(map[int64]bool)
			for _, id := range ids {
				if input[id] {
					continue
				}
				input[id] = true
				entries = append(entries, models.Entry{ID: id})
			}
			var rels []models.Relationship
			for i, p := range pairs {
				rels = append(rels, models.Relationship{ID: int64(i + 1), EntryA: p[0], EntryB: p[1]})
			}

			g := Build(entries, rels)
			if g.Len() != len(entries) {
				return false
			}
			for _, n := range g.Nodes() {
				if !input[n.ID] {
					return false
				}
			}
			for _, e := range g.Edges() {
				if !g.Has(e.From) || !g.Has(e.To) {
					return false
				}
			}
			return true
		},
		genRows(),
	))

	properties.TestingRun(t)
}
