package layout

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/lorekeep/internal/graph"
	"github.com/starford/lorekeep/internal/models"
)

func chain() *graph.Graph {
	return graph.Build(
		[]models.Entry{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}, {ID: 3, Title: "C"}},
		[]models.Relationship{
			{ID: 1, EntryA: 1, EntryB: 2, Type: "Ally"},
			{ID: 2, EntryA: 2, EntryB: 3, Type: "Enemy"},
		},
	)
}

func TestTree_ChainDepths(t *testing.T) {
	g := chain()
	depths, err := Depths(g, 1)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 0, 2: 1, 3: 2}, depths)

	pos, err := Tree(g, 1, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, Position{X: 0, Y: 0}, pos[1])
	assert.Equal(t, Position{X: 0, Y: 170}, pos[2])
	assert.Equal(t, Position{X: 0, Y: 340}, pos[3])

	e, _ := g.Edge(1, 2)
	assert.Equal(t, "Ally", e.Label)
	e, _ = g.Edge(2, 3)
	assert.Equal(t, "Enemy", e.Label)
}

func TestTree_UsesEdgesInBothDirections(t *testing.T) {
	g := chain()
	depths, err := Depths(g, 3)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{3: 0, 2: 1, 1: 2}, depths)
}

func TestTree_DisconnectedNodesGetOwnRows(t *testing.T) {
	g := graph.Build(
		[]models.Entry{{ID: 10}, {ID: 11}, {ID: 12}, {ID: 13}},
		[]models.Relationship{{ID: 1, EntryA: 10, EntryB: 11}},
	)
	depths, err := Depths(g, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, depths[10])
	assert.Equal(t, 1, depths[11])
	assert.Equal(t, 2, depths[12])
	assert.Equal(t, 3, depths[13])

	pos, err := Tree(g, 10, DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, pos, 4)
	assert.Equal(t, Position{X: 0, Y: 510}, pos[13])
}

func TestTree_RowsCentredAndSortedByDegree(t *testing.T) {
	// 1 -> 2, 1 -> 3, 3 -> 4: row 1 holds {2, 3} and 3 has the higher degree.
	g := graph.Build(
		[]models.Entry{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}},
		[]models.Relationship{
			{ID: 1, EntryA: 1, EntryB: 2},
			{ID: 2, EntryA: 1, EntryB: 3},
			{ID: 3, EntryA: 3, EntryB: 4},
		},
	)
	layers, err := Layers(g, 1)
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{1}, {3, 2}, {4}}, layers)

	pos, _ := Tree(g, 1, DefaultConfig())
	assert.Equal(t, Position{X: -75, Y: 170}, pos[3])
	assert.Equal(t, Position{X: 75, Y: 170}, pos[2])
}

func TestTree_NoRoot(t *testing.T) {
	_, err := Tree(chain(), 99, DefaultConfig())
	assert.ErrorIs(t, err, ErrNoRoot)
}

func TestCompute_FallsBackToForce(t *testing.T) {
	pos, used := Compute(chain(), StrategyTree, 99, DefaultConfig())
	assert.Equal(t, StrategyForce, used)
	assert.Len(t, pos, 3)

	_, used = Compute(chain(), StrategyTree, 1, DefaultConfig())
	assert.Equal(t, StrategyTree, used)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("force")
	require.NoError(t, err)
	assert.Equal(t, StrategyForce, s)
	_, err = ParseStrategy("radial")
	assert.Error(t, err)
}

func TestForce_ScaledAndSeeded(t *testing.T) {
	cfg := DefaultConfig()
	g := chain()
	a := Force(g, cfg)
	b := Force(g, cfg)
	assert.Equal(t, a, b)

	var maxAbs float64
	for _, p := range a {
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(p.X), math.Abs(p.Y)))
	}
	assert.InDelta(t, cfg.Scale, maxAbs, 1e-6)
}

func TestForce_SmallGraphs(t *testing.T) {
	assert.Empty(t, Force(graph.New(), DefaultConfig()))

	g := graph.Build([]models.Entry{{ID: 5}}, nil)
	assert.Equal(t, Positions{5: {}}, Force(g, DefaultConfig()))
}

func TestForce_CoversEveryNodeWithinScale(t *testing.T) {
	g := graph.Build(
		[]models.Entry{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}},
		[]models.Relationship{{ID: 1, EntryA: 1, EntryB: 2}, {ID: 2, EntryA: 3, EntryB: 4}},
	)
	cfg := DefaultConfig()
	pos := Force(g, cfg)
	require.Len(t, pos, 4)
	for id, p := range pos {
		assert.False(t, math.IsNaN(p.X) || math.IsNaN(p.Y), "node %d", id)
		assert.LessOrEqual(t, math.Abs(p.X), cfg.Scale+1e-9)
		assert.LessOrEqual(t, math.Abs(p.Y), cfg.Scale+1e-9)
	}
}

func TestTree_Deterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("same graph and root give same positions", prop.ForAll(
		func(pairs [][]int64) bool {
			entries := make([]models.Entry, 0, 10)
			for id := int64(1); id <= 10; id++ {
				entries = append(entries, models.Entry{ID: id})
			}
			var rels []models.Relationship
			for i, p := range pairs {
				rels = append(rels, models.Relationship{ID: int64(i), EntryA: p[0], EntryB: p[1]})
			}
			a, errA := Tree(graph.Build(entries, rels), 1, DefaultConfig())
			b, errB := Tree(graph.Build(entries, rels), 1, DefaultConfig())
			if errA != nil || errB != nil || len(a) != 10 {
				return false
			}
			for id, p := range a {
				if b[id] != p {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.SliceOfN(2, gen.Int64Range(1, 10))),
	))

	properties.TestingRun(t)
}
