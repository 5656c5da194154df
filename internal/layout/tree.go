package layout

import (
	"sort"

	"github.com/starford/lorekeep/internal/graph"
)

// Tree lays the graph out in horizontal rows by breadth-first distance from
// root, treating edges as undirected. Nodes unreachable from root each get
// a row of their own below the deepest reached row.
func Tree(g *graph.Graph, root int64, cfg Config) (Positions, error) {
	layers, err := Layers(g, root)
	if err != nil {
		return nil, err
	}

	pos := make(Positions, g.Len())
	for depth, nodes := range layers {
		width := float64(len(nodes)-1) * cfg.HorizontalGap
		startX := -width / 2
		for i, id := range nodes {
			pos[id] = Position{
				X: startX + float64(i)*cfg.HorizontalGap,
				Y: float64(depth) * cfg.VerticalGap,
			}
		}
	}
	return pos, nil
}

// Layers returns the node ids of each depth, each row ordered by descending
// undirected degree with ties in discovery order.
func Layers(g *graph.Graph, root int64) ([][]int64, error) {
	if !g.Has(root) {
		return nil, ErrNoRoot
	}
	ug := g.Undirected()

	type item struct {
		id    int64
		depth int
	}
	var layers [][]int64
	visited := map[int64]bool{root: true}
	queue := []item{{root, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth == len(layers) {
			layers = append(layers, nil)
		}
		layers[cur.depth] = append(layers[cur.depth], cur.id)
		for _, n := range ug.Neighbors(cur.id) {
			if !visited[n] {
				visited[n] = true
				queue = append(queue, item{n, cur.depth + 1})
			}
		}
	}

	for _, id := range g.NodeIDs() {
		if !visited[id] {
			layers = append(layers, []int64{id})
		}
	}

	for _, row := range layers {
		sort.SliceStable(row, func(i, j int) bool {
			return ug.Degree(row[i]) > ug.Degree(row[j])
		})
	}
	return layers, nil
}

// Depths returns the row index assigned to every node by Layers.
func Depths(g *graph.Graph, root int64) (map[int64]int, error) {
	layers, err := Layers(g, root)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]int, g.Len())
	for depth, row := range layers {
		for _, id := range row {
			out[id] = depth
		}
	}
	return out, nil
}
