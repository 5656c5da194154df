// Package graph builds the directed relationship graph that the layout and
// scene packages operate on.
//
// A Graph is a pure projection of the record store at build time: it is never
// persisted and is rebuilt from scratch whenever a map is opened.
package graph

// Node is one entry in the graph.
type Node struct {
	ID       int64  `json:"id"`
	Label    string `json:"label"`
	Category string `json:"category"`
}

// Edge is one directed relationship between two nodes.
type Edge struct {
	From  int64  `json:"from"`
	To    int64  `json:"to"`
	Label string `json:"label"`
}

// Graph is a directed simple graph with deterministic iteration order.
// Nodes iterate in insertion order; each node's out-edges iterate in the
// order their target was first linked.
type Graph struct {
	order []int64
	nodes map[int64]*Node

	succ     map[int64][]int64
	pred     map[int64][]int64
	edgeData map[[2]int64]*Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[int64]*Node),
		succ:     make(map[int64][]int64),
		pred:     make(map[int64][]int64),
		edgeData: make(map[[2]int64]*Edge),
	}
}

// AddNode inserts a node or replaces the attributes of an existing one
// without changing its position in the iteration order.
func (g *Graph) AddNode(n Node) {
	if existing, ok := g.nodes[n.ID]; ok {
		*existing = n
		return
	}
	node := n
	g.nodes[n.ID] = &node
	g.order = append(g.order, n.ID)
}

// AddEdge links from -> to. Both nodes must already exist; it reports
// whether the edge was accepted. Re-adding an existing edge updates its label.
func (g *Graph) AddEdge(from, to int64, label string) bool {
	if !g.Has(from) || !g.Has(to) {
		return false
	}
	key := [2]int64{from, to}
	if e, ok := g.edgeData[key]; ok {
		e.Label = label
		return true
	}
	g.edgeData[key] = &Edge{From: from, To: to, Label: label}
	g.succ[from] = append(g.succ[from], to)
	g.pred[to] = append(g.pred[to], from)
	return true
}

// Has reports whether id is a node.
func (g *Graph) Has(id int64) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the node with the given id.
func (g *Graph) Node(id int64) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Len is the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

// EdgeCount is the number of directed edges.
func (g *Graph) EdgeCount() int { return len(g.edgeData) }

// NodeIDs returns node ids in insertion order.
func (g *Graph) NodeIDs() []int64 {
	return append([]int64(nil), g.order...)
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Edges returns every edge, grouped by source node in node order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edgeData))
	for _, from := range g.order {
		for _, to := range g.succ[from] {
			out = append(out, *g.edgeData[[2]int64{from, to}])
		}
	}
	return out
}

// Edge returns the edge from -> to.
func (g *Graph) Edge(from, to int64) (Edge, bool) {
	e, ok := g.edgeData[[2]int64{from, to}]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// Successors returns the targets of id's out-edges.
func (g *Graph) Successors(id int64) []int64 {
	return append([]int64(nil), g.succ[id]...)
}

// Predecessors returns the sources of id's in-edges.
func (g *Graph) Predecessors(id int64) []int64 {
	return append([]int64(nil), g.pred[id]...)
}

// Neighbors returns successors then predecessors of id without duplicates.
func (g *Graph) Neighbors(id int64) []int64 {
	seen := make(map[int64]struct{})
	var out []int64
	for _, list := range [][]int64{g.succ[id], g.pred[id]} {
		for _, n := range list {
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

// Degree counts edges touching id regardless of direction. A self-loop
// counts twice.
func (g *Graph) Degree(id int64) int {
	return len(g.succ[id]) + len(g.pred[id])
}

// Undirected returns the undirected view used by tree traversal.
func (g *Graph) Undirected() *Undirected {
	u := &Undirected{adj: make(map[int64][]int64, len(g.order)), self: make(map[int64]bool)}
	has := make(map[[2]int64]struct{})
	link := func(a, b int64) {
		if _, ok := has[[2]int64{a, b}]; ok {
			return
		}
		has[[2]int64{a, b}] = struct{}{}
		u.adj[a] = append(u.adj[a], b)
	}
	for _, from := range g.order {
		if _, ok := u.adj[from]; !ok {
			u.adj[from] = nil
		}
		for _, to := range g.succ[from] {
			if from == to {
				u.self[from] = true
			}
			link(from, to)
			link(to, from)
		}
	}
	return u
}

// Undirected is a direction-agnostic adjacency view in which a pair of
// reciprocal edges collapses into one.
type Undirected struct {
	adj  map[int64][]int64
	self map[int64]bool
}

// Neighbors returns id's neighbours in discovery order.
func (u *Undirected) Neighbors(id int64) []int64 { return u.adj[id] }

// Degree is the number of undirected edges touching id; a self-loop counts twice.
func (u *Undirected) Degree(id int64) int {
	d := len(u.adj[id])
	if u.self[id] {
		d++
	}
	return d
}
