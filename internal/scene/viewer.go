// Package scene is the render and interaction surface for a relationship
// graph: node and edge shapes, a viewport, click highlighting, drag, pan and
// zoom, fit-to-view and image export.
//
// The surface is backend independent. A host feeds it pointer and wheel
// events in view pixels and paints it through a Canvas; PNG and SVG canvases
// are provided.
package scene

import (
	"log/slog"
	"time"

	"github.com/starford/lorekeep/internal/graph"
	"github.com/starford/lorekeep/internal/layout"
)

// State is the lifecycle stage of a Viewer. Every relayout or redraw of a
// constructed viewer passes LaidOut and Rendered before returning to
// Interactive.
type State int

const (
	Uninitialized State = iota // zero value, never observed after New
	LaidOut                    // positions computed
	Rendered                   // shapes built or moved to the positions
	Interactive                // fitted and accepting input
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case LaidOut:
		return "laid_out"
	case Rendered:
		return "rendered"
	case Interactive:
		return "interactive"
	}
	return "unknown"
}

// Modifier is a bit set of keyboard modifiers held during an input event.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModShift
	ModAlt
)

// Observer receives timing and volume signals. Implementations must be
// cheap; they run inline.
type Observer interface {
	LayoutDone(s layout.Strategy, nodes int, d time.Duration)
	Rendered(nodes, edges int)
	Exported(format string)
}

// Option configures a Viewer.
type Option func(*Viewer)

// WithRoot sets the entry the tree layout grows from.
func WithRoot(id int64) Option {
	return func(v *Viewer) { v.root, v.hasRoot = id, true }
}

// WithClickHandler is called with the node id after a click has been
// highlighted.
func WithClickHandler(fn func(id int64)) Option {
	return func(v *Viewer) { v.onClick = fn }
}

// WithTheme replaces the default palette and geometry.
func WithTheme(t Theme) Option { return func(v *Viewer) { v.theme = t } }

// WithLayoutConfig sets the gaps and force constants used by every layout.
func WithLayoutConfig(c layout.Config) Option { return func(v *Viewer) { v.cfg = c } }

// WithStrategy picks the initial layout. A tree without a valid root falls
// back to force.
func WithStrategy(s layout.Strategy) Option { return func(v *Viewer) { v.initial = s } }

// WithViewportSize sets the view size in pixels.
func WithViewportSize(w, h float64) Option {
	return func(v *Viewer) { v.vp.Width, v.vp.Height = w, h }
}

// WithLogger sets the logger for layout timings. The default is slog.Default().
func WithLogger(l *slog.Logger) Option { return func(v *Viewer) { v.log = l } }

// WithObserver receives layout, render and export signals.
func WithObserver(o Observer) Option { return func(v *Viewer) { v.obs = o } }

type dragState struct {
	node    *NodeShape
	offset  Point
	panning bool
	last    Point
}

// Viewer owns node positions, the shapes drawn from them, the highlight set
// and the viewport. It is not safe for concurrent use.
type Viewer struct {
	g       *graph.Graph
	root    int64
	hasRoot bool
	onClick func(int64)
	theme   Theme
	cfg     layout.Config
	initial layout.Strategy
	log     *slog.Logger
	obs     Observer
	fm      *fonts

	state     State
	ready     bool
	strategy  layout.Strategy
	pos       layout.Positions
	nodes     map[int64]*NodeShape
	order     []*NodeShape
	edges     []*EdgeShape
	highlight map[int64]bool
	vp        Viewport
	drag      dragState
}

// New lays out g, builds its shapes and fits them into the viewport. The
// initial layout is a tree when a valid root was given and force otherwise.
func New(g *graph.Graph, opts ...Option) *Viewer {
	if g == nil {
		g = graph.New()
	}
	v := &Viewer{
		g:       g,
		theme:   DefaultTheme(),
		cfg:     layout.DefaultConfig(),
		initial: layout.StrategyTree,
		log:     slog.Default(),
		fm:      newFonts(),
		pos:     layout.Positions{},
		vp:      Viewport{Width: 1200, Height: 800, Zoom: 1},
	}
	for _, o := range opts {
		o(v)
	}

	s := v.initial
	if !v.hasRoot {
		s = layout.StrategyForce
	}
	v.runLayout(s)
	v.Draw()
	v.FitToView()
	v.ready = true
	v.settle()
	return v
}

// settle returns a constructed viewer to Interactive after a layout or
// redraw has passed through LaidOut and Rendered.
func (v *Viewer) settle() {
	if v.ready {
		v.state = Interactive
	}
}

func (v *Viewer) runLayout(s layout.Strategy) {
	start := time.Now()
	pos, used := layout.Compute(v.g, s, v.root, v.cfg)
	v.pos, v.strategy = pos, used
	v.state = LaidOut
	d := time.Since(start)
	if v.obs != nil {
		v.obs.LayoutDone(used, v.g.Len(), d)
	}
	v.log.Debug("layout computed",
		slog.String("strategy", string(used)),
		slog.Int("nodes", v.g.Len()),
		slog.Duration("took", d),
	)
}

// ApplyTree recomputes positions as a tree from the root and moves every
// shape in place. It returns layout.ErrNoRoot, changing nothing, when the
// root is missing.
func (v *Viewer) ApplyTree() error {
	if !v.hasRoot || !v.g.Has(v.root) {
		return layout.ErrNoRoot
	}
	v.runLayout(layout.StrategyTree)
	v.reposition()
	v.settle()
	return nil
}

// ApplyForce recomputes positions with the spring embedder and moves every
// shape in place.
func (v *Viewer) ApplyForce() {
	v.runLayout(layout.StrategyForce)
	v.reposition()
	v.settle()
}

func (v *Viewer) reposition() {
	for _, n := range v.order {
		p := v.pos[n.ID]
		n.setCenter(Pt(p.X, p.Y))
	}
	v.routeEdges()
	v.rendered()
}

func (v *Viewer) rendered() {
	v.state = Rendered
	if v.obs != nil {
		v.obs.Rendered(len(v.order), len(v.edges))
	}
}

// Draw discards all shapes and rebuilds them from the graph and the current
// positions. Any highlight is cleared. A pair of nodes linked in both
// directions gets a single edge shape carrying the first label seen.
func (v *Viewer) Draw() {
	t := v.theme
	v.nodes = make(map[int64]*NodeShape, v.g.Len())
	v.order = v.order[:0]
	v.edges = v.edges[:0]
	v.highlight = nil
	v.drag = dragState{}

	for _, n := range v.g.Nodes() {
		s := &NodeShape{
			ID:          n.ID,
			Category:    n.Category,
			Label:       newLabel(n.Label, t.NodeFontSize, t.NodeLabelFill, t.LabelOutline, t.OutlineWidth, v.fm),
			radius:      t.Radius(v.g.Degree(n.ID)),
			fill:        t.Color(n.Category),
			stroke:      t.NodeStroke,
			strokeWidth: t.OutlineWidth,
			opacity:     1,
			emit:        v.Dispatch,
		}
		p := v.pos[n.ID]
		s.setCenter(Pt(p.X, p.Y))
		v.nodes[n.ID] = s
		v.order = append(v.order, s)
	}

	seen := make(map[[2]int64]bool)
	for _, e := range v.g.Edges() {
		key := [2]int64{min(e.From, e.To), max(e.From, e.To)}
		if seen[key] {
			continue
		}
		seen[key] = true
		v.edges = append(v.edges, &EdgeShape{
			From:    e.From,
			To:      e.To,
			Label:   newLabel(e.Label, t.EdgeFontSize, t.EdgeLabelFill, t.LabelOutline, t.OutlineWidth, v.fm),
			stroke:  t.EdgeColor,
			width:   t.EdgeWidth,
			opacity: 1,
		})
	}
	v.routeEdges()
	v.rendered()
	v.settle()
}

// routeEdges re-anchors every edge on its endpoints' current centres.
func (v *Viewer) routeEdges() {
	for _, e := range v.edges {
		a, b := v.nodes[e.From], v.nodes[e.To]
		e.route(a.center, b.center, v.theme.Curvature)
	}
}

// Dispatch handles an event raised by a shape.
func (v *Viewer) Dispatch(e Event) {
	switch e.Kind {
	case NodeMoved:
		v.pos[e.Node] = layout.Position{X: e.At.X, Y: e.At.Y}
		v.routeEdges()
	case NodeClicked:
		v.Highlight(e.Node)
		if v.onClick != nil {
			v.onClick(e.Node)
		}
	}
}

// MoveNode places a node at p as if it had been dragged there.
func (v *Viewer) MoveNode(id int64, p Point) bool {
	n, ok := v.nodes[id]
	if !ok {
		return false
	}
	n.SetCenter(p)
	return true
}

// Click behaves like a pointer press on the node: highlight, then callback.
func (v *Viewer) Click(id int64) bool {
	n, ok := v.nodes[id]
	if !ok {
		return false
	}
	n.Press(n.center)
	return true
}

// Highlight keeps id and its direct neighbours (either direction) opaque and
// dims everything else. Edges stay opaque only when both ends are kept.
func (v *Viewer) Highlight(id int64) bool {
	if _, ok := v.nodes[id]; !ok {
		return false
	}
	keep := map[int64]bool{id: true}
	for _, n := range v.g.Neighbors(id) {
		keep[n] = true
	}
	for _, n := range v.order {
		if keep[n.ID] {
			n.setOpacity(1)
		} else {
			n.setOpacity(v.theme.NodeDim)
		}
	}
	for _, e := range v.edges {
		if keep[e.From] && keep[e.To] {
			e.setOpacity(1)
		} else {
			e.setOpacity(v.theme.EdgeDim)
		}
	}
	v.highlight = keep
	return true
}

// ClearHighlight restores full opacity everywhere.
func (v *Viewer) ClearHighlight() {
	for _, n := range v.order {
		n.setOpacity(1)
	}
	for _, e := range v.edges {
		e.setOpacity(1)
	}
	v.highlight = nil
}

// Highlighted returns the kept node ids in graph order, or nil.
func (v *Viewer) Highlighted() []int64 {
	if v.highlight == nil {
		return nil
	}
	out := make([]int64, 0, len(v.highlight))
	for _, n := range v.order {
		if v.highlight[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}

// NodeAt returns the topmost node under the scene point p.
func (v *Viewer) NodeAt(p Point) (*NodeShape, bool) {
	for i := len(v.order) - 1; i >= 0; i-- {
		if v.order[i].HitTest(p) {
			return v.order[i], true
		}
	}
	return nil, false
}

// Press starts a drag on the node under the pointer, or a pan on empty
// space. at is in view pixels.
func (v *Viewer) Press(at Point) {
	sp := v.vp.ToScene(at)
	if n, ok := v.NodeAt(sp); ok {
		v.drag = dragState{node: n, offset: sp.Sub(n.center)}
		n.Press(sp)
		return
	}
	v.drag = dragState{panning: true, last: at}
}

// Move continues the current drag or pan.
func (v *Viewer) Move(at Point) {
	switch {
	case v.drag.node != nil:
		v.drag.node.SetCenter(v.vp.ToScene(at).Sub(v.drag.offset))
	case v.drag.panning:
		v.vp.panBy(at.Sub(v.drag.last))
		v.drag.last = at
	}
}

// Release ends any drag or pan.
func (v *Viewer) Release() { v.drag = dragState{} }

// Wheel zooms by a fixed step when Ctrl is held and scrolls vertically
// otherwise. Positive delta zooms in.
func (v *Viewer) Wheel(delta float64, mods Modifier) {
	if mods&ModCtrl == 0 {
		v.vp.panBy(Pt(0, delta))
		return
	}
	switch {
	case delta > 0:
		v.vp.zoomBy(v.theme.ZoomIn)
	case delta < 0:
		v.vp.zoomBy(v.theme.ZoomOut)
	}
}

// Bounds is the union of every shape's bounds, labels included.
func (v *Viewer) Bounds() Rect {
	var r Rect
	for _, e := range v.edges {
		r = r.Union(e.Bounds())
	}
	for _, n := range v.order {
		r = r.Union(n.Bounds())
	}
	return r
}

// FitToView scales and centres the viewport on all items. It does nothing
// and returns false when there is nothing to show.
func (v *Viewer) FitToView() bool {
	r := v.Bounds()
	if r.IsNull() {
		return false
	}
	v.vp.fit(r, v.theme.FitMargin)
	return true
}

// Paint draws the scene bottom to top: edges, edge labels, then each node
// with its label.
func (v *Viewer) Paint(c Canvas) {
	for _, e := range v.edges {
		e.Draw(c)
	}
	for _, e := range v.edges {
		e.Label.Draw(c)
	}
	for _, n := range v.order {
		n.Draw(c)
	}
}

// State reports the lifecycle stage; Interactive once New returns.
func (v *Viewer) State() State { return v.state }
// Strategy is the layout actually used last, after any fallback.
func (v *Viewer) Strategy() layout.Strategy { return v.strategy }
// Positions returns a copy of the current node centres.
func (v *Viewer) Positions() layout.Positions { return v.pos.Clone() }
// Viewport returns the current view transform.
func (v *Viewer) Viewport() Viewport { return v.vp }
// Graph returns the graph being shown.
func (v *Viewer) Graph() *graph.Graph { return v.g }
// Node returns the shape of entry id.
func (v *Viewer) Node(id int64) (*NodeShape, bool) {
	n, ok := v.nodes[id]
	return n, ok
}

// Nodes returns the node shapes in graph order.
func (v *Viewer) Nodes() []*NodeShape { return append([]*NodeShape(nil), v.order...) }

// Edges returns the edge shapes in draw order.
func (v *Viewer) Edges() []*EdgeShape { return append([]*EdgeShape(nil), v.edges...) }
