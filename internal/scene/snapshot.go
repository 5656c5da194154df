package scene

import "github.com/starford/lorekeep/internal/layout"

// NodeView is the serialisable state of a NodeShape.
type NodeView struct {
	ID       int64   `json:"id"`
	Label    string  `json:"label"`
	Category string  `json:"category"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Radius   float64 `json:"radius"`
	Color    string  `json:"color"`
	Opacity  float64 `json:"opacity"`
}

// EdgeView is the serialisable state of an EdgeShape.
type EdgeView struct {
	From    int64   `json:"from"`
	To      int64   `json:"to"`
	Label   string  `json:"label"`
	Source  Point   `json:"source"`
	Control Point   `json:"control"`
	Target  Point   `json:"target"`
	LabelAt Point   `json:"label_at"`
	Opacity float64 `json:"opacity"`
}

// Snapshot is everything a remote front-end needs to redraw the surface.
type Snapshot struct {
	Strategy    layout.Strategy `json:"strategy"`
	State       string          `json:"state"`
	Nodes       []NodeView      `json:"nodes"`
	Edges       []EdgeView      `json:"edges"`
	Bounds      Rect            `json:"bounds"`
	Viewport    Viewport        `json:"viewport"`
	Highlighted []int64         `json:"highlighted,omitempty"`
}

// Snapshot captures the current shapes, viewport and highlight.
func (v *Viewer) Snapshot() Snapshot {
	s := Snapshot{
		Strategy:    v.strategy,
		State:       v.state.String(),
		Nodes:       make([]NodeView, 0, len(v.order)),
		Edges:       make([]EdgeView, 0, len(v.edges)),
		Bounds:      v.Bounds(),
		Viewport:    v.vp,
		Highlighted: v.Highlighted(),
	}
	for _, n := range v.order {
		s.Nodes = append(s.Nodes, NodeView{
			ID:       n.ID,
			Label:    n.Label.Text,
			Category: n.Category,
			X:        n.center.X,
			Y:        n.center.Y,
			Radius:   n.radius,
			Color:    Hex(n.fill),
			Opacity:  n.opacity,
		})
	}
	for _, e := range v.edges {
		s.Edges = append(s.Edges, EdgeView{
			From:    e.From,
			To:      e.To,
			Label:   e.Label.Text,
			Source:  e.p0,
			Control: e.ctrl,
			Target:  e.p1,
			LabelAt: e.Label.center,
			Opacity: e.opacity,
		})
	}
	return s
}
