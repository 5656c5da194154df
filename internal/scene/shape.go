package scene

import (
	"image/color"
	"math"
)

// EventKind identifies something a shape reports to its controller.
type EventKind int

const (
	NodeClicked EventKind = iota + 1
	NodeMoved
)

func (k EventKind) String() string {
	switch k {
	case NodeClicked:
		return "node.clicked"
	case NodeMoved:
		return "node.moved"
	}
	return "unknown"
}

// Event is raised by a shape through the callback it was built with.
type Event struct {
	Kind EventKind
	Node int64
	At   Point
}

// Shape is a drawable, hit-testable scene item.
type Shape interface {
	Bounds() Rect
	Draw(Canvas)
	HitTest(Point) bool
}

var (
	_ Shape = (*LabelShape)(nil)
	_ Shape = (*NodeShape)(nil)
	_ Shape = (*EdgeShape)(nil)
)

// LabelShape is a line of outlined text centred on a point.
type LabelShape struct {
	Text         string
	Size         float64
	Fill         color.RGBA
	Outline      color.RGBA
	OutlineWidth float64

	center  Point
	w, h    float64
	opacity float64
}

func newLabel(text string, size float64, fill, outline color.RGBA, outlineWidth float64, fm *fonts) *LabelShape {
	w, h := fm.measure(text, size)
	return &LabelShape{
		Text:         text,
		Size:         size,
		Fill:         fill,
		Outline:      outline,
		OutlineWidth: outlineWidth,
		w:            w,
		h:            h,
		opacity:      1,
	}
}

func (l *LabelShape) Center() Point { return l.center }
func (l *LabelShape) Opacity() float64 { return l.opacity }
func (l *LabelShape) setCenter(p Point) { l.center = p }

// Size of the text box without the outline.
func (l *LabelShape) Extent() (w, h float64) { return l.w, l.h }

func (l *LabelShape) Bounds() Rect {
	if l.Text == "" {
		return Rect{}
	}
	return RectAround(l.center, l.w+2*l.OutlineWidth, l.h+2*l.OutlineWidth)
}

func (l *LabelShape) HitTest(p Point) bool { return l.Bounds().Contains(p) }

func (l *LabelShape) Draw(c Canvas) {
	if l.Text == "" || l.opacity <= 0 {
		return
	}
	c.Text(l.Text, l.center, l.Size, fade(l.Fill, l.opacity), fade(l.Outline, l.opacity), l.OutlineWidth)
}

// NodeShape is an entry drawn as a filled circle with its title centred on
// it. Moving or pressing it raises an Event; the shape never looks at other
// shapes.
type NodeShape struct {
	ID       int64
	Category string
	Label    *LabelShape

	radius      float64
	fill        color.RGBA
	stroke      color.RGBA
	strokeWidth float64
	center      Point
	opacity     float64
	emit        func(Event)
}

func (n *NodeShape) Center() Point { return n.center }
func (n *NodeShape) Radius() float64 { return n.radius }
func (n *NodeShape) Fill() color.RGBA { return n.fill }
func (n *NodeShape) Opacity() float64 { return n.opacity }

func (n *NodeShape) setCenter(p Point) {
	n.center = p
	n.Label.setCenter(p)
}

func (n *NodeShape) setOpacity(o float64) {
	n.opacity = o
	n.Label.opacity = o
}

// SetCenter moves the node and reports the move.
func (n *NodeShape) SetCenter(p Point) {
	n.setCenter(p)
	n.raise(Event{Kind: NodeMoved, Node: n.ID, At: p})
}

// Press reports a click on the node.
func (n *NodeShape) Press(at Point) {
	n.raise(Event{Kind: NodeClicked, Node: n.ID, At: at})
}

func (n *NodeShape) raise(e Event) {
	if n.emit != nil {
		n.emit(e)
	}
}

func (n *NodeShape) Bounds() Rect {
	d := 2*n.radius + n.strokeWidth
	return RectAround(n.center, d, d).Union(n.Label.Bounds())
}

func (n *NodeShape) HitTest(p Point) bool {
	return n.center.Dist(p) <= n.radius+n.strokeWidth/2
}

// Draw paints the circle and then the label over it.
func (n *NodeShape) Draw(c Canvas) {
	if n.opacity <= 0 {
		return
	}
	c.Circle(n.center, n.radius, fade(n.fill, n.opacity), fade(n.stroke, n.opacity), n.strokeWidth)
	n.Label.Draw(c)
}

// EdgeShape is a relationship drawn as a quadratic curve bowed to one side
// of the chord, with its type label at the curve midpoint.
type EdgeShape struct {
	From  int64
	To    int64
	Label *LabelShape

	stroke  color.RGBA
	width   float64
	p0      Point
	ctrl    Point
	p1      Point
	opacity float64
}

const edgeHitSegments = 24

func (e *EdgeShape) Endpoints() (Point, Point) { return e.p0, e.p1 }
func (e *EdgeShape) Control() Point { return e.ctrl }
func (e *EdgeShape) Opacity() float64 { return e.opacity }

func (e *EdgeShape) setOpacity(o float64) {
	e.opacity = o
	e.Label.opacity = o
}

// route recomputes the curve between p0 and p1. The control point sits
// curvature units from the chord midpoint along the chord's left normal.
// Coincident endpoints bow straight up.
func (e *EdgeShape) route(p0, p1 Point, curvature float64) {
	e.p0, e.p1 = p0, p1
	mid := p0.Lerp(p1, 0.5)
	chord := p1.Sub(p0)
	n := Pt(0, -1)
	if l := chord.Len(); l > 0 {
		n = Pt(-chord.Y/l, chord.X/l)
	}
	e.ctrl = mid.Add(n.Mul(curvature))
	e.Label.setCenter(quadPoint(e.p0, e.ctrl, e.p1, 0.5))
}

// Midpoint is the point on the curve at t = 0.5.
func (e *EdgeShape) Midpoint() Point { return quadPoint(e.p0, e.ctrl, e.p1, 0.5) }

func (e *EdgeShape) curveBounds() Rect {
	return BoundingRect(e.p0, e.ctrl, e.p1).Expand(e.width / 2)
}

func (e *EdgeShape) Bounds() Rect {
	return e.curveBounds().Union(e.Label.Bounds())
}

func (e *EdgeShape) HitTest(p Point) bool {
	tol := e.width/2 + 3
	prev := e.p0
	for i := 1; i <= edgeHitSegments; i++ {
		next := quadPoint(e.p0, e.ctrl, e.p1, float64(i)/edgeHitSegments)
		if segmentDist(p, prev, next) <= tol {
			return true
		}
		prev = next
	}
	return false
}

// Draw paints the curve only; labels are a separate layer above all edges.
func (e *EdgeShape) Draw(c Canvas) {
	if e.opacity <= 0 {
		return
	}
	c.Curve(e.p0, e.ctrl, e.p1, fade(e.stroke, e.opacity), e.width)
}

func segmentDist(p, a, b Point) float64 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return p.Dist(a)
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Dist(a.Add(ab.Mul(t)))
}
