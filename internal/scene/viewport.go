package scene

import "math"

// Viewport maps scene coordinates onto a Width x Height pixel view. Center is
// the scene point shown at the middle of the view.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Zoom   float64 `json:"zoom"`
	Center Point   `json:"center"`
}

func (v Viewport) half() Point { return Pt(v.Width/2, v.Height/2) }

// ToView converts a scene point to view pixels.
func (v Viewport) ToView(p Point) Point {
	return p.Sub(v.Center).Mul(v.Zoom).Add(v.half())
}

// ToScene converts view pixels to a scene point.
func (v Viewport) ToScene(p Point) Point {
	return p.Sub(v.half()).Mul(1 / v.Zoom).Add(v.Center)
}

// Visible returns the scene rectangle currently in view.
func (v Viewport) Visible() Rect {
	return Rect{Min: v.ToScene(Pt(0, 0)), Max: v.ToScene(Pt(v.Width, v.Height))}
}

// zoomBy scales the view about its centre.
func (v *Viewport) zoomBy(f float64) { v.Zoom *= f }

// panBy scrolls the view by d pixels; content follows the pointer.
func (v *Viewport) panBy(d Point) {
	v.Center = v.Center.Sub(d.Mul(1 / v.Zoom))
}

// fit centres r and picks the largest zoom that shows all of it while
// keeping the aspect ratio.
func (v *Viewport) fit(r Rect, margin float64) {
	r = r.Expand(margin)
	v.Center = r.Center()
	zx, zy := math.Inf(1), math.Inf(1)
	if r.W() > 0 {
		zx = v.Width / r.W()
	}
	if r.H() > 0 {
		zy = v.Height / r.H()
	}
	if z := math.Min(zx, zy); !math.IsInf(z, 1) && z > 0 {
		v.Zoom = z
	}
}
