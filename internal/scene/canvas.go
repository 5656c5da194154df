package scene

import "image/color"

// Canvas is the drawing backend a Shape paints onto. Coordinates are in
// scene units; the backend owns any view transform.
type Canvas interface {
	Circle(c Point, r float64, fill, stroke color.RGBA, width float64)
	Curve(from, ctrl, to Point, stroke color.RGBA, width float64)
	Text(s string, at Point, size float64, fill, outline color.RGBA, outlineWidth float64)
}
