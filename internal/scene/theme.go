package scene

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/starford/lorekeep/internal/models"
)

// Theme holds the visual constants of the surface. A Theme is a value; the
// palette is copied on write so a Theme shared between viewers never changes
// under them.
type Theme struct {
	palette  map[string]color.RGBA
	fallback color.RGBA

	BaseRadius      float64
	RadiusPerDegree float64
	DegreeCap       int
	Curvature       float64

	NodeDim float64
	EdgeDim float64

	NodeFontSize float64
	EdgeFontSize float64
	OutlineWidth float64
	EdgeWidth    float64

	NodeStroke    color.RGBA
	EdgeColor     color.RGBA
	NodeLabelFill color.RGBA
	EdgeLabelFill color.RGBA
	LabelOutline  color.RGBA

	ZoomIn      float64
	ZoomOut     float64
	ExportScale float64
	FitMargin   float64
}

// DefaultTheme returns the standard palette and geometry.
func DefaultTheme() Theme {
	return Theme{
		palette: map[string]color.RGBA{
			models.CategoryCharacter: {0x66, 0xAA, 0xFF, 0xFF},
			models.CategoryLocation:  {0x88, 0xCC, 0x66, 0xFF},
			models.CategoryItem:      {0xFF, 0xCC, 0x66, 0xFF},
			models.CategoryEvent:     {0xCC, 0x66, 0xFF, 0xFF},
		},
		fallback: color.RGBA{0xAA, 0xAA, 0xAA, 0xFF},

		BaseRadius:      22,
		RadiusPerDegree: 4,
		DegreeCap:       8,
		Curvature:       40,

		NodeDim: 0.25,
		EdgeDim: 0.2,

		NodeFontSize: 11,
		EdgeFontSize: 9,
		OutlineWidth: 2,
		EdgeWidth:    2,

		NodeStroke:    color.RGBA{0, 0, 0, 0xFF},
		EdgeColor:     color.RGBA{0xAA, 0xAA, 0xAA, 0xFF},
		NodeLabelFill: color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
		EdgeLabelFill: color.RGBA{0xFF, 0x50, 0x50, 0xFF},
		LabelOutline:  color.RGBA{0, 0, 0, 0xFF},

		ZoomIn:      1.25,
		ZoomOut:     0.8,
		ExportScale: 2,
		FitMargin:   0,
	}
}

// Color returns the fill for a category, or the fallback grey.
func (t Theme) Color(category string) color.RGBA {
	if c, ok := t.palette[category]; ok {
		return c
	}
	return t.fallback
}

// WithColor returns a copy of t with category mapped to c.
func (t Theme) WithColor(category string, c color.RGBA) Theme {
	p := make(map[string]color.RGBA, len(t.palette)+1)
	for k, v := range t.palette {
		p[k] = v
	}
	p[category] = c
	t.palette = p
	return t
}

// Radius maps a node degree to its circle radius. Growth stops at DegreeCap.
func (t Theme) Radius(degree int) float64 {
	d := degree
	if d > t.DegreeCap {
		d = t.DegreeCap
	}
	if d < 0 {
		d = 0
	}
	return t.BaseRadius + t.RadiusPerDegree*float64(d)
}

// fade scales the alpha of c by opacity, premultiplying the colour channels.
func fade(c color.RGBA, opacity float64) color.RGBA {
	if opacity >= 1 {
		return c
	}
	if opacity <= 0 {
		return color.RGBA{}
	}
	f := func(v uint8) uint8 { return uint8(math.Round(float64(v) * opacity)) }
	return color.RGBA{f(c.R), f(c.G), f(c.B), f(c.A)}
}

// Hex renders c as #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseHex reads #rrggbb (the leading # is optional) as an opaque colour.
func ParseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("scene: bad colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("scene: bad colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
