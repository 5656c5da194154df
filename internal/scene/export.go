package scene

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
)

// ErrEmpty is returned by the Write* exporters when there is nothing drawn.
var ErrEmpty = errors.New("scene: nothing to export")

// ExportPNG renders the whole scene to a PNG file at path, supersampled by
// the theme's ExportScale onto a transparent background. It returns false
// without touching the filesystem when path is empty or there are no nodes.
func (v *Viewer) ExportPNG(path string) (bool, error) {
	return v.exportFile(path, v.WritePNG)
}

// ExportSVG is ExportPNG for SVG.
func (v *Viewer) ExportSVG(path string) (bool, error) {
	return v.exportFile(path, v.WriteSVG)
}

func (v *Viewer) exportFile(path string, write func(io.Writer) error) (bool, error) {
	if path == "" || len(v.order) == 0 {
		return false, nil
	}
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("scene: export %s: %w", path, err)
	}
	v.log.Info("scene exported", "path", path, "bytes", buf.Len())
	return true, nil
}

func (v *Viewer) exportSize(r Rect, scale float64) (int, int) {
	w := int(math.Ceil(r.W() * scale))
	h := int(math.Ceil(r.H() * scale))
	return max(w, 1), max(h, 1)
}

// viewBox is the smallest integer box containing r.
func viewBox(r Rect) (x, y, w, h int) {
	x0, y0 := math.Floor(r.Min.X), math.Floor(r.Min.Y)
	w = max(int(math.Ceil(r.Max.X)-x0), 1)
	h = max(int(math.Ceil(r.Max.Y)-y0), 1)
	return int(x0), int(y0), w, h
}

// WritePNG encodes the scene as PNG to w.
func (v *Viewer) WritePNG(w io.Writer) error {
	if len(v.order) == 0 {
		return ErrEmpty
	}
	r := v.Bounds()
	s := v.theme.ExportScale
	width, height := v.exportSize(r, s)

	dc := gg.NewContext(width, height)
	dc.Scale(s, s)
	dc.Translate(-r.Min.X, -r.Min.Y)
	v.Paint(&rasterCanvas{dc: dc, fm: v.fm})

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("scene: encode png: %w", err)
	}
	if v.obs != nil {
		v.obs.Exported("png")
	}
	return nil
}

// WriteSVG writes the scene as an SVG document to w. The viewBox covers the
// scene bounds; the document size is scaled by ExportScale.
func (v *Viewer) WriteSVG(w io.Writer) error {
	if len(v.order) == 0 {
		return ErrEmpty
	}
	x, y, vw, vh := viewBox(v.Bounds())
	s := v.theme.ExportScale
	width := max(int(math.Ceil(float64(vw)*s)), 1)
	height := max(int(math.Ceil(float64(vh)*s)), 1)

	cw := &countingWriter{w: w}
	doc := svg.New(cw)
	doc.Startview(width, height, x, y, vw, vh)
	v.Paint(&vectorCanvas{doc: doc})
	doc.End()

	if cw.err != nil {
		return fmt.Errorf("scene: write svg: %w", cw.err)
	}
	if v.obs != nil {
		v.obs.Exported("svg")
	}
	return nil
}

// countingWriter remembers the first write error; svgo discards them.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}

type rasterCanvas struct {
	dc *gg.Context
	fm *fonts
}

func (c *rasterCanvas) Circle(p Point, r float64, fill, stroke color.RGBA, width float64) {
	c.dc.DrawCircle(p.X, p.Y, r)
	c.dc.SetColor(fill)
	c.dc.FillPreserve()
	c.dc.SetColor(stroke)
	c.dc.SetLineWidth(width)
	c.dc.Stroke()
}

func (c *rasterCanvas) Curve(from, ctrl, to Point, stroke color.RGBA, width float64) {
	c.dc.MoveTo(from.X, from.Y)
	c.dc.QuadraticTo(ctrl.X, ctrl.Y, to.X, to.Y)
	c.dc.SetColor(stroke)
	c.dc.SetLineWidth(width)
	c.dc.Stroke()
}

// Text stamps the outline colour around the glyphs in eight directions and
// then draws the fill on top.
func (c *rasterCanvas) Text(s string, at Point, size float64, fill, outline color.RGBA, outlineWidth float64) {
	c.dc.SetFontFace(c.fm.face(size))
	if outline.A > 0 && outlineWidth > 0 {
		c.dc.SetColor(outline)
		for i := 0; i < 8; i++ {
			a := float64(i) * math.Pi / 4
			c.dc.DrawStringAnchored(s, at.X+outlineWidth*math.Cos(a), at.Y+outlineWidth*math.Sin(a), 0.5, 0.5)
		}
	}
	c.dc.SetColor(fill)
	c.dc.DrawStringAnchored(s, at.X, at.Y, 0.5, 0.5)
}

type vectorCanvas struct {
	doc *svg.SVG
}

func (c *vectorCanvas) Circle(p Point, r float64, fill, stroke color.RGBA, width float64) {
	d := fmt.Sprintf("M%.2f,%.2f a%.2f,%.2f 0 1,0 %.2f,0 a%.2f,%.2f 0 1,0 %.2f,0 Z",
		p.X-r, p.Y, r, r, 2*r, r, r, -2*r)
	c.doc.Path(d, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%g", css(fill), css(stroke), width))
}

func (c *vectorCanvas) Curve(from, ctrl, to Point, stroke color.RGBA, width float64) {
	d := fmt.Sprintf("M%.2f,%.2f Q%.2f,%.2f %.2f,%.2f", from.X, from.Y, ctrl.X, ctrl.Y, to.X, to.Y)
	c.doc.Path(d, fmt.Sprintf("fill:none;stroke:%s;stroke-width:%g", css(stroke), width))
}

func (c *vectorCanvas) Text(s string, at Point, size float64, fill, outline color.RGBA, outlineWidth float64) {
	style := fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%g;paint-order:stroke;font-size:%gpx;"+
		"font-family:sans-serif;text-anchor:middle;dominant-baseline:central",
		css(fill), css(outline), 2*outlineWidth, size)
	c.doc.Text(int(math.Round(at.X)), int(math.Round(at.Y)), s, style)
}

// css renders a premultiplied colour as an SVG paint value.
func css(c color.RGBA) string {
	switch c.A {
	case 0:
		return "none"
	case 0xFF:
		return Hex(c)
	}
	un := func(v uint8) uint8 { return uint8(math.Min(255, math.Round(float64(v)*255/float64(c.A)))) }
	return fmt.Sprintf("rgba(%d,%d,%d,%.3f)", un(c.R), un(c.G), un(c.B), float64(c.A)/255)
}
