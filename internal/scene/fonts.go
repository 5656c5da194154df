package scene

import (
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var (
	regularOnce sync.Once
	regular     *opentype.Font
	regularErr  error
)

func regularFont() (*opentype.Font, error) {
	regularOnce.Do(func() {
		regular, regularErr = opentype.Parse(goregular.TTF)
	})
	return regular, regularErr
}

// fonts caches faces by point size. Faces are not safe for concurrent use,
// so every Viewer owns its own set.
type fonts struct {
	faces map[float64]font.Face
}

func newFonts() *fonts {
	return &fonts{faces: make(map[float64]font.Face)}
}

func (f *fonts) face(size float64) font.Face {
	if face, ok := f.faces[size]; ok {
		return face
	}
	var face font.Face = basicfont.Face7x13
	if otf, err := regularFont(); err == nil {
		if ff, err := opentype.NewFace(otf, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		}); err == nil {
			face = ff
		}
	}
	f.faces[size] = face
	return face
}

// measure returns the advance width and line height of s.
func (f *fonts) measure(s string, size float64) (w, h float64) {
	face := f.face(size)
	w = float64(font.MeasureString(face, s)) / 64
	m := face.Metrics()
	h = float64(m.Ascent+m.Descent) / 64
	return w, h
}
