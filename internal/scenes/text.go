package scenes

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	fontsOnce sync.Once
	boldFont  *opentype.Font
	plainFont *opentype.Font
	fontsErr  error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if boldFont, fontsErr = opentype.Parse(gobold.TTF); fontsErr != nil {
			return
		}
		plainFont, fontsErr = opentype.Parse(goregular.TTF)
	})
	return fontsErr
}

// newFace returns a face private to the caller; faces keep glyph buffers and
// must not be shared between goroutines.
func newFace(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	return face, nil
}

// fitFace shrinks size until s fits in maxWidth pixels.
func fitFace(f *opentype.Font, s string, size float64, maxWidth int) (font.Face, error) {
	face, err := newFace(f, size)
	if err != nil {
		return nil, err
	}
	w := font.MeasureString(face, s).Ceil()
	if w <= maxWidth || w == 0 {
		return face, nil
	}
	face.Close()
	return newFace(f, size*float64(maxWidth)/float64(w))
}

// drawCentered draws s horizontally centered on cx with its baseline at y.
func drawCentered(dst *image.RGBA, face font.Face, s string, c color.Color, cx, y int) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face}
	w := d.MeasureString(s)
	d.Dot = fixed.Point26_6{X: fixed.I(cx) - w/2, Y: fixed.I(y)}
	d.DrawString(s)
}

// drawLabel draws s in the given face and color, centered, shrinking it to 90%
// of the frame width when needed.
func drawLabel(dst *image.RGBA, f *opentype.Font, s string, size float64, c color.Color, cx, y int) error {
	if s == "" {
		return nil
	}
	face, err := fitFace(f, s, size, dst.Bounds().Dx()*9/10)
	if err != nil {
		return err
	}
	defer face.Close()
	drawCentered(dst, face, s, c, cx, y)
	return nil
}
