package scenes

import (
	"image"
	"image/color"

	"github.com/ivlev/storyreel/internal/capability"
)

// MissingCard is the placeholder for scene types without a renderer: the
// striped placeholder with the unresolved type written across it.
type MissingCard struct{}

func (MissingCard) Render(dst *image.RGBA, f capability.Frame) error {
	if err := (capability.Placeholder{}).Render(dst, f); err != nil {
		return err
	}
	if err := loadFonts(); err != nil {
		return err
	}
	b := dst.Bounds()
	return drawLabel(dst, plainFont, "missing renderer: "+f.Scene.Type, float64(b.Dy())/18,
		color.White, b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2)
}
