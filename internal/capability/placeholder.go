package capability

import (
	"image"
	"image/color"
	"image/draw"
)

var (
	placeholderBackground = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
	placeholderStripe     = color.RGBA{R: 0xd0, G: 0x20, B: 0x80, A: 0xff}
)

// Placeholder marks a scene whose type has no registered renderer: a dark frame
// with magenta diagonal stripes, impossible to mistake for real content.
type Placeholder struct{}

func (Placeholder) Render(dst *image.RGBA, _ Frame) error {
	b := dst.Bounds()
	draw.Draw(dst, b, image.NewUniform(placeholderBackground), image.Point{}, draw.Src)

	const period, width = 48, 12
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if (x+y)%period < width {
				dst.SetRGBA(x, y, placeholderStripe)
			}
		}
	}
	return nil
}
