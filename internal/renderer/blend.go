package renderer

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/storyreel/internal/easing"
	"github.com/ivlev/storyreel/internal/timeline"
)

// Blend composites the incoming frame over the outgoing one held in dst.
// progress runs from 0 (all outgoing) toward 1 (all incoming).
func Blend(dst, incoming *image.RGBA, style timeline.Style, progress float64) {
	b := dst.Bounds()
	p := easing.Clamp01(progress)

	switch style {
	case timeline.StyleSlideLeft:
		off := int(math.Round((1 - easing.InOutCubic(p)) * float64(b.Dx())))
		xdraw.Draw(dst, image.Rect(b.Min.X+off, b.Min.Y, b.Max.X, b.Max.Y), incoming, b.Min, xdraw.Src)

	case timeline.StyleSlideUp:
		off := int(math.Round((1 - easing.InOutCubic(p)) * float64(b.Dy())))
		xdraw.Draw(dst, image.Rect(b.Min.X, b.Min.Y+off, b.Max.X, b.Max.Y), incoming, b.Min, xdraw.Src)

	case timeline.StyleWipeRight:
		edge := b.Min.X + int(math.Round(easing.InOutCubic(p)*float64(b.Dx())))
		xdraw.Draw(dst, image.Rect(b.Min.X, b.Min.Y, edge, b.Max.Y), incoming, b.Min, xdraw.Src)

	default: // fade
		mask := image.NewUniform(color.Alpha16{A: uint16(math.Round(p * 0xffff))})
		xdraw.DrawMask(dst, b, incoming, b.Min, mask, image.Point{}, xdraw.Over)
	}
}
