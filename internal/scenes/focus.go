package scenes

import (
	"image"
	"image/color"
	"math"
)

// FocusPoint finds where a page has the most structure: the centroid of its
// strong edges (Sobel magnitude above threshold), normalized to 0..1. Blank
// pages focus on the center.
func FocusPoint(img image.Image, threshold float64) (x, y float64) {
	gray := toGrayscale(img)
	b := gray.Bounds()

	var sumX, sumY, weight float64
	for py := b.Min.Y + 1; py < b.Max.Y-1; py++ {
		for px := b.Min.X + 1; px < b.Max.X-1; px++ {
			m := sobel(gray, px, py)
			if m <= threshold {
				continue
			}
			sumX += float64(px-b.Min.X) * m
			sumY += float64(py-b.Min.Y) * m
			weight += m
		}
	}
	if weight == 0 || b.Dx() < 3 || b.Dy() < 3 {
		return 0.5, 0.5
	}
	return sumX / weight / float64(b.Dx()), sumY / weight / float64(b.Dy())
}

func toGrayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

func sobel(g *image.Gray, x, y int) float64 {
	p := func(dx, dy int) float64 { return float64(g.GrayAt(x+dx, y+dy).Y) }
	gx := -p(-1, -1) + p(1, -1) - 2*p(-1, 0) + 2*p(1, 0) - p(-1, 1) + p(1, 1)
	gy := -p(-1, -1) - 2*p(0, -1) - p(1, -1) + p(-1, 1) + 2*p(0, 1) + p(1, 1)
	return math.Sqrt(gx*gx + gy*gy)
}
