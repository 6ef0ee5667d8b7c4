package scenes

import (
	"image"
	"math"
	"strings"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/storyreel/internal/capability"
	"github.com/ivlev/storyreel/internal/source"
)

const (
	DefaultPeakZoom = 1.25
	MaxPeakZoom     = 1.5

	focusEdgeThreshold = 30.0
)

var anchorModes = []string{"center", "top-left", "top-right", "bottom-left", "bottom-right"}

// Slide shows one page of a document or image set with a slow push in toward
// an anchor chosen by ZoomMode.
type Slide struct {
	pages *source.Cache
	page  int
	mode  string
	peak  float64

	focusOnce sync.Once
	focusX    float64
	focusY    float64
}

// NewSlide builds a slide renderer. mode is one of center, top-left,
// top-right, bottom-left, bottom-right, random, focus or none.
func NewSlide(pages *source.Cache, page int, mode string, peak float64) *Slide {
	if peak <= 0 {
		peak = DefaultPeakZoom
	}
	if peak > MaxPeakZoom {
		peak = MaxPeakZoom
	}
	mode = strings.ToLower(mode)
	if mode == "none" {
		peak = 1
	}
	return &Slide{pages: pages, page: page, mode: mode, peak: peak}
}

func (s *Slide) Render(dst *image.RGBA, f capability.Frame) error {
	img, err := s.pages.Page(s.page)
	if err != nil {
		return err
	}
	fill(dst, colorOr(f.Style.BackgroundColor, defaultBackground))

	x, y := s.anchor(f, img)
	cam := InterpolateKeyframes(KenBurns(x, y, s.peak), f.Progress())
	drawView(dst, img, cam)
	return nil
}

// anchor is deterministic per scene so every worker draws the same motion.
func (s *Slide) anchor(f capability.Frame, img image.Image) (float64, float64) {
	mode := s.mode
	if mode == "random" {
		mode = anchorModes[(f.Index*7+3)%len(anchorModes)]
	}
	switch mode {
	case "top-left":
		return 0, 0
	case "top-right":
		return 1, 0
	case "bottom-left":
		return 0, 1
	case "bottom-right":
		return 1, 1
	case "focus":
		s.focusOnce.Do(func() {
			s.focusX, s.focusY = FocusPoint(img, focusEdgeThreshold)
		})
		return s.focusX, s.focusY
	default:
		return 0.5, 0.5
	}
}

// drawView letterboxes the page into dst and applies the camera. The view never
// leaves the letterboxed page, so a corner anchor zooms into that corner.
func drawView(dst *image.RGBA, img image.Image, cam CameraState) {
	pb, db := img.Bounds(), dst.Bounds()
	if pb.Empty() || db.Empty() {
		return
	}
	pw, ph := float64(pb.Dx()), float64(pb.Dy())
	dw, dh := float64(db.Dx()), float64(db.Dy())

	baseW, baseH := pw, ph
	if pw/ph < dw/dh {
		baseW = ph * dw / dh
	} else {
		baseH = pw * dh / dw
	}
	zoom := math.Max(cam.Zoom, 1)
	vw, vh := baseW/zoom, baseH/zoom

	pageCX := float64(pb.Min.X) + pw/2
	pageCY := float64(pb.Min.Y) + ph/2
	cx := clampRange(float64(pb.Min.X)+cam.X*pw, pageCX-baseW/2+vw/2, pageCX+baseW/2-vw/2)
	cy := clampRange(float64(pb.Min.Y)+cam.Y*ph, pageCY-baseH/2+vh/2, pageCY+baseH/2-vh/2)
	vx0, vy0 := cx-vw/2, cy-vh/2

	// Only the part of the view that covers the page is drawn.
	sx0 := math.Max(vx0, float64(pb.Min.X))
	sy0 := math.Max(vy0, float64(pb.Min.Y))
	sx1 := math.Min(vx0+vw, float64(pb.Max.X))
	sy1 := math.Min(vy0+vh, float64(pb.Max.Y))
	if sx1 <= sx0 || sy1 <= sy0 {
		return
	}

	scale := dw / vw
	dr := image.Rect(
		db.Min.X+int(math.Round((sx0-vx0)*scale)),
		db.Min.Y+int(math.Round((sy0-vy0)*scale)),
		db.Min.X+int(math.Round((sx1-vx0)*scale)),
		db.Min.Y+int(math.Round((sy1-vy0)*scale)),
	)
	sr := image.Rect(int(math.Floor(sx0)), int(math.Floor(sy0)), int(math.Ceil(sx1)), int(math.Ceil(sy1)))
	xdraw.ApproxBiLinear.Scale(dst, dr, img, sr, xdraw.Over, nil)
}

func clampRange(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	return math.Min(math.Max(v, lo), hi)
}
