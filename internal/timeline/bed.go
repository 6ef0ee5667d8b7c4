package timeline

import (
	"math"

	"github.com/ivlev/storyreel/internal/easing"
	"github.com/ivlev/storyreel/internal/storyboard"
)

const (
	BedFadeInSeconds  = 2.0
	BedFadeOutSeconds = 3.0
)

// Bed is a looping background music track spanning the whole timeline.
// It is scene agnostic: no ducking under narration.
type Bed struct {
	Path          string  `json:"path" yaml:"path"`
	Volume        float64 `json:"volume" yaml:"volume"`
	TotalFrames   int     `json:"total_frames" yaml:"total_frames"`
	FadeInFrames  int     `json:"fade_in_frames" yaml:"fade_in_frames"`
	FadeOutFrames int     `json:"fade_out_frames" yaml:"fade_out_frames"`
	Loop          bool    `json:"loop" yaml:"loop"`
}

// NewBed returns nil when the storyboard has no background music.
func NewBed(music *storyboard.BackgroundMusic, totalFrames, fps int) *Bed {
	if music == nil || music.Path == "" {
		return nil
	}
	return &Bed{
		Path:          music.Path,
		Volume:        music.Level(),
		TotalFrames:   totalFrames,
		FadeInFrames:  int(math.Round(BedFadeInSeconds * float64(fps))),
		FadeOutFrames: int(math.Round(BedFadeOutSeconds * float64(fps))),
		Loop:          true,
	}
}

// VolumeAt is min(fadeIn, fadeOut) at frame f; 0 outside the timeline.
func (b *Bed) VolumeAt(f int) float64 {
	if b == nil || f < 0 || f >= b.TotalFrames {
		return 0
	}
	x := float64(f)
	in := easing.Interpolate(x, 0, float64(b.FadeInFrames), 0, b.Volume, easing.Smoothstep)
	end := float64(b.TotalFrames)
	out := easing.Interpolate(x, end-float64(b.FadeOutFrames), end, b.Volume, 0, easing.Smoothstep)
	return math.Min(in, out)
}
