package timeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/ivlev/storyreel/internal/storyboard"
)

// ErrDeclaredDurationMismatch reports a storyboard whose total_duration_seconds
// disagrees with the computed duration. The computed value always wins.
var ErrDeclaredDurationMismatch = errors.New("declared total duration does not match computed duration")

// DeclaredDurationTolerance is the allowed gap, in seconds, between the declared
// and computed durations.
const DeclaredDurationTolerance = 0.01

// ComputeDuration is Σ(audio_duration + buffer) over playable scenes. It does not
// look at transitions: padding and overlap cancel at every boundary.
func ComputeDuration(sb *storyboard.Storyboard) float64 {
	if sb == nil {
		return 0
	}
	buffer := sb.Audio.Buffer()
	total := 0.0
	for _, s := range sb.Scenes {
		if !s.Playable() {
			continue
		}
		total += s.AudioDurationSeconds + buffer
	}
	return total
}

// ComputeDurationFrames is Σ ceil((audio_duration + buffer) * fps) over playable
// scenes, each at least one frame: the exact number of frames a layout renders.
func ComputeDurationFrames(sb *storyboard.Storyboard, fps int) int {
	if sb == nil {
		return 0
	}
	buffer := sb.Audio.Buffer()
	total := 0
	for _, s := range sb.Scenes {
		if !s.Playable() {
			continue
		}
		total += SceneFrames(s.AudioDurationSeconds+buffer, fps)
	}
	return total
}

// RenderedFrames is the composed length of a visual track: Σ frames minus the
// frames consumed by the n-1 overlapping transitions.
func RenderedFrames(spans []Span, transitionFrames int) int {
	if len(spans) == 0 {
		return 0
	}
	total := 0
	for _, s := range spans {
		total += s.Frames
	}
	total -= (len(spans) - 1) * transitionFrames
	mustNonNegative("rendered frames", total)
	return total
}

// CheckDeclaredDuration compares the informational total_duration_seconds with
// ComputeDuration. A zero declared value means "not declared" and passes.
func CheckDeclaredDuration(sb *storyboard.Storyboard) error {
	if sb == nil || sb.TotalDurationSeconds == 0 {
		return nil
	}
	computed := ComputeDuration(sb)
	if math.Abs(sb.TotalDurationSeconds-computed) > DeclaredDurationTolerance {
		return fmt.Errorf("%w: declared %.3fs, computed %.3fs", ErrDeclaredDurationMismatch, sb.TotalDurationSeconds, computed)
	}
	return nil
}
