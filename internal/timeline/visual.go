package timeline

import (
	"fmt"
	"math"

	"github.com/ivlev/storyreel/internal/storyboard"
)

// frameEpsilon absorbs float noise such as 3.0000000000004 frames before rounding up.
const frameEpsilon = 1e-9

// FramesFor converts seconds to whole frames, rounding up.
func FramesFor(seconds float64, fps int) int {
	n := int(math.Ceil(seconds*float64(fps) - frameEpsilon))
	mustNonNegative("frames", n)
	return n
}

// SceneFrames is the on-screen length of a playable scene lasting seconds. It
// is at least one frame, so every playable scene is shown.
func SceneFrames(seconds float64, fps int) int {
	return max(FramesFor(seconds, fps), 1)
}

// Span is one scene on the visual track.
type Span struct {
	Index   int                  `json:"index" yaml:"index"`
	Scene   storyboard.SceneSpec `json:"scene" yaml:"scene"`
	TypeKey string               `json:"type_key" yaml:"type_key"`

	ContentFrames int `json:"content_frames" yaml:"content_frames"` // ceil((audio+buffer)*fps)
	Pad           int `json:"pad" yaml:"pad"`                       // transition padding, 0 on the last span
	Frames        int `json:"frames" yaml:"frames"`                 // ContentFrames + Pad

	// VisualOffset is the cumulative sum of Frames before this span.
	VisualOffset int `json:"visual_offset" yaml:"visual_offset"`
	// Start is where the span begins once transitions overlap neighbours.
	Start int `json:"start" yaml:"start"`

	Transition *Transition `json:"transition,omitempty" yaml:"transition,omitempty"`

	// Missing marks a scene type with no registered capability; it renders a placeholder.
	Missing bool `json:"missing,omitempty" yaml:"missing,omitempty"`
	// ShortSpan marks a span whose content is shorter than its incoming transition,
	// so its outgoing crossfade begins before the incoming one has finished.
	ShortSpan bool `json:"short_span,omitempty" yaml:"short_span,omitempty"`
}

// End is the first composed frame after the span, padding included.
func (s Span) End() int { return s.Start + s.Frames }

// BuildVisualTrack lays scenes out on the visual track. Every scene must be playable.
func BuildVisualTrack(scenes []storyboard.SceneSpec, fps int, buffer float64, transitionFrames int) []Span {
	mustNonNegative("transition frames", transitionFrames)
	if len(scenes) == 0 {
		return nil
	}

	spans := make([]Span, len(scenes))
	offset := 0
	last := len(scenes) - 1
	for i, s := range scenes {
		content := SceneFrames(s.AudioDurationSeconds+buffer, fps)
		pad := 0
		if i < last {
			pad = transitionFrames
		}

		span := Span{
			Index:         i,
			Scene:         s,
			TypeKey:       s.TypeKey(),
			ContentFrames: content,
			Pad:           pad,
			Frames:        content + pad,
			VisualOffset:  offset,
			Start:         offset - i*transitionFrames,
			ShortSpan:     i > 0 && content < transitionFrames,
		}
		if pad > 0 {
			span.Transition = &Transition{
				Style:  StyleFor(i),
				Start:  span.Start + content,
				Frames: transitionFrames,
			}
		}
		mustNonNegative("span start", span.Start)
		spans[i] = span
		offset += span.Frames
	}
	return spans
}

// VisualOffsets returns the cumulative visual-track offset of every span.
func VisualOffsets(spans []Span) []int {
	out := make([]int, len(spans))
	for i, s := range spans {
		out[i] = s.VisualOffset
	}
	return out
}

func mustNonNegative(what string, n int) {
	if n < 0 {
		panic(fmt.Sprintf("timeline: negative %s (%d)", what, n))
	}
}
