package scenes

import (
	"sort"

	"github.com/ivlev/storyreel/internal/easing"
)

// Keyframe pins the camera at a point of the scene's progress (0..1).
// X and Y are the normalized view center within the page.
type Keyframe struct {
	At   float64
	X, Y float64
	Zoom float64
}

type CameraState struct {
	X, Y float64
	Zoom float64
}

// InterpolateKeyframes returns the camera at progress t, easing between the
// surrounding keyframes. Keyframes must be sorted by At.
func InterpolateKeyframes(keyframes []Keyframe, t float64) CameraState {
	if len(keyframes) == 0 {
		return CameraState{X: 0.5, Y: 0.5, Zoom: 1}
	}
	first, last := keyframes[0], keyframes[len(keyframes)-1]
	if t <= first.At {
		return CameraState{X: first.X, Y: first.Y, Zoom: first.Zoom}
	}
	if t >= last.At {
		return CameraState{X: last.X, Y: last.Y, Zoom: last.Zoom}
	}

	i := sort.Search(len(keyframes), func(i int) bool { return keyframes[i].At > t })
	prev, next := keyframes[i-1], keyframes[i]
	return CameraState{
		X:    easing.Interpolate(t, prev.At, next.At, prev.X, next.X, easing.InOutCubic),
		Y:    easing.Interpolate(t, prev.At, next.At, prev.Y, next.Y, easing.InOutCubic),
		Zoom: easing.Interpolate(t, prev.At, next.At, prev.Zoom, next.Zoom, easing.InOutCubic),
	}
}

// KenBurns pushes in toward (x, y), holds, and returns to the full page before
// the scene hands over to the next one.
func KenBurns(x, y, peak float64) []Keyframe {
	return []Keyframe{
		{At: 0, X: 0.5, Y: 0.5, Zoom: 1},
		{At: 0.4, X: x, Y: y, Zoom: peak},
		{At: 0.75, X: x, Y: y, Zoom: peak},
		{At: 0.92, X: 0.5, Y: 0.5, Zoom: 1},
		{At: 1, X: 0.5, Y: 0.5, Zoom: 1},
	}
}
