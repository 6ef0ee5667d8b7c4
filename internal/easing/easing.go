// Package easing holds the interpolation curves shared by audio fades,
// transitions and camera moves.
package easing

// Clamp01 limits t to [0, 1].
func Clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// Lerp performs linear interpolation between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Smoothstep is 3t^2 - 2t^3 on the clamped input. Monotonic on [0, 1].
func Smoothstep(t float64) float64 {
	t = Clamp01(t)
	return t * t * (3 - 2*t)
}

// InOutCubic is a stronger ease-in-out used for camera moves and slides.
func InOutCubic(t float64) float64 {
	t = Clamp01(t)
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}

// Interpolate maps x from [x0, x1] onto [y0, y1] through curve, clamping outside the range.
// A degenerate input range returns y1 once x reaches x1 and y0 before it.
func Interpolate(x, x0, x1, y0, y1 float64, curve func(float64) float64) float64 {
	if x1 <= x0 {
		if x >= x1 {
			return y1
		}
		return y0
	}
	t := (x - x0) / (x1 - x0)
	if curve == nil {
		t = Clamp01(t)
	} else {
		t = curve(t)
	}
	return Lerp(y0, y1, t)
}
