package scenes

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

var (
	defaultBackground = color.RGBA{R: 0x10, G: 0x14, B: 0x1c, A: 0xff}
	defaultPrimary    = color.RGBA{R: 0xf5, G: 0xf5, B: 0xf5, A: 0xff}
	defaultSecondary  = color.RGBA{R: 0x9a, G: 0xa4, B: 0xb5, A: 0xff}
)

// ParseHex parses #RGB, #RRGGBB and #RRGGBBAA (the leading # is optional).
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// colorOr returns fallback for empty or malformed values.
func colorOr(s string, fallback color.RGBA) color.RGBA {
	if s == "" {
		return fallback
	}
	c, err := ParseHex(s)
	if err != nil {
		return fallback
	}
	return c
}

// withAlpha scales a color's opacity by a in [0, 1].
func withAlpha(c color.RGBA, a float64) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(float64(c.A)*a + 0.5)}
}
