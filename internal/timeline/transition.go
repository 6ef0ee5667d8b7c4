package timeline

// Style is a crossfade presentation between two adjacent scenes.
type Style string

const (
	StyleFade      Style = "fade"
	StyleSlideLeft Style = "slide-left"
	StyleSlideUp   Style = "slide-up"
	StyleWipeRight Style = "wipe-right"
)

// styleTable is weighted toward fade. Its length (8) is coprime with the
// multiplier 7, so StyleFor cycles through every slot.
var styleTable = [...]Style{
	StyleFade,
	StyleFade,
	StyleSlideLeft,
	StyleFade,
	StyleWipeRight,
	StyleFade,
	StyleSlideUp,
	StyleFade,
}

// StyleFor picks the transition leaving scene index. Same index, same style.
func StyleFor(index int) Style {
	n := len(styleTable)
	i := (index*7 + 3) % n
	if i < 0 {
		i += n
	}
	return styleTable[i]
}

// Styles returns the selection table in order.
func Styles() []Style {
	out := make([]Style, len(styleTable))
	copy(out, styleTable[:])
	return out
}

// Transition is the crossfade leaving a span. It starts on the composed
// timeline where the next span starts.
type Transition struct {
	Style  Style `json:"style" yaml:"style"`
	Start  int   `json:"start" yaml:"start"`
	Frames int   `json:"frames" yaml:"frames"`
}
