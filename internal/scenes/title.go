package scenes

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/storyreel/internal/capability"
	"github.com/ivlev/storyreel/internal/easing"
)

// DefaultTitleFadeSeconds is how long the title takes to settle in.
const DefaultTitleFadeSeconds = 0.6

// TitleCard draws the scene title over the storyboard background with an
// accent rule that grows under it.
type TitleCard struct {
	FadeSeconds float64
}

func (c TitleCard) Render(dst *image.RGBA, f capability.Frame) error {
	if err := loadFonts(); err != nil {
		return err
	}
	b := dst.Bounds()
	fill(dst, colorOr(f.Style.BackgroundColor, defaultBackground))

	fade := c.FadeSeconds
	if fade <= 0 {
		fade = DefaultTitleFadeSeconds
	}
	a := easing.Interpolate(float64(f.Local), 0, fade*float64(f.FPS), 0, 1, easing.Smoothstep)

	h := b.Dy()
	cx := b.Min.X + b.Dx()/2
	baseline := b.Min.Y + h/2 + int((1-a)*float64(h)*0.03)

	title := f.Scene.Title
	if title == "" {
		title = f.Scene.ID
	}
	primary := colorOr(f.Style.PrimaryColor, defaultPrimary)
	if err := drawLabel(dst, boldFont, title, float64(h)/10, withAlpha(primary, a), cx, baseline); err != nil {
		return err
	}

	half := int(a * float64(b.Dx()) * 0.12)
	if half > 0 {
		top := baseline + h/30
		rule := image.Rect(cx-half, top, cx+half, top+max(h/180, 1))
		secondary := colorOr(f.Style.SecondaryColor, defaultSecondary)
		xdraw.Draw(dst, rule, image.NewUniform(withAlpha(secondary, a)), image.Point{}, xdraw.Over)
	}
	return nil
}

func fill(dst *image.RGBA, c color.Color) {
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, xdraw.Src)
}
