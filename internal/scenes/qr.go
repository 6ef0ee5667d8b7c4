package scenes

import (
	"fmt"
	"image"
	"image/color"

	"github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/storyreel/internal/capability"
)

const qrBitmapSize = 512

// QRCard shows a QR code for Content with the scene title underneath.
type QRCard struct {
	content string
	code    image.Image
}

func NewQRCard(content string) (*QRCard, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}
	q.DisableBorder = true
	return &QRCard{content: content, code: q.Image(qrBitmapSize)}, nil
}

func (c *QRCard) Content() string { return c.content }

func (c *QRCard) Render(dst *image.RGBA, f capability.Frame) error {
	if err := loadFonts(); err != nil {
		return err
	}
	b := dst.Bounds()
	fill(dst, colorOr(f.Style.BackgroundColor, defaultBackground))

	h := b.Dy()
	side := h * 55 / 100
	quiet := side / 12
	cx := b.Min.X + b.Dx()/2
	top := b.Min.Y + h/10

	code := image.Rect(cx-side/2, top, cx+side/2, top+side)
	xdraw.Draw(dst, code.Inset(-quiet), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	xdraw.NearestNeighbor.Scale(dst, code, c.code, c.code.Bounds(), xdraw.Src, nil)

	primary := colorOr(f.Style.PrimaryColor, defaultPrimary)
	return drawLabel(dst, boldFont, f.Scene.Title, float64(h)/16, primary, cx, code.Max.Y+quiet+h/10)
}
