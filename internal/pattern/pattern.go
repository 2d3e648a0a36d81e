// Package pattern renders synthetic calibration frames: a key-colored
// backdrop with a QR code subject. Its modules are pure black and white,
// so a calibrated keyer must keep them while dropping the backdrop.
package pattern

import (
	"fmt"
	"image"
	"image/color"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"

	"github.com/ivlev/greenscreen/internal/chroma"
)

// Card returns a w x h frame filled with key and a centered QR code of text
// occupying about half of the shorter side.
func Card(w, h int, key chroma.Pixel, text string) (*chroma.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid card size %dx%d", w, h)
	}

	card := chroma.NewImage(w, h)
	card.Fill(key)

	side := w
	if h < side {
		side = h
	}
	side /= 2
	if side < 21 {
		// Smallest QR version is 21 modules; no room for a subject.
		return card, nil
	}

	qr, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qrcode: %w", err)
	}
	qr.ForegroundColor = color.Black
	qr.BackgroundColor = color.White
	code := qr.Image(side)

	Stamp(card, code, image.Pt((w-side)/2, (h-side)/2))
	return card, nil
}

// Stamp copies src onto dst with its top-left corner at at, clipped to dst.
func Stamp(dst *chroma.Image, src image.Image, at image.Point) {
	b := src.Bounds()
	draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(b.Size())}, src, b.Min, draw.Src)
}

// Backdrop returns a gradient frame usable as a stand-in background.
func Backdrop(w, h int) *chroma.Image {
	img := chroma.NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetPixel(x, y, chroma.Pixel{
				B: uint8(255 * y / max(h-1, 1)),
				G: 64,
				R: uint8(255 * x / max(w-1, 1)),
			})
		}
	}
	return img
}
