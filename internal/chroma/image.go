package chroma

import (
	"image"
	"image/color"
	"image/draw"
)

// Pixel is a single 8-bit color sample in BGR channel order.
type Pixel struct {
	B, G, R uint8
}

// PixelFromColor converts any color.Color to a BGR pixel, dropping alpha.
func PixelFromColor(c color.Color) Pixel {
	r, g, b, _ := c.RGBA()
	return Pixel{B: uint8(b >> 8), G: uint8(g >> 8), R: uint8(r >> 8)}
}

// RGBA implements color.Color. Pixels are always opaque.
func (p Pixel) RGBA() (r, g, b, a uint32) {
	r = uint32(p.R)
	r |= r << 8
	g = uint32(p.G)
	g |= g << 8
	b = uint32(p.B)
	b |= b << 8
	return r, g, b, 0xffff
}

// Image is a packed 3-channel BGR raster. Row y starts at Pix[y*Stride].
type Image struct {
	Width  int
	Height int
	Stride int
	Pix    []uint8
}

// NewImage allocates a zeroed (black) image.
func NewImage(width, height int) *Image {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Image{
		Width:  width,
		Height: height,
		Stride: width * 3,
		Pix:    make([]uint8, width*height*3),
	}
}

// NewImageFromBGR wraps an existing packed BGR buffer without copying.
func NewImageFromBGR(width, height int, pix []uint8) (*Image, error) {
	if len(pix) < width*height*3 {
		return nil, &SizeError{Op: "wrap", Want: image.Pt(width, height), Got: image.Pt(len(pix)/3, 1)}
	}
	return &Image{Width: width, Height: height, Stride: width * 3, Pix: pix}, nil
}

// Size returns the image dimensions as a point.
func (m *Image) Size() image.Point {
	return image.Pt(m.Width, m.Height)
}

// SameSize reports whether both images have identical width and height.
func (m *Image) SameSize(o *Image) bool {
	return m.Width == o.Width && m.Height == o.Height
}

// PixelAt returns the pixel at (x, y). The caller guarantees bounds.
func (m *Image) PixelAt(x, y int) Pixel {
	i := y*m.Stride + x*3
	s := m.Pix[i : i+3 : i+3]
	return Pixel{B: s[0], G: s[1], R: s[2]}
}

// SetPixel stores p at (x, y). The caller guarantees bounds.
func (m *Image) SetPixel(x, y int, p Pixel) {
	i := y*m.Stride + x*3
	s := m.Pix[i : i+3 : i+3]
	s[0] = p.B
	s[1] = p.G
	s[2] = p.R
}

// Fill paints the whole image with p.
func (m *Image) Fill(p Pixel) {
	for y := 0; y < m.Height; y++ {
		row := m.Pix[y*m.Stride : y*m.Stride+m.Width*3]
		for i := 0; i < len(row); i += 3 {
			row[i] = p.B
			row[i+1] = p.G
			row[i+2] = p.R
		}
	}
}

// Clone returns a deep copy with a tight stride.
func (m *Image) Clone() *Image {
	out := NewImage(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		copy(out.Pix[y*out.Stride:(y+1)*out.Stride], m.Pix[y*m.Stride:y*m.Stride+m.Width*3])
	}
	return out
}

// ColorModel implements image.Image.
func (m *Image) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements image.Image.
func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// At implements image.Image.
func (m *Image) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return color.RGBA{}
	}
	p := m.PixelAt(x, y)
	return color.RGBA{R: p.R, G: p.G, B: p.B, A: 0xff}
}

// Set implements draw.Image so the raster can be a draw target.
func (m *Image) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.SetPixel(x, y, PixelFromColor(c))
}

// ToRGBA converts to an *image.RGBA, used by encoders that want 4 channels.
func (m *Image) ToRGBA() *image.RGBA {
	out := image.NewRGBA(m.Bounds())
	for y := 0; y < m.Height; y++ {
		src := m.Pix[y*m.Stride : y*m.Stride+m.Width*3]
		dst := out.Pix[y*out.Stride : y*out.Stride+m.Width*4]
		for i, j := 0, 0; i < len(src); i, j = i+3, j+4 {
			dst[j] = src[i+2]
			dst[j+1] = src[i+1]
			dst[j+2] = src[i]
			dst[j+3] = 0xff
		}
	}
	return out
}

// FromImage converts a decoded image into a BGR raster anchored at (0, 0).
func FromImage(src image.Image) *Image {
	switch s := src.(type) {
	case *Image:
		return s.Clone()
	case *image.RGBA:
		return fromRGBA(s.Pix, s.Stride, s.Rect)
	case *image.NRGBA:
		// Alpha is discarded; opaque decoders are the norm here.
		return fromRGBA(s.Pix, s.Stride, s.Rect)
	}

	b := src.Bounds()
	out := NewImage(b.Dx(), b.Dy())
	if ycc, ok := src.(*image.YCbCr); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out.SetPixel(x-b.Min.X, y-b.Min.Y, PixelFromColor(ycc.YCbCrAt(x, y)))
			}
		}
		return out
	}

	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	return fromRGBA(rgba.Pix, rgba.Stride, rgba.Rect)
}

func fromRGBA(pix []uint8, stride int, r image.Rectangle) *Image {
	out := NewImage(r.Dx(), r.Dy())
	for y := 0; y < out.Height; y++ {
		src := pix[y*stride : y*stride+out.Width*4]
		dst := out.Pix[y*out.Stride : (y+1)*out.Stride]
		for i, j := 0, 0; j < len(dst); i, j = i+4, j+3 {
			dst[j] = src[i+2]
			dst[j+1] = src[i+1]
			dst[j+2] = src[i]
		}
	}
	return out
}
