// Package scale resizes BGR rasters so a background can be laid under
// frames of any size.
package scale

import (
	"fmt"
	"image"
	"strings"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"

	"github.com/ivlev/greenscreen/internal/chroma"
)

type Method int

const (
	NearestNeighbor Method = iota
	Bilinear
	CatmullRom
	Lanczos3
	Mitchell
)

func (m Method) String() string {
	switch m {
	case NearestNeighbor:
		return "nearest"
	case CatmullRom:
		return "catmullrom"
	case Lanczos3:
		return "lanczos3"
	case Mitchell:
		return "mitchell"
	default:
		return "bilinear"
	}
}

// ParseMethod maps a config name to a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nearest":
		return NearestNeighbor, nil
	case "", "bilinear", "linear":
		return Bilinear, nil
	case "catmullrom", "cubic":
		return CatmullRom, nil
	case "lanczos3", "lanczos":
		return Lanczos3, nil
	case "mitchell":
		return Mitchell, nil
	default:
		return Bilinear, fmt.Errorf("unknown resize method: %s", s)
	}
}

// Resize returns img scaled to w x h. A same-size request returns a copy.
func Resize(img *chroma.Image, w, h int, m Method) *chroma.Image {
	if img.Width == w && img.Height == h {
		return img.Clone()
	}
	if w <= 0 || h <= 0 || img.Width == 0 || img.Height == 0 {
		return chroma.NewImage(w, h)
	}

	switch m {
	case Lanczos3:
		return chroma.FromImage(resize.Resize(uint(w), uint(h), img.ToRGBA(), resize.Lanczos3))
	case Mitchell:
		return chroma.FromImage(resize.Resize(uint(w), uint(h), img.ToRGBA(), resize.MitchellNetravali))
	}

	var interp draw.Interpolator
	switch m {
	case NearestNeighbor:
		interp = draw.NearestNeighbor
	case CatmullRom:
		interp = draw.CatmullRom
	default:
		interp = draw.BiLinear
	}

	src := img.ToRGBA()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	interp.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return chroma.FromImage(dst)
}

// ResizeFunc scales an image to w x h. media.Backend.Resize satisfies it.
type ResizeFunc func(img *chroma.Image, w, h int) *chroma.Image

// Func binds m to Resize.
func (m Method) Func() ResizeFunc {
	return func(img *chroma.Image, w, h int) *chroma.Image {
		return Resize(img, w, h, m)
	}
}

// Cache keeps one resized copy of a fixed source per target size, so a
// capture loop only rescales when the frame size changes.
type Cache struct {
	src    *chroma.Image
	resize ResizeFunc
	size   image.Point
	out    *chroma.Image
}

func NewCache(src *chroma.Image, fn ResizeFunc) *Cache {
	return &Cache{src: src, resize: fn}
}

// For returns the source scaled to w x h.
func (c *Cache) For(w, h int) *chroma.Image {
	p := image.Pt(w, h)
	if c.out == nil || c.size != p {
		c.out = c.resize(c.src, w, h)
		c.size = p
	}
	return c.out
}
