package analyzer

import (
	"sort"

	"github.com/ivlev/greenscreen/internal/chroma"
)

// BorderSampler takes the per-channel median of a band along the frame
// edges, where a framed subject rarely reaches.
type BorderSampler struct {
	Margin float64 // Band width as a fraction of the shorter side
}

// NewBorderSampler creates a border sampler with default settings
func NewBorderSampler() *BorderSampler {
	return &BorderSampler{Margin: 0.05}
}

// Sample returns the median border color.
func (s *BorderSampler) Sample(img *chroma.Image) (chroma.Pixel, error) {
	if img.Width == 0 || img.Height == 0 {
		return chroma.Pixel{}, ErrEmptyImage
	}

	short := img.Width
	if img.Height < short {
		short = img.Height
	}
	band := int(float64(short) * s.Margin)
	if band < 1 {
		band = 1
	}

	var bs, gs, rs []uint8
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			if !inBand(x, y, img.Width, img.Height, band) {
				continue
			}
			p := img.PixelAt(x, y)
			bs = append(bs, p.B)
			gs = append(gs, p.G)
			rs = append(rs, p.R)
		}
	}

	return chroma.Pixel{B: median(bs), G: median(gs), R: median(rs)}, nil
}

func inBand(x, y, w, h, band int) bool {
	return x < band || y < band || x >= w-band || y >= h-band
}

// median returns the middle value; values is reordered.
func median(values []uint8) uint8 {
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	return values[len(values)/2]
}
