package analyzer

import (
	"github.com/ivlev/greenscreen/internal/chroma"
)

// DominantSampler quantizes the frame into color buckets and returns the
// mean color of the most populated bucket.
type DominantSampler struct {
	Bits uint // Bits kept per channel when bucketing
}

// NewDominantSampler creates a dominant-color sampler with default settings
func NewDominantSampler() *DominantSampler {
	return &DominantSampler{Bits: 4}
}

type bucket struct {
	n       int
	b, g, r int
}

func (s *DominantSampler) Sample(img *chroma.Image) (chroma.Pixel, error) {
	if img.Width == 0 || img.Height == 0 {
		return chroma.Pixel{}, ErrEmptyImage
	}
	bits := s.Bits
	if bits == 0 || bits > 8 {
		bits = 4
	}
	shift := 8 - bits

	buckets := make(map[uint32]*bucket)
	var best *bucket
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			p := img.PixelAt(x, y)
			key := uint32(p.B>>shift)<<16 | uint32(p.G>>shift)<<8 | uint32(p.R>>shift)
			bk := buckets[key]
			if bk == nil {
				bk = &bucket{}
				buckets[key] = bk
			}
			bk.n++
			bk.b += int(p.B)
			bk.g += int(p.G)
			bk.r += int(p.R)
			if best == nil || bk.n > best.n {
				best = bk
			}
		}
	}

	return chroma.Pixel{
		B: uint8(best.b / best.n),
		G: uint8(best.g / best.n),
		R: uint8(best.r / best.n),
	}, nil
}
