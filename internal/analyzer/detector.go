package analyzer

import (
	"errors"

	"github.com/ivlev/greenscreen/internal/chroma"
)

var ErrEmptyImage = errors.New("cannot sample key color from an empty image")

// Sampler estimates the backdrop color of a frame. It runs once at session
// start; the key is never re-estimated per frame.
type Sampler interface {
	Sample(img *chroma.Image) (chroma.Pixel, error)
}
