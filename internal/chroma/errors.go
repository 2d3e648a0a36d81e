package chroma

import (
	"errors"
	"fmt"
	"image"
)

// ErrDimensionMismatch is returned when images taking part in one
// composite do not share width and height.
var ErrDimensionMismatch = errors.New("image dimensions do not match")

// ErrInvalidTolerance is returned for tolerances that are negative or not
// strictly increasing.
var ErrInvalidTolerance = errors.New("invalid key tolerances")

// SizeError describes which image broke the size contract.
type SizeError struct {
	Op   string
	Want image.Point
	Got  image.Point
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("%s: expected %dx%d, got %dx%d", e.Op, e.Want.X, e.Want.Y, e.Got.X, e.Got.Y)
}

func (e *SizeError) Unwrap() error { return ErrDimensionMismatch }
