package chroma

// DefaultBias centers chroma values in the 8-bit range.
const DefaultBias = 128

// Luma weights a pixel's channels into a brightness value in [0, 255].
func Luma(p Pixel) float64 {
	return 0.299*float64(p.R) + 0.587*float64(p.G) + 0.114*float64(p.B)
}

// BlueChroma returns the blue-difference component offset by bias.
func BlueChroma(p Pixel, bias float64) float64 {
	return (float64(p.B)-Luma(p))*0.564 + bias
}

// RedChroma returns the red-difference component offset by bias.
func RedChroma(p Pixel, bias float64) float64 {
	return (float64(p.R)-Luma(p))*0.713 + bias
}

// Chrominance returns (Cb, Cr) for p, sharing a single luma evaluation.
func Chrominance(p Pixel, bias float64) (cb, cr float64) {
	y := Luma(p)
	cb = (float64(p.B)-y)*0.564 + bias
	cr = (float64(p.R)-y)*0.713 + bias
	return cb, cr
}
