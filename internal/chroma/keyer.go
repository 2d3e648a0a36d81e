package chroma

import (
	"fmt"
	"image"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Default tolerances. With the Euclidean metric every 8-bit color lands
// inside the near threshold. With MetricSquared only strongly saturated
// colors far from the key (magenta, pure blue) reach the far threshold;
// white (squared distance about 11834) is still keyed. Calibrate with
// WithTolerances.
const (
	DefaultToleranceNear = 46210
	DefaultToleranceFar  = 46240
)

// Keyer replaces key-colored foreground pixels with the background.
type Keyer interface {
	Composite(background, foreground *Image) (*Image, error)
}

// Blend selects how alpha turns into output pixels.
type Blend int

const (
	// BlendBinary truncates 1-alpha to an integer mask, so soft-edge pixels
	// keep the foreground and only alpha == 0 pixels are replaced.
	BlendBinary Blend = iota
	// BlendLinear interpolates foreground and background by alpha.
	BlendLinear
)

func (b Blend) String() string {
	switch b {
	case BlendLinear:
		return "linear"
	default:
		return "binary"
	}
}

// ParseBlend maps "binary" and "linear" to a Blend.
func ParseBlend(s string) (Blend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "binary":
		return BlendBinary, nil
	case "linear":
		return BlendLinear, nil
	default:
		return BlendBinary, fmt.Errorf("unknown blend mode: %s", s)
	}
}

// Metric selects what Distance reports and tolerances are compared with.
type Metric int

const (
	MetricEuclidean Metric = iota
	MetricSquared
)

func (m Metric) String() string {
	switch m {
	case MetricSquared:
		return "squared"
	default:
		return "euclidean"
	}
}

// ParseMetric maps "euclidean" and "squared" to a Metric.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "euclidean", "linear":
		return MetricEuclidean, nil
	case "squared":
		return MetricSquared, nil
	default:
		return MetricEuclidean, fmt.Errorf("unknown distance metric: %s", s)
	}
}

// CbCrKeyer keys on the distance between a pixel's chrominance and the
// key color's chrominance. It is immutable after construction and safe
// for concurrent use.
type CbCrKeyer struct {
	Key           Pixel
	KeyCb         float64
	KeyCr         float64
	ToleranceNear int
	ToleranceFar  int
	Bias          float64
	Blend         Blend
	Metric        Metric
	Workers       int
}

// Option configures a CbCrKeyer.
type Option func(*CbCrKeyer)

// WithTolerances sets the near and far thresholds.
func WithTolerances(near, far int) Option {
	return func(k *CbCrKeyer) {
		k.ToleranceNear = near
		k.ToleranceFar = far
	}
}

// WithBias sets the chroma bias (delta).
func WithBias(bias float64) Option {
	return func(k *CbCrKeyer) { k.Bias = bias }
}

// WithBlend sets the blend mode.
func WithBlend(b Blend) Option {
	return func(k *CbCrKeyer) { k.Blend = b }
}

// WithMetric sets the distance metric.
func WithMetric(m Metric) Option {
	return func(k *CbCrKeyer) { k.Metric = m }
}

// WithWorkers splits each composite into n row bands.
func WithWorkers(n int) Option {
	return func(k *CbCrKeyer) { k.Workers = n }
}

// NewCbCrKeyer builds a keyer for key. Tolerances must satisfy
// 0 <= near < far.
func NewCbCrKeyer(key Pixel, opts ...Option) (*CbCrKeyer, error) {
	k := &CbCrKeyer{
		Key:           key,
		ToleranceNear: DefaultToleranceNear,
		ToleranceFar:  DefaultToleranceFar,
		Bias:          DefaultBias,
		Blend:         BlendBinary,
		Metric:        MetricEuclidean,
		Workers:       1,
	}
	for _, opt := range opts {
		opt(k)
	}

	if k.ToleranceNear < 0 || k.ToleranceFar <= k.ToleranceNear {
		return nil, fmt.Errorf("%w: near=%d far=%d", ErrInvalidTolerance, k.ToleranceNear, k.ToleranceFar)
	}
	if k.Workers < 1 {
		k.Workers = 1
	}

	k.KeyCb, k.KeyCr = Chrominance(key, k.Bias)
	return k, nil
}

// ChromaDistance is the Euclidean distance between two chrominance pairs.
func ChromaDistance(cb1, cr1, cb2, cr2 float64) float64 {
	dcb := cb1 - cb2
	dcr := cr1 - cr2
	return math.Sqrt(dcb*dcb + dcr*dcr)
}

// Distance measures (cb, cr) against the key chrominance in the keyer's metric.
func (k *CbCrKeyer) Distance(cb, cr float64) float64 {
	dcb := k.KeyCb - cb
	dcr := k.KeyCr - cr
	sq := dcb*dcb + dcr*dcr
	if k.Metric == MetricSquared {
		return sq
	}
	return math.Sqrt(sq)
}

// Alpha maps a distance to a foreground weight in [0, 1].
func (k *CbCrKeyer) Alpha(distance float64) float64 {
	near := float64(k.ToleranceNear)
	far := float64(k.ToleranceFar)
	switch {
	case distance < near:
		return 0
	case distance < far:
		return (distance - near) / (far - near)
	default:
		return 1
	}
}

// PixelAlpha is Alpha of the foreground pixel's chrominance distance.
func (k *CbCrKeyer) PixelAlpha(p Pixel) float64 {
	cb, cr := Chrominance(p, k.Bias)
	return k.Alpha(k.Distance(cb, cr))
}

// Composite returns a new image keyed from foreground over background.
func (k *CbCrKeyer) Composite(background, foreground *Image) (*Image, error) {
	out := NewImage(foreground.Width, foreground.Height)
	if err := k.CompositeInto(out, background, foreground); err != nil {
		return nil, err
	}
	return out, nil
}

// CompositeInto writes the keyed result into dst. All three images must
// share dimensions; dst may alias foreground or background.
func (k *CbCrKeyer) CompositeInto(dst, background, foreground *Image) error {
	if !background.SameSize(foreground) {
		return &SizeError{Op: "background", Want: foreground.Size(), Got: background.Size()}
	}
	if !dst.SameSize(foreground) {
		return &SizeError{Op: "output", Want: foreground.Size(), Got: dst.Size()}
	}

	h := foreground.Height
	workers := k.Workers
	if workers > h {
		workers = h
	}
	if workers <= 1 {
		k.compositeRows(dst, background, foreground, 0, h)
		return nil
	}

	var g errgroup.Group
	band := (h + workers - 1) / workers
	for y0 := 0; y0 < h; y0 += band {
		y1 := y0 + band
		if y1 > h {
			y1 = h
		}
		y0 := y0
		g.Go(func() error {
			k.compositeRows(dst, background, foreground, y0, y1)
			return nil
		})
	}
	return g.Wait()
}

func (k *CbCrKeyer) compositeRows(dst, bg, fg *Image, y0, y1 int) {
	w := fg.Width
	for y := y0; y < y1; y++ {
		fRow := fg.Pix[y*fg.Stride : y*fg.Stride+w*3]
		bRow := bg.Pix[y*bg.Stride : y*bg.Stride+w*3]
		oRow := dst.Pix[y*dst.Stride : y*dst.Stride+w*3]

		for i := 0; i < len(fRow); i += 3 {
			f := Pixel{B: fRow[i], G: fRow[i+1], R: fRow[i+2]}
			alpha := k.PixelAlpha(f)

			if k.Blend == BlendLinear {
				oRow[i] = lerp(bRow[i], fRow[i], alpha)
				oRow[i+1] = lerp(bRow[i+1], fRow[i+1], alpha)
				oRow[i+2] = lerp(bRow[i+2], fRow[i+2], alpha)
				continue
			}

			mask := int(1 - alpha)
			oRow[i] = keyChannel(fRow[i], k.Key.B, bRow[i], mask)
			oRow[i+1] = keyChannel(fRow[i+1], k.Key.G, bRow[i+1], mask)
			oRow[i+2] = keyChannel(fRow[i+2], k.Key.R, bRow[i+2], mask)
		}
	}
}

// keyChannel computes max(f - mask*key, 0) + mask*b saturated to 255.
func keyChannel(f, key, b uint8, mask int) uint8 {
	v := int(f) - mask*int(key)
	if v < 0 {
		v = 0
	}
	v += mask * int(b)
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

func lerp(b, f uint8, alpha float64) uint8 {
	v := alpha*float64(f) + (1-alpha)*float64(b)
	return uint8(math.Round(math.Min(math.Max(v, 0), 255)))
}

// MatteInto writes alpha*255 of every foreground pixel into dst.
func (k *CbCrKeyer) MatteInto(dst *image.Gray, foreground *Image) error {
	b := dst.Bounds()
	if b.Dx() != foreground.Width || b.Dy() != foreground.Height {
		return &SizeError{Op: "matte", Want: foreground.Size(), Got: b.Size()}
	}
	for y := 0; y < foreground.Height; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+foreground.Width]
		for x := range row {
			row[x] = uint8(math.Round(k.PixelAlpha(foreground.PixelAt(x, y)) * 255))
		}
	}
	return nil
}

// Coverage is the fraction of foreground pixels fully replaced (alpha == 0).
func (k *CbCrKeyer) Coverage(foreground *Image) float64 {
	total := foreground.Width * foreground.Height
	if total == 0 {
		return 0
	}
	keyed := 0
	for y := 0; y < foreground.Height; y++ {
		for x := 0; x < foreground.Width; x++ {
			if k.PixelAlpha(foreground.PixelAt(x, y)) == 0 {
				keyed++
			}
		}
	}
	return float64(keyed) / float64(total)
}
