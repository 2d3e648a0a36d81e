package chroma

import (
	"errors"
	"image"
	"math"
	"math/rand"
	"testing"
)

var greenKey = Pixel{B: 26, G: 255, R: 83}

func solid(w, h int, p Pixel) *Image {
	img := NewImage(w, h)
	img.Fill(p)
	return img
}

func randomImage(w, h int, seed int64) *Image {
	r := rand.New(rand.NewSource(seed))
	img := NewImage(w, h)
	r.Read(img.Pix)
	return img
}

func TestChromaConversion(t *testing.T) {
	tests := []struct {
		name   string
		pixel  Pixel
		luma   float64
		cb, cr float64
	}{
		{"black", Pixel{}, 0, 128, 128},
		{"white", Pixel{B: 255, G: 255, R: 255}, 255, 128, 128},
		{"key", greenKey, 177.466, 42.5732, 60.6457},
		{"pure blue", Pixel{B: 255}, 29.07, 255.4245, 107.2731},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if y := Luma(tt.pixel); math.Abs(y-tt.luma) > 0.001 {
				t.Errorf("Luma = %f, want %f", y, tt.luma)
			}
			if cb := BlueChroma(tt.pixel, DefaultBias); math.Abs(cb-tt.cb) > 0.001 {
				t.Errorf("BlueChroma = %f, want %f", cb, tt.cb)
			}
			if cr := RedChroma(tt.pixel, DefaultBias); math.Abs(cr-tt.cr) > 0.001 {
				t.Errorf("RedChroma = %f, want %f", cr, tt.cr)
			}
		})
	}
}

func TestChromaConversionIsDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		p := Pixel{B: uint8(r.Intn(256)), G: uint8(r.Intn(256)), R: uint8(r.Intn(256))}
		cb, cr := Chrominance(p, DefaultBias)
		if cb != BlueChroma(p, DefaultBias) || cr != RedChroma(p, DefaultBias) {
			t.Fatalf("Chrominance(%v) diverges from BlueChroma/RedChroma", p)
		}
		if Luma(p) != Luma(p) || BlueChroma(p, 64) != BlueChroma(p, 64) {
			t.Fatalf("conversion of %v is not stable", p)
		}
	}
}

func TestChromaDistance(t *testing.T) {
	if d := ChromaDistance(10, 20, 10, 20); d != 0 {
		t.Errorf("distance to self = %f, want 0", d)
	}
	a := ChromaDistance(10, 20, 13, 24)
	b := ChromaDistance(13, 24, 10, 20)
	if a != b {
		t.Errorf("distance not symmetric: %f vs %f", a, b)
	}
	if a != 5 {
		t.Errorf("distance = %f, want 5", a)
	}

	k, err := NewCbCrKeyer(greenKey)
	if err != nil {
		t.Fatalf("NewCbCrKeyer: %v", err)
	}
	if d := k.Distance(k.KeyCb, k.KeyCr); d != 0 {
		t.Errorf("key distance = %f, want 0", d)
	}
	if d := k.Distance(0, 0); d < 0 {
		t.Errorf("negative distance %f", d)
	}
}

func TestAlphaZones(t *testing.T) {
	k, err := NewCbCrKeyer(greenKey, WithTolerances(10, 20))
	if err != nil {
		t.Fatalf("NewCbCrKeyer: %v", err)
	}

	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 0},
		{9.999, 0},
		{10, 0},
		{15, 0.5},
		{17.5, 0.75},
		{19.999, 0.9999},
		{20, 1},
		{300, 1},
	}
	for _, tt := range tests {
		if got := k.Alpha(tt.distance); math.Abs(got-tt.want) > 0.001 {
			t.Errorf("Alpha(%v) = %v, want %v", tt.distance, got, tt.want)
		}
	}
}

func TestNewCbCrKeyerRejectsBadTolerances(t *testing.T) {
	tests := []struct {
		near, far int
	}{
		{10, 10},
		{20, 10},
		{-1, 10},
	}
	for _, tt := range tests {
		_, err := NewCbCrKeyer(greenKey, WithTolerances(tt.near, tt.far))
		if !errors.Is(err, ErrInvalidTolerance) {
			t.Errorf("tolerances (%d, %d): err = %v, want ErrInvalidTolerance", tt.near, tt.far, err)
		}
	}
}

func TestCompositeKeyPixelTakesBackground(t *testing.T) {
	for _, blend := range []Blend{BlendBinary, BlendLinear} {
		t.Run(blend.String(), func(t *testing.T) {
			k, err := NewCbCrKeyer(greenKey, WithBlend(blend))
			if err != nil {
				t.Fatalf("NewCbCrKeyer: %v", err)
			}
			bg := randomImage(16, 9, 1)
			fg := solid(16, 9, greenKey)

			out, err := k.Composite(bg, fg)
			if err != nil {
				t.Fatalf("Composite: %v", err)
			}
			for y := 0; y < 9; y++ {
				for x := 0; x < 16; x++ {
					if out.PixelAt(x, y) != bg.PixelAt(x, y) {
						t.Fatalf("(%d,%d) = %v, want background %v", x, y, out.PixelAt(x, y), bg.PixelAt(x, y))
					}
				}
			}
		})
	}
}

func TestDefaultTolerancesKeyEveryColor(t *testing.T) {
	k, err := NewCbCrKeyer(greenKey)
	if err != nil {
		t.Fatalf("NewCbCrKeyer: %v", err)
	}

	white := Pixel{B: 255, G: 255, R: 255}
	if a := k.PixelAlpha(white); a != 0 {
		t.Errorf("alpha(white) = %f, want 0 under default tolerances", a)
	}

	// The binary path subtracts the key and adds the background.
	bg := solid(1, 1, Pixel{B: 10, G: 20, R: 30})
	out, err := k.Composite(bg, solid(1, 1, white))
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	want := Pixel{B: 255 - 26 + 10, G: 0 + 20, R: 255 - 83 + 30}
	if got := out.PixelAt(0, 0); got != want {
		t.Errorf("white over bg = %v, want %v", got, want)
	}
}

func TestCompositeScenario(t *testing.T) {
	// Linear tolerances calibrated for 8-bit chroma: white sits ~108.8 away.
	k, err := NewCbCrKeyer(greenKey, WithTolerances(40, 80), WithBias(128))
	if err != nil {
		t.Fatalf("NewCbCrKeyer: %v", err)
	}

	white := Pixel{B: 255, G: 255, R: 255}
	fg := NewImage(2, 1)
	fg.SetPixel(0, 0, greenKey)
	fg.SetPixel(1, 0, white)
	bg := NewImage(2, 1)
	bg.SetPixel(0, 0, Pixel{B: 1, G: 2, R: 3})
	bg.SetPixel(1, 0, Pixel{B: 4, G: 5, R: 6})

	out, err := k.Composite(bg, fg)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	if got := out.PixelAt(0, 0); got != bg.PixelAt(0, 0) {
		t.Errorf("key pixel = %v, want background %v", got, bg.PixelAt(0, 0))
	}
	if got := out.PixelAt(1, 0); got != white {
		t.Errorf("white pixel = %v, want %v", got, white)
	}
}

func TestSquaredMetricWithDefaults(t *testing.T) {
	k, err := NewCbCrKeyer(greenKey, WithMetric(MetricSquared))
	if err != nil {
		t.Fatalf("NewCbCrKeyer: %v", err)
	}
	magenta := Pixel{B: 255, R: 255}
	if a := k.PixelAlpha(magenta); a != 1 {
		t.Errorf("alpha(magenta) = %f, want 1", a)
	}
	if a := k.PixelAlpha(greenKey); a != 0 {
		t.Errorf("alpha(key) = %f, want 0", a)
	}

	// White is far from green, yet its squared distance stays under near.
	white := Pixel{B: 255, G: 255, R: 255}
	cb, cr := Chrominance(white, DefaultBias)
	d := k.Distance(cb, cr)
	t.Logf("squared distance(white) = %.1f", d)
	if d < 11800 || d > 11870 {
		t.Errorf("squared distance(white) = %f, want about 11834", d)
	}
	if a := k.PixelAlpha(white); a != 0 {
		t.Errorf("alpha(white) = %f, want 0 under default tolerances", a)
	}
}

func TestSoftEdgeBlendModes(t *testing.T) {
	white := Pixel{B: 255, G: 255, R: 255}
	bg := solid(1, 1, Pixel{})
	fg := solid(1, 1, white)

	binary, err := NewCbCrKeyer(greenKey, WithTolerances(0, 200))
	if err != nil {
		t.Fatalf("NewCbCrKeyer: %v", err)
	}
	alpha := binary.PixelAlpha(white)
	if alpha <= 0 || alpha >= 1 {
		t.Fatalf("alpha(white) = %f, want inside the soft edge", alpha)
	}

	out, err := binary.Composite(bg, fg)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	if got := out.PixelAt(0, 0); got != white {
		t.Errorf("binary soft edge = %v, want foreground %v", got, white)
	}

	linear, err := NewCbCrKeyer(greenKey, WithTolerances(0, 200), WithBlend(BlendLinear))
	if err != nil {
		t.Fatalf("NewCbCrKeyer: %v", err)
	}
	out, err = linear.Composite(bg, fg)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	v := uint8(math.Round(alpha * 255))
	if got := out.PixelAt(0, 0); got != (Pixel{B: v, G: v, R: v}) {
		t.Errorf("linear soft edge = %v, want gray %d (alpha %.3f)", got, v, alpha)
	}
}

func TestCompositeForegroundIdempotence(t *testing.T) {
	k, err := NewCbCrKeyer(greenKey, WithTolerances(40, 80))
	if err != nil {
		t.Fatalf("NewCbCrKeyer: %v", err)
	}
	fg := NewImage(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			// Neutral grays: chroma (128,128), far from the key.
			v := uint8(x*30 + y)
			fg.SetPixel(x, y, Pixel{B: v, G: v, R: v})
		}
	}

	out, err := k.Composite(randomImage(8, 8, 3), fg)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	again, err := k.Composite(randomImage(8, 8, 4), out)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	for i := range fg.Pix {
		if out.Pix[i] != fg.Pix[i] || again.Pix[i] != fg.Pix[i] {
			t.Fatalf("byte %d changed: fg=%d out=%d again=%d", i, fg.Pix[i], out.Pix[i], again.Pix[i])
		}
	}
}

func TestCompositeDimensions(t *testing.T) {
	k, err := NewCbCrKeyer(greenKey)
	if err != nil {
		t.Fatalf("NewCbCrKeyer: %v", err)
	}

	out, err := k.Composite(NewImage(7, 5), NewImage(7, 5))
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	if out.Width != 7 || out.Height != 5 {
		t.Errorf("output %dx%d, want 7x5", out.Width, out.Height)
	}

	_, err = k.Composite(NewImage(6, 5), NewImage(7, 5))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
	var se *SizeError
	if !errors.As(err, &se) || se.Op != "background" {
		t.Errorf("err = %#v, want background SizeError", err)
	}

	err = k.CompositeInto(NewImage(7, 4), NewImage(7, 5), NewImage(7, 5))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("CompositeInto err = %v, want ErrDimensionMismatch", err)
	}
}

func TestCompositeWorkersMatchSerial(t *testing.T) {
	bg := randomImage(33, 17, 10)
	fg := randomImage(33, 17, 11)

	for _, blend := range []Blend{BlendBinary, BlendLinear} {
		serial, err := NewCbCrKeyer(greenKey, WithTolerances(60, 120), WithBlend(blend))
		if err != nil {
			t.Fatalf("NewCbCrKeyer: %v", err)
		}
		parallel, err := NewCbCrKeyer(greenKey, WithTolerances(60, 120), WithBlend(blend), WithWorkers(4))
		if err != nil {
			t.Fatalf("NewCbCrKeyer: %v", err)
		}

		a, err := serial.Composite(bg, fg)
		if err != nil {
			t.Fatalf("serial Composite: %v", err)
		}
		b, err := parallel.Composite(bg, fg)
		if err != nil {
			t.Fatalf("parallel Composite: %v", err)
		}
		for i := range a.Pix {
			if a.Pix[i] != b.Pix[i] {
				t.Fatalf("%s: byte %d differs: %d vs %d", blend, i, a.Pix[i], b.Pix[i])
			}
		}
	}
}

func TestKeyChannelSaturates(t *testing.T) {
	tests := []struct {
		f, key, b uint8
		mask      int
		want      uint8
	}{
		{200, 26, 100, 0, 200},
		{200, 26, 100, 1, 255},
		{10, 26, 100, 1, 100},
		{26, 26, 77, 1, 77},
	}
	for _, tt := range tests {
		if got := keyChannel(tt.f, tt.key, tt.b, tt.mask); got != tt.want {
			t.Errorf("keyChannel(%d,%d,%d,%d) = %d, want %d", tt.f, tt.key, tt.b, tt.mask, got, tt.want)
		}
	}
}

func TestCoverageAndMatte(t *testing.T) {
	k, err := NewCbCrKeyer(greenKey, WithTolerances(40, 80))
	if err != nil {
		t.Fatalf("NewCbCrKeyer: %v", err)
	}
	fg := solid(4, 2, greenKey)
	fg.SetPixel(0, 0, Pixel{B: 255, G: 255, R: 255})
	fg.SetPixel(1, 0, Pixel{B: 255, G: 255, R: 255})

	if c := k.Coverage(fg); c != 0.75 {
		t.Errorf("Coverage = %f, want 0.75", c)
	}
	if c := k.Coverage(NewImage(0, 0)); c != 0 {
		t.Errorf("Coverage(empty) = %f, want 0", c)
	}

	matte := image.NewGray(image.Rect(0, 0, 4, 2))
	if err := k.MatteInto(matte, fg); err != nil {
		t.Fatalf("MatteInto: %v", err)
	}
	if matte.GrayAt(0, 0).Y != 255 || matte.GrayAt(3, 1).Y != 0 {
		t.Errorf("matte = %v, want 255 for subject and 0 for key", matte.Pix)
	}
	if err := k.MatteInto(image.NewGray(image.Rect(0, 0, 2, 2)), fg); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("MatteInto err = %v, want ErrDimensionMismatch", err)
	}
}

func TestParseBlendAndMetric(t *testing.T) {
	if b, err := ParseBlend("LINEAR"); err != nil || b != BlendLinear {
		t.Errorf("ParseBlend(LINEAR) = %v, %v", b, err)
	}
	if b, err := ParseBlend(""); err != nil || b != BlendBinary {
		t.Errorf("ParseBlend(\"\") = %v, %v", b, err)
	}
	if _, err := ParseBlend("soft"); err == nil {
		t.Error("ParseBlend(soft) expected error")
	}
	if m, err := ParseMetric("squared"); err != nil || m != MetricSquared {
		t.Errorf("ParseMetric(squared) = %v, %v", m, err)
	}
	if _, err := ParseMetric("manhattan"); err == nil {
		t.Error("ParseMetric(manhattan) expected error")
	}
}
