package scale

import (
	"testing"

	"github.com/ivlev/greenscreen/internal/chroma"
)

func TestResizeDimensions(t *testing.T) {
	src := chroma.NewImage(40, 20)
	src.Fill(chroma.Pixel{B: 10, G: 200, R: 30})

	for _, m := range []Method{NearestNeighbor, Bilinear, CatmullRom, Lanczos3, Mitchell} {
		t.Run(m.String(), func(t *testing.T) {
			out := Resize(src, 13, 7, m)
			if out.Width != 13 || out.Height != 7 {
				t.Fatalf("got %dx%d, want 13x7", out.Width, out.Height)
			}
			// A flat image stays flat under any kernel (allow rounding).
			p := out.PixelAt(6, 3)
			if diff(p.G, 200) > 2 || diff(p.B, 10) > 2 || diff(p.R, 30) > 2 {
				t.Errorf("center pixel %v drifted from source color", p)
			}
		})
	}
}

func TestResizeSameSizeCopies(t *testing.T) {
	src := chroma.NewImage(4, 4)
	src.Fill(chroma.Pixel{R: 9})
	out := Resize(src, 4, 4, Bilinear)
	out.SetPixel(0, 0, chroma.Pixel{})
	if src.PixelAt(0, 0).R != 9 {
		t.Error("Resize to the same size must not alias the source")
	}
}

func TestCacheReusesBySize(t *testing.T) {
	c := NewCache(chroma.NewImage(10, 10), NearestNeighbor.Func())
	a := c.For(5, 5)
	b := c.For(5, 5)
	if a != b {
		t.Error("expected cached image for repeated size")
	}
	if d := c.For(6, 5); d == a || d.Width != 6 {
		t.Errorf("expected fresh 6x5 image, got %dx%d", d.Width, d.Height)
	}
}

func TestParseMethod(t *testing.T) {
	tests := map[string]Method{
		"":           Bilinear,
		"nearest":    NearestNeighbor,
		"CatmullRom": CatmullRom,
		"lanczos":    Lanczos3,
		"mitchell":   Mitchell,
	}
	for in, want := range tests {
		got, err := ParseMethod(in)
		if err != nil || got != want {
			t.Errorf("ParseMethod(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseMethod("sinc"); err == nil {
		t.Error("expected error for unknown method")
	}
}

func diff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
