// Package opencv implements media.Backend on top of gocv.
package opencv

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ivlev/greenscreen/internal/chroma"
	"github.com/ivlev/greenscreen/internal/media"
	"github.com/ivlev/greenscreen/internal/scale"
)

type Backend struct {
	interp  gocv.InterpolationFlags
	windows map[string]*gocv.Window
	last    *gocv.Window
}

func New(method scale.Method) *Backend {
	return &Backend{
		interp:  interpolation(method),
		windows: make(map[string]*gocv.Window),
	}
}

func interpolation(m scale.Method) gocv.InterpolationFlags {
	switch m {
	case scale.NearestNeighbor:
		return gocv.InterpolationNearestNeighbor
	case scale.CatmullRom, scale.Mitchell:
		return gocv.InterpolationCubic
	case scale.Lanczos3:
		return gocv.InterpolationLanczos4
	default:
		return gocv.InterpolationLinear
	}
}

func (b *Backend) DecodeImage(path string) (*chroma.Image, error) {
	m := gocv.IMRead(path, gocv.IMReadColor)
	defer m.Close()
	if m.Empty() {
		return nil, fmt.Errorf("imread %s: no image data", path)
	}
	return matToImage(m)
}

func (b *Backend) OpenCapture(src media.Source) (media.Capture, error) {
	var (
		vc  *gocv.VideoCapture
		err error
	)
	if src.Path != "" {
		vc, err = gocv.VideoCaptureFile(src.Path)
	} else {
		vc, err = gocv.VideoCaptureDevice(src.Camera)
	}
	if err != nil {
		return nil, src.OpenError(err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, src.OpenError(errors.New("capture not opened"))
	}
	return &capture{vc: vc, frame: gocv.NewMat()}, nil
}

func (b *Backend) Resize(img *chroma.Image, width, height int) *chroma.Image {
	if img.Width == width && img.Height == height {
		return img.Clone()
	}
	src, err := imageToMat(img)
	if err != nil {
		log.Printf("[!] Ошибка масштабирования %dx%d -> %dx%d: %v", img.Width, img.Height, width, height, err)
		return chroma.NewImage(width, height)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(src, &dst, image.Pt(width, height), 0, 0, b.interp)

	out, err := matToImage(dst)
	if err != nil {
		log.Printf("[!] Ошибка масштабирования %dx%d -> %dx%d: %v", img.Width, img.Height, width, height, err)
		return chroma.NewImage(width, height)
	}
	return out
}

func (b *Backend) ShowFrame(window string, img *chroma.Image) error {
	w, ok := b.windows[window]
	if !ok {
		w = gocv.NewWindow(window)
		b.windows[window] = w
	}
	b.last = w

	m, err := imageToMat(img)
	if err != nil {
		return err
	}
	defer m.Close()
	w.IMShow(m)
	return nil
}

// WaitKey pumps the HighGUI event loop. Without a window there is nothing
// to receive keys, so it only sleeps.
func (b *Backend) WaitKey(timeoutMs int) int {
	if b.last == nil {
		if timeoutMs > 0 {
			time.Sleep(time.Duration(timeoutMs) * time.Millisecond)
		}
		return media.NoKey
	}
	return b.last.WaitKey(timeoutMs)
}

func (b *Backend) Close() error {
	for name, w := range b.windows {
		w.Close()
		delete(b.windows, name)
	}
	b.last = nil
	return nil
}

type capture struct {
	vc    *gocv.VideoCapture
	frame gocv.Mat
}

func (c *capture) ReadFrame() (*chroma.Image, error) {
	if ok := c.vc.Read(&c.frame); !ok || c.frame.Empty() {
		return nil, io.EOF
	}
	return matToImage(c.frame)
}

func (c *capture) Close() error {
	c.frame.Close()
	return c.vc.Close()
}

func matToImage(m gocv.Mat) (*chroma.Image, error) {
	if m.Type() != gocv.MatTypeCV8UC3 {
		conv := gocv.NewMat()
		defer conv.Close()
		switch m.Channels() {
		case 1:
			gocv.CvtColor(m, &conv, gocv.ColorGrayToBGR)
		case 4:
			gocv.CvtColor(m, &conv, gocv.ColorBGRAToBGR)
		default:
			return nil, fmt.Errorf("unsupported mat type %v", m.Type())
		}
		m = conv
	}
	if !m.IsContinuous() {
		c := m.Clone()
		defer c.Close()
		m = c
	}
	return chroma.NewImageFromBGR(m.Cols(), m.Rows(), m.ToBytes())
}

func imageToMat(img *chroma.Image) (gocv.Mat, error) {
	if img.Stride != img.Width*3 {
		img = img.Clone()
	}
	return gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8UC3, img.Pix[:img.Width*img.Height*3])
}
