// Package ffmpeg implements media.Backend without OpenCV: stills are
// decoded in-process, video goes through ffmpeg and display through ffplay.
package ffmpeg

import (
	"context"
	"os"

	"github.com/ivlev/greenscreen/internal/chroma"
	"github.com/ivlev/greenscreen/internal/media"
	"github.com/ivlev/greenscreen/internal/scale"
	"github.com/ivlev/greenscreen/internal/source"
	"github.com/ivlev/greenscreen/internal/video"
)

// Options configures the backend. Width, Height and FPS apply to camera
// capture only; files keep their own geometry.
type Options struct {
	Method  scale.Method
	Display bool
	Width   int
	Height  int
	FPS     int
	DPI     int
	Keys    *os.File
}

type Backend struct {
	ctx     context.Context
	opts    Options
	players map[string]*video.Player
	keys    *Keyboard
}

func New(ctx context.Context, opts Options) *Backend {
	if opts.Keys == nil {
		opts.Keys = os.Stdin
	}
	return &Backend{
		ctx:     ctx,
		opts:    opts,
		players: make(map[string]*video.Player),
	}
}

func (b *Backend) DecodeImage(path string) (*chroma.Image, error) {
	src, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	img, err := src.RenderPage(0, b.opts.DPI)
	if err != nil {
		return nil, err
	}
	return chroma.FromImage(img), nil
}

func (b *Backend) OpenCapture(src media.Source) (media.Capture, error) {
	r, err := video.NewReader(b.ctx, src, b.opts.Width, b.opts.Height, b.opts.FPS)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (b *Backend) Resize(img *chroma.Image, width, height int) *chroma.Image {
	return scale.Resize(img, width, height, b.opts.Method)
}

// ShowFrame is a no-op when display is disabled.
func (b *Backend) ShowFrame(window string, img *chroma.Image) error {
	if !b.opts.Display {
		return nil
	}
	p, ok := b.players[window]
	if !ok {
		p = video.NewPlayer(b.ctx, window)
		b.players[window] = p
	}
	return p.Show(img)
}

// WaitKey reads a key from the controlling terminal, switching it to raw
// mode on first use until Close.
func (b *Backend) WaitKey(timeoutMs int) int {
	if b.keys == nil {
		b.keys = OpenKeyboard(b.opts.Keys)
	}
	return b.keys.Wait(b.ctx, timeoutMs)
}

func (b *Backend) Close() error {
	for name, p := range b.players {
		p.Close()
		delete(b.players, name)
	}
	if b.keys != nil {
		return b.keys.Close()
	}
	return nil
}
