package engine

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	"github.com/ivlev/greenscreen/internal/analyzer"
	"github.com/ivlev/greenscreen/internal/chroma"
	"github.com/ivlev/greenscreen/internal/config"
	"github.com/ivlev/greenscreen/internal/media"
	"github.com/ivlev/greenscreen/internal/pattern"
	"github.com/ivlev/greenscreen/internal/source"
	"github.com/ivlev/greenscreen/internal/system"
	"github.com/ivlev/greenscreen/internal/video"
)

// FrameSink receives composited frames, e.g. an ffmpeg encoder.
type FrameSink interface {
	WriteFrame(img *chroma.Image) error
	Close() error
}

// SinkFactory opens a sink once the output frame size is known.
type SinkFactory func(ctx context.Context, path string, p config.SegmentParams) (FrameSink, error)

func newVideoSink(ctx context.Context, path string, p config.SegmentParams) (FrameSink, error) {
	w, err := video.NewWriter(ctx, path, p)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Session composes one run: a still, a calibration card or a capture loop.
// Keyer is resolved from the config on first use when left nil.
type Session struct {
	Config  *config.Config
	Backend media.Backend
	Keyer   *chroma.CbCrKeyer
	NewSink SinkFactory

	pool  *system.FramePool
	stats stats
}

func NewSession(cfg *config.Config, backend media.Backend) *Session {
	return &Session{
		Config:  cfg,
		Backend: backend,
		NewSink: newVideoSink,
		pool:    system.NewFramePool(),
	}
}

func (s *Session) Run(ctx context.Context) error {
	s.stats = stats{start: time.Now()}
	var err error
	switch s.Config.Mode {
	case config.ModeImage:
		err = s.RunStill(ctx)
	case config.ModePattern:
		err = s.RunPattern(ctx)
	case config.ModeCamera, config.ModeVideo:
		err = s.RunCapture(ctx)
	default:
		return fmt.Errorf("%w: unknown mode: %s", config.ErrInvalidConfig, s.Config.Mode)
	}
	if s.Config.ShowStats {
		s.report()
	}
	return err
}

// resolveKeyer builds the keyer, sampling the key color from sample when
// the config asks for "auto". It runs once per session.
func (s *Session) resolveKeyer(sample *chroma.Image) error {
	if s.Keyer != nil {
		return nil
	}

	var key chroma.Pixel
	if s.Config.KeyColor == config.KeyAuto {
		sampler, err := analyzer.NewSampler(s.Config.KeySampler)
		if err != nil {
			return err
		}
		key, err = sampler.Sample(sample)
		if err != nil {
			return fmt.Errorf("sample key color: %w", err)
		}
		fmt.Printf("[*] Определён цвет ключа (%s): %s\n", s.Config.KeySampler, config.FormatKeyColor(key))
	} else {
		var err error
		key, err = config.ParseKeyColor(s.Config.KeyColor)
		if err != nil {
			return err
		}
	}

	k, err := s.Config.Keyer(key)
	if err != nil {
		return err
	}
	s.Keyer = k
	return nil
}

// loadBackground decodes the background through the backend. PDFs and
// image directories go through the source package instead.
func (s *Session) loadBackground() (*chroma.Image, error) {
	path := s.Config.BackgroundPath
	if isMultiPage(path) {
		return source.LoadBackground(path, s.Config.BackgroundPage, s.Config.DPI)
	}
	img, err := s.Backend.DecodeImage(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", media.ErrInvalidBackground, path, err)
	}
	return img, nil
}

func (s *Session) loadForeground() (*chroma.Image, error) {
	path := s.Config.ForegroundPath
	if isMultiPage(path) {
		return source.LoadForeground(path)
	}
	img, err := s.Backend.DecodeImage(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", media.ErrInvalidForeground, path, err)
	}
	return img, nil
}

func isMultiPage(path string) bool {
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return true
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// RunStill composites one foreground image over one background image.
func (s *Session) RunStill(ctx context.Context) error {
	fg, err := s.loadForeground()
	if err != nil {
		return err
	}
	bg, err := s.loadBackground()
	if err != nil {
		return err
	}
	return s.composeStill(ctx, fg, bg)
}

// RunPattern keys a generated QR calibration card over the configured
// background, or over a gradient backdrop when none is set.
func (s *Session) RunPattern(ctx context.Context) error {
	keyColor := s.Config.KeyColor
	if keyColor == config.KeyAuto {
		keyColor = config.Default().KeyColor
	}
	key, err := config.ParseKeyColor(keyColor)
	if err != nil {
		return err
	}

	fg, err := pattern.Card(s.Config.Width, s.Config.Height, key, s.Config.PatternText)
	if err != nil {
		return err
	}

	var bg *chroma.Image
	if s.Config.BackgroundPath != "" {
		if bg, err = s.loadBackground(); err != nil {
			return err
		}
	} else {
		bg = pattern.Backdrop(fg.Width, fg.Height)
	}
	return s.composeStill(ctx, fg, bg)
}

func (s *Session) composeStill(ctx context.Context, fg, bg *chroma.Image) error {
	if err := s.resolveKeyer(fg); err != nil {
		return err
	}

	if !bg.SameSize(fg) {
		bg = s.Backend.Resize(bg, fg.Width, fg.Height)
	}
	if !bg.SameSize(fg) {
		return fmt.Errorf("background is the wrong size: %w",
			&chroma.SizeError{Op: "resize", Want: fg.Size(), Got: bg.Size()})
	}

	out, err := s.Keyer.Composite(bg, fg)
	if err != nil {
		return err
	}
	s.stats.add(s.Keyer, fg, s.Config.ShowStats)

	if s.Config.OutputPath != "" {
		if err := WriteImage(s.Config.OutputPath, out); err != nil {
			return err
		}
		fmt.Printf("[*] Результат записан: %s\n", s.Config.OutputPath)
	}
	if s.Config.MattePath != "" {
		matte := image.NewGray(image.Rect(0, 0, fg.Width, fg.Height))
		if err := s.Keyer.MatteInto(matte, fg); err != nil {
			return err
		}
		if err := WriteImage(s.Config.MattePath, matte); err != nil {
			return err
		}
		fmt.Printf("[*] Маска записана: %s\n", s.Config.MattePath)
	}

	if !s.Config.Display {
		return nil
	}
	name := s.Config.WindowName
	for _, w := range []struct {
		title string
		img   *chroma.Image
	}{
		{name, out},
		{name + " - foreground", fg},
		{name + " - background", bg},
	} {
		if err := s.Backend.ShowFrame(w.title, w.img); err != nil {
			return fmt.Errorf("show %s: %w", w.title, err)
		}
	}
	if ctx.Err() == nil {
		s.Backend.WaitKey(0)
	}
	return nil
}
