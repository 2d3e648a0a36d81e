package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/ivlev/greenscreen/internal/config"
	"github.com/ivlev/greenscreen/internal/media"
	"github.com/ivlev/greenscreen/internal/scale"
)

func (s *Session) captureSource() media.Source {
	if s.Config.Mode == config.ModeVideo {
		return media.Source{Path: s.Config.VideoPath}
	}
	return media.Source{Camera: s.Config.Camera}
}

// RunCapture keys every frame of a camera or video file over the
// background until the stream ends, a key is pressed or ctx is done.
// Keys are only polled while frames are displayed.
// A failed read ends the loop; frames are never retried.
func (s *Session) RunCapture(ctx context.Context) error {
	bg, err := s.loadBackground()
	if err != nil {
		return err
	}

	src := s.captureSource()
	capture, err := s.Backend.OpenCapture(src)
	if err != nil {
		return err
	}
	defer capture.Close()
	fmt.Printf("[*] Захват: %s\n", src)

	backgrounds := scale.NewCache(bg, s.Backend.Resize)
	var sink FrameSink
	defer func() {
		if sink != nil {
			if err := sink.Close(); err != nil {
				log.Printf("[!] Ошибка закрытия выходного файла: %v", err)
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			fmt.Println("[*] Прервано")
			return nil
		}

		frame, err := capture.ReadFrame()
		if errors.Is(err, io.EOF) {
			fmt.Println("[*] Конец потока")
			return nil
		}
		if err != nil {
			return fmt.Errorf("frame %d: %w", s.stats.frames, err)
		}

		if err := s.resolveKeyer(frame); err != nil {
			return err
		}

		out := s.pool.Get(frame.Width, frame.Height)
		if err := s.Keyer.CompositeInto(out, backgrounds.For(frame.Width, frame.Height), frame); err != nil {
			s.pool.Put(out)
			return fmt.Errorf("frame %d: %w", s.stats.frames, err)
		}
		s.stats.add(s.Keyer, frame, s.Config.ShowStats)

		if s.Config.Display {
			if err := s.Backend.ShowFrame(s.Config.WindowName, out); err != nil {
				s.pool.Put(out)
				return fmt.Errorf("show frame: %w", err)
			}
		}

		if s.Config.OutputPath != "" {
			if sink == nil {
				sink, err = s.NewSink(ctx, s.Config.OutputPath, config.SegmentParams{
					Width:   frame.Width,
					Height:  frame.Height,
					FPS:     s.Config.FPS,
					Encoder: s.Config.VideoEncoder,
					Quality: s.Config.Quality,
				})
				if err != nil {
					s.pool.Put(out)
					return fmt.Errorf("open output: %w", err)
				}
			}
			if err := sink.WriteFrame(out); err != nil {
				s.pool.Put(out)
				return fmt.Errorf("write frame %d: %w", s.stats.frames, err)
			}
		}
		s.pool.Put(out)

		if !s.Config.Display {
			continue
		}
		if key := s.Backend.WaitKey(s.Config.WaitKeyMs); key != media.NoKey {
			fmt.Printf("[*] Нажата клавиша %d, остановка\n", key)
			return nil
		}
	}
}
