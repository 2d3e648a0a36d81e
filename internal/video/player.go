package video

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/ivlev/greenscreen/internal/chroma"
)

// BuildPlayerArgs returns ffplay arguments that show bgr24 frames from stdin.
func BuildPlayerArgs(title string, width, height int) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-window_title", title,
		"-f", "rawvideo",
		"-pixel_format", pixelFormat,
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-fflags", "nobuffer",
		"-i", "-",
	}
}

// Player shows frames in an ffplay window. The window is restarted when
// the frame size changes.
type Player struct {
	ctx    context.Context
	title  string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	width  int
	height int
}

func NewPlayer(ctx context.Context, title string) *Player {
	return &Player{ctx: ctx, title: title}
}

func (p *Player) Show(img *chroma.Image) error {
	if p.cmd == nil || img.Width != p.width || img.Height != p.height {
		p.Close()
		if err := p.start(img.Width, img.Height); err != nil {
			return err
		}
	}
	if err := writeRaw(p.stdin, img); err != nil {
		return fmt.Errorf("ffplay write error: %w", err)
	}
	return nil
}

func (p *Player) start(width, height int) error {
	cmd := exec.CommandContext(p.ctx, "ffplay", BuildPlayerArgs(p.title, width, height)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffplay start error: %w", err)
	}
	p.cmd, p.stdin = cmd, stdin
	p.width, p.height = width, height
	return nil
}

func (p *Player) Close() error {
	if p.cmd == nil {
		return nil
	}
	p.stdin.Close()
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.cmd.Wait()
	p.cmd, p.stdin = nil, nil
	return nil
}
