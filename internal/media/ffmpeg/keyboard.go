package ffmpeg

import (
	"context"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/ivlev/greenscreen/internal/media"
)

// Keyboard delivers single key presses from a terminal in raw mode.
// When f is not a terminal, Wait only honours the timeout.
type Keyboard struct {
	fd    int
	state *term.State
	keys  chan int
}

func OpenKeyboard(f *os.File) *Keyboard {
	k := &Keyboard{fd: int(f.Fd())}
	if !term.IsTerminal(k.fd) {
		return k
	}
	state, err := term.MakeRaw(k.fd)
	if err != nil {
		return k
	}
	k.state = state
	k.keys = make(chan int, 16)
	go k.read(f)
	return k
}

func (k *Keyboard) read(r io.Reader) {
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if err != nil {
			close(k.keys)
			return
		}
		if n == 1 {
			select {
			case k.keys <- int(buf[0]):
			default:
			}
		}
	}
}

// Wait returns the next key or media.NoKey after timeoutMs. A zero timeout
// blocks until a key arrives or ctx is done; without a terminal it returns
// immediately.
func (k *Keyboard) Wait(ctx context.Context, timeoutMs int) int {
	if k.keys == nil {
		if timeoutMs > 0 {
			select {
			case <-time.After(time.Duration(timeoutMs) * time.Millisecond):
			case <-ctx.Done():
			}
		}
		return media.NoKey
	}

	var timeout <-chan time.Time
	if timeoutMs > 0 {
		timer := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case key, ok := <-k.keys:
		if !ok {
			k.keys = nil
			return media.NoKey
		}
		return key
	case <-timeout:
		return media.NoKey
	case <-ctx.Done():
		return media.NoKey
	}
}

func (k *Keyboard) Close() error {
	if k.state == nil {
		return nil
	}
	err := term.Restore(k.fd, k.state)
	k.state = nil
	return err
}
