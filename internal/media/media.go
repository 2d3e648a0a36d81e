// Package media defines the image and video I/O the compositor depends on:
// decoding stills, reading frames from a camera or file, resizing,
// showing frames and waiting for a key press.
package media

import (
	"errors"
	"fmt"

	"github.com/ivlev/greenscreen/internal/chroma"
)

var (
	ErrInvalidBackground = errors.New("invalid background file")
	ErrInvalidForeground = errors.New("invalid foreground file")
	ErrInvalidVideo      = errors.New("invalid video file")
	ErrCameraOpen        = errors.New("camera failed to open")
)

// NoKey is returned by WaitKey when the timeout expires without input.
const NoKey = -1

// Source selects what OpenCapture reads from: a file path when Path is
// set, the camera with index Camera otherwise.
type Source struct {
	Camera int
	Path   string
}

func (s Source) String() string {
	if s.Path != "" {
		return s.Path
	}
	return fmt.Sprintf("camera:%d", s.Camera)
}

// OpenError wraps ErrInvalidVideo or ErrCameraOpen depending on the source.
func (s Source) OpenError(cause error) error {
	if s.Path != "" {
		return fmt.Errorf("%w: %s: %v", ErrInvalidVideo, s.Path, cause)
	}
	return fmt.Errorf("%w: index %d: %v", ErrCameraOpen, s.Camera, cause)
}

// Capture yields frames in order. ReadFrame returns io.EOF once the stream
// is exhausted.
type Capture interface {
	ReadFrame() (*chroma.Image, error)
	Close() error
}

// Backend is the I/O collaborator consumed by the engine.
type Backend interface {
	DecodeImage(path string) (*chroma.Image, error)
	OpenCapture(src Source) (Capture, error)
	Resize(img *chroma.Image, width, height int) *chroma.Image
	ShowFrame(window string, img *chroma.Image) error
	// WaitKey blocks up to timeoutMs (0 = forever) and returns the key code
	// or NoKey.
	WaitKey(timeoutMs int) int
	Close() error
}
