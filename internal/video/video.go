package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/ivlev/greenscreen/internal/chroma"
	"github.com/ivlev/greenscreen/internal/config"
	"github.com/ivlev/greenscreen/internal/media"
)

// All pipes carry packed bgr24, the layout of chroma.Image.
const pixelFormat = "bgr24"

var ErrUnsupportedCamera = errors.New("camera capture is not supported on this platform")

// Probe reads the first video stream's size and frame rate with ffprobe.
func Probe(ctx context.Context, path string) (width, height int, fps float64, err error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate",
		"-of", "csv=p=0:s=x",
		path,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("ffprobe error: %v, output: %s", err, strings.TrimSpace(string(out)))
	}
	return parseProbe(string(out))
}

// parseProbe parses "1920x1080x30000/1001".
func parseProbe(out string) (int, int, float64, error) {
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(out), "\n", 2)[0])
	parts := strings.Split(line, "x")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("unexpected ffprobe output: %q", line)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("width: %w", err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("height: %w", err)
	}

	fps := 0.0
	if num, den, ok := strings.Cut(parts[2], "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 == nil && err2 == nil && d != 0 {
			fps = n / d
		}
	} else if f, err := strconv.ParseFloat(parts[2], 64); err == nil {
		fps = f
	}
	return w, h, fps, nil
}

// BuildReaderArgs returns ffmpeg arguments that decode src to bgr24 on stdout.
func BuildReaderArgs(src media.Source, goos string, width, height, fps int) ([]string, error) {
	args := []string{"-hide_banner", "-loglevel", "error"}

	if src.Path != "" {
		args = append(args, "-i", src.Path)
	} else {
		size := fmt.Sprintf("%dx%d", width, height)
		switch goos {
		case "linux":
			args = append(args, "-f", "v4l2", "-framerate", strconv.Itoa(fps), "-video_size", size,
				"-i", fmt.Sprintf("/dev/video%d", src.Camera))
		case "darwin":
			args = append(args, "-f", "avfoundation", "-framerate", strconv.Itoa(fps), "-video_size", size,
				"-i", strconv.Itoa(src.Camera))
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedCamera, goos)
		}
		// Cameras may not honor -video_size; force it so frame size is known.
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", width, height))
	}

	args = append(args, "-an", "-f", "rawvideo", "-pix_fmt", pixelFormat, "-")
	return args, nil
}

// Reader decodes frames through an ffmpeg subprocess.
type Reader struct {
	ctx    context.Context
	src    media.Source
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	width  int
	height int
	frame  []byte
	frames int
	exited bool
}

// NewReader starts decoding. Files are probed for their size; cameras are
// scaled to width x height.
func NewReader(ctx context.Context, src media.Source, width, height, fps int) (*Reader, error) {
	if src.Path != "" {
		w, h, _, err := Probe(ctx, src.Path)
		if err != nil {
			return nil, src.OpenError(err)
		}
		width, height = w, h
	}
	if width <= 0 || height <= 0 {
		return nil, src.OpenError(fmt.Errorf("invalid frame size %dx%d", width, height))
	}

	args, err := BuildReaderArgs(src, runtime.GOOS, width, height, fps)
	if err != nil {
		return nil, src.OpenError(err)
	}

	r := &Reader{ctx: ctx, src: src, width: width, height: height, frame: make([]byte, width*height*3)}
	r.cmd = exec.CommandContext(ctx, "ffmpeg", args...)
	r.cmd.Stderr = &r.stderr

	r.stdout, err = r.cmd.StdoutPipe()
	if err != nil {
		return nil, src.OpenError(fmt.Errorf("stdout pipe error: %w", err))
	}
	if err := r.cmd.Start(); err != nil {
		return nil, src.OpenError(fmt.Errorf("ffmpeg start error: %w", err))
	}
	return r, nil
}

// ReadFrame returns the next frame. io.EOF is returned only when ffmpeg
// exits cleanly; a failing ffmpeg yields its stderr, wrapped as an open
// error when no frame was ever delivered.
func (r *Reader) ReadFrame() (*chroma.Image, error) {
	if r.exited {
		return nil, io.EOF
	}
	if _, err := io.ReadFull(r.stdout, r.frame); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, r.wait()
		}
		return nil, fmt.Errorf("read frame: %w", err)
	}
	r.frames++
	pix := make([]byte, len(r.frame))
	copy(pix, r.frame)
	return chroma.NewImageFromBGR(r.width, r.height, pix)
}

func (r *Reader) wait() error {
	r.exited = true
	err := r.cmd.Wait()
	if err == nil || r.ctx.Err() != nil {
		return io.EOF
	}
	err = fmt.Errorf("ffmpeg error: %v, output: %s", err, strings.TrimSpace(r.stderr.String()))
	if r.frames == 0 {
		return r.src.OpenError(err)
	}
	return fmt.Errorf("frame %d: %w", r.frames, err)
}

func (r *Reader) Close() error {
	r.stdout.Close()
	if r.exited {
		return nil
	}
	if r.cmd.Process != nil {
		r.cmd.Process.Kill()
	}
	r.cmd.Wait()
	r.exited = true
	return nil
}

// BuildWriterArgs returns ffmpeg arguments that encode bgr24 from stdin.
func BuildWriterArgs(videoPath string, p config.SegmentParams) []string {
	args := []string{
		"-y",
		"-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", pixelFormat,
		"-video_size", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"-framerate", strconv.Itoa(p.FPS),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", p.Encoder,
	}

	switch p.Encoder {
	case "h264_videotoolbox":
		args = append(args, "-b:v", fmt.Sprintf("%dk", p.Quality*100))
	case "h264_nvenc":
		args = append(args, "-cq", strconv.Itoa(p.Quality))
	default: // libx264
		args = append(args, "-crf", strconv.Itoa(p.Quality), "-preset", "medium")
	}

	return append(args, videoPath)
}

// Writer encodes composited frames into a video file.
type Writer struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	out    bytes.Buffer
	params config.SegmentParams
}

func NewWriter(ctx context.Context, videoPath string, p config.SegmentParams) (*Writer, error) {
	if p.Encoder == "" {
		p.Encoder = "libx264"
	}
	w := &Writer{params: p}
	w.cmd = exec.CommandContext(ctx, "ffmpeg", BuildWriterArgs(videoPath, p)...)
	w.cmd.Stdout = &w.out
	w.cmd.Stderr = &w.out

	var err error
	w.stdin, err = w.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := w.cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	return w, nil
}

func (w *Writer) WriteFrame(img *chroma.Image) error {
	if img.Width != w.params.Width || img.Height != w.params.Height {
		return &chroma.SizeError{Op: "encode", Want: image.Pt(w.params.Width, w.params.Height), Got: img.Size()}
	}
	return writeRaw(w.stdin, img)
}

func (w *Writer) Close() error {
	w.stdin.Close()
	if err := w.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w, output: %s", err, w.out.String())
	}
	return nil
}

// writeRaw streams the visible rows, skipping any stride padding.
func writeRaw(w io.Writer, img *chroma.Image) error {
	rowLen := img.Width * 3
	if img.Stride == rowLen {
		_, err := w.Write(img.Pix[:rowLen*img.Height])
		return err
	}
	for y := 0; y < img.Height; y++ {
		if _, err := w.Write(img.Pix[y*img.Stride : y*img.Stride+rowLen]); err != nil {
			return err
		}
	}
	return nil
}
