package video

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ivlev/greenscreen/internal/chroma"
	"github.com/ivlev/greenscreen/internal/config"
	"github.com/ivlev/greenscreen/internal/media"
)

func TestParseProbe(t *testing.T) {
	tests := []struct {
		out     string
		w, h    int
		fps     float64
		wantErr bool
	}{
		{"1920x1080x30/1\n", 1920, 1080, 30, false},
		{"640x480x30000/1001", 640, 480, 29.97, false},
		{"320x240x25\nextra", 320, 240, 25, false},
		{"", 0, 0, 0, true},
		{"axbxc", 0, 0, 0, true},
	}
	for _, tt := range tests {
		w, h, fps, err := parseProbe(tt.out)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseProbe(%q): expected error", tt.out)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseProbe(%q): %v", tt.out, err)
			continue
		}
		if w != tt.w || h != tt.h || fps < tt.fps-0.01 || fps > tt.fps+0.01 {
			t.Errorf("parseProbe(%q) = %d, %d, %f", tt.out, w, h, fps)
		}
	}
}

func TestBuildReaderArgs(t *testing.T) {
	args, err := BuildReaderArgs(media.Source{Path: "clip.mp4"}, "linux", 0, 0, 30)
	if err != nil {
		t.Fatalf("file source: %v", err)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-i clip.mp4") || !strings.HasSuffix(joined, "-pix_fmt bgr24 -") {
		t.Errorf("file args: %s", joined)
	}

	args, err = BuildReaderArgs(media.Source{Camera: 2}, "linux", 640, 480, 30)
	if err != nil {
		t.Fatalf("linux camera: %v", err)
	}
	joined = strings.Join(args, " ")
	if !strings.Contains(joined, "-f v4l2") || !strings.Contains(joined, "/dev/video2") || !strings.Contains(joined, "scale=640:480") {
		t.Errorf("linux camera args: %s", joined)
	}

	args, err = BuildReaderArgs(media.Source{Camera: 0}, "darwin", 1280, 720, 30)
	if err != nil {
		t.Fatalf("darwin camera: %v", err)
	}
	if !strings.Contains(strings.Join(args, " "), "-f avfoundation") {
		t.Errorf("darwin camera args: %v", args)
	}

	if _, err := BuildReaderArgs(media.Source{}, "plan9", 1, 1, 1); !errors.Is(err, ErrUnsupportedCamera) {
		t.Errorf("plan9 camera: err = %v, want ErrUnsupportedCamera", err)
	}
}

func TestBuildWriterArgs(t *testing.T) {
	tests := []struct {
		encoder string
		want    string
	}{
		{"libx264", "-crf 23 -preset medium"},
		{"h264_nvenc", "-cq 23"},
		{"h264_videotoolbox", "-b:v 2300k"},
	}
	for _, tt := range tests {
		t.Run(tt.encoder, func(t *testing.T) {
			args := BuildWriterArgs("out.mp4", config.SegmentParams{Width: 640, Height: 360, FPS: 25, Encoder: tt.encoder, Quality: 23})
			joined := strings.Join(args, " ")
			if !strings.Contains(joined, tt.want) {
				t.Errorf("args %q missing %q", joined, tt.want)
			}
			if !strings.Contains(joined, "-pixel_format bgr24 -video_size 640x360 -framerate 25") {
				t.Errorf("args %q missing input description", joined)
			}
			if args[len(args)-1] != "out.mp4" {
				t.Errorf("last arg = %q, want output path", args[len(args)-1])
			}
		})
	}
}

func TestWriteRawSkipsStridePadding(t *testing.T) {
	img := &chroma.Image{Width: 2, Height: 2, Stride: 8, Pix: []byte{
		1, 2, 3, 4, 5, 6, 99, 99,
		7, 8, 9, 10, 11, 12, 99, 99,
	}}
	var buf bytes.Buffer
	if err := writeRaw(&buf, img); err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("got %v, want %v", buf.Bytes(), want)
	}
}

func TestBuildPlayerArgs(t *testing.T) {
	args := BuildPlayerArgs("GreenScreen", 320, 240)
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-window_title GreenScreen") || !strings.Contains(joined, "-video_size 320x240") {
		t.Errorf("player args: %s", joined)
	}
}
