package engine

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/ivlev/greenscreen/internal/chroma"
	"github.com/ivlev/greenscreen/internal/system"
)

// WriteImage encodes img by the extension of path.
func WriteImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		err = png.Encode(f, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
	case ".bmp":
		err = bmp.Encode(f, img)
	case ".tif", ".tiff":
		err = tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = fmt.Errorf("unsupported output format: %s", ext)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

type stats struct {
	start    time.Time
	frames   int
	coverage float64
}

// add counts a processed frame; coverage is only measured when the report
// is enabled since it walks the frame a second time.
func (st *stats) add(k *chroma.CbCrKeyer, fg *chroma.Image, measure bool) {
	st.frames++
	if measure {
		st.coverage += k.Coverage(fg)
	}
}

func (s *Session) report() {
	st := s.stats
	total := time.Since(st.start)
	fps := 0.0
	if total > 0 {
		fps = float64(st.frames) / total.Seconds()
	}
	coverage := 0.0
	if st.frames > 0 {
		coverage = st.coverage / float64(st.frames) * 100
	}

	fmt.Printf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Mode: %s | Backend: %s\n"+
			"Frames: %d\n"+
			"Total Time: %.2fs\n"+
			"Effective FPS: %.2f\n"+
			"Keyed Coverage: %.1f%%\n"+
			"%s\n"+
			"----------------------------\n",
		s.Config.BuildVersion, s.Config.Mode, s.Config.Backend,
		st.frames, total.Seconds(), fps, coverage, system.ReadUsage(),
	)

	logEntry := fmt.Sprintf("[%s] Build: %s | Mode: %s | Frames: %d | Total: %.2fs | FPS: %.2f | Coverage: %.1f%%\n",
		time.Now().Format("2006-01-02 15:04:05"),
		s.Config.BuildVersion,
		s.Config.Mode,
		st.frames,
		total.Seconds(),
		fps,
		coverage,
	)
	f, err := os.OpenFile("benchmark.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
	}
}
