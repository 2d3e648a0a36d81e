package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/greenscreen/internal/chroma"
)

const (
	ModeImage   = "image"
	ModeCamera  = "camera"
	ModeVideo   = "video"
	ModePattern = "pattern"

	BackendOpenCV = "opencv"
	BackendFFmpeg = "ffmpeg"

	// KeyAuto asks the analyzer to sample the key color from the first frame.
	KeyAuto = "auto"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	KeyColor      string  `yaml:"key_color"`
	KeySampler    string  `yaml:"key_sampler"`
	ToleranceNear int     `yaml:"tolerance_near"`
	ToleranceFar  int     `yaml:"tolerance_far"`
	Bias          float64 `yaml:"bias"`
	Blend         string  `yaml:"blend"`
	Metric        string  `yaml:"metric"`
	Workers       int     `yaml:"workers"`

	Mode           string `yaml:"mode"`
	Backend        string `yaml:"backend"`
	ForegroundPath string `yaml:"foreground"`
	BackgroundPath string `yaml:"background"`
	BackgroundPage int    `yaml:"background_page"`
	DPI            int    `yaml:"dpi"`
	VideoPath      string `yaml:"video"`
	Camera         int    `yaml:"camera"`
	Resize         string `yaml:"resize"`

	OutputPath string `yaml:"output"`
	MattePath  string `yaml:"matte"`
	Display    bool   `yaml:"display"`
	WindowName string `yaml:"window"`
	WaitKeyMs  int    `yaml:"wait_key_ms"`
	FPS        int    `yaml:"fps"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`

	VideoEncoder string `yaml:"encoder"`
	Quality      int    `yaml:"quality"`
	PatternText  string `yaml:"pattern_text"`
	ShowStats    bool   `yaml:"show_stats"`
	BuildVersion string `yaml:"-"`
}

// Default mirrors the values the keyer was tuned with.
func Default() *Config {
	return &Config{
		KeyColor:      "26,255,83",
		KeySampler:    "border",
		ToleranceNear: chroma.DefaultToleranceNear,
		ToleranceFar:  chroma.DefaultToleranceFar,
		Bias:          chroma.DefaultBias,
		Blend:         "binary",
		Metric:        "euclidean",
		Workers:       1,
		Mode:          ModeImage,
		Backend:       BackendOpenCV,
		DPI:           150,
		Resize:        "bilinear",
		Display:       true,
		WindowName:    "GreenScreen",
		WaitKeyMs:     30,
		FPS:           30,
		Width:         1280,
		Height:        720,
		VideoEncoder:  "libx264",
		Quality:       23,
		PatternText:   "greenscreen",
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := LoadInto(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto reads a YAML file over cfg; keys absent from the file keep
// their current values.
func LoadInto(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Write stores the config as YAML, used to dump the effective settings.
func Write(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	var errs []error

	if c.KeyColor != KeyAuto {
		if _, err := ParseKeyColor(c.KeyColor); err != nil {
			errs = append(errs, err)
		}
	}
	if c.ToleranceNear < 0 || c.ToleranceFar <= c.ToleranceNear {
		errs = append(errs, fmt.Errorf("tolerances must satisfy 0 <= near < far, got %d and %d", c.ToleranceNear, c.ToleranceFar))
	}
	if _, err := chroma.ParseBlend(c.Blend); err != nil {
		errs = append(errs, err)
	}
	if _, err := chroma.ParseMetric(c.Metric); err != nil {
		errs = append(errs, err)
	}

	switch c.Mode {
	case ModeImage:
		if c.ForegroundPath == "" {
			errs = append(errs, errors.New("image mode needs a foreground image"))
		}
	case ModeVideo:
		if c.VideoPath == "" {
			errs = append(errs, errors.New("video mode needs a video file"))
		}
	case ModeCamera:
		if c.Camera < 0 {
			errs = append(errs, fmt.Errorf("camera index must be >= 0, got %d", c.Camera))
		}
	case ModePattern:
		if c.Width <= 0 || c.Height <= 0 {
			errs = append(errs, fmt.Errorf("pattern size must be positive, got %dx%d", c.Width, c.Height))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mode: %s", c.Mode))
	}

	if c.Mode != ModePattern && c.BackgroundPath == "" {
		errs = append(errs, errors.New("background path is required"))
	}

	switch c.Backend {
	case BackendOpenCV, BackendFFmpeg:
	default:
		errs = append(errs, fmt.Errorf("unknown backend: %s", c.Backend))
	}

	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", c.FPS))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ParseKeyColor accepts "B,G,R" decimal triplets or "#RRGGBB" hex.
func ParseKeyColor(s string) (chroma.Pixel, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) != 6 {
			return chroma.Pixel{}, fmt.Errorf("key color %q: expected #RRGGBB", s)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return chroma.Pixel{}, fmt.Errorf("key color %q: %w", s, err)
		}
		return chroma.Pixel{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return chroma.Pixel{}, fmt.Errorf("key color %q: expected B,G,R", s)
	}
	var ch [3]uint8
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return chroma.Pixel{}, fmt.Errorf("key color %q: channel %d: %w", s, i, err)
		}
		ch[i] = uint8(v)
	}
	return chroma.Pixel{B: ch[0], G: ch[1], R: ch[2]}, nil
}

// FormatKeyColor renders a pixel back in B,G,R form.
func FormatKeyColor(p chroma.Pixel) string {
	return fmt.Sprintf("%d,%d,%d", p.B, p.G, p.R)
}

// Keyer builds the chroma-key engine described by the config. The key
// color must already be resolved (not "auto").
func (c *Config) Keyer(key chroma.Pixel) (*chroma.CbCrKeyer, error) {
	blend, err := chroma.ParseBlend(c.Blend)
	if err != nil {
		return nil, err
	}
	metric, err := chroma.ParseMetric(c.Metric)
	if err != nil {
		return nil, err
	}
	return chroma.NewCbCrKeyer(key,
		chroma.WithTolerances(c.ToleranceNear, c.ToleranceFar),
		chroma.WithBias(c.Bias),
		chroma.WithBlend(blend),
		chroma.WithMetric(metric),
		chroma.WithWorkers(c.Workers),
	)
}

// SegmentParams describes the encoded output stream.
type SegmentParams struct {
	Width, Height int
	FPS           int
	Encoder       string
	Quality       int
}
