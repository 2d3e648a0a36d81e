package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ivlev/greenscreen/internal/config"
	"github.com/ivlev/greenscreen/internal/engine"
	"github.com/ivlev/greenscreen/internal/media"
	"github.com/ivlev/greenscreen/internal/media/ffmpeg"
	"github.com/ivlev/greenscreen/internal/media/opencv"
	"github.com/ivlev/greenscreen/internal/scale"
	"github.com/ivlev/greenscreen/internal/source"
	"github.com/ivlev/greenscreen/internal/system"
)

var version = "dev"

// bindFlags points every flag at a field of cfg, using its current value
// as the default.
func bindFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Режим: image, camera, video, pattern")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "Бэкенд ввода-вывода: opencv, ffmpeg")
	fs.StringVar(&cfg.ForegroundPath, "foreground", cfg.ForegroundPath, "Изображение переднего плана (по умолчанию: самый свежий файл в input/foreground/)")
	fs.StringVar(&cfg.BackgroundPath, "background", cfg.BackgroundPath, "Фон: изображение, PDF или папка с изображениями (по умолчанию: самый свежий файл в input/background/)")
	fs.IntVar(&cfg.BackgroundPage, "page", cfg.BackgroundPage, "Страница PDF или номер изображения в папке фона")
	fs.IntVar(&cfg.DPI, "dpi", cfg.DPI, "DPI для фона из PDF")
	fs.StringVar(&cfg.VideoPath, "video", cfg.VideoPath, "Видео для режима video (по умолчанию: самый свежий файл в input/video/)")
	fs.IntVar(&cfg.Camera, "camera", cfg.Camera, "Индекс камеры для режима camera")

	fs.StringVar(&cfg.KeyColor, "key", cfg.KeyColor, "Цвет ключа: B,G,R, #RRGGBB или auto")
	fs.StringVar(&cfg.KeySampler, "key-sampler", cfg.KeySampler, "Способ определения ключа для -key auto: border, dominant")
	fs.IntVar(&cfg.ToleranceNear, "near", cfg.ToleranceNear, "Расстояние, ниже которого пиксель полностью заменяется фоном")
	fs.IntVar(&cfg.ToleranceFar, "far", cfg.ToleranceFar, "Расстояние, начиная с которого пиксель полностью сохраняется")
	fs.Float64Var(&cfg.Bias, "bias", cfg.Bias, "Смещение цветности")
	fs.StringVar(&cfg.Blend, "blend", cfg.Blend, "Смешивание краёв: binary, linear")
	fs.StringVar(&cfg.Metric, "metric", cfg.Metric, "Метрика расстояния: euclidean, squared")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Потоки")
	fs.StringVar(&cfg.Resize, "resize", cfg.Resize, "Масштабирование фона: nearest, bilinear, catmullrom, lanczos3, mitchell")

	fs.StringVar(&cfg.OutputPath, "output", cfg.OutputPath, "Путь к результату (без окна генерируется автоматически в output/)")
	fs.StringVar(&cfg.MattePath, "matte", cfg.MattePath, "Сохранить альфа-маску как изображение (режимы image и pattern)")
	fs.BoolVar(&cfg.Display, "display", cfg.Display, "Показывать кадры в окне")
	fs.StringVar(&cfg.WindowName, "window", cfg.WindowName, "Заголовок окна")
	fs.IntVar(&cfg.WaitKeyMs, "wait", cfg.WaitKeyMs, "Ожидание клавиши на кадр, мс")
	fs.IntVar(&cfg.FPS, "fps", cfg.FPS, "FPS")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "Ширина (режимы camera и pattern)")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "Высота (режимы camera и pattern)")
	fs.StringVar(&cfg.VideoEncoder, "encoder", cfg.VideoEncoder, "Кодировщик H.264 (пусто - автоопределение)")
	fs.IntVar(&cfg.Quality, "quality", cfg.Quality, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	fs.StringVar(&cfg.PatternText, "pattern-text", cfg.PatternText, "Текст QR-кода для режима pattern")
	fs.BoolVar(&cfg.ShowStats, "stats", cfg.ShowStats, "Вывести отчёт о производительности")
}

// cliDefaults is config.Default with worker count and encoder settings
// left for run-time detection.
func cliDefaults() *config.Config {
	cfg := config.Default()
	cfg.Workers = runtime.NumCPU()
	cfg.VideoEncoder = ""
	cfg.Quality = 0
	return cfg
}

// loadConfig reads path over cliDefaults, then re-applies the flags set
// explicitly on fs.
func loadConfig(path string, fs *flag.FlagSet) (*config.Config, error) {
	cfg := cliDefaults()
	if err := config.LoadInto(cfg, path); err != nil {
		return nil, err
	}

	overlay := flag.NewFlagSet("overlay", flag.ContinueOnError)
	bindFlags(overlay, cfg)
	var err error
	fs.Visit(func(f *flag.Flag) {
		if overlay.Lookup(f.Name) == nil {
			return
		}
		if serr := overlay.Set(f.Name, f.Value.String()); serr != nil && err == nil {
			err = serr
		}
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	dirs := []string{"input/foreground", "input/background", "input/video", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	cfg := cliDefaults()
	bindFlags(flag.CommandLine, cfg)
	configPtr := flag.String("config", "", "YAML-конфиг; явно заданные флаги имеют приоритет")
	dumpPtr := flag.String("dump-config", "", "Записать итоговый конфиг в YAML и выйти")
	flag.Parse()

	if *configPtr != "" {
		fileCfg, err := loadConfig(*configPtr, flag.CommandLine)
		if err != nil {
			log.Fatalf("[-] Ошибка конфига: %v", err)
		}
		cfg = fileCfg
		fmt.Printf("[*] Конфиг: %s\n", *configPtr)
	}
	cfg.BuildVersion = version

	resolveInputs(cfg)

	if *dumpPtr != "" {
		if err := config.Write(cfg, *dumpPtr); err != nil {
			log.Fatalf("[-] %v", err)
		}
		fmt.Printf("[+] Конфиг записан: %s\n", *dumpPtr)
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] %v", err)
	}

	method, err := scale.ParseMethod(cfg.Resize)
	if err != nil {
		log.Fatalf("[-] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var backend media.Backend
	switch cfg.Backend {
	case config.BackendFFmpeg:
		backend = ffmpeg.New(ctx, ffmpeg.Options{
			Method:  method,
			Display: cfg.Display,
			Width:   cfg.Width,
			Height:  cfg.Height,
			FPS:     cfg.FPS,
			DPI:     cfg.DPI,
		})
	default:
		backend = opencv.New(method)
	}

	fmt.Println("--- [GREENSCREEN] ---")
	fmt.Printf("[*] Режим: %s | Бэкенд: %s | Ключ: %s\n", cfg.Mode, cfg.Backend, cfg.KeyColor)
	fmt.Printf("[*] Допуск: %d..%d | Смешивание: %s | Метрика: %s | Потоки: %d\n",
		cfg.ToleranceNear, cfg.ToleranceFar, cfg.Blend, cfg.Metric, cfg.Workers)
	fmt.Println("---------------------")

	session := engine.NewSession(cfg, backend)
	err = session.Run(ctx)
	backend.Close()
	if err != nil {
		log.Fatalf("[-] Ошибка сессии: %v", err)
	}

	if cfg.OutputPath != "" {
		fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputPath)
	}
}

// resolveInputs fills empty paths with the newest matching file from the
// input folders and picks an output path and encoder for headless runs.
func resolveInputs(cfg *config.Config) {
	pick := func(path *string, dir string, exts []string) {
		if *path != "" {
			return
		}
		latest, err := system.FindLatest(dir, exts)
		if err != nil {
			return
		}
		*path = latest
		fmt.Printf("[*] Выбран файл: %s\n", latest)
	}

	switch cfg.Mode {
	case config.ModeImage:
		pick(&cfg.ForegroundPath, "input/foreground", source.ImageExtensions)
	case config.ModeVideo:
		pick(&cfg.VideoPath, "input/video", system.VideoExtensions)
	}
	if cfg.Mode != config.ModePattern {
		pick(&cfg.BackgroundPath, "input/background", append([]string{".pdf"}, source.ImageExtensions...))
	}

	capture := cfg.Mode == config.ModeCamera || cfg.Mode == config.ModeVideo
	if cfg.OutputPath == "" && !cfg.Display {
		nameSource := cfg.Mode
		switch {
		case cfg.Mode == config.ModeImage && cfg.ForegroundPath != "":
			nameSource = cfg.ForegroundPath
		case cfg.Mode == config.ModeVideo && cfg.VideoPath != "":
			nameSource = cfg.VideoPath
		}
		baseName := filepath.Base(nameSource)
		cleanName := strings.ReplaceAll(strings.TrimSuffix(baseName, filepath.Ext(baseName)), " ", "_")
		ext := ".png"
		if capture {
			ext = ".mp4"
		}
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		cfg.OutputPath = filepath.Join("output", fmt.Sprintf("%s_%s%s", cleanName, timestamp, ext))
	}

	if capture && cfg.OutputPath != "" {
		if cfg.VideoEncoder == "" {
			cfg.VideoEncoder = system.GetBestH264Encoder()
			if cfg.VideoEncoder != "libx264" {
				fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", cfg.VideoEncoder)
			}
		}
		if cfg.Quality == 0 {
			cfg.Quality = system.DefaultQuality(cfg.VideoEncoder)
		}
	}
}
