package system

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

var VideoExtensions = []string{".mp4", ".mov", ".mkv", ".avi", ".webm"}

// FindLatest returns the most recently modified file in dir whose
// extension is one of exts.
func FindLatest(dir string, exts []string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExt(f.Name(), exts) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no %s files found in %s", strings.Join(exts, "/"), dir)
	}
	return latestFile, nil
}

func hasExt(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// GetBestH264Encoder prefers hardware encoders ffmpeg reports, falling
// back to libx264.
func GetBestH264Encoder() string {
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	return pickEncoder(string(out))
}

func pickEncoder(listing string) string {
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(listing, name) {
			return name
		}
	}
	return "libx264"
}

// DefaultQuality returns a sensible quality value for the encoder.
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75 // bitrate = Q*100 kbit/s
	case "h264_nvenc":
		return 28
	default:
		return 23
	}
}

// Usage is a snapshot of process and host resources for the stats report.
type Usage struct {
	RSS          uint64
	CPUPercent   float64
	LogicalCPUs  int
	HostMemTotal uint64
	HostMemUsed  float64
}

// ReadUsage samples the current process. Fields that cannot be read stay zero.
func ReadUsage() Usage {
	var u Usage
	if n, err := cpu.Counts(true); err == nil {
		u.LogicalCPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		u.HostMemTotal = vm.Total
		u.HostMemUsed = vm.UsedPercent
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			u.RSS = mi.RSS
		}
		if pct, err := p.CPUPercent(); err == nil {
			u.CPUPercent = pct
		}
	}
	return u
}

func (u Usage) String() string {
	return fmt.Sprintf("RSS: %.1f MiB | CPU: %.1f%% of %d cores | Host memory: %.1f%% of %.1f GiB",
		float64(u.RSS)/(1<<20), u.CPUPercent, u.LogicalCPUs, u.HostMemUsed, float64(u.HostMemTotal)/(1<<30))
}
