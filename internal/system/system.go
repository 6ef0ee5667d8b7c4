// Package system wraps host facilities: CPU and memory stats, worker sizing,
// and the ffmpeg tool probes.
package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// DefaultWorkers sizes the render pool to the number of logical CPUs.
func DefaultWorkers() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Stats is a point-in-time view of the host and this process.
type Stats struct {
	LogicalCPUs   int     `yaml:"logical_cpus"`
	CPUPercent    float64 `yaml:"cpu_percent"`
	RSSBytes      uint64  `yaml:"rss_bytes"`
	HeapBytes     uint64  `yaml:"heap_bytes"`
	TotalMemBytes uint64  `yaml:"total_mem_bytes"`
	UsedMemPct    float64 `yaml:"used_mem_percent"`
	Goroutines    int     `yaml:"goroutines"`
}

// Snapshot collects what it can; a stat the host does not expose stays zero.
func Snapshot() Stats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	st := Stats{
		LogicalCPUs: DefaultWorkers(),
		HeapBytes:   ms.HeapAlloc,
		Goroutines:  runtime.NumGoroutine(),
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		st.TotalMemBytes = vm.Total
		st.UsedMemPct = vm.UsedPercent
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := p.MemoryInfo(); err == nil {
			st.RSSBytes = info.RSS
		}
		if pct, err := p.CPUPercent(); err == nil {
			st.CPUPercent = pct
		}
	}
	return st
}

// InitResourceLimits raises the open file limit; each voice and sfx clip is an
// ffmpeg input during export.
func InitResourceLimits(logger zerolog.Logger) {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn().Err(err).Msg("read open file limit")
		return
	}

	want := uint64(2048)
	if want > rLimit.Max {
		want = rLimit.Max
	}
	if rLimit.Cur >= want {
		return
	}
	rLimit.Cur = want

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn().Err(err).Msg("raise open file limit")
		return
	}
	logger.Debug().Uint64("limit", rLimit.Cur).Msg("open file limit raised")
}

// ProbeDuration asks ffprobe for the length of a media file in seconds.
func ProbeDuration(ctx context.Context, ffprobe, path string) (float64, error) {
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, ffprobe, "-v", "error", "-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(string(out)))
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: parse duration: %w", path, err)
	}
	return d, nil
}

// BestH264Encoder prefers hardware encoders and falls back to libx264.
func BestH264Encoder(ctx context.Context, ffmpeg string) string {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	out, err := exec.CommandContext(ctx, ffmpeg, "-hide_banner", "-encoders").CombinedOutput()
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
