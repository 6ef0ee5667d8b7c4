// Package engine runs a storyboard through the pipeline: load, lay out,
// report, and optionally render frames or export a video.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ivlev/storyreel/internal/config"
	"github.com/ivlev/storyreel/internal/renderer"
	"github.com/ivlev/storyreel/internal/report"
	"github.com/ivlev/storyreel/internal/scenes"
	"github.com/ivlev/storyreel/internal/storyboard"
	"github.com/ivlev/storyreel/internal/system"
	"github.com/ivlev/storyreel/internal/timeline"
	"github.com/ivlev/storyreel/internal/video"
)

type Mode string

const (
	ModeLayout Mode = "layout"
	ModeRender Mode = "render"
	ModeExport Mode = "export"
)

// voiceSlack is how much longer a narration file may be than declared before
// it is reported; the tail past its span is cut on export.
const voiceSlack = 0.05

var ErrNoStoryboard = errors.New("no storyboard configured")

type RunOptions struct {
	Mode Mode
	// Render: frames [From, To) are written to FramesDir. To <= 0 means the end.
	From, To  int
	FramesDir string
	// Export: destination video file.
	Output string
	// Strict fails on any storyboard validation error instead of excluding
	// scenes with invalid durations.
	Strict bool
}

type Result struct {
	RunID      string
	Layout     *timeline.Layout
	Report     *report.Report
	ReportPath string
	Frames     int
	Elapsed    time.Duration
}

type Project struct {
	Config *config.Config
	logger zerolog.Logger
}

func NewProject(cfg *config.Config, logger zerolog.Logger) *Project {
	return &Project{Config: cfg, logger: logger.With().Str("component", "engine").Logger()}
}

func (p *Project) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With().Str("run_id", runID).Logger()

	path := p.Config.StoryboardPath
	if path == "" {
		return nil, ErrNoStoryboard
	}
	sb, err := storyboard.Load(path)
	if err != nil {
		return nil, err
	}
	if err := checkStoryboard(sb, opts.Strict, logger); err != nil {
		return nil, err
	}

	lib, err := scenes.Build(p.Config.Capabilities, scenes.Options{BaseDir: filepath.Dir(path), Logger: logger})
	if err != nil {
		return nil, err
	}
	defer lib.Close()

	layout, err := timeline.NewBuilder(lib.Registry(), p.timelineOptions(), logger).Build(sb, p.Config.FPS)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	if p.Config.ProbeAudio {
		p.probeVoice(ctx, layout, logger)
	}

	res := &Result{RunID: runID, Layout: layout}
	logger.Info().
		Str("storyboard", path).
		Int("scenes", len(layout.Spans)).
		Int("total_frames", layout.TotalFrames).
		Float64("duration_seconds", layout.DurationSeconds).
		Strs("missing", layout.MissingTypes()).
		Msg("layout computed")

	var renderTime time.Duration
	if opts.Mode == ModeRender || opts.Mode == ModeExport {
		rend, err := renderer.New(layout, lib.Registry(), renderer.Options{Workers: p.Config.Workers, Logger: logger})
		if err != nil {
			return nil, err
		}
		renderStart := time.Now()
		if opts.Mode == ModeRender {
			res.Frames, err = p.renderFrames(ctx, rend, layout, opts)
		} else {
			res.Frames, err = p.export(ctx, rend, layout, opts, logger)
		}
		if err != nil {
			return nil, err
		}
		renderTime = time.Since(renderStart)
	}

	rep := report.FromLayout(layout, sb)
	rep.RunID = runID
	rep.Storyboard = path
	res.Elapsed = time.Since(startTime)
	if p.Config.ShowStats {
		st := system.Snapshot()
		rep.Stats = &st
		effective := 0.0
		if renderTime > 0 {
			effective = float64(res.Frames) / renderTime.Seconds()
		}
		logger.Info().
			Str("build", p.Config.BuildVersion).
			Dur("total", res.Elapsed).
			Dur("render", renderTime).
			Float64("effective_fps", effective).
			Uint64("rss_bytes", st.RSSBytes).
			Float64("cpu_percent", st.CPUPercent).
			Msg("performance report")
	}

	res.Report = rep
	res.ReportPath = report.Path(p.Config.OutputDir, sb.Title)
	if err := report.Write(rep, res.ReportPath); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	logger.Info().Str("report", res.ReportPath).Dur("elapsed", res.Elapsed).Msg("run finished")
	return res, nil
}

func (p *Project) timelineOptions() timeline.Options {
	opts := timeline.DefaultOptions()
	opts.TransitionFrames = p.Config.TransitionFrames
	opts.Cues.Dir = p.Config.SfxDir
	if p.Config.DefaultSfxFrames > 0 {
		opts.Cues.DefaultFrames = p.Config.DefaultSfxFrames
	}
	return opts
}

// checkStoryboard tolerates invalid scene durations, which the timeline
// excludes on its own, unless strict is set. Every other problem is fatal.
func checkStoryboard(sb *storyboard.Storyboard, strict bool, logger zerolog.Logger) error {
	err := sb.Validate()
	if err == nil || strict {
		return err
	}
	var verr *storyboard.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	var fatal []storyboard.FieldError
	for _, f := range verr.Fields {
		if errors.Is(f.Err, storyboard.ErrInvalidDuration) {
			logger.Warn().Str("field", f.Field).Interface("value", f.Value).Msg("scene will be excluded")
			continue
		}
		fatal = append(fatal, f)
	}
	if len(fatal) > 0 {
		return &storyboard.ValidationError{Fields: fatal}
	}
	return nil
}

// probeVoice warns about narration files longer than their declared duration.
func (p *Project) probeVoice(ctx context.Context, l *timeline.Layout, logger zerolog.Logger) {
	for i, v := range l.Voice {
		if v.File == "" {
			continue
		}
		actual, err := system.ProbeDuration(ctx, p.Config.Export.FFprobePath, v.File)
		if err != nil {
			logger.Warn().Err(err).Str("scene", v.SceneID).Msg("narration probe failed")
			continue
		}
		declared := l.Spans[i].Scene.AudioDurationSeconds
		if actual > declared+voiceSlack {
			msg := fmt.Sprintf("narration %s runs %.2fs, declared %.2fs", v.File, actual, declared)
			l.Warnings = append(l.Warnings, msg)
			logger.Warn().Str("scene", v.SceneID).Msg(msg)
		}
	}
}

func (p *Project) renderFrames(ctx context.Context, rend *renderer.Renderer, l *timeline.Layout, opts RunOptions) (int, error) {
	dir := opts.FramesDir
	if dir == "" {
		dir = filepath.Join(p.Config.OutputDir, "frames")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}
	to := opts.To
	if to <= 0 || to > l.TotalFrames {
		to = l.TotalFrames
	}
	from := max(opts.From, 0)

	err := rend.RenderRange(ctx, from, to, func(f int, img *image.RGBA) error {
		return WriteFramePNG(filepath.Join(dir, FrameName(f)), img)
	})
	if err != nil {
		return 0, fmt.Errorf("render frames: %w", err)
	}
	return max(to-from, 0), nil
}

func (p *Project) export(ctx context.Context, rend *renderer.Renderer, l *timeline.Layout, opts RunOptions, logger zerolog.Logger) (int, error) {
	out := opts.Output
	if out == "" {
		out = filepath.Join(p.Config.OutputDir, "video.mp4")
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return 0, err
	}
	exp := video.NewFFmpegExporter(video.Options{
		FFmpegPath:   p.Config.Export.FFmpegPath,
		VideoEncoder: p.Config.Export.VideoEncoder,
		Quality:      p.Config.Export.Quality,
		AudioCodec:   p.Config.Export.AudioCodec,
		ChunkFrames:  rend.Workers() * 4,
	}, logger)
	if err := exp.Export(ctx, l, rend, out); err != nil {
		return 0, err
	}
	return l.TotalFrames, nil
}

func FrameName(f int) string {
	return fmt.Sprintf("frame_%06d.png", f)
}

// WriteFramePNG encodes img and replaces path atomically.
func WriteFramePNG(path string, img image.Image) error {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return renameio.WriteFile(path, buf.Bytes(), 0644)
}
