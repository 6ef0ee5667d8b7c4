package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ivlev/storyreel/internal/config"
	"github.com/ivlev/storyreel/internal/engine"
	xlog "github.com/ivlev/storyreel/internal/log"
	"github.com/ivlev/storyreel/internal/system"
)

// BuildVersion is set with -ldflags "-X main.BuildVersion=...".
var BuildVersion = "dev"

const usage = `usage: storyreel <command> [flags]

commands:
  layout   compute the timeline and write the layout report
  render   render frames [-from, -to) as PNG files
  export   render every frame and mux the video with ffmpeg
  watch    recompute the layout whenever the storyboard changes
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd := os.Args[1]

	var mode engine.Mode
	switch cmd {
	case "layout", "watch":
		mode = engine.ModeLayout
	case "render":
		mode = engine.ModeRender
	case "export":
		mode = engine.ModeExport
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPtr := fs.String("config", "", "Path to storyreel.yaml (default: ./storyreel.yaml, then ~/.storyreel/config.yaml)")
	storyboardPtr := fs.String("storyboard", "", "Storyboard JSON file")
	outDirPtr := fs.String("out", "", "Output directory for reports and frames")
	fpsPtr := fs.Int("fps", 0, "Override the storyboard frame rate")
	workersPtr := fs.Int("workers", 0, "Render workers (0: one per CPU)")
	fromPtr := fs.Int("from", 0, "render: first frame")
	toPtr := fs.Int("to", 0, "render: end frame, exclusive (0: last frame)")
	framesPtr := fs.String("frames", "", "render: directory for PNG frames (default: <out>/frames)")
	outputPtr := fs.String("output", "", "export: video file (default: <out>/video.mp4)")
	strictPtr := fs.Bool("strict", false, "Fail on scenes with invalid durations instead of skipping them")
	statsPtr := fs.Bool("stats", false, "Log and record resource usage")
	levelPtr := fs.String("log-level", "", "Log level: debug, info, warn, error")
	prettyPtr := fs.Bool("pretty", false, "Human readable log output")
	metricsPtr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.Load(*configPtr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, fs, flagValues{
		storyboard: *storyboardPtr,
		outDir:     *outDirPtr,
		fps:        *fpsPtr,
		workers:    *workersPtr,
		stats:      *statsPtr,
		logLevel:   *levelPtr,
		metrics:    *metricsPtr,
	})
	cfg.BuildVersion = BuildVersion

	xlog.Configure(xlog.Config{Level: cfg.LogLevel, Pretty: *prettyPtr})
	logger := xlog.WithComponent("cli")

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	system.InitResourceLimits(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	project := engine.NewProject(cfg, xlog.Base())
	opts := engine.RunOptions{
		Mode:      mode,
		From:      *fromPtr,
		To:        *toPtr,
		FramesDir: *framesPtr,
		Output:    *outputPtr,
		Strict:    *strictPtr,
	}

	if cmd == "watch" {
		if err := project.Watch(ctx, opts); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal().Err(err).Msg("watch failed")
		}
		return
	}

	res, err := project.Run(ctx, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn().Msg("interrupted")
			os.Exit(130)
		}
		logger.Fatal().Err(err).Msg("run failed")
	}

	fmt.Printf("%d scenes, %d frames (%.2fs) -> %s\n",
		len(res.Layout.Spans), res.Layout.TotalFrames, res.Layout.DurationSeconds, res.ReportPath)
	if missing := res.Layout.MissingTypes(); len(missing) > 0 {
		fmt.Printf("missing renderers: %v\n", missing)
	}
}

type flagValues struct {
	storyboard string
	outDir     string
	fps        int
	workers    int
	stats      bool
	logLevel   string
	metrics    string
}

// applyFlags overrides config values with flags that were set explicitly.
func applyFlags(cfg *config.Config, fs *flag.FlagSet, v flagValues) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "storyboard":
			cfg.StoryboardPath = v.storyboard
		case "out":
			cfg.OutputDir = v.outDir
		case "fps":
			cfg.FPS = v.fps
		case "workers":
			cfg.Workers = v.workers
		case "stats":
			cfg.ShowStats = v.stats
		case "log-level":
			cfg.LogLevel = v.logLevel
		case "metrics-addr":
			cfg.MetricsAddr = v.metrics
		}
	})
	if cfg.Workers == 0 {
		cfg.Workers = system.DefaultWorkers()
	}
}

func serveMetrics(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	logger.Info().Str("addr", addr).Msg("serving metrics")
	return srv
}
