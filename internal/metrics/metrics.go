package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LayoutsComputed counts timelines built from storyboards.
	LayoutsComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyreel_layouts_computed_total",
		Help: "Total timeline layouts computed",
	})

	// MissingCapabilities counts scenes whose type has no registered renderer.
	MissingCapabilities = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyreel_missing_capability_total",
		Help: "Scenes laid out with a placeholder because their type is not registered",
	}, []string{"type"})

	// RejectedScenes counts scenes excluded from a layout.
	RejectedScenes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyreel_rejected_scenes_total",
		Help: "Scenes excluded from a layout because of malformed input",
	}, []string{"reason"})

	// FramesRendered counts frames produced by the frame renderer.
	FramesRendered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyreel_frames_rendered_total",
		Help: "Total frames rendered",
	})

	// FrameRenderErrors counts frames whose capability returned an error.
	FrameRenderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyreel_frame_render_errors_total",
		Help: "Frame render failures by scene type",
	}, []string{"type"})

	// FrameRenderDuration tracks time spent composing one frame.
	FrameRenderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storyreel_frame_render_duration_seconds",
		Help:    "Duration of single frame composition",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2.0, 14), // 0.5ms to ~4s
	})
)
