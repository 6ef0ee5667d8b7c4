// Package timeline turns a storyboard into a frame-accurate layout: the visual
// track with its crossfades, the narration track, sound effect cues and the
// background music bed.
//
// Everything here is a pure function of its input. A Layout is immutable once
// built and may be read from any number of goroutines.
package timeline

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ivlev/storyreel/internal/capability"
	xlog "github.com/ivlev/storyreel/internal/log"
	"github.com/ivlev/storyreel/internal/metrics"
	"github.com/ivlev/storyreel/internal/storyboard"
)

// DefaultTransitionFrames is the crossfade length between adjacent scenes.
const DefaultTransitionFrames = 20

var (
	ErrNilStoryboard     = errors.New("storyboard is nil")
	ErrInvalidFPS        = errors.New("fps must be positive")
	ErrInvalidTransition = errors.New("transition frames must not be negative")
)

type Options struct {
	TransitionFrames int
	Cues             CueOptions
}

func DefaultOptions() Options {
	return Options{
		TransitionFrames: DefaultTransitionFrames,
		Cues:             CueOptions{Ext: ".mp3", DefaultFrames: DefaultSfxFrames},
	}
}

// Rejection is a storyboard scene left out of the layout.
type Rejection struct {
	Position int    `json:"position" yaml:"position"` // index in the storyboard
	SceneID  string `json:"scene_id" yaml:"scene_id"`
	Reason   string `json:"reason" yaml:"reason"`
}

// Layout is the resolved timeline of one storyboard.
type Layout struct {
	FPS              int                    `json:"fps" yaml:"fps"`
	Width            int                    `json:"width" yaml:"width"`
	Height           int                    `json:"height" yaml:"height"`
	TransitionFrames int                    `json:"transition_frames" yaml:"transition_frames"`
	Style            storyboard.StyleConfig `json:"style" yaml:"style"`

	Spans []Span      `json:"spans" yaml:"spans"`
	Voice []VoiceSpan `json:"voice" yaml:"voice"`
	Cues  []Cue       `json:"cues,omitempty" yaml:"cues,omitempty"`
	Bed   *Bed        `json:"bed,omitempty" yaml:"bed,omitempty"`

	// TotalFrames is the rendered length of the composition.
	TotalFrames int `json:"total_frames" yaml:"total_frames"`
	// DurationSeconds comes from ComputeDuration, not from the spans.
	DurationSeconds float64 `json:"duration_seconds" yaml:"duration_seconds"`

	Rejected []Rejection `json:"rejected,omitempty" yaml:"rejected,omitempty"`
	Warnings []string    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Empty reports a layout without scenes.
func (l *Layout) Empty() bool { return l == nil || len(l.Spans) == 0 }

// MissingTypes lists the scene types laid out with a placeholder, in scene order.
func (l *Layout) MissingTypes() []string {
	var out []string
	for _, s := range l.Spans {
		if s.Missing {
			out = append(out, s.Scene.Type)
		}
	}
	return out
}

// Builder computes layouts against a fixed capability registry.
type Builder struct {
	opts     Options
	registry *capability.Registry
	logger   zerolog.Logger
}

// NewBuilder returns a builder. A nil registry disables missing-capability checks.
func NewBuilder(reg *capability.Registry, opts Options, logger zerolog.Logger) *Builder {
	return &Builder{
		opts:     opts,
		registry: reg,
		logger:   logger.With().Str("component", "timeline").Logger(),
	}
}

// ComputeTimeline builds a layout with default options. fps <= 0 falls back to
// the storyboard's video fps.
func ComputeTimeline(sb *storyboard.Storyboard, fps int, reg *capability.Registry) (*Layout, error) {
	return NewBuilder(reg, DefaultOptions(), xlog.Base()).Build(sb, fps)
}

// Build lays out sb. Malformed scenes are excluded and reported, unknown scene
// types are kept with a placeholder; neither fails the layout. An invalid fps,
// transition length or buffer is an error.
func (b *Builder) Build(sb *storyboard.Storyboard, fps int) (*Layout, error) {
	if sb == nil {
		return nil, ErrNilStoryboard
	}
	if fps <= 0 {
		fps = sb.Video.FPS
	}
	if fps <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFPS, fps)
	}
	if b.opts.TransitionFrames < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTransition, b.opts.TransitionFrames)
	}
	if buf := sb.Audio.Buffer(); !storyboard.ValidBuffer(buf) {
		return nil, fmt.Errorf("%w: %v", storyboard.ErrInvalidBuffer, buf)
	}

	layout := &Layout{
		FPS:              fps,
		Width:            sb.Video.Width,
		Height:           sb.Video.Height,
		TransitionFrames: b.opts.TransitionFrames,
		Style:            sb.Style,
	}

	scenes := make([]storyboard.SceneSpec, 0, len(sb.Scenes))
	for i, s := range sb.Scenes {
		if !s.Playable() {
			layout.Rejected = append(layout.Rejected, Rejection{
				Position: i,
				SceneID:  s.ID,
				Reason:   fmt.Sprintf("%v: %v", storyboard.ErrInvalidDuration, s.AudioDurationSeconds),
			})
			metrics.RejectedScenes.WithLabelValues("invalid_duration").Inc()
			b.logger.Warn().
				Str("scene", s.ID).
				Int("position", i).
				Float64("audio_duration_seconds", s.AudioDurationSeconds).
				Msg("scene excluded from timeline")
			continue
		}
		scenes = append(scenes, s)
	}

	buffer := sb.Audio.Buffer()
	layout.Spans = BuildVisualTrack(scenes, fps, buffer, b.opts.TransitionFrames)
	for i := range layout.Spans {
		span := &layout.Spans[i]
		if b.registry != nil && !b.registry.Has(span.TypeKey) {
			span.Missing = true
			metrics.MissingCapabilities.WithLabelValues(span.TypeKey).Inc()
			b.logger.Warn().
				Str("scene", span.Scene.ID).
				Str("type", span.Scene.Type).
				Msg("no capability registered for scene type, rendering placeholder")
		}
		if span.ShortSpan {
			msg := fmt.Sprintf("scene %q spans %d frames, shorter than the %d-frame transition into it",
				span.Scene.ID, span.ContentFrames, b.opts.TransitionFrames)
			layout.Warnings = append(layout.Warnings, msg)
			b.logger.Warn().Str("scene", span.Scene.ID).Msg(msg)
		}
	}

	layout.Voice = SequenceAudio(layout.Spans, fps, sb.Audio.VoiceoverDir)
	layout.Cues = PlaceCues(layout.Spans, layout.Voice, b.opts.Cues)
	layout.TotalFrames = RenderedFrames(layout.Spans, b.opts.TransitionFrames)
	layout.Bed = NewBed(sb.Audio.BackgroundMusic, layout.TotalFrames, fps)
	layout.DurationSeconds = ComputeDuration(sb)

	if err := CheckDeclaredDuration(sb); err != nil {
		layout.Warnings = append(layout.Warnings, err.Error())
		b.logger.Warn().Err(err).Msg("storyboard declares a stale total duration")
	}

	metrics.LayoutsComputed.Inc()
	b.logger.Debug().
		Int("scenes", len(layout.Spans)).
		Int("rejected", len(layout.Rejected)).
		Int("total_frames", layout.TotalFrames).
		Float64("duration_seconds", layout.DurationSeconds).
		Msg("timeline computed")

	return layout, nil
}
