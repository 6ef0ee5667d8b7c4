// Package renderer draws composed frames of a timeline layout.
//
// Each frame is a pure function of the layout and the frame number, so frames
// can be rendered in any order and on any number of workers.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/storyreel/internal/capability"
	"github.com/ivlev/storyreel/internal/metrics"
	"github.com/ivlev/storyreel/internal/system"
	"github.com/ivlev/storyreel/internal/timeline"
)

var (
	ErrNoLayout         = errors.New("renderer needs a layout")
	ErrFrameOutOfRange  = errors.New("frame out of range")
	ErrInvalidFrameSize = errors.New("frame size must be positive")
)

type Options struct {
	Workers int
	Logger  zerolog.Logger
	Pool    *system.FramePool
}

type Renderer struct {
	layout   *timeline.Layout
	registry *capability.Registry
	bounds   image.Rectangle
	workers  int
	pool     *system.FramePool
	logger   zerolog.Logger
}

// Sink receives rendered frames. img is only valid until Sink returns, and
// Sink may be called from several goroutines at once.
type Sink = func(frame int, img *image.RGBA) error

// New returns a renderer for layout. A nil registry draws every scene with the
// placeholder.
func New(layout *timeline.Layout, reg *capability.Registry, opts Options) (*Renderer, error) {
	if layout == nil {
		return nil, ErrNoLayout
	}
	if layout.Width <= 0 || layout.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidFrameSize, layout.Width, layout.Height)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = system.DefaultWorkers()
	}
	pool := opts.Pool
	if pool == nil {
		pool = system.NewFramePool()
	}
	return &Renderer{
		layout:   layout,
		registry: reg,
		bounds:   image.Rect(0, 0, layout.Width, layout.Height),
		workers:  workers,
		pool:     pool,
		logger:   opts.Logger.With().Str("component", "renderer").Logger(),
	}, nil
}

func (r *Renderer) Bounds() image.Rectangle { return r.bounds }

func (r *Renderer) Workers() int { return r.workers }

// RenderFrame returns frame f in a newly allocated image owned by the caller.
func (r *Renderer) RenderFrame(f int) (*image.RGBA, error) {
	img := image.NewRGBA(r.bounds)
	if err := r.RenderFrameInto(img, f); err != nil {
		return nil, err
	}
	return img, nil
}

// RenderFrameInto draws frame f into dst, which must have the layout's bounds.
func (r *Renderer) RenderFrameInto(dst *image.RGBA, f int) error {
	if dst.Rect != r.bounds {
		return fmt.Errorf("%w: destination %v, layout %v", ErrInvalidFrameSize, dst.Rect, r.bounds)
	}
	st, ok := r.layout.Resolve(f)
	if !ok {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrFrameOutOfRange, f, r.layout.TotalFrames)
	}

	start := time.Now()
	defer func() { metrics.FrameRenderDuration.Observe(time.Since(start).Seconds()) }()

	tr := st.Transition
	if tr == nil {
		if err := r.drawScene(dst, st.Scene, st.Local); err != nil {
			return err
		}
		metrics.FramesRendered.Inc()
		return nil
	}

	// The outgoing scene goes into dst, the incoming one is composited over it.
	if err := r.drawScene(dst, tr.From, tr.FromLocal); err != nil {
		return err
	}
	incoming := r.pool.Get(r.bounds)
	defer r.pool.Put(incoming)
	if err := r.drawScene(incoming, st.Scene, st.Local); err != nil {
		return err
	}
	Blend(dst, incoming, tr.Style, tr.Progress)
	metrics.FramesRendered.Inc()
	return nil
}

func (r *Renderer) drawScene(dst *image.RGBA, index, local int) error {
	span := r.layout.Spans[index]
	rend, _ := r.registry.Resolve(span.Scene.Type)

	clear(dst.Pix)
	err := rend.Render(dst, capability.Frame{
		Scene:  span.Scene,
		Index:  index,
		Local:  local,
		Frames: span.Frames,
		FPS:    r.layout.FPS,
		Style:  r.layout.Style,
	})
	if err != nil {
		metrics.FrameRenderErrors.WithLabelValues(span.TypeKey).Inc()
		return fmt.Errorf("scene %d (%s) frame %d: %w", index, span.Scene.ID, local, err)
	}
	return nil
}

// RenderRange renders frames [from, to) on the worker pool and hands each to
// sink. Frames arrive in no particular order. The first error cancels the
// remaining work and is returned.
func (r *Renderer) RenderRange(ctx context.Context, from, to int, sink Sink) error {
	from = max(from, 0)
	to = min(to, r.layout.TotalFrames)
	if from >= to {
		return nil
	}

	r.logger.Debug().Int("from", from).Int("to", to).Int("workers", r.workers).Msg("rendering frames")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for f := from; f < to; f++ {
		if gctx.Err() != nil {
			break
		}
		f := f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img := r.pool.Get(r.bounds)
			defer r.pool.Put(img)
			if err := r.RenderFrameInto(img, f); err != nil {
				return err
			}
			return sink(f, img)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
