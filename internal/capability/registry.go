// Package capability maps scene types to the renderers that draw them.
//
// A Registry is built once at startup and never mutated afterwards, so it can be
// shared by any number of render workers.
package capability

import (
	"image"
	"sort"

	"github.com/ivlev/storyreel/internal/storyboard"
)

// Frame is everything a renderer may look at to draw one frame of its scene.
type Frame struct {
	Scene  storyboard.SceneSpec
	Index  int // scene position in the timeline
	Local  int // frame number relative to the scene start
	Frames int // visible frames of the scene including padding
	FPS    int
	Style  storyboard.StyleConfig
}

// Progress returns Local/Frames clamped to [0, 1].
func (f Frame) Progress() float64 {
	if f.Frames <= 1 {
		return 1
	}
	p := float64(f.Local) / float64(f.Frames-1)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Renderer draws the visual state of a scene for one local frame into dst.
// Implementations must be safe for concurrent use.
type Renderer interface {
	Render(dst *image.RGBA, f Frame) error
}

// RendererFunc adapts a plain function to Renderer.
type RendererFunc func(dst *image.RGBA, f Frame) error

func (fn RendererFunc) Render(dst *image.RGBA, f Frame) error { return fn(dst, f) }

type Registry struct {
	entries     map[string]Renderer
	placeholder Renderer
}

type Option func(*Registry)

// WithPlaceholder replaces the renderer used for unregistered scene types.
func WithPlaceholder(r Renderer) Option {
	return func(reg *Registry) {
		if r != nil {
			reg.placeholder = r
		}
	}
}

// New copies entries into an immutable registry. Keys are normalized with
// storyboard.TypeKey so "scenes/title" and "title" register the same entry.
func New(entries map[string]Renderer, opts ...Option) *Registry {
	reg := &Registry{
		entries:     make(map[string]Renderer, len(entries)),
		placeholder: Placeholder{},
	}
	for k, r := range entries {
		if r == nil {
			continue
		}
		reg.entries[storyboard.TypeKey(k)] = r
	}
	for _, opt := range opts {
		opt(reg)
	}
	return reg
}

// Lookup returns the renderer registered for a scene type.
func (r *Registry) Lookup(sceneType string) (Renderer, bool) {
	if r == nil {
		return nil, false
	}
	rend, ok := r.entries[storyboard.TypeKey(sceneType)]
	return rend, ok
}

// Has reports whether a scene type is registered.
func (r *Registry) Has(sceneType string) bool {
	_, ok := r.Lookup(sceneType)
	return ok
}

// Resolve never fails: unknown types get the placeholder renderer.
func (r *Registry) Resolve(sceneType string) (rend Renderer, missing bool) {
	if rend, ok := r.Lookup(sceneType); ok {
		return rend, false
	}
	if r == nil {
		return Placeholder{}, true
	}
	return r.placeholder, true
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}
