// Package scenes implements the capabilities scene types are drawn with:
// title cards, document slides and QR cards.
package scenes

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ivlev/storyreel/internal/capability"
	"github.com/ivlev/storyreel/internal/config"
	"github.com/ivlev/storyreel/internal/source"
)

var ErrEmptyPage = errors.New("page has no area")

// Library owns the registry built from configuration and the page sources its
// slides read from.
type Library struct {
	registry *capability.Registry
	caches   []*source.Cache
}

type Options struct {
	// BaseDir resolves relative slide paths, usually the storyboard's directory.
	BaseDir string
	Logger  zerolog.Logger
}

// Build creates one renderer per configured capability. Slides that share a
// document and dpi share its page cache.
func Build(caps map[string]config.Capability, opts Options) (_ *Library, err error) {
	lib := &Library{}
	defer func() {
		if err != nil {
			lib.Close()
		}
	}()

	keys := make([]string, 0, len(caps))
	for k := range caps {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	caches := make(map[string]*source.Cache)
	entries := make(map[string]capability.Renderer, len(caps))
	for _, key := range keys {
		c := caps[key]
		switch c.Kind {
		case config.KindTitle:
			entries[key] = TitleCard{}

		case config.KindSlide:
			path := c.Path
			if !filepath.IsAbs(path) && opts.BaseDir != "" {
				path = filepath.Join(opts.BaseDir, path)
			}
			cacheKey := fmt.Sprintf("%s@%d", path, c.DPI)
			cache, ok := caches[cacheKey]
			if !ok {
				src, err := source.Open(path)
				if err != nil {
					return nil, fmt.Errorf("capability %s: %w", key, err)
				}
				cache = source.NewCache(src, c.DPI)
				caches[cacheKey] = cache
				lib.caches = append(lib.caches, cache)
			}
			if c.Page < 0 || c.Page >= cache.PageCount() {
				return nil, fmt.Errorf("capability %s: %w: page %d of %d", key, source.ErrPageOutOfRange, c.Page, cache.PageCount())
			}
			w, h, err := cache.Dimensions(c.Page)
			if err != nil {
				return nil, fmt.Errorf("capability %s: page %d: %w", key, c.Page, err)
			}
			if w <= 0 || h <= 0 {
				return nil, fmt.Errorf("capability %s: %w: page %d is %vx%v", key, ErrEmptyPage, c.Page, w, h)
			}
			opts.Logger.Debug().Str("capability", key).Int("page", c.Page).
				Float64("width", w).Float64("height", h).Msg("slide page")
			entries[key] = NewSlide(cache, c.Page, c.ZoomMode, c.Zoom)

		case config.KindQR:
			card, err := NewQRCard(c.Content)
			if err != nil {
				return nil, fmt.Errorf("capability %s: %w", key, err)
			}
			entries[key] = card

		default:
			return nil, fmt.Errorf("capability %s: unknown kind %q", key, c.Kind)
		}
	}

	lib.registry = capability.New(entries, capability.WithPlaceholder(MissingCard{}))
	opts.Logger.Info().
		Strs("capabilities", lib.registry.Keys()).
		Int("sources", len(lib.caches)).
		Msg("capabilities registered")
	return lib, nil
}

func (l *Library) Registry() *capability.Registry {
	if l == nil {
		return nil
	}
	return l.registry
}

func (l *Library) Close() error {
	if l == nil {
		return nil
	}
	var errs []error
	for _, c := range l.caches {
		errs = append(errs, c.Close())
	}
	l.caches = nil
	return errors.Join(errs...)
}
