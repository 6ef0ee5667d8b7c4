package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 300 * time.Millisecond

// Watch recomputes the layout report every time the storyboard changes, until
// ctx is done. A failed run is logged and the watch continues.
func (p *Project) Watch(ctx context.Context, opts RunOptions) error {
	path := p.Config.StoryboardPath
	if path == "" {
		return ErrNoStoryboard
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so the directory is watched.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	p.logger.Info().Str("path", abs).Msg("watching storyboard")

	p.runOnce(ctx, opts)

	debounce := time.NewTimer(watchDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				p.logger.Debug().Str("op", event.Op.String()).Msg("storyboard changed")
				debounce.Reset(watchDebounce)
			}

		case <-debounce.C:
			p.runOnce(ctx, opts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Error().Err(err).Msg("watcher error")
		}
	}
}

func (p *Project) runOnce(ctx context.Context, opts RunOptions) {
	res, err := p.Run(ctx, opts)
	if err != nil {
		p.logger.Error().Err(err).Msg("run failed")
		return
	}
	for _, w := range res.Layout.Warnings {
		p.logger.Warn().Str("run_id", res.RunID).Msg(w)
	}
}
