package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce coalesces the burst of events an editor produces for a
// single save.
const DefaultDebounce = 150 * time.Millisecond

// Watcher reloads a Store when its file is modified by another process.
type Watcher struct {
	store    *Store
	onChange func(Config)
	debounce time.Duration

	fsw       *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

// Watch starts watching the directory that holds the store's file. onChange
// is called from the watcher goroutine, once per external modification;
// callers that touch UI state must hop to their own thread.
func (s *Store) Watch(ctx context.Context, onChange func(Config)) (*Watcher, error) {
	return s.WatchWithDebounce(ctx, DefaultDebounce, onChange)
}

func (s *Store) WatchWithDebounce(ctx context.Context, debounce time.Duration, onChange func(Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// editors and our own Save replace the file, so the directory is watched
	if err := fsw.Add(filepath.Dir(s.path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}

	w := &Watcher{
		store:    s,
		onChange: onChange,
		debounce: debounce,
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	go w.run(ctx)

	log.Debug().Str("path", s.path).Msg("Watching config file")
	return w, nil
}

func (w *Watcher) run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.Close()
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.store.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Str("path", w.store.path).Msg("Config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, changed, err := w.store.Reload()
	if err != nil {
		// a half-written file from another process; the next write event retries
		log.Warn().Err(err).Msg("Failed to reload config")
		return
	}
	if !changed {
		log.Debug().Str("path", w.store.path).Msg("Config event without content change")
		return
	}

	log.Info().Str("path", w.store.path).Msg("Config modified externally, reloading")
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}
