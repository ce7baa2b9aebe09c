// Package hotcfg keeps a live snapshot of the application configuration and
// reloads it when the config file changes on disk. Remote calls read feed
// credentials through the snapshot, so a password rotation in the file takes
// effect on the next call without a restart.
package hotcfg

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Loader reads and validates the config file, returning the new snapshot.
type Loader[T any] func(path string) (*T, error)

// Store holds the current configuration snapshot.
type Store[T any] struct {
	path    string
	load    Loader[T]
	current atomic.Pointer[T]
}

// NewStore creates a Store seeded with initial.
func NewStore[T any](path string, initial *T, load Loader[T]) *Store[T] {
	s := &Store[T]{path: path, load: load}
	s.current.Store(initial)
	return s
}

// Snapshot returns the current configuration. The returned value must be
// treated as read-only.
func (s *Store[T]) Snapshot() *T {
	return s.current.Load()
}

// Watch blocks until ctx is cancelled, reloading the snapshot whenever the
// config file is written. Editors and config tools often replace the file
// (write to temp, rename over), so the watcher observes the parent directory
// and filters events for the file name. A reload that fails to parse or
// validate keeps the previous snapshot.
func (s *Store[T]) Watch(ctx context.Context, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return err
	}
	base := filepath.Base(s.path)

	logger.Info("hotcfg: watching", slog.String("path", s.path))

	// Debounce bursts of events from rename-over-replace sequences.
	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("hotcfg: stopped")
			return nil

		case <-reloadCh:
			next, err := s.load(s.path)
			if err != nil {
				logger.Warn("hotcfg: reload failed, keeping previous config",
					slog.String("error", err.Error()))
				continue
			}
			s.current.Store(next)
			logger.Info("hotcfg: configuration reloaded")

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("hotcfg: watch error", slog.String("error", watchErr.Error()))
		}
	}
}
