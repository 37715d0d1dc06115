package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is how long to wait for more changes before reloading.
const defaultDebounce = 250 * time.Millisecond

// fixtureWatcher reloads the fixture directory into a server when files
// change. A reload that fails keeps the previous page set.
type fixtureWatcher struct {
	dir      string
	srv      *server
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	// reloaded receives one value per successful reload; tests wait on it.
	reloaded chan struct{}
}

func newFixtureWatcher(dir string, srv *server, logger *slog.Logger) (*fixtureWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &fixtureWatcher{
		dir:      dir,
		srv:      srv,
		watcher:  fsw,
		debounce: defaultDebounce,
		logger:   logger,
		reloaded: make(chan struct{}, 1),
	}, nil
}

// Start adds watches for the directory tree and processes events until ctx
// is done or Stop is called.
func (w *fixtureWatcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.dir); err != nil {
		return err
	}
	go w.processEvents(ctx)
	w.logger.Info("Watching fixtures", "dir", w.dir, "debounce", w.debounce)
	return nil
}

// Stop stops the watcher.
func (w *fixtureWatcher) Stop() error {
	return w.watcher.Close()
}

func (w *fixtureWatcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") && path != root {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *fixtureWatcher) processEvents(ctx context.Context) {
	var (
		timer   *time.Timer
		pending <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.watcher.Add(event.Name); err != nil {
						w.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			w.logger.Debug("Fixture change detected", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-pending:
			pending = nil
			w.reload()
		}
	}
}

func (w *fixtureWatcher) reload() {
	fixtures, err := loadFixtures(w.dir)
	if err != nil {
		w.logger.Warn("Fixture reload failed, keeping previous pages", "error", err)
		return
	}
	w.srv.setFixtures(fixtures)
	w.logger.Info("Fixtures reloaded", "pages", len(fixtures))

	select {
	case w.reloaded <- struct{}{}:
	default:
	}
}
