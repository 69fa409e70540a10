package docsync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/cortex/pkg/logger"
)

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	Root      string
	Knowledge string
	Pool      *Pool
	Logger    *slog.Logger
}

// Watcher turns filesystem notifications under a root directory into sync
// jobs: create and write upload the file, remove and rename delete its document.
// Subdirectories, including ones created while watching, are watched too.
type Watcher struct {
	root      string
	knowledge string
	pool      *Pool
	logger    *slog.Logger
	fsw       *fsnotify.Watcher
}

// NewWatcher starts watching c.Root. Events are only processed once Run is called.
func NewWatcher(c WatcherConfig) (*Watcher, error) {
	if c.Pool == nil {
		return nil, errors.New("pool is required")
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	root, err := filepath.Abs(c.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", c.Root, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		root:      root,
		knowledge: c.Knowledge,
		pool:      c.Pool,
		logger:    c.Logger,
		fsw:       fsw,
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// Run processes notifications until ctx is done or the watcher fails.
// It closes the underlying watcher before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || hidden(rel) {
		return
	}

	w.logger.Debug("fs event", "op", ev.Op.String(), "path", ev.Name)

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if ev.Has(fsnotify.Create) {
				if err := w.addTree(ev.Name); err != nil {
					w.logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
				}
			}
			return
		}
		if !info.Mode().IsRegular() {
			return
		}
		w.enqueue(OpUpload, ev.Name)

	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.enqueue(OpDelete, ev.Name)
	}
}

func (w *Watcher) enqueue(op Op, path string) {
	id, err := DocumentID(w.root, path)
	if err != nil {
		w.logger.Debug("skipping path", "path", path, "error", err)
		return
	}
	w.pool.Enqueue(Job{Op: op, Knowledge: w.knowledge, DocumentID: id, Path: path})
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, _ := filepath.Rel(w.root, path); rel != "." && hidden(rel) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Close stops watching without running. Run also closes the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
