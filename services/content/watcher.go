package content

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Invalidator drops cached content
type Invalidator interface {
	Invalidate()
}

// Watcher invalidates a lesson cache whenever a lesson file under the
// content directory is created, written, removed or renamed.
type Watcher struct {
	loader *DirLoader
	target Invalidator
	logger *zap.Logger
	ready  chan struct{}
}

// NewWatcher creates a watcher over the loader's content directory
func NewWatcher(loader *DirLoader, target Invalidator, logger *zap.Logger) *Watcher {
	return &Watcher{
		loader: loader,
		target: target,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// Ready is closed once the directory tree is being watched
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.loader.Root()); err != nil {
		return err
	}
	close(w.ready)

	w.logger.Info("watching lesson content", zap.String("root", w.loader.Root()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(fw, event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(fw *fsnotify.Watcher, event fsnotify.Event) {
	if skipEntry(filepath.Base(event.Name)) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(fw, event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
			w.invalidate(event)
			return
		}
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	// removed directories cannot be stat'ed; treat extensionless paths as possible directories
	removed := event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
	if w.loader.IsLessonFile(event.Name) || (removed && filepath.Ext(event.Name) == "") {
		w.invalidate(event)
	}
}

func (w *Watcher) invalidate(event fsnotify.Event) {
	w.logger.Debug("lesson content changed",
		zap.String("path", event.Name),
		zap.String("op", event.Op.String()),
	)
	w.target.Invalidate()
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipEntry(d.Name()) {
			return fs.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
