// Package watcher implements recursive file system watching on fsnotify.
package watcher

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/zerr"

	"go.trai.ch/basis/internal/adapters/fs"
	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
)

var _ ports.Watcher = (*Watcher)(nil)

const eventChannelBuffer = 100

// Watcher watches a directory tree. Directories created later are added as
// they appear. Version control, dependency and state directories are skipped.
type Watcher struct {
	walker *fs.Walker
	logger ports.Logger

	fsWatcher *fsnotify.Watcher
	events    chan ports.WatchEvent
	stopOnce  sync.Once
}

// NewWatcher creates a Watcher. Errors reported by the operating system are
// logged as warnings.
func NewWatcher(walker *fs.Walker, logger ports.Logger) *Watcher {
	return &Watcher{
		walker: walker,
		logger: logger,
		events: make(chan ports.WatchEvent, eventChannelBuffer),
	}
}

// Start begins watching root recursively until ctx is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context, root string) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return domain.Caused(domain.ErrWatcherStartFailed, err)
	}
	w.fsWatcher = fsWatcher

	for dir := range w.walker.WalkDirs(root, nil) {
		if err := fsWatcher.Add(dir); err != nil {
			_ = fsWatcher.Close()
			return zerr.With(domain.Caused(domain.ErrWatcherStartFailed, err), "path", dir)
		}
	}

	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and releases all resources.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		if w.fsWatcher != nil {
			err = w.fsWatcher.Close()
		}
	})
	return err
}

// Events returns an iterator of file system events.
// It ends once the watcher stopped.
func (w *Watcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			watchEvent, ok := convertEvent(event)
			if !ok || isTempFile(event.Name) {
				continue
			}

			if watchEvent.Operation == ports.OpCreate {
				w.addTree(event.Name)
			}

			select {
			case w.events <- watchEvent:
			case <-ctx.Done():
				_ = w.Stop()
				return
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn("watcher: " + err.Error())
			}
		}
	}
}

// addTree watches a newly created directory and its subdirectories.
func (w *Watcher) addTree(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || fs.IsSkippedDir(info.Name()) {
		return
	}
	for dir := range w.walker.WalkDirs(path, nil) {
		_ = w.fsWatcher.Add(dir)
	}
}

// isTempFile reports the temporary files of atomic writes (".name.123.tmp").
func isTempFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".tmp")
}

// convertEvent maps an fsnotify event. Chmod-only events are dropped.
func convertEvent(event fsnotify.Event) (ports.WatchEvent, bool) {
	var op ports.WatchOp
	switch {
	case event.Has(fsnotify.Write):
		op = ports.OpWrite
	case event.Has(fsnotify.Create):
		op = ports.OpCreate
	case event.Has(fsnotify.Remove):
		op = ports.OpRemove
	case event.Has(fsnotify.Rename):
		op = ports.OpRename
	default:
		return ports.WatchEvent{}, false
	}
	return ports.WatchEvent{Path: event.Name, Operation: op}, true
}
