// Package watcher reports media files appearing in a watched folder tree.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type Watcher interface {
	Watch(ctx context.Context, path string) error
	Stop() error
	OnChange(callback func(path string, event EventType))
}

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	}
	return "unknown"
}

var ErrStopped = errors.New("watcher stopped")

// DefaultSettle is how long a file must go without writes before it is
// reported. Copies into the folder emit many write events.
const DefaultSettle = time.Second

// FSWatcher watches a directory tree with fsnotify. Files are reported once
// writes to them have settled; Filter, when set, limits which files are
// reported.
type FSWatcher struct {
	Filter func(name string) bool

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	callback func(path string, event EventType)
	pending  map[string]*time.Timer
	settle   time.Duration
	stopped  bool
	done     chan struct{}
	logger   *slog.Logger
}

func NewFSWatcher(settle time.Duration, logger *slog.Logger) (*FSWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &FSWatcher{
		fsw:     fsw,
		pending: make(map[string]*time.Timer),
		settle:  settle,
		done:    make(chan struct{}),
		logger:  logger,
	}, nil
}

func (w *FSWatcher) OnChange(callback func(path string, event EventType)) {
	w.mu.Lock()
	w.callback = callback
	w.mu.Unlock()
}

// Watch adds path and its subdirectories and starts delivering events until
// ctx is cancelled or Stop is called.
func (w *FSWatcher) Watch(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("watch path is not a directory")
	}

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return ErrStopped
	}
	w.mu.Unlock()

	if err := w.addTree(absPath); err != nil {
		return err
	}

	go w.loop(ctx)
	w.logger.Info("watching folder", "path", absPath)
	return nil
}

func (w *FSWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			w.logger.Warn("failed to watch directory", "path", p, "error", err)
		}
		return nil
	})
}

func (w *FSWatcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *FSWatcher) handle(ev fsnotify.Event) {
	name := ev.Name

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if !strings.HasPrefix(filepath.Base(name), ".") {
				w.addTree(name)
			}
			return
		}
	}

	if w.Filter != nil && !w.Filter(filepath.Base(name)) {
		return
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.mu.Lock()
		if t, ok := w.pending[name]; ok {
			t.Stop()
			delete(w.pending, name)
		}
		w.mu.Unlock()
		w.emit(name, EventDelete)
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		w.schedule(name)
	}
}

// schedule reports name as created once no write has touched it for the
// settle period.
func (w *FSWatcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if t, ok := w.pending[name]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[name] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, name)
		stopped := w.stopped
		w.mu.Unlock()
		if !stopped {
			w.emit(name, EventCreate)
		}
	})
}

func (w *FSWatcher) emit(path string, event EventType) {
	w.mu.Lock()
	cb := w.callback
	w.mu.Unlock()
	if cb != nil {
		cb(path, event)
	}
}

func (w *FSWatcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
	close(w.done)
	w.mu.Unlock()
	return w.fsw.Close()
}
