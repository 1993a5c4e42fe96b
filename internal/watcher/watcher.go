// Package watcher watches an import drop folder with fsnotify. Files that settle in the
// folder are handed to a callback one at a time, and a second callback fires once a burst
// of files has been handled.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches a single directory (not recursively) for matching files.
type Watcher struct {
	dir        string
	extensions []string
	onFile     func(path string)
	onSettled  func()
	debounce   time.Duration
	logger     *zap.Logger

	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	debounceMap map[string]*time.Timer
	settle      *time.Timer
	pending     int
	started     bool
	done        chan struct{}
	stopOnce    sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithExtensions limits which files are picked up. Empty means all files.
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) { w.extensions = exts }
}

// WithDebounce sets how long a file must be quiet before it is handled.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithOnSettled sets a callback run once after a burst of files has been handled
// and no further file arrived within the debounce window.
func WithOnSettled(fn func()) Option {
	return func(w *Watcher) { w.onSettled = fn }
}

// NewWatcher creates a watcher for dir. onFile is called with each settled file.
func NewWatcher(dir string, onFile func(path string), opts ...Option) *Watcher {
	w := &Watcher{
		dir:         filepath.Clean(dir),
		onFile:      onFile,
		debounce:    defaultDebounce,
		logger:      zap.NewNop(),
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Start creates the directory if needed and starts watching. It runs until ctx is
// cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return err
	}
	w.watcher = fw
	w.started = true
	w.logger.Debug("watcher starting",
		zap.String("dir", w.dir),
		zap.Strings("extensions", w.extensions),
		zap.Duration("debounce", w.debounce))
	go w.run(ctx, fw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if filepath.Dir(path) != w.dir || !matchExtension(path, w.extensions) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return
		}
		w.debounceFile(path)
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.cancelDebounce(path)
	}
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) debounceFile(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()

		w.logger.Debug("watcher handling file", zap.String("path", path))
		if w.onFile != nil {
			w.onFile(path)
		}
		w.markHandled()
	})
}

// markHandled schedules onSettled once no file is waiting on its debounce timer.
func (w *Watcher) markHandled() {
	if w.onSettled == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	w.pending++
	if w.settle != nil {
		w.settle.Stop()
	}
	w.settle = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if len(w.debounceMap) > 0 {
			// More files are still settling; they reschedule us when done.
			w.mu.Unlock()
			return
		}
		n := w.pending
		w.pending = 0
		w.settle = nil
		w.mu.Unlock()

		w.logger.Debug("watcher settled", zap.Int("files", n))
		w.onSettled()
	})
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

// SyncExistingFiles hands every matching file already in the directory to onFile,
// in name order, then runs onSettled once if anything was handled.
func (w *Watcher) SyncExistingFiles() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("watcher failed to read directory", zap.String("dir", w.dir), zap.Error(err))
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && matchExtension(e.Name(), w.extensions) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	w.logger.Debug("watcher syncing existing files", zap.String("dir", w.dir), zap.Int("files", len(names)))
	for _, name := range names {
		if w.onFile != nil {
			w.onFile(filepath.Join(w.dir, name))
		}
	}
	if len(names) > 0 && w.onSettled != nil {
		w.onSettled()
	}
}

// Stop stops the watcher and releases resources. Pending files are dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	if w.settle != nil {
		w.settle.Stop()
		w.settle = nil
	}
	_ = w.watcher.Close()
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
