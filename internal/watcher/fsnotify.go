package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/flextoolbar/internal/logging"
)

// ConfigWatcher watches a small set of config files.
type ConfigWatcher struct {
	mu sync.RWMutex

	watcher *fsnotify.Watcher
	config  Config
	logger  *logging.Logger

	// files are the config paths being reported.
	files map[string]bool
	// dirs counts the files watched through each parent directory.
	dirs map[string]int

	debounce *debouncer

	totalEvents int64
	totalErrors int64

	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// Option configures a ConfigWatcher.
type Option func(*ConfigWatcher)

// WithDebounceDelay sets the debounce delay.
func WithDebounceDelay(d time.Duration) Option {
	return func(w *ConfigWatcher) {
		w.config.DebounceDelay = d
	}
}

// WithIncludeChmod delivers permission-only changes.
func WithIncludeChmod(include bool) Option {
	return func(w *ConfigWatcher) {
		w.config.IncludeChmod = include
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(w *ConfigWatcher) {
		w.logger = logging.OrNop(logger).WithComponent("watcher")
	}
}

// New creates a watcher that calls handler for every coalesced change to a
// watched config file.
func New(handler Handler, opts ...Option) (*ConfigWatcher, error) {
	if handler == nil {
		handler = func(Event) {}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &ConfigWatcher{
		watcher: fsw,
		config:  DefaultConfig(),
		logger:  logging.Nop(),
		files:   make(map[string]bool),
		dirs:    make(map[string]int),
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debounce = newDebouncer(w.config.DebounceDelay, func(e Event) {
		atomic.AddInt64(&w.totalEvents, 1)
		w.logger.Debug("%s %s", e.Op, e.Path)
		handler(e)
	})

	w.closedWg.Add(1)
	go w.processLoop()

	return w, nil
}

// SetPaths replaces the watched config files. Empty paths are skipped. A file
// whose directory does not exist is remembered but cannot be watched; the
// returned error joins every such failure.
func (w *ConfigWatcher) SetPaths(paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}

	next := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		next[abs] = true
	}

	for file := range w.files {
		if !next[file] {
			w.unwatchFile(file)
		}
	}

	var errs []error
	for file := range next {
		if w.files[file] {
			continue
		}
		if err := w.watchFile(file); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// watchFile adds file and its parent directory. w.mu must be held.
func (w *ConfigWatcher) watchFile(file string) error {
	w.files[file] = true

	dir := filepath.Dir(file)
	if w.dirs[dir] > 0 {
		w.dirs[dir]++
		return nil
	}

	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return &PathError{Path: dir, Err: ErrPathNotExist}
		}
		return &PathError{Path: dir, Err: err}
	}
	if err := w.watcher.Add(dir); err != nil {
		return &PathError{Path: dir, Err: err}
	}
	w.dirs[dir] = 1
	return nil
}

// unwatchFile removes file, dropping its directory when no other watched
// file lives there. w.mu must be held.
func (w *ConfigWatcher) unwatchFile(file string) {
	delete(w.files, file)
	w.debounce.drop(file)

	dir := filepath.Dir(file)
	n, ok := w.dirs[dir]
	if !ok {
		return
	}
	if n > 1 {
		w.dirs[dir] = n - 1
		return
	}
	delete(w.dirs, dir)
	if err := w.watcher.Remove(dir); err != nil {
		w.logger.Debug("remove %s: %v", dir, err)
	}
}

// Paths returns the watched config files, sorted.
func (w *ConfigWatcher) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	paths := make([]string, 0, len(w.files))
	for p := range w.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// IsWatching returns true if path is a watched config file.
func (w *ConfigWatcher) IsWatching(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.files[abs]
}

// Flush delivers pending events immediately.
func (w *ConfigWatcher) Flush() {
	w.debounce.flush()
}

// Stats returns watcher statistics.
func (w *ConfigWatcher) Stats() Stats {
	w.mu.RLock()
	files, dirs := len(w.files), len(w.dirs)
	w.mu.RUnlock()

	return Stats{
		WatchedFiles:  files,
		WatchedDirs:   dirs,
		PendingEvents: w.debounce.pendingCount(),
		TotalEvents:   atomic.LoadInt64(&w.totalEvents),
		Errors:        atomic.LoadInt64(&w.totalErrors),
	}
}

// Close stops the watcher. Pending events are discarded.
func (w *ConfigWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.debounce.close()
	w.closedWg.Wait()

	return w.watcher.Close()
}

func (w *ConfigWatcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case fsEvent, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(fsEvent)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			atomic.AddInt64(&w.totalErrors, 1)
			w.logger.Warn("watch error: %v", err)
		}
	}
}

func (w *ConfigWatcher) handleFSEvent(fsEvent fsnotify.Event) {
	op := convertOp(fsEvent.Op)
	if op == 0 {
		return
	}
	if op == OpChmod && !w.config.IncludeChmod {
		return
	}

	path := filepath.Clean(fsEvent.Name)
	if !w.IsWatching(path) {
		return
	}

	w.debounce.add(Event{Path: path, Op: op, Timestamp: time.Now()})
}

// convertOp converts fsnotify.Op to watcher.Op.
func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	if fsOp.Has(fsnotify.Chmod) {
		op |= OpChmod
	}
	return op
}

// Stats provides watcher status information.
type Stats struct {
	WatchedFiles  int
	WatchedDirs   int
	PendingEvents int
	TotalEvents   int64
	Errors        int64
}

// PathError records a directory that could not be watched.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return "watch " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}
