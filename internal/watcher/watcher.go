// Package watcher observes opened documents on disk so the library can flag
// files that were moved or deleted outside the application.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Handler receives transitions for watched document paths.
type Handler interface {
	// DocumentMissing is called when a watched file disappears.
	DocumentMissing(path string)
	// DocumentRestored is called when a previously missing file returns.
	DocumentRestored(path string)
}

// Watcher tracks document files via their parent directories. Editors save
// with rename-and-replace, so watching the directory catches both genuine
// deletes and atomic rewrites; the debounce window separates the two.
type Watcher struct {
	fs       *fsnotify.Watcher
	handler  Handler
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	files   map[string]bool        // watched file path -> currently missing
	dirs    map[string]int         // watched dir -> file refcount
	pending map[string]*time.Timer // debounce timers per file path

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher. A non-positive debounce falls back to the default.
// Call Start to begin dispatching events.
func New(handler Handler, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	return &Watcher{
		fs:       fs,
		handler:  handler,
		logger:   logger,
		debounce: debounce,
		files:    map[string]bool{},
		dirs:     map[string]int{},
		pending:  map[string]*time.Timer{},
		done:     make(chan struct{}),
	}, nil
}

// Start launches the event loop.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.run()
}

// Add registers a document path for observation. The parent directory is
// what actually gets the inotify watch. Adding the same path twice is a
// no-op.
func (w *Watcher) Add(path string) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, watched := w.files[path]; watched {
		return nil
	}

	if w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[path] = false

	w.logger.Debug("watching document", "path", path)
	return nil
}

// Remove stops observing a document path.
func (w *Watcher) Remove(path string) {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, watched := w.files[path]; !watched {
		return
	}
	delete(w.files, path)

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
		delete(w.pending, path)
	}

	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		_ = w.fs.Remove(dir)
	}
}

// Close stops the event loop and releases the underlying watcher.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()

	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watch error", "error", err)
		}
	}
}

// handleEvent schedules a debounced recheck for any event touching a watched
// path. The decision about missing versus restored happens after the window,
// from the filesystem itself, not from the event type: a rename-and-replace
// save emits Remove then Create within milliseconds.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, watched := w.files[path]; !watched {
		return
	}

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.recheck(path)
	})
}

func (w *Watcher) recheck(path string) {
	_, statErr := os.Stat(path)
	missing := os.IsNotExist(statErr)

	w.mu.Lock()
	wasMissing, watched := w.files[path]
	if watched {
		w.files[path] = missing
	}
	delete(w.pending, path)
	w.mu.Unlock()

	if !watched || missing == wasMissing {
		return
	}

	if missing {
		w.logger.Info("document went missing", "path", path)
		w.handler.DocumentMissing(path)
	} else {
		w.logger.Info("document restored", "path", path)
		w.handler.DocumentRestored(path)
	}
}
