// Package watcher reports changes to a fixed set of files, such as the SCIP
// index a long-lived engine serves from.
package watcher

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// Event represents a file system event
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// ChangeHandler is called with each debounced batch of events.
type ChangeHandler func(events []Event)

// Config contains watcher configuration
type Config struct {
	DebounceMs int `json:"debounceMs" mapstructure:"debounceMs"`
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{DebounceMs: 250}
}

// Watcher watches individual files. It subscribes to their parent
// directories so files replaced by rename keep being observed.
type Watcher struct {
	config  Config
	logger  *slog.Logger
	handler ChangeHandler
	fs      *fsnotify.Watcher
	batch   *BatchDebouncer

	mu      sync.Mutex
	files   map[string]bool
	dirs    map[string]bool
	started bool
	stopped bool
	done    chan struct{}
	emits   sync.WaitGroup
}

// New creates a watcher. Call Watch for each file, then Start.
func New(config Config, logger *slog.Logger, handler ChangeHandler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if config.DebounceMs <= 0 {
		config.DebounceMs = DefaultConfig().DebounceMs
	}
	w := &Watcher{
		config:  config,
		logger:  logger,
		handler: handler,
		fs:      fsw,
		files:   make(map[string]bool),
		dirs:    make(map[string]bool),
		done:    make(chan struct{}),
	}
	w.batch = NewBatchDebouncer(time.Duration(config.DebounceMs)*time.Millisecond, w.emit)
	return w, nil
}

// Watch adds a file. The file need not exist yet; its directory must.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return fmt.Errorf("watch %s: watcher stopped", abs)
	}
	if !w.dirs[dir] {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	w.files[abs] = true
	w.logger.Debug("Watching file", "path", abs)
	return nil
}

// Watched returns the watched files in sorted order.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Start begins delivering events.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true
	go w.loop()
}

// Stop releases the watcher and waits for in-flight handlers. It is safe to
// call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	started := w.started
	w.mu.Unlock()

	err := w.fs.Close()
	if started {
		<-w.done
	}
	w.batch.Cancel()
	w.emits.Wait()
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", "error", err.Error())
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	w.mu.Lock()
	watched := w.files[path]
	w.mu.Unlock()
	if !watched {
		return
	}
	typ, ok := eventType(ev.Op)
	if !ok {
		return
	}
	w.batch.Add(Event{Type: typ, Path: path, Timestamp: time.Now()})
}

func eventType(op fsnotify.Op) (EventType, bool) {
	switch {
	case op.Has(fsnotify.Write):
		return EventModify, true
	case op.Has(fsnotify.Create):
		return EventCreate, true
	case op.Has(fsnotify.Remove):
		return EventDelete, true
	case op.Has(fsnotify.Rename):
		return EventRename, true
	}
	return 0, false
}

// emit runs on the debouncer's timer goroutine.
func (w *Watcher) emit(events []Event) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.emits.Add(1)
	w.mu.Unlock()
	defer w.emits.Done()

	w.logger.Debug("Watched files changed", "events", len(events))
	if w.handler != nil {
		w.handler(events)
	}
}
