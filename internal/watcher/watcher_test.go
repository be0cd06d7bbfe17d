package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"symnav/internal/slogutil"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventCreate, "create"},
		{EventModify, "modify"},
		{EventDelete, "delete"},
		{EventRename, "rename"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.eventType.String()
			if got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.DebounceMs != 250 {
		t.Errorf("DebounceMs = %d, want 250", config.DebounceMs)
	}
}

func TestWatcherDeliversChanges(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "index.scip")
	if err := os.WriteFile(target, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := make(chan []Event, 4)
	w, err := New(Config{DebounceMs: 20}, slogutil.NewDiscardLogger(), func(events []Event) {
		got <- events
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()

	if err := w.Watch(target); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	w.Start()

	// An unwatched sibling must not trigger the handler.
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Replace the watched file the way index writers do.
	tmp := filepath.Join(dir, "index.scip.tmp")
	if err := os.WriteFile(tmp, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, target); err != nil {
		t.Fatal(err)
	}

	select {
	case events := <-got:
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1 collapsed event", len(events))
		}
		if events[0].Path != filepath.Clean(target) {
			t.Errorf("Path = %q, want %q", events[0].Path, target)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
	}
}

func TestWatcherWatched(t *testing.T) {
	dir := t.TempDir()
	w, err := New(DefaultConfig(), slogutil.NewDiscardLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for _, name := range []string{"b.scip", "a.scip", "a.scip"} {
		if err := w.Watch(filepath.Join(dir, name)); err != nil {
			t.Fatalf("Watch(%s) error = %v", name, err)
		}
	}
	watched := w.Watched()
	if len(watched) != 2 || filepath.Base(watched[0]) != "a.scip" {
		t.Errorf("Watched() = %v", watched)
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	w, err := New(DefaultConfig(), slogutil.NewDiscardLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.Watch(filepath.Join(t.TempDir(), "missing", "index.scip")); err == nil {
		t.Error("Watch() should fail when the directory does not exist")
	}
}

func TestWatcherStopIdempotent(t *testing.T) {
	w, err := New(DefaultConfig(), slogutil.NewDiscardLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	w.Start()
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	if err := w.Watch(t.TempDir()); err == nil {
		t.Error("Watch() after Stop() should fail")
	}
}

func TestWatcherStopWithoutStart(t *testing.T) {
	w, err := New(DefaultConfig(), slogutil.NewDiscardLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestNewBatchDebouncer(t *testing.T) {
	emit := func(events []Event) {}
	b := NewBatchDebouncer(100*time.Millisecond, emit)

	if b == nil {
		t.Fatal("NewBatchDebouncer() returned nil")
	}
	if b.delay != 100*time.Millisecond {
		t.Errorf("delay = %v, want 100ms", b.delay)
	}
	if b.events == nil {
		t.Error("events should be initialized")
	}
}

func TestBatchDebouncerAdd(t *testing.T) {
	received := make(chan []Event, 1)
	b := NewBatchDebouncer(50*time.Millisecond, func(events []Event) {
		received <- events
	})

	b.Add(Event{Type: EventCreate, Path: "file1.cs"})
	b.Add(Event{Type: EventModify, Path: "file2.cs"})
	b.Add(Event{Type: EventDelete, Path: "file3.cs"})

	if b.EventCount() != 3 {
		t.Errorf("EventCount() = %d, want 3", b.EventCount())
	}

	select {
	case events := <-received:
		if len(events) != 3 {
			t.Errorf("Should have received 3 events, got %d", len(events))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("batch not emitted")
	}
}

func TestBatchDebouncerCollapsesPath(t *testing.T) {
	b := NewBatchDebouncer(time.Hour, nil)
	defer b.Cancel()

	b.Add(Event{Type: EventCreate, Path: "index.scip"})
	b.Add(Event{Type: EventModify, Path: "index.scip"})

	if b.EventCount() != 1 {
		t.Errorf("EventCount() = %d, want 1", b.EventCount())
	}
}

func TestBatchDebouncerCancel(t *testing.T) {
	var called bool
	var mu sync.Mutex

	emit := func(events []Event) {
		mu.Lock()
		called = true
		mu.Unlock()
	}

	b := NewBatchDebouncer(50*time.Millisecond, emit)
	b.Add(Event{Type: EventCreate, Path: "file.cs"})
	b.Cancel()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	if called {
		t.Error("Emit should not be called after cancel")
	}
	mu.Unlock()

	if b.EventCount() != 0 {
		t.Errorf("EventCount() = %d, want 0 after cancel", b.EventCount())
	}
}

func TestBatchDebouncerFlush(t *testing.T) {
	var received []Event
	var mu sync.Mutex

	emit := func(events []Event) {
		mu.Lock()
		received = events
		mu.Unlock()
	}

	b := NewBatchDebouncer(500*time.Millisecond, emit)
	b.Add(Event{Type: EventCreate, Path: "file.cs"})
	b.Flush()

	mu.Lock()
	if len(received) != 1 {
		t.Errorf("Should have received 1 event, got %d", len(received))
	}
	mu.Unlock()

	if b.EventCount() != 0 {
		t.Errorf("EventCount() = %d, want 0 after flush", b.EventCount())
	}
}

func TestBatchDebouncerNoEmitWithNoEvents(t *testing.T) {
	var called bool
	var mu sync.Mutex

	emit := func(events []Event) {
		mu.Lock()
		called = true
		mu.Unlock()
	}

	b := NewBatchDebouncer(10*time.Millisecond, emit)
	b.Flush()

	mu.Lock()
	if called {
		t.Error("Emit should not be called with no events")
	}
	mu.Unlock()
}
