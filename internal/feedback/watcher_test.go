package feedback

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rgoodwin/cotflow/pkg/models"
)

// recordingSink collects applied feedback.
type recordingSink struct {
	mu      sync.Mutex
	applied map[string]string
	reject  bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{applied: make(map[string]string)}
}

func (s *recordingSink) AddFeedback(todoID, text string) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject {
		return nil, os.ErrNotExist
	}
	s.applied[todoID] = text
	return &models.Todo{ID: todoID}, nil
}

func (s *recordingSink) get(todoID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.applied[todoID]
	return text, ok
}

func TestWatcherDrainsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := Send(dir, "todo-1", "rework: redo this"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	sink := newRecordingSink()
	w, err := NewWatcher(dir, sink)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	text, ok := sink.get("todo-1")
	if !ok {
		t.Fatal("pre-existing feedback file not applied")
	}
	if text != "rework: redo this" {
		t.Errorf("applied text = %q", text)
	}

	// Applied files are consumed.
	path := filepath.Join(dir, ".cotflow", "feedback", "todo-1.txt")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("feedback file not removed after apply")
	}
}

func TestWatcherPicksUpDroppedFile(t *testing.T) {
	dir := t.TempDir()
	sink := newRecordingSink()
	w, err := NewWatcher(dir, sink)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if err := Send(dir, "todo-2", "looks wrong"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := sink.get("todo-2"); ok {
			return
		}
		// Drain covers the no-fsnotify fallback.
		w.Drain()
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("dropped feedback file never applied")
}

func TestDrainAppliesFilesWithoutFsnotify(t *testing.T) {
	dir := t.TempDir()
	sink := newRecordingSink()

	// A watcher without an fsnotify backend relies entirely on Drain.
	w := &Watcher{
		cotflowDir: filepath.Join(dir, ".cotflow"),
		sink:       sink,
		done:       make(chan struct{}),
	}
	if err := os.MkdirAll(filepath.Join(dir, ".cotflow", "feedback"), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	if err := Send(dir, "todo-9", "rework: wrong total"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if _, ok := sink.get("todo-9"); ok {
		t.Fatal("feedback applied before Drain")
	}

	w.Drain()
	text, ok := sink.get("todo-9")
	if !ok {
		t.Fatal("Drain did not apply the dropped file")
	}
	if text != "rework: wrong total" {
		t.Errorf("applied text = %q", text)
	}
}

func TestWatcherKeepsRejectedFile(t *testing.T) {
	dir := t.TempDir()
	sink := newRecordingSink()
	sink.reject = true

	if err := Send(dir, "unknown", "text"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	w, err := NewWatcher(dir, sink)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	path := filepath.Join(dir, ".cotflow", "feedback", "unknown.txt")
	if _, err := os.Stat(path); err != nil {
		t.Error("rejected feedback file should remain for correction")
	}
}

func TestWatcherIgnoresEmptyFile(t *testing.T) {
	dir := t.TempDir()
	sink := newRecordingSink()
	w, err := NewWatcher(dir, sink)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	path := filepath.Join(dir, ".cotflow", "feedback", "todo-3.txt")
	if err := os.WriteFile(path, []byte("   \n"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	w.Drain()

	if _, ok := sink.get("todo-3"); ok {
		t.Error("whitespace-only feedback should not be applied")
	}
}

func TestStopSignal(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, newRecordingSink())
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if w.ShouldStop() {
		t.Fatal("stop signalled before SendStop")
	}
	if err := SendStop(dir); err != nil {
		t.Fatalf("SendStop failed: %v", err)
	}
	if !w.ShouldStop() {
		t.Fatal("ShouldStop false after SendStop")
	}

	w.ClearSignals()
	if w.ShouldStop() {
		t.Error("stop still signalled after ClearSignals")
	}
}
