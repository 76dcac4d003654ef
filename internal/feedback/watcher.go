// Package feedback delivers manual feedback to a running process through a
// drop directory. A human writes a file named after the todo ID into
// .cotflow/feedback/ and the watcher applies its contents as manual
// feedback; a stop file under .cotflow/signals/ asks the run to wind down.
package feedback

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rgoodwin/cotflow/pkg/models"
)

// Sink receives the feedback collected by the watcher. *engine.Process
// satisfies this.
type Sink interface {
	AddFeedback(todoID, text string) (*models.Todo, error)
}

// Watcher monitors the project's .cotflow directory for feedback files and
// stop signals.
type Watcher struct {
	cotflowDir string
	sink       Sink

	// Logf receives diagnostic messages; nil disables logging.
	Logf func(format string, args ...interface{})

	mu         sync.RWMutex
	stopSignal bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher creates a watcher rooted at projectPath/.cotflow. Feedback
// files already present are applied immediately. If the fsnotify watcher
// cannot be set up the Watcher still works through Drain and ShouldStop
// polling.
func NewWatcher(projectPath string, sink Sink) (*Watcher, error) {
	cotflowDir := filepath.Join(projectPath, ".cotflow")

	dirs := []string{
		filepath.Join(cotflowDir, "feedback"),
		filepath.Join(cotflowDir, "signals"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	w := &Watcher{
		cotflowDir: cotflowDir,
		sink:       sink,
		done:       make(chan struct{}),
	}

	// Apply anything dropped before the run started.
	w.Drain()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Continue without watcher - callers poll via Drain/ShouldStop
		return w, nil
	}
	w.watcher = watcher

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			w.watcher = nil
			return w, nil
		}
	}

	go w.watchEvents()

	return w, nil
}

// watchEvents applies feedback files and records stop signals as they land.
func (w *Watcher) watchEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == 0 && event.Op&fsnotify.Write == 0 {
				continue
			}
			switch filepath.Dir(event.Name) {
			case filepath.Join(w.cotflowDir, "feedback"):
				w.applyFile(event.Name)
			case filepath.Join(w.cotflowDir, "signals"):
				if filepath.Base(event.Name) == "stop" {
					w.mu.Lock()
					w.stopSignal = true
					w.mu.Unlock()
				}
			}
		case <-w.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// Drain applies every feedback file currently in the drop directory.
// Used at startup and as a polling fallback when fsnotify is unavailable.
func (w *Watcher) Drain() {
	dir := filepath.Join(w.cotflowDir, "feedback")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.applyFile(filepath.Join(dir, entry.Name()))
	}
}

// applyFile reads one feedback file and hands it to the sink. The file name
// minus extension is the todo ID. Applied files are removed; files for
// unknown todos are left in place so the author can fix the name.
func (w *Watcher) applyFile(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		return
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		return
	}

	base := filepath.Base(path)
	todoID := strings.TrimSuffix(base, filepath.Ext(base))

	if _, err := w.sink.AddFeedback(todoID, text); err != nil {
		w.logf("feedback file %s not applied: %v", base, err)
		return
	}
	w.logf("applied manual feedback to todo %s", todoID)
	os.Remove(path)
}

// ShouldStop returns true once a stop signal has been received.
func (w *Watcher) ShouldStop() bool {
	// Also check file directly in case watcher missed it
	stopPath := filepath.Join(w.cotflowDir, "signals", "stop")
	if _, err := os.Stat(stopPath); err == nil {
		w.mu.Lock()
		w.stopSignal = true
		w.mu.Unlock()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stopSignal
}

// ClearSignals removes the stop file and resets signal state.
func (w *Watcher) ClearSignals() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopSignal = false
	os.Remove(filepath.Join(w.cotflowDir, "signals", "stop"))
}

// Close shuts the watcher down.
func (w *Watcher) Close() {
	close(w.done)
	if w.watcher != nil {
		w.watcher.Close()
	}
}

func (w *Watcher) logf(format string, args ...interface{}) {
	if w.Logf != nil {
		w.Logf(format, args...)
	}
}

// SendStop creates a stop signal file under projectPath/.cotflow.
func SendStop(projectPath string) error {
	dir := filepath.Join(projectPath, ".cotflow", "signals")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "stop"), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// Send drops a feedback file for the given todo, to be picked up by a
// running watcher.
func Send(projectPath, todoID, text string) error {
	dir := filepath.Join(projectPath, ".cotflow", "feedback")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, todoID+".txt"), []byte(text), 0644)
}
