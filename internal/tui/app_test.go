package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rgoodwin/cotflow/internal/engine"
	"github.com/rgoodwin/cotflow/pkg/models"
)

func TestViewShowsTodoStatuses(t *testing.T) {
	app := New("calculate things")
	app.Update(SnapshotMsg{Snapshot: models.ProcessSnapshot{
		Todos: []models.TodoSnapshot{
			{ID: "aaaaaaaa-1111", Content: "first todo", Status: models.TodoStatusCompleted},
			{ID: "bbbbbbbb-2222", Content: "second todo", Status: models.TodoStatusFailed},
			{ID: "cccccccc-3333", Content: "third todo", Status: models.TodoStatusBlocked},
		},
	}})

	view := app.View()
	for _, want := range []string{"calculate things", "first todo", iconCompleted, iconFailed, iconBlocked} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewEmptyTodoSet(t *testing.T) {
	app := New("q")
	if !strings.Contains(app.View(), "no todos yet") {
		t.Error("empty view should say no todos yet")
	}
}

func TestHandleEventLogsAndIteration(t *testing.T) {
	app := New("q")
	app.Update(EngineEventMsg{Event: engine.Event{
		Type:      engine.EventIterationStarted,
		Iteration: 3,
		Message:   "2 ready todo(s)",
		Timestamp: time.Now(),
	}})

	if app.iteration != 3 {
		t.Errorf("iteration = %d, want 3", app.iteration)
	}
	view := app.View()
	if !strings.Contains(view, "iteration 3") {
		t.Error("view missing iteration counter")
	}
}

func TestDoneMsgRendersFinalStatus(t *testing.T) {
	app := New("q")
	app.Update(DoneMsg{Status: models.ProcessCompleted})

	view := app.View()
	if !strings.Contains(view, string(models.ProcessCompleted)) {
		t.Error("view missing final status")
	}
	if !strings.Contains(view, "q to quit") {
		t.Error("done view should offer quit")
	}
}

func TestQuitKey(t *testing.T) {
	app := New("q")
	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should produce a quit command")
	}
	if view := model.View(); view != "" {
		t.Errorf("quitting view = %q, want empty", view)
	}
}
