package engine

import (
	"time"

	"github.com/rgoodwin/cotflow/pkg/models"
)

// EventType identifies the kind of engine event.
type EventType string

const (
	// EventProcessStarted fires when a process begins its first iteration.
	EventProcessStarted EventType = "process_started"
	// EventTodosCreated fires after a synthesis pass registers new todos.
	EventTodosCreated EventType = "todos_created"
	// EventIterationStarted fires at the top of each iteration.
	EventIterationStarted EventType = "iteration_started"
	// EventTodoStarted fires when a todo moves to in_progress.
	EventTodoStarted EventType = "todo_started"
	// EventTodoCompleted fires when a todo completes.
	EventTodoCompleted EventType = "todo_completed"
	// EventTodoFailed fires when a todo execution fails.
	EventTodoFailed EventType = "todo_failed"
	// EventProcessFinished fires once the process reaches a terminal status.
	EventProcessFinished EventType = "process_finished"
)

// Event is a progress notification emitted during a process run.
// Consumers (CLI output, TUI) receive events on a buffered channel;
// a slow consumer drops events rather than stalling the run.
type Event struct {
	Type      EventType
	ProcessID string
	TodoID    string
	Message   string
	Iteration int
	Status    models.ProcessStatus
	Timestamp time.Time
}

// emitEvent sends an event without blocking.
func (e *Engine) emitEvent(ev Event) {
	if e.events == nil {
		return
	}
	ev.Timestamp = time.Now()
	select {
	case e.events <- ev:
	default:
		e.logger.Log("[events] dropped %s event for process %s", ev.Type, ev.ProcessID)
	}
}
