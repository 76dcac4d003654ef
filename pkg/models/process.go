package models

import "time"

// ProcessStatus represents the state of one end-to-end query run.
type ProcessStatus string

const (
	// ProcessRunning indicates the iteration loop is active.
	ProcessRunning ProcessStatus = "running"
	// ProcessCompleted indicates every todo completed.
	ProcessCompleted ProcessStatus = "completed"
	// ProcessFailed indicates no progress is possible.
	ProcessFailed ProcessStatus = "failed"
	// ProcessMaxIterations indicates the iteration budget ran out.
	// This is a defined terminal outcome, not an error.
	ProcessMaxIterations ProcessStatus = "max_iterations_reached"
)

// Valid returns true if the status is a known value.
func (s ProcessStatus) Valid() bool {
	switch s {
	case ProcessRunning, ProcessCompleted, ProcessFailed, ProcessMaxIterations:
		return true
	default:
		return false
	}
}

// Terminal returns true if the process will not iterate again.
func (s ProcessStatus) Terminal() bool {
	return s != ProcessRunning
}

// TodoSnapshot is the read-only view of a todo exposed to persistence
// and reporting code.
type TodoSnapshot struct {
	ID           string          `json:"id" yaml:"id"`
	Content      string          `json:"content" yaml:"content"`
	Status       TodoStatus      `json:"status" yaml:"status"`
	Priority     int             `json:"priority,omitempty" yaml:"priority,omitempty"`
	Dependencies []string        `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Feedback     []FeedbackEntry `json:"feedback,omitempty" yaml:"feedback,omitempty"`
}

// ProcessSnapshot is the structurally stable, read-only view of a process.
// Todos appear in insertion order.
type ProcessSnapshot struct {
	ProcessID      string         `json:"process_id" yaml:"process_id"`
	Query          string         `json:"query" yaml:"query"`
	Status         ProcessStatus  `json:"status" yaml:"status"`
	IterationCount int            `json:"iteration_count" yaml:"iteration_count"`
	Todos          []TodoSnapshot `json:"todos" yaml:"todos"`
	CreatedAt      time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" yaml:"updated_at"`
}
