package models

import "time"

// TodoStatus represents the current state of a todo.
type TodoStatus string

const (
	// TodoStatusPending indicates the todo is waiting on dependencies.
	TodoStatusPending TodoStatus = "pending"
	// TodoStatusReady indicates every dependency has completed.
	TodoStatusReady TodoStatus = "ready"
	// TodoStatusInProgress indicates the todo is being executed.
	TodoStatusInProgress TodoStatus = "in_progress"
	// TodoStatusCompleted indicates the todo finished successfully.
	TodoStatusCompleted TodoStatus = "completed"
	// TodoStatusFailed indicates execution failed.
	TodoStatusFailed TodoStatus = "failed"
	// TodoStatusBlocked indicates a transitive dependency failed or regressed.
	TodoStatusBlocked TodoStatus = "blocked"
)

// Valid returns true if the status is a known value.
func (s TodoStatus) Valid() bool {
	switch s {
	case TodoStatusPending, TodoStatusReady, TodoStatusInProgress,
		TodoStatusCompleted, TodoStatusFailed, TodoStatusBlocked:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status never advances on its own.
// Failed and completed todos only move again through a manual reopen.
func (s TodoStatus) Terminal() bool {
	return s == TodoStatusCompleted || s == TodoStatusFailed
}

// FeedbackSource identifies where a feedback entry came from.
type FeedbackSource string

const (
	// FeedbackAuto is feedback captured from execution results.
	FeedbackAuto FeedbackSource = "auto"
	// FeedbackManual is feedback supplied by a human between iterations.
	FeedbackManual FeedbackSource = "manual"
)

// FeedbackEntry is a single annotation attached to a todo.
type FeedbackEntry struct {
	// ID is the unique identifier for this entry.
	ID string `json:"id"`
	// Text is the feedback message.
	Text string `json:"text"`
	// Source is auto (execution result) or manual.
	Source FeedbackSource `json:"source"`
	// CreatedAt is when the entry was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// Todo represents an atomic unit of work derived from a reasoning step.
type Todo struct {
	// ID is the unique identifier, assigned at creation and immutable.
	ID string `json:"id"`
	// Content is the human-readable description of the task.
	Content string `json:"content"`
	// Status is the current lifecycle state.
	Status TodoStatus `json:"status"`
	// Priority orders todos for reporting (1 = highest).
	Priority int `json:"priority,omitempty"`
	// Dependencies lists todo IDs that must complete before this todo runs.
	Dependencies []string `json:"dependencies,omitempty"`
	// Reasoning is the chain-of-thought text this todo was derived from.
	Reasoning string `json:"reasoning,omitempty"`
	// Feedback is the ordered sequence of feedback entries.
	Feedback []FeedbackEntry `json:"feedback,omitempty"`
	// CreatedAt is when the todo was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the todo last changed.
	UpdatedAt time.Time `json:"updated_at"`
	// CompletedAt is when the todo completed, if it did.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// LastFeedback returns the most recent feedback entry, or nil if none exists.
func (t *Todo) LastFeedback() *FeedbackEntry {
	if len(t.Feedback) == 0 {
		return nil
	}
	return &t.Feedback[len(t.Feedback)-1]
}
