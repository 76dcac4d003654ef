package models

import "time"

// ReasoningStep is one step of a chain-of-thought trace.
// A step derives zero or more todos; todos never reference steps back.
type ReasoningStep struct {
	// Index is the position of the step in the trace, starting at 0.
	Index int `json:"index"`
	// Description is the short step heading.
	Description string `json:"description"`
	// Reasoning is the full reasoning text for this step.
	Reasoning string `json:"reasoning"`
	// DerivedTodoIDs links to todos created from this step.
	DerivedTodoIDs []string `json:"derived_todo_ids,omitempty"`
	// CreatedAt is when the step was recorded.
	CreatedAt time.Time `json:"created_at"`
}
