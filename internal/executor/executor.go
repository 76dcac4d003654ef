// Package executor runs individual todos and reports results as feedback
// text. The local executor routes on todo content; arithmetic is evaluated
// for real, other categories produce structured result text.
package executor

import (
	"context"
	"fmt"

	"github.com/rgoodwin/cotflow/pkg/models"
)

// Result is the outcome of one todo execution.
type Result struct {
	// Kind names the execution route that handled the todo.
	Kind string
	// Output is the result text.
	Output string
	// Feedback is the annotation recorded on the todo.
	Feedback string
}

// ExecutionError reports a failed execution. The process loop records it as
// feedback and marks the todo failed; it never crashes the process.
type ExecutionError struct {
	TodoID string
	Reason string
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("execute todo %s: %s: %v", e.TodoID, e.Reason, e.Err)
	}
	return fmt.Sprintf("execute todo %s: %s", e.TodoID, e.Reason)
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Executor is the execution collaborator consumed by the process loop.
// Run is invoked at most once per ready todo per iteration.
type Executor interface {
	Run(ctx context.Context, todo *models.Todo) (*Result, error)
}
