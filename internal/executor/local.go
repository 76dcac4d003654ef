package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/rgoodwin/cotflow/pkg/models"
)

// Execution route names.
const (
	KindMath     = "math_calculation"
	KindFile     = "file_operation"
	KindResearch = "research"
	KindPlanning = "planning"
	KindGeneric  = "generic"
)

// Local executes todos in-process by routing on their content. Arithmetic
// is evaluated; the remaining categories summarize the work they represent.
type Local struct{}

// NewLocal creates a local executor.
func NewLocal() *Local {
	return &Local{}
}

// Run executes one todo. Context cancellation aborts before any work so the
// todo stays at its last stable status.
func (l *Local) Run(ctx context.Context, todo *models.Todo) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	content := strings.ToLower(todo.Content)
	switch {
	case isMathTodo(todo.Content):
		return l.runMath(todo)
	case containsAny(content, "create", "write", "save", "file"):
		return &Result{
			Kind:     KindFile,
			Output:   "File operation identified; artifacts would be written by the configured storage backend.",
			Feedback: "File operation processed",
		}, nil
	case containsAny(content, "research", "find", "search", "gather", "analyze"):
		return &Result{
			Kind:     KindResearch,
			Output:   fmt.Sprintf("Collected context for: %s", todo.Content),
			Feedback: "Research todo processed",
		}, nil
	case containsAny(content, "plan", "organize", "schedule", "prioritize"):
		return &Result{
			Kind:     KindPlanning,
			Output:   fmt.Sprintf("Structured plan outline for: %s", todo.Content),
			Feedback: "Planning todo processed",
		}, nil
	default:
		return &Result{
			Kind:     KindGeneric,
			Output:   fmt.Sprintf("Completed: %s", todo.Content),
			Feedback: "Todo completed successfully",
		}, nil
	}
}

// isMathTodo mirrors the routing heuristics: an explicit digit-operator
// pattern, or math keywords alongside operator characters.
func isMathTodo(content string) bool {
	if operatorBetweenNumbers.MatchString(content) {
		return true
	}
	lower := strings.ToLower(content)
	hasKeyword := containsAny(lower, "calculate", "compute", "solve", "math")
	hasOperator := strings.ContainsAny(content, "+-*/=()")
	return hasKeyword && hasOperator
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// runMath evaluates every arithmetic expression found in the todo content.
// All expressions failing is an execution failure; a todo that routed to
// math without a parseable expression gets guidance instead.
func (l *Local) runMath(todo *models.Todo) (*Result, error) {
	exprs := ExtractExpressions(todo.Content)
	if len(exprs) == 0 {
		return &Result{
			Kind:     KindMath,
			Output:   "Math todo identified but no clear expressions found. Consider breaking it down into specific calculations.",
			Feedback: "Todo appears to be math-related but needs more specific expressions",
		}, nil
	}

	var lines []string
	failures := 0
	for _, expr := range exprs {
		value, err := EvalExpression(expr)
		if err != nil {
			failures++
			lines = append(lines, fmt.Sprintf("%s -> error: %v", expr, err))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s = %s", expr, formatNumber(value)))
	}

	output := strings.Join(lines, "\n")
	if failures == len(exprs) {
		return nil, &ExecutionError{
			TodoID: todo.ID,
			Reason: fmt.Sprintf("all %d expression(s) failed to evaluate: %s", failures, output),
		}
	}

	return &Result{
		Kind:     KindMath,
		Output:   output,
		Feedback: fmt.Sprintf("Calculated %d expression(s)", len(exprs)-failures),
	}, nil
}
