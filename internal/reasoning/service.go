// Package reasoning produces chain-of-thought reasoning steps for a query.
// The default producer calls the Anthropic API directly or through AWS
// Bedrock; a deterministic heuristic producer covers offline use.
package reasoning

import (
	"context"
	"errors"

	"github.com/rgoodwin/cotflow/pkg/models"
)

// ErrUnavailable indicates the reasoning service could not be reached.
// Callers decide whether the failure is retryable.
var ErrUnavailable = errors.New("reasoning service unavailable")

// AnalyzeRequest carries the context for a feedback analysis.
type AnalyzeRequest struct {
	// TodoContent is the content of the todo being analyzed.
	TodoContent string
	// TodoStatus is the todo's status at analysis time.
	TodoStatus string
	// Feedback is the feedback text that triggered the analysis.
	Feedback string
	// CurrentTodos is the deterministic summary of the whole todo set.
	CurrentTodos string
}

// Service is the reasoning collaborator consumed by the process loop.
type Service interface {
	// GenerateSteps returns an ordered reasoning trace for the query.
	// Returns ErrUnavailable (wrapped) on transport or auth failure.
	GenerateSteps(ctx context.Context, query, todoContext string) ([]models.ReasoningStep, error)

	// Analyze reviews execution feedback and returns improvement text.
	Analyze(ctx context.Context, req AnalyzeRequest) (string, error)
}
