package reasoning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rgoodwin/cotflow/pkg/models"
)

// Heuristic is a deterministic reasoning producer used when no API access
// is available or the remote service keeps failing. It classifies the query
// and emits a fixed decomposition for the detected category.
type Heuristic struct{}

// NewHeuristic creates a heuristic reasoning producer.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// GenerateSteps classifies the query and returns a canned decomposition.
func (h *Heuristic) GenerateSteps(_ context.Context, query, _ string) ([]models.ReasoningStep, error) {
	switch {
	case looksLikeMath(query):
		return mathSteps(query), nil
	case looksLikePlanning(query):
		return planningSteps(), nil
	default:
		return genericSteps(), nil
	}
}

// Analyze returns fixed remediation suggestions; without a model there is
// nothing smarter to say than "decompose and retry".
func (h *Heuristic) Analyze(_ context.Context, req AnalyzeRequest) (string, error) {
	return fmt.Sprintf("Execution feedback for %q:\n- Break the failed work into smaller steps\n- Add a verification todo for the result\n",
		req.TodoContent), nil
}

func looksLikeMath(query string) bool {
	for _, op := range []string{"+", "-", "*", "/", "="} {
		if strings.Contains(query, op) {
			return true
		}
	}
	lower := strings.ToLower(query)
	return strings.Contains(lower, "calculate") || strings.Contains(lower, "compute")
}

func looksLikePlanning(query string) bool {
	lower := strings.ToLower(query)
	for _, word := range []string{"plan", "organize", "schedule", "prepare"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func mathSteps(query string) []models.ReasoningStep {
	expr := strings.TrimSpace(query)
	expr = strings.TrimSuffix(expr, "=")
	expr = strings.TrimSpace(expr)

	steps := []models.ReasoningStep{
		buildStep(0, "Evaluate the expression",
			fmt.Sprintf("Perform mathematical calculation: %s\nAction: Calculate %s", expr, expr)),
	}
	if isComplexExpression(expr) {
		steps = append(steps, buildStep(1, "Check the result",
			fmt.Sprintf("Double-check the calculation for accuracy\nAction: Verify calculation result for %s", expr)))
	}
	return steps
}

func isComplexExpression(expr string) bool {
	if len(strings.Fields(expr)) > 3 {
		return true
	}
	for _, op := range []string{"*", "/", "(", ")"} {
		if strings.Contains(expr, op) {
			return true
		}
	}
	return false
}

func planningSteps() []models.ReasoningStep {
	return []models.ReasoningStep{
		buildStep(0, "Research", "Good planning starts with thorough research\nAction: Research and gather information about the topic"),
		buildStep(1, "Decompose", "Decomposing complex plans makes them manageable\nAction: Break down the plan into major components"),
		buildStep(2, "Prioritize", "Prioritization and timing are key to successful execution\nAction: Set priorities and establish timeline"),
		buildStep(3, "Detail", "Specific actions make plans actionable\nAction: Create detailed action items for each component"),
	}
}

func genericSteps() []models.ReasoningStep {
	return []models.ReasoningStep{
		buildStep(0, "Understand", "Understanding the core request is essential\nAction: Analyze and understand the request"),
		buildStep(1, "Research", "Background research provides necessary context\nAction: Research relevant information and context"),
		buildStep(2, "Approach", "A systematic approach ensures comprehensive coverage\nAction: Develop a structured approach to address the request"),
		buildStep(3, "Implement", "Step-by-step implementation reduces complexity\nAction: Implement the solution step by step"),
	}
}

func buildStep(index int, description, reasoning string) models.ReasoningStep {
	return models.ReasoningStep{
		Index:       index,
		Description: fmt.Sprintf("Step %d: %s", index+1, description),
		Reasoning:   reasoning,
		CreatedAt:   time.Now(),
	}
}
