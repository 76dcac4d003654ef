package reasoning

import (
	"strings"
	"time"

	"github.com/rgoodwin/cotflow/pkg/models"
)

// ParseTrace splits a reasoning response into ordered steps. Steps are
// delimited by "## Step" or "Step N" headings; lines between headings
// accumulate into the current step's reasoning. A trace without headings
// falls back to one step per "Action:" line so unformatted responses still
// yield work.
func ParseTrace(trace string) []models.ReasoningStep {
	var steps []models.ReasoningStep
	now := time.Now()

	var current *models.ReasoningStep
	flush := func() {
		if current != nil {
			steps = append(steps, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(trace, "\n") {
		line = strings.TrimSpace(line)
		if isStepHeading(line) {
			flush()
			current = &models.ReasoningStep{
				Index:       len(steps),
				Description: line,
				Reasoning:   line,
				CreatedAt:   now,
			}
			continue
		}
		if current != nil && line != "" {
			current.Reasoning += "\n" + line
		}
	}
	flush()

	if len(steps) > 0 {
		return steps
	}
	return actionLineSteps(trace, now)
}

func isStepHeading(line string) bool {
	return strings.HasPrefix(line, "Step ") || strings.HasPrefix(line, "## Step")
}

// actionLineSteps builds one step per "Action:" line.
func actionLineSteps(trace string, now time.Time) []models.ReasoningStep {
	var steps []models.ReasoningStep
	for _, line := range strings.Split(trace, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(line), "action:") {
			steps = append(steps, models.ReasoningStep{
				Index:       len(steps),
				Description: line,
				Reasoning:   line,
				CreatedAt:   now,
			})
		}
	}
	return steps
}
