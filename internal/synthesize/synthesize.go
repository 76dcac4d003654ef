// Package synthesize converts chain-of-thought reasoning steps into todo
// specifications and registers them with the todo manager.
package synthesize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rgoodwin/cotflow/internal/manager"
	"github.com/rgoodwin/cotflow/pkg/models"
)

// Spec describes a todo to be created. DependsOn entries are either existing
// todo IDs or local references of the form "#N", pointing at the Nth spec of
// the same batch.
type Spec struct {
	Content   string
	DependsOn []string
	Reasoning string
	Priority  int
	StepIndex int
}

// FromSteps maps reasoning steps to todo specs. Each step yields one todo;
// steps form a linear chain, so step N depends on the todo derived from
// step N-1.
func FromSteps(steps []models.ReasoningStep) []Spec {
	specs := make([]Spec, 0, len(steps))
	for i, step := range steps {
		spec := Spec{
			Content:   extractContent(step),
			Reasoning: step.Reasoning,
			Priority:  i + 1,
			StepIndex: step.Index,
		}
		if i > 0 {
			spec.DependsOn = []string{localRef(i - 1)}
		}
		specs = append(specs, spec)
	}
	return specs
}

// localRef builds a batch-local dependency reference.
func localRef(index int) string {
	return "#" + strconv.Itoa(index)
}

// Register creates todos for the given specs. A spec whose dependencies are
// unknown, cyclic, or point at a spec that was itself discarded is skipped;
// the returned failures describe each skipped spec. Registration of one spec
// never aborts the batch.
func Register(m *manager.Manager, specs []Spec) (created []*models.Todo, failures []error) {
	created, _, failures = register(m, specs)
	return created, failures
}

// RegisterSteps converts steps to specs, registers them, and writes each
// created todo ID back onto the step it derived from, so the trace keeps its
// step-to-todo links.
func RegisterSteps(m *manager.Manager, steps []models.ReasoningStep) (created []*models.Todo, failures []error) {
	created, ids, failures := register(m, FromSteps(steps))
	// FromSteps yields one spec per step, in step order.
	for i := range steps {
		if i < len(ids) && ids[i] != "" {
			steps[i].DerivedTodoIDs = append(steps[i].DerivedTodoIDs, ids[i])
		}
	}
	return created, failures
}

func register(m *manager.Manager, specs []Spec) (created []*models.Todo, ids []string, failures []error) {
	// ids maps batch index to the created todo ID, or "" when discarded.
	ids = make([]string, len(specs))

	for i, spec := range specs {
		deps, err := resolveDeps(spec.DependsOn, ids, i)
		if err != nil {
			failures = append(failures, fmt.Errorf("spec %d (%q): %w", i, spec.Content, err))
			continue
		}

		todo, err := m.Create(spec.Content, deps, manager.CreateOptions{
			Priority:  spec.Priority,
			Reasoning: spec.Reasoning,
		})
		if err != nil {
			failures = append(failures, fmt.Errorf("spec %d (%q): %w", i, spec.Content, err))
			continue
		}
		ids[i] = todo.ID
		created = append(created, todo)
	}
	return created, ids, failures
}

// resolveDeps rewrites local "#N" references to real todo IDs.
func resolveDeps(deps []string, ids []string, current int) ([]string, error) {
	var resolved []string
	for _, dep := range deps {
		if !strings.HasPrefix(dep, "#") {
			resolved = append(resolved, dep)
			continue
		}
		index, err := strconv.Atoi(dep[1:])
		if err != nil || index < 0 || index >= current {
			return nil, fmt.Errorf("invalid local reference %q", dep)
		}
		if ids[index] == "" {
			return nil, fmt.Errorf("local reference %q points at a discarded spec", dep)
		}
		resolved = append(resolved, ids[index])
	}
	return resolved, nil
}

// extractContent pulls the actionable line out of a step. Lines marked with
// an action keyword win; otherwise the first substantial line is used, and
// the description is the last resort.
func extractContent(step models.ReasoningStep) string {
	keywords := []string{"action:", "todo:", "task:", "do:", "create:", "implement:"}

	for _, line := range strings.Split(step.Reasoning, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		for _, kw := range keywords {
			if strings.HasPrefix(lower, kw) {
				content := strings.TrimSpace(line[len(kw):])
				if content != "" {
					return content
				}
			}
		}
	}

	for _, line := range strings.Split(step.Reasoning, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 10 && !strings.HasPrefix(line, "#") {
			return line
		}
	}

	if step.Description != "" {
		return step.Description
	}
	return truncate(step.Reasoning, 100)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// ParseSuggestions extracts improvement suggestions from a feedback
// analysis. Bullet lines and lines mentioning a suggestion or
// recommendation are kept.
func ParseSuggestions(analysis string) []string {
	var suggestions []string
	for _, line := range strings.Split(analysis, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
			suggestions = append(suggestions, strings.TrimSpace(line[2:]))
		case strings.Contains(strings.ToLower(line), "suggest"),
			strings.Contains(strings.ToLower(line), "recommend"):
			suggestions = append(suggestions, line)
		}
	}
	return suggestions
}

// ActionableSuggestions filters suggestions down to ones that imply new
// work rather than commentary.
func ActionableSuggestions(suggestions []string) []string {
	var actionable []string
	for _, s := range suggestions {
		lower := strings.ToLower(s)
		for _, kw := range []string{"create", "add", "new", "implement", "break"} {
			if strings.Contains(lower, kw) {
				actionable = append(actionable, s)
				break
			}
		}
	}
	return actionable
}
