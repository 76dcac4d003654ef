package reasoning

import (
	"context"
	"strings"
	"testing"
)

func TestParseTraceStepHeadings(t *testing.T) {
	trace := `## Step 1: Understand the problem
Think about what is being asked.
Action: Analyze the query

## Step 2: Solve it
Apply the approach.
Action: Implement the solution`

	steps := ParseTrace(trace)
	if len(steps) != 2 {
		t.Fatalf("step count = %d, want 2", len(steps))
	}
	if steps[0].Index != 0 || steps[1].Index != 1 {
		t.Error("step indexes should follow trace order")
	}
	if !strings.Contains(steps[0].Reasoning, "Action: Analyze the query") {
		t.Errorf("step 0 reasoning missing action line: %q", steps[0].Reasoning)
	}
	if !strings.HasPrefix(steps[1].Description, "## Step 2") {
		t.Errorf("step 1 description = %q", steps[1].Description)
	}
}

func TestParseTracePlainStepHeadings(t *testing.T) {
	trace := "Step 1: do a thing\ndetails here\nStep 2: do another"
	steps := ParseTrace(trace)
	if len(steps) != 2 {
		t.Fatalf("step count = %d, want 2", len(steps))
	}
}

func TestParseTraceActionLineFallback(t *testing.T) {
	trace := `Here is the breakdown.
Action: first task
Some prose in between.
Action: second task`

	steps := ParseTrace(trace)
	if len(steps) != 2 {
		t.Fatalf("step count = %d, want 2", len(steps))
	}
	if steps[0].Description != "Action: first task" {
		t.Errorf("step 0 description = %q", steps[0].Description)
	}
}

func TestParseTraceEmpty(t *testing.T) {
	if steps := ParseTrace(""); len(steps) != 0 {
		t.Errorf("expected no steps from empty trace, got %d", len(steps))
	}
	if steps := ParseTrace("just prose with no structure"); len(steps) != 0 {
		t.Errorf("expected no steps from unstructured prose, got %d", len(steps))
	}
}

func TestHeuristicMathQuery(t *testing.T) {
	h := NewHeuristic()
	steps, err := h.GenerateSteps(context.Background(), "calculate 2 + 3 * 4", "")
	if err != nil {
		t.Fatalf("GenerateSteps failed: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("step count = %d, want 2 (calculate + verify)", len(steps))
	}
	if !strings.Contains(steps[0].Reasoning, "Action: Calculate") {
		t.Errorf("first step missing calculate action: %q", steps[0].Reasoning)
	}
	if !strings.Contains(steps[1].Reasoning, "Action: Verify") {
		t.Errorf("second step missing verify action: %q", steps[1].Reasoning)
	}
}

func TestHeuristicSimpleMathSkipsVerification(t *testing.T) {
	h := NewHeuristic()
	steps, err := h.GenerateSteps(context.Background(), "1+2", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 1 {
		t.Errorf("step count = %d, want 1 for a simple expression", len(steps))
	}
}

func TestHeuristicPlanningQuery(t *testing.T) {
	h := NewHeuristic()
	steps, err := h.GenerateSteps(context.Background(), "plan a birthday party", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 4 {
		t.Fatalf("step count = %d, want 4", len(steps))
	}
	if !strings.Contains(steps[0].Reasoning, "Action: Research") {
		t.Errorf("first planning step = %q", steps[0].Reasoning)
	}
}

func TestHeuristicGenericQuery(t *testing.T) {
	h := NewHeuristic()
	steps, err := h.GenerateSteps(context.Background(), "tell me about lighthouses", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 4 {
		t.Fatalf("step count = %d, want 4", len(steps))
	}
}

func TestHeuristicAnalyzeDeterministic(t *testing.T) {
	h := NewHeuristic()
	req := AnalyzeRequest{TodoContent: "do the thing", Feedback: "it broke"}
	first, err := h.Analyze(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := h.Analyze(context.Background(), req)
	if first != second {
		t.Error("heuristic analysis should be deterministic")
	}
	if !strings.Contains(first, "- ") {
		t.Error("analysis should contain bullet suggestions")
	}
}
