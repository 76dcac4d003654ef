package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rgoodwin/cotflow/pkg/models"
)

func TestEvalExpression(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"1+2", 3},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"10 % 3", 1},
		{"-5 + 3", -2},
		{"2 * (3 + (4 - 1))", 12},
		{"1.5 + 2.5", 4},
	}
	for _, tt := range tests {
		got, err := EvalExpression(tt.expr)
		if err != nil {
			t.Errorf("EvalExpression(%q) failed: %v", tt.expr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("EvalExpression(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestEvalExpressionErrors(t *testing.T) {
	for _, expr := range []string{"1/0", "5 % 0", "(1+2", "1 + ", "abc", "1 2"} {
		if _, err := EvalExpression(expr); err == nil {
			t.Errorf("EvalExpression(%q) should fail", expr)
		}
	}
}

func TestExtractExpressions(t *testing.T) {
	exprs := ExtractExpressions("Calculate 2 + 3 * 4 and also 10/2 please")
	if len(exprs) != 2 {
		t.Fatalf("extracted %d expressions, want 2: %v", len(exprs), exprs)
	}
	if !strings.Contains(exprs[0], "2 + 3 * 4") {
		t.Errorf("first expression = %q", exprs[0])
	}
}

func TestExtractExpressionsIgnoresPlainNumbers(t *testing.T) {
	if exprs := ExtractExpressions("meet at 10 on floor 3"); len(exprs) != 0 {
		t.Errorf("expected no expressions, got %v", exprs)
	}
}

func TestLocalRunMath(t *testing.T) {
	l := NewLocal()
	res, err := l.Run(context.Background(), &models.Todo{ID: "m", Content: "Calculate 6 * 7"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Kind != KindMath {
		t.Errorf("Kind = %q, want %q", res.Kind, KindMath)
	}
	if !strings.Contains(res.Output, "= 42") {
		t.Errorf("Output = %q, want it to contain the result 42", res.Output)
	}
}

func TestLocalRunMathFailure(t *testing.T) {
	l := NewLocal()
	_, err := l.Run(context.Background(), &models.Todo{ID: "m", Content: "Calculate 1/0"})
	if err == nil {
		t.Fatal("expected execution error for division by zero")
	}
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecutionError, got %T", err)
	}
	if execErr.TodoID != "m" {
		t.Errorf("TodoID = %q, want m", execErr.TodoID)
	}
}

func TestLocalRunRouting(t *testing.T) {
	l := NewLocal()
	tests := []struct {
		content string
		kind    string
	}{
		{"Create a summary file of the results", KindFile},
		{"Research relevant information and context", KindResearch},
		{"Plan and prioritize the milestones", KindPlanning},
		{"Greet the user politely", KindGeneric},
	}
	for _, tt := range tests {
		res, err := l.Run(context.Background(), &models.Todo{ID: "x", Content: tt.content})
		if err != nil {
			t.Errorf("Run(%q) failed: %v", tt.content, err)
			continue
		}
		if res.Kind != tt.kind {
			t.Errorf("Run(%q) kind = %q, want %q", tt.content, res.Kind, tt.kind)
		}
	}
}

func TestLocalRunCancelled(t *testing.T) {
	l := NewLocal()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Run(ctx, &models.Todo{ID: "c", Content: "anything"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// blockingExecutor holds Run until released, to exercise the guard.
type blockingExecutor struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingExecutor) Run(ctx context.Context, todo *models.Todo) (*Result, error) {
	close(b.started)
	<-b.release
	return &Result{Kind: KindGeneric, Output: "ok"}, nil
}

func TestGuardRejectsConcurrentRun(t *testing.T) {
	inner := &blockingExecutor{started: make(chan struct{}), release: make(chan struct{})}
	g := NewGuard(inner)
	todo := &models.Todo{ID: "dup", Content: "x"}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := g.Run(context.Background(), todo); err != nil {
			t.Errorf("first Run failed: %v", err)
		}
	}()

	select {
	case <-inner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first Run never started")
	}

	if _, err := g.Run(context.Background(), todo); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run: got %v, want ErrAlreadyRunning", err)
	}

	close(inner.release)
	wg.Wait()

	// After completion the todo may run again.
	inner.started = make(chan struct{})
	inner.release = make(chan struct{})
	close(inner.release)
	if _, err := g.Run(context.Background(), todo); err != nil {
		t.Errorf("Run after completion failed: %v", err)
	}
}
