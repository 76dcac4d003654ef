package graph

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/rgoodwin/cotflow/pkg/models"
)

func newTodo(id string, status models.TodoStatus) *models.Todo {
	return &models.Todo{ID: id, Content: "todo " + id, Status: status}
}

func TestAddNodeDuplicate(t *testing.T) {
	g := New()
	if err := g.AddNode(newTodo("a", models.TodoStatusPending)); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	err := g.AddNode(newTodo("a", models.TodoStatusPending))
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
	if g.Size() != 1 {
		t.Errorf("Size = %d, want 1", g.Size())
	}
}

func TestAddEdgeUnknownNode(t *testing.T) {
	g := New()
	if err := g.AddNode(newTodo("a", models.TodoStatusPending)); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}

	if err := g.AddEdge("a", "missing"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode for missing target, got %v", err)
	}
	if err := g.AddEdge("missing", "a"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode for missing source, got %v", err)
	}
	if deps := g.Dependencies("a"); len(deps) != 0 {
		t.Errorf("graph changed after rejected edge: deps = %v", deps)
	}
}

func TestAddEdgeSelfCycle(t *testing.T) {
	g := New()
	if err := g.AddNode(newTodo("a", models.TodoStatusPending)); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}

	if err := g.AddEdge("a", "a"); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected for self edge, got %v", err)
	}
	if deps := g.Dependencies("a"); len(deps) != 0 {
		t.Errorf("graph changed after rejected self edge: deps = %v", deps)
	}
}

func TestAddEdgeRejectsCycleAndLeavesGraphUnchanged(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		if err := g.AddNode(newTodo(id, models.TodoStatusPending)); err != nil {
			t.Fatalf("AddNode(%s) failed: %v", id, err)
		}
	}
	// c -> b -> a
	if err := g.AddEdge("b", "a"); err != nil {
		t.Fatalf("AddEdge(b, a) failed: %v", err)
	}
	if err := g.AddEdge("c", "b"); err != nil {
		t.Fatalf("AddEdge(c, b) failed: %v", err)
	}

	// a -> c would close the cycle a -> c -> b -> a.
	if err := g.AddEdge("a", "c"); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected, got %v", err)
	}
	if deps := g.Dependencies("a"); len(deps) != 0 {
		t.Errorf("deps of a changed after rejected edge: %v", deps)
	}
	if g.HasCycle() {
		t.Error("graph should remain acyclic after rejected edge")
	}
}

func TestAcyclicUnderEdgeSequences(t *testing.T) {
	g := New()
	const n = 8
	for i := 0; i < n; i++ {
		if err := g.AddNode(newTodo(fmt.Sprintf("n%d", i), models.TodoStatusPending)); err != nil {
			t.Fatalf("AddNode failed: %v", err)
		}
	}

	// Try every ordered pair; some insertions succeed, the rest must be
	// rejected without ever leaving a cycle behind.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			err := g.AddEdge(fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", j))
			if err != nil && !errors.Is(err, ErrCycleDetected) {
				t.Fatalf("unexpected error: %v", err)
			}
			if g.HasCycle() {
				t.Fatalf("cycle present after AddEdge(n%d, n%d)", i, j)
			}
		}
	}
}

func TestReadySetInsertionOrder(t *testing.T) {
	g := New()
	// b inserted before a, both ready candidates.
	if err := g.AddNode(newTodo("b", models.TodoStatusPending)); err != nil {
		t.Fatal(err)
	}
	if err := g.AddNode(newTodo("a", models.TodoStatusPending)); err != nil {
		t.Fatal(err)
	}

	got := g.ReadySet()
	want := []string{"b", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadySet = %v, want %v", got, want)
	}
}

func TestReadySetExcludesIncompleteDependencies(t *testing.T) {
	g := New()
	a := newTodo("a", models.TodoStatusPending)
	b := newTodo("b", models.TodoStatusPending)
	if err := g.AddNode(a); err != nil {
		t.Fatal(err)
	}
	if err := g.AddNode(b); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge("b", "a"); err != nil {
		t.Fatal(err)
	}

	got := g.ReadySet()
	if !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("ReadySet = %v, want [a]", got)
	}

	a.Status = models.TodoStatusCompleted
	got = g.ReadySet()
	if !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("ReadySet after completing a = %v, want [b]", got)
	}
}

func TestReadySetSkipsNonPendingStatuses(t *testing.T) {
	g := New()
	for _, tc := range []struct {
		id     string
		status models.TodoStatus
	}{
		{"running", models.TodoStatusInProgress},
		{"done", models.TodoStatusCompleted},
		{"broken", models.TodoStatusFailed},
		{"stuck", models.TodoStatusBlocked},
		{"open", models.TodoStatusPending},
	} {
		if err := g.AddNode(newTodo(tc.id, tc.status)); err != nil {
			t.Fatal(err)
		}
	}

	got := g.ReadySet()
	if !reflect.DeepEqual(got, []string{"open"}) {
		t.Errorf("ReadySet = %v, want [open]", got)
	}
}

func TestDependentsAndTransitiveDependents(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c", "d"} {
		if err := g.AddNode(newTodo(id, models.TodoStatusPending)); err != nil {
			t.Fatal(err)
		}
	}
	// b -> a, c -> b, d -> a
	for _, e := range [][2]string{{"b", "a"}, {"c", "b"}, {"d", "a"}} {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatal(err)
		}
	}

	if got := g.Dependents("a"); !reflect.DeepEqual(got, []string{"b", "d"}) {
		t.Errorf("Dependents(a) = %v, want [b d]", got)
	}
	if got := g.TransitiveDependents("a"); !reflect.DeepEqual(got, []string{"b", "c", "d"}) {
		t.Errorf("TransitiveDependents(a) = %v, want [b c d]", got)
	}
	if got := g.TransitiveDependents("c"); len(got) != 0 {
		t.Errorf("TransitiveDependents(c) = %v, want empty", got)
	}
}

func TestBatches(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c", "d"} {
		if err := g.AddNode(newTodo(id, models.TodoStatusPending)); err != nil {
			t.Fatal(err)
		}
	}
	// b -> a, c -> a, d -> b and d -> c.
	for _, e := range [][2]string{{"b", "a"}, {"c", "a"}, {"d", "b"}, {"d", "c"}} {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatal(err)
		}
	}

	it := g.Batches()
	want := [][]string{{"a"}, {"b", "c"}, {"d"}}
	for i, expected := range want {
		batch, ok := it.Next()
		if !ok {
			t.Fatalf("batch %d missing", i)
		}
		if !reflect.DeepEqual(batch, expected) {
			t.Errorf("batch %d = %v, want %v", i, batch, expected)
		}
	}
	if batch, ok := it.Next(); ok {
		t.Errorf("expected exhausted iterator, got %v", batch)
	}
}

func TestBatchesRestart(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b"} {
		if err := g.AddNode(newTodo(id, models.TodoStatusPending)); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.AddEdge("b", "a"); err != nil {
		t.Fatal(err)
	}

	it := g.Batches()
	first, _ := it.Next()
	it.Reset()
	again, ok := it.Next()
	if !ok {
		t.Fatal("iterator did not restart")
	}
	if !reflect.DeepEqual(first, again) {
		t.Errorf("restarted first batch = %v, want %v", again, first)
	}
}

func TestBatchesEmptyGraph(t *testing.T) {
	it := New().Batches()
	if batch, ok := it.Next(); ok {
		t.Errorf("expected no batches on empty graph, got %v", batch)
	}
}
