// Package graph provides the dependency graph for todo scheduling.
package graph

import (
	"errors"
	"sync"

	"github.com/rgoodwin/cotflow/pkg/models"
)

// ErrCycleDetected indicates an edge would introduce a circular dependency.
var ErrCycleDetected = errors.New("circular dependency detected")

// ErrDuplicateID indicates a node with the same ID already exists.
var ErrDuplicateID = errors.New("duplicate todo id")

// ErrUnknownNode indicates a referenced todo ID is not in the graph.
var ErrUnknownNode = errors.New("unknown todo id")

// Graph is a directed acyclic graph of todo dependencies.
// Todos are nodes, and an edge A->B means "A depends on B completing first".
// Insertion order is preserved so traversals are deterministic.
type Graph struct {
	mu sync.RWMutex
	// nodes maps todo ID to the todo itself.
	nodes map[string]*models.Todo
	// order records node IDs in insertion order.
	order []string
	// edges maps todo ID to the IDs it depends on.
	edges map[string][]string
}

// New creates a new empty dependency graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*models.Todo),
		edges: make(map[string][]string),
	}
}

// AddNode registers a todo as a graph node.
// Returns ErrDuplicateID if a node with the same ID exists.
func (g *Graph) AddNode(todo *models.Todo) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[todo.ID]; exists {
		return ErrDuplicateID
	}
	g.nodes[todo.ID] = todo
	g.order = append(g.order, todo.ID)
	g.edges[todo.ID] = nil
	return nil
}

// AddEdge records that from depends on to.
// Returns ErrUnknownNode if either endpoint is absent, and ErrCycleDetected
// if the edge would close a cycle. The graph is unchanged on rejection.
func (g *Graph) AddEdge(from, to string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[from]; !exists {
		return ErrUnknownNode
	}
	if _, exists := g.nodes[to]; !exists {
		return ErrUnknownNode
	}
	// A self-edge or any path from to back to from would close a cycle.
	if from == to || g.reachableLocked(to, from) {
		return ErrCycleDetected
	}
	g.edges[from] = append(g.edges[from], to)
	return nil
}

// reachableLocked reports whether dst is reachable from src by following
// dependency edges. Assumes the lock is held.
func (g *Graph) reachableLocked(src, dst string) bool {
	seen := make(map[string]bool)
	stack := []string{src}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == dst {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		stack = append(stack, g.edges[id]...)
	}
	return false
}

// Node returns the todo for a given ID, or nil if not found.
func (g *Graph) Node(id string) *models.Todo {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

// Size returns the number of todos in the graph.
func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// IDs returns all node IDs in insertion order.
func (g *Graph) IDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, len(g.order))
	copy(ids, g.order)
	return ids
}

// Dependencies returns the IDs the given todo depends on.
func (g *Graph) Dependencies(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	deps := make([]string, len(g.edges[id]))
	copy(deps, g.edges[id])
	return deps
}

// Dependents returns, in insertion order, the IDs of todos that directly
// depend on the given todo.
func (g *Graph) Dependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dependentsLocked(id)
}

func (g *Graph) dependentsLocked(id string) []string {
	var dependents []string
	for _, candidate := range g.order {
		for _, depID := range g.edges[candidate] {
			if depID == id {
				dependents = append(dependents, candidate)
				break
			}
		}
	}
	return dependents
}

// TransitiveDependents returns, in insertion order, every todo that depends
// on the given todo directly or through other todos.
func (g *Graph) TransitiveDependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	reached := make(map[string]bool)
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dep := range g.dependentsLocked(current) {
			if !reached[dep] {
				reached[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	var result []string
	for _, candidate := range g.order {
		if reached[candidate] {
			result = append(result, candidate)
		}
	}
	return result
}

// ReadySet returns, in insertion order, the IDs of todos whose dependencies
// have all completed and whose own status is pending or ready.
// A todo with no dependencies is a candidate for the first ready set.
func (g *Graph) ReadySet() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []string
	for _, id := range g.order {
		todo := g.nodes[id]
		if todo.Status != models.TodoStatusPending && todo.Status != models.TodoStatusReady {
			continue
		}
		if g.depsCompletedLocked(id) {
			ready = append(ready, id)
		}
	}
	return ready
}

// DepsCompleted reports whether every dependency of the todo has completed.
func (g *Graph) DepsCompleted(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.depsCompletedLocked(id)
}

func (g *Graph) depsCompletedLocked(id string) bool {
	for _, depID := range g.edges[id] {
		dep, exists := g.nodes[depID]
		if !exists || dep.Status != models.TodoStatusCompleted {
			return false
		}
	}
	return true
}

// HasCycle returns true if the graph contains a circular dependency.
// Uses depth-first search with coloring to detect back edges.
// AddEdge rejects cycle-forming edges, so this is a consistency check.
func (g *Graph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1

		for _, depID := range g.edges[id] {
			switch colors[depID] {
			case 1:
				// Found a back edge.
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}

		colors[id] = 2
		return false
	}

	for _, id := range g.order {
		if colors[id] == 0 {
			if visit(id) {
				return true
			}
		}
	}
	return false
}
