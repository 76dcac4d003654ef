// Package manager owns a process's todo set. It wraps the dependency graph
// with status-transition rules and feedback application, and is the single
// point of mutation for todos.
package manager

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rgoodwin/cotflow/internal/graph"
	"github.com/rgoodwin/cotflow/pkg/models"
)

// ErrInvalidTransition indicates a status change that the lifecycle forbids.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrNotFound indicates the todo ID does not exist.
var ErrNotFound = errors.New("todo not found")

// reworkPrefix is the directive that reopens a completed or failed todo.
// Only manual feedback starting with this prefix (case-insensitive) triggers
// a reopen; feedback text is never otherwise interpreted.
const reworkPrefix = "rework:"

// CreateOptions carries optional fields for Create.
type CreateOptions struct {
	// Priority orders todos for reporting (1 = highest). Zero means unset.
	Priority int
	// Reasoning is the chain-of-thought text the todo was derived from.
	Reasoning string
}

// Manager enforces the todo lifecycle over a dependency graph.
// All methods are safe for concurrent use; manual feedback may arrive
// while the process loop is mutating statuses.
type Manager struct {
	mu    sync.Mutex
	graph *graph.Graph
}

// New creates an empty Manager.
func New() *Manager {
	return &Manager{graph: graph.New()}
}

// Create validates dependencies, assigns an ID, and registers a new todo.
// The initial status is ready when the dependency set is empty (or already
// satisfied), pending otherwise. Registration is all-or-nothing: if any
// dependency is unknown, nothing is added.
func (m *Manager) Create(content string, deps []string, opts CreateOptions) (*models.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate every dependency before touching the graph.
	for _, depID := range deps {
		if m.graph.Node(depID) == nil {
			return nil, fmt.Errorf("dependency %s: %w", depID, graph.ErrUnknownNode)
		}
	}

	now := time.Now()
	todo := &models.Todo{
		ID:           uuid.New().String(),
		Content:      content,
		Status:       models.TodoStatusPending,
		Priority:     opts.Priority,
		Dependencies: append([]string(nil), deps...),
		Reasoning:    opts.Reasoning,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := m.graph.AddNode(todo); err != nil {
		return nil, err
	}
	for _, depID := range deps {
		// A fresh node has no dependents, so these edges cannot close a
		// cycle, and both endpoints were just validated.
		if err := m.graph.AddEdge(todo.ID, depID); err != nil {
			return nil, err
		}
	}

	todo.Status = m.deriveStatusLocked(todo.ID)
	return todo, nil
}

// Get returns the todo for the given ID.
func (m *Manager) Get(id string) (*models.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	todo := m.graph.Node(id)
	if todo == nil {
		return nil, ErrNotFound
	}
	return todo, nil
}

// MarkInProgress transitions a todo from ready to in_progress.
func (m *Manager) MarkInProgress(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	todo := m.graph.Node(id)
	if todo == nil {
		return ErrNotFound
	}
	if todo.Status != models.TodoStatusReady {
		return fmt.Errorf("%w: %s -> in_progress", ErrInvalidTransition, todo.Status)
	}
	todo.Status = models.TodoStatusInProgress
	todo.UpdatedAt = time.Now()
	return nil
}

// MarkCompleted transitions a todo from in_progress to completed and
// recomputes the status of its dependents.
func (m *Manager) MarkCompleted(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	todo := m.graph.Node(id)
	if todo == nil {
		return ErrNotFound
	}
	if todo.Status != models.TodoStatusInProgress {
		return fmt.Errorf("%w: %s -> completed", ErrInvalidTransition, todo.Status)
	}
	now := time.Now()
	todo.Status = models.TodoStatusCompleted
	todo.UpdatedAt = now
	todo.CompletedAt = &now

	m.recomputeDependentsLocked(id)
	return nil
}

// MarkFailed transitions a todo from in_progress to failed, records the
// reason as auto feedback, and cascades blocked to transitive dependents.
func (m *Manager) MarkFailed(id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	todo := m.graph.Node(id)
	if todo == nil {
		return ErrNotFound
	}
	if todo.Status != models.TodoStatusInProgress {
		return fmt.Errorf("%w: %s -> failed", ErrInvalidTransition, todo.Status)
	}
	now := time.Now()
	todo.Status = models.TodoStatusFailed
	todo.UpdatedAt = now
	if reason != "" {
		m.appendFeedbackLocked(todo, reason, models.FeedbackAuto)
	}

	m.recomputeDependentsLocked(id)
	return nil
}

// Requeue returns an interrupted in_progress todo to its resting status so a
// later pass picks it up again. No feedback is recorded: the execution never
// produced a result.
func (m *Manager) Requeue(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	todo := m.graph.Node(id)
	if todo == nil {
		return ErrNotFound
	}
	if todo.Status != models.TodoStatusInProgress {
		return fmt.Errorf("%w: %s -> ready", ErrInvalidTransition, todo.Status)
	}
	todo.Status = m.deriveStatusLocked(todo.ID)
	todo.UpdatedAt = time.Now()
	return nil
}

// ApplyFeedback appends a feedback entry to the todo. Manual feedback that
// carries the rework directive reopens a completed or failed todo and
// re-blocks everything downstream of it.
func (m *Manager) ApplyFeedback(id, text string, source models.FeedbackSource) (*models.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	todo := m.graph.Node(id)
	if todo == nil {
		return nil, ErrNotFound
	}
	m.appendFeedbackLocked(todo, text, source)

	if source == models.FeedbackManual && isReworkDirective(text) && todo.Status.Terminal() {
		if err := m.reopenLocked(todo); err != nil {
			return nil, err
		}
	}
	return todo, nil
}

// appendFeedbackLocked records a feedback entry. Assumes the lock is held.
func (m *Manager) appendFeedbackLocked(todo *models.Todo, text string, source models.FeedbackSource) {
	now := time.Now()
	todo.Feedback = append(todo.Feedback, models.FeedbackEntry{
		ID:        uuid.New().String(),
		Text:      text,
		Source:    source,
		CreatedAt: now,
	})
	todo.UpdatedAt = now
}

// isReworkDirective reports whether manual feedback asks for a reopen.
func isReworkDirective(text string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), reworkPrefix)
}

// reopenLocked regresses a terminal todo back into the live lifecycle and
// runs a graph-repair pass over its transitive dependents: work that was
// built on the reopened todo is no longer trustworthy, so every dependent
// except failed ones is re-blocked until the reopened todo completes again.
// Assumes the lock is held.
func (m *Manager) reopenLocked(todo *models.Todo) error {
	// The reopen path re-validates the acyclic invariant downstream before
	// mutating anything.
	if m.graph.HasCycle() {
		return graph.ErrCycleDetected
	}

	now := time.Now()
	todo.CompletedAt = nil
	todo.Status = m.deriveStatusLocked(todo.ID)
	todo.UpdatedAt = now

	for _, depID := range m.graph.TransitiveDependents(todo.ID) {
		dependent := m.graph.Node(depID)
		if dependent.Status == models.TodoStatusFailed {
			continue
		}
		if dependent.Status != models.TodoStatusBlocked {
			dependent.Status = models.TodoStatusBlocked
			dependent.CompletedAt = nil
			dependent.UpdatedAt = now
		}
	}
	return nil
}

// deriveStatusLocked computes the resting status of a non-terminal,
// not-running todo from its direct dependencies. Assumes the lock is held.
func (m *Manager) deriveStatusLocked(id string) models.TodoStatus {
	for _, depID := range m.graph.Dependencies(id) {
		dep := m.graph.Node(depID)
		if dep == nil {
			return models.TodoStatusPending
		}
		if dep.Status == models.TodoStatusFailed || dep.Status == models.TodoStatusBlocked {
			return models.TodoStatusBlocked
		}
	}
	if m.graph.DepsCompleted(id) {
		return models.TodoStatusReady
	}
	return models.TodoStatusPending
}

// recomputeDependentsLocked re-derives the status of every transitive
// dependent of id. Derivation only looks at direct dependencies, so the pass
// repeats until it reaches a fixed point; the dependent count bounds the
// number of passes. Assumes the lock is held.
func (m *Manager) recomputeDependentsLocked(id string) {
	dependents := m.graph.TransitiveDependents(id)
	for pass := 0; pass <= len(dependents); pass++ {
		changed := false
		for _, depID := range dependents {
			dependent := m.graph.Node(depID)
			switch dependent.Status {
			case models.TodoStatusInProgress, models.TodoStatusCompleted, models.TodoStatusFailed:
				continue
			}
			next := m.deriveStatusLocked(depID)
			if next != dependent.Status {
				dependent.Status = next
				dependent.UpdatedAt = time.Now()
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// ReadySet returns the todos eligible for execution, in insertion order.
// Eligible pending todos are promoted to ready as a side effect.
func (m *Manager) ReadySet() []*models.Todo {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ready []*models.Todo
	for _, id := range m.graph.ReadySet() {
		todo := m.graph.Node(id)
		if todo.Status == models.TodoStatusPending {
			todo.Status = models.TodoStatusReady
			todo.UpdatedAt = time.Now()
		}
		ready = append(ready, todo)
	}
	return ready
}

// Todos returns every todo in insertion order.
func (m *Manager) Todos() []*models.Todo {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.graph.IDs()
	todos := make([]*models.Todo, 0, len(ids))
	for _, id := range ids {
		todos = append(todos, m.graph.Node(id))
	}
	return todos
}

// Size returns the number of todos under management.
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph.Size()
}

// AllCompleted reports whether every todo has completed.
// Returns false for an empty set: no work has been done yet.
func (m *Manager) AllCompleted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.graph.IDs()
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if m.graph.Node(id).Status != models.TodoStatusCompleted {
			return false
		}
	}
	return true
}

// HasFailed reports whether any todo is in the failed status.
func (m *Manager) HasFailed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.graph.IDs() {
		if m.graph.Node(id).Status == models.TodoStatusFailed {
			return true
		}
	}
	return false
}

// Batches returns a restartable topological batch iterator over the graph.
func (m *Manager) Batches() *graph.BatchIterator {
	return m.graph.Batches()
}
