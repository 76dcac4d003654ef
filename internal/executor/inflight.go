package executor

import (
	"context"
	"errors"
	"sync"

	"github.com/rgoodwin/cotflow/pkg/models"
)

// ErrAlreadyRunning indicates a second Run for a todo that is in flight.
var ErrAlreadyRunning = errors.New("todo execution already in flight")

// Guard wraps an Executor with an at-most-one-in-flight guarantee per todo
// ID. Concurrent Run calls for distinct todos pass through.
type Guard struct {
	inner Executor

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewGuard wraps the given executor.
func NewGuard(inner Executor) *Guard {
	return &Guard{
		inner:    inner,
		inFlight: make(map[string]bool),
	}
}

// Run delegates to the wrapped executor unless the todo is already running.
func (g *Guard) Run(ctx context.Context, todo *models.Todo) (*Result, error) {
	g.mu.Lock()
	if g.inFlight[todo.ID] {
		g.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	g.inFlight[todo.ID] = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.inFlight, todo.ID)
		g.mu.Unlock()
	}()

	return g.inner.Run(ctx, todo)
}
