package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rgoodwin/cotflow/internal/manager"
	"github.com/rgoodwin/cotflow/pkg/models"
)

// ExecutionRecord captures one todo execution for the process history.
type ExecutionRecord struct {
	TodoID    string
	Kind      string
	Output    string
	Err       string
	Iteration int
	StartedAt time.Time
	Duration  time.Duration
}

// Process is one query being worked through the reasoning and execution
// loop. It owns a todo manager and tracks iteration count and status.
// Manual feedback may be applied concurrently with a running iteration.
type Process struct {
	mu         sync.Mutex
	id         string
	query      string
	status     models.ProcessStatus
	iterations int
	steps      []models.ReasoningStep
	history    []ExecutionRecord
	createdAt  time.Time
	updatedAt  time.Time

	manager *manager.Manager
}

// NewProcess creates a running process for the given query with an empty
// todo set.
func NewProcess(query string) *Process {
	now := time.Now()
	return &Process{
		id:        uuid.New().String(),
		query:     query,
		status:    models.ProcessRunning,
		createdAt: now,
		updatedAt: now,
		manager:   manager.New(),
	}
}

// ID returns the process identifier.
func (p *Process) ID() string {
	return p.id
}

// Query returns the originating query.
func (p *Process) Query() string {
	return p.query
}

// Status returns the current process status.
func (p *Process) Status() models.ProcessStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Iterations returns the number of completed iterations.
func (p *Process) Iterations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.iterations
}

// Manager exposes the process's todo manager.
func (p *Process) Manager() *manager.Manager {
	return p.manager
}

// AddFeedback records manual feedback on a todo. Feedback whose text starts
// with "rework:" reopens a completed or failed todo; the next iteration
// picks the reopened work up.
func (p *Process) AddFeedback(todoID, text string) (*models.Todo, error) {
	todo, err := p.manager.ApplyFeedback(todoID, text, models.FeedbackManual)
	if err != nil {
		return nil, err
	}
	p.touch()
	return todo, nil
}

// Steps returns a copy of the reasoning trace the todo set was derived
// from. Each step carries the IDs of the todos it produced.
func (p *Process) Steps() []models.ReasoningStep {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.ReasoningStep, len(p.steps))
	copy(out, p.steps)
	return out
}

// History returns a copy of the execution records so far.
func (p *Process) History() []ExecutionRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ExecutionRecord, len(p.history))
	copy(out, p.history)
	return out
}

// Snapshot returns the read-only view of the process, with todos in
// insertion order.
func (p *Process) Snapshot() models.ProcessSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return models.ProcessSnapshot{
		ProcessID:      p.id,
		Query:          p.query,
		Status:         p.status,
		IterationCount: p.iterations,
		Todos:          p.manager.Snapshot(),
		CreatedAt:      p.createdAt,
		UpdatedAt:      p.updatedAt,
	}
}

func (p *Process) setStatus(status models.ProcessStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
	p.updatedAt = time.Now()
}

func (p *Process) incrementIteration() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.iterations++
	p.updatedAt = time.Now()
	return p.iterations
}

func (p *Process) setSteps(steps []models.ReasoningStep) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append([]models.ReasoningStep(nil), steps...)
	p.updatedAt = time.Now()
}

func (p *Process) record(rec ExecutionRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = append(p.history, rec)
	p.updatedAt = time.Now()
}

func (p *Process) touch() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updatedAt = time.Now()
}
