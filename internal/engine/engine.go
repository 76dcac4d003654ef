// Package engine drives the chain-of-thought process loop: reason about a
// query, synthesize todos, execute the ready set, fold results back in as
// feedback, and repeat until the process terminates.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rgoodwin/cotflow/internal/executor"
	"github.com/rgoodwin/cotflow/internal/manager"
	"github.com/rgoodwin/cotflow/internal/reasoning"
	"github.com/rgoodwin/cotflow/internal/synthesize"
	"github.com/rgoodwin/cotflow/pkg/models"
)

// Default loop parameters, applied when Config leaves them zero.
const (
	DefaultMaxIterations    = 10
	DefaultReasoningRetries = 2
	maxRemediationTodos     = 3
)

// Config holds the tunable loop parameters.
type Config struct {
	// MaxIterations bounds the number of iterations before the process is
	// stopped with status max_iterations_reached.
	MaxIterations int
	// ReasoningRetries is how many extra GenerateSteps attempts are made
	// when the reasoning service is unavailable, before falling back to
	// the heuristic producer.
	ReasoningRetries int
	// TodoTimeout bounds a single todo execution. Zero means no timeout.
	TodoTimeout time.Duration
	// ReasoningTimeout bounds a single reasoning call. Zero means no
	// timeout.
	ReasoningTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.ReasoningRetries < 0 {
		c.ReasoningRetries = DefaultReasoningRetries
	}
	return c
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithEvents sets the channel progress events are emitted on. Events are
// dropped, never blocked on, when the channel is full.
func WithEvents(ch chan<- Event) Option {
	return func(e *Engine) { e.events = ch }
}

// Engine runs processes. A single Engine may run multiple processes; each
// process carries its own todo manager, so runs do not share state beyond
// the reasoning and execution collaborators.
type Engine struct {
	reasoner reasoning.Service
	fallback reasoning.Service
	executor executor.Executor
	cfg      Config
	logger   *DebugLogger
	events   chan<- Event
}

// New creates an Engine. The executor is wrapped with an in-flight guard so
// a todo can never be executed twice concurrently, whatever the caller does.
func New(reasoner reasoning.Service, exec executor.Executor, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		reasoner: reasoner,
		fallback: reasoning.NewHeuristic(),
		executor: executor.NewGuard(exec),
		cfg:      cfg.withDefaults(),
		logger:   NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run drives the process until it reaches a terminal status or the context
// is cancelled. On cancellation the process keeps its running status and
// the error is returned; a later Run call resumes from the current todo set.
func (e *Engine) Run(ctx context.Context, p *Process) error {
	e.logger.Log("[run] process %s starting: %q", p.ID(), p.Query())
	e.emitEvent(Event{Type: EventProcessStarted, ProcessID: p.ID(), Message: p.Query()})

	if p.Manager().Size() == 0 {
		if err := e.synthesizeInitial(ctx, p); err != nil {
			return err
		}
	}

	for p.Status() == models.ProcessRunning {
		if err := ctx.Err(); err != nil {
			e.logger.Log("[run] process %s interrupted: %v", p.ID(), err)
			return err
		}

		if err := e.runIteration(ctx, p); err != nil {
			return err
		}

		n := p.incrementIteration()
		e.checkTermination(p, n)
	}

	status := p.Status()
	e.logger.Log("[run] process %s finished with status %s after %d iteration(s)",
		p.ID(), status, p.Iterations())
	e.emitEvent(Event{Type: EventProcessFinished, ProcessID: p.ID(), Status: status, Iteration: p.Iterations()})
	return nil
}

// synthesizeInitial generates the reasoning trace for the query and
// registers the derived todos.
func (e *Engine) synthesizeInitial(ctx context.Context, p *Process) error {
	steps, err := e.reason(ctx, p)
	if err != nil {
		return err
	}
	e.logger.Log("[run] process %s: %d reasoning step(s)", p.ID(), len(steps))

	created, failures := synthesize.RegisterSteps(p.Manager(), steps)
	p.setSteps(steps)
	for _, f := range failures {
		e.logger.Log("[run] process %s: discarded spec: %v", p.ID(), f)
	}
	if len(created) > 0 {
		e.emitEvent(Event{
			Type:      EventTodosCreated,
			ProcessID: p.ID(),
			Message:   fmt.Sprintf("created %d todo(s)", len(created)),
		})
	}
	return nil
}

// reason calls the reasoning service with retries; when the service stays
// unavailable it falls back to the deterministic heuristic producer so the
// process always gets a decomposition.
func (e *Engine) reason(ctx context.Context, p *Process) ([]models.ReasoningStep, error) {
	todoContext := p.Manager().Summary().String()

	var lastErr error
	for attempt := 0; attempt <= e.cfg.ReasoningRetries; attempt++ {
		steps, err := e.generateSteps(ctx, p.Query(), todoContext)
		if err == nil {
			return steps, nil
		}
		lastErr = err
		if !errors.Is(err, reasoning.ErrUnavailable) || ctx.Err() != nil {
			break
		}
		e.logger.Log("[reason] attempt %d failed for process %s: %v", attempt+1, p.ID(), err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.logger.Log("[reason] process %s falling back to heuristic reasoning after: %v", p.ID(), lastErr)
	return e.fallback.GenerateSteps(ctx, p.Query(), todoContext)
}

// generateSteps makes one reasoning call under the configured timeout.
func (e *Engine) generateSteps(ctx context.Context, query, todoContext string) ([]models.ReasoningStep, error) {
	if e.cfg.ReasoningTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ReasoningTimeout)
		defer cancel()
	}
	return e.reasoner.GenerateSteps(ctx, query, todoContext)
}

// analyze makes one feedback-analysis call under the configured timeout.
func (e *Engine) analyze(ctx context.Context, req reasoning.AnalyzeRequest) (string, error) {
	if e.cfg.ReasoningTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ReasoningTimeout)
		defer cancel()
	}
	return e.reasoner.Analyze(ctx, req)
}

// runIteration executes every todo in the current ready set, sequentially
// and in insertion order, then runs a remediation pass for any failures.
func (e *Engine) runIteration(ctx context.Context, p *Process) error {
	iteration := p.Iterations() + 1
	ready := p.Manager().ReadySet()
	e.logger.Log("[iterate] process %s iteration %d: %d ready todo(s)", p.ID(), iteration, len(ready))
	e.emitEvent(Event{
		Type:      EventIterationStarted,
		ProcessID: p.ID(),
		Iteration: iteration,
		Message:   fmt.Sprintf("%d ready todo(s)", len(ready)),
	})

	var failed []*models.Todo
	for _, todo := range ready {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.executeTodo(ctx, p, todo, iteration) {
			continue
		}
		failed = append(failed, todo)
	}

	// Cancellation mid-pass must not count the iteration or trigger
	// remediation; the interrupted todo has already been requeued.
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, todo := range failed {
		e.remediate(ctx, p, todo)
	}
	return nil
}

// executeTodo runs one todo through the executor and records the outcome.
// Returns false when the execution failed.
func (e *Engine) executeTodo(ctx context.Context, p *Process, todo *models.Todo, iteration int) bool {
	m := p.Manager()
	if err := m.MarkInProgress(todo.ID); err != nil {
		// A concurrent feedback mutation moved the todo; skip it this pass.
		e.logger.Log("[iterate] process %s: skipping todo %s: %v", p.ID(), todo.ID, err)
		return true
	}
	e.emitEvent(Event{Type: EventTodoStarted, ProcessID: p.ID(), TodoID: todo.ID, Message: todo.Content, Iteration: iteration})

	runCtx := ctx
	if e.cfg.TodoTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.TodoTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := e.executor.Run(runCtx, todo)
	if err != nil {
		// Run cancellation is not an execution failure: put the todo back
		// in the ready set so a resumed run picks it up. A per-todo
		// deadline still counts as a failure below.
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			if reqErr := m.Requeue(todo.ID); reqErr != nil {
				e.logger.Log("[iterate] process %s: requeue %s: %v", p.ID(), todo.ID, reqErr)
			}
			e.logger.Log("[iterate] process %s: todo %s interrupted, requeued", p.ID(), todo.ID)
			return true
		}
		reason := fmt.Sprintf("execution failed: %v", err)
		if markErr := m.MarkFailed(todo.ID, reason); markErr != nil {
			e.logger.Log("[iterate] process %s: mark failed %s: %v", p.ID(), todo.ID, markErr)
		}
		p.record(ExecutionRecord{
			TodoID: todo.ID, Err: err.Error(),
			Iteration: iteration, StartedAt: start, Duration: time.Since(start),
		})
		e.logger.Log("[iterate] process %s: todo %s failed: %v", p.ID(), todo.ID, err)
		e.emitEvent(Event{Type: EventTodoFailed, ProcessID: p.ID(), TodoID: todo.ID, Message: err.Error(), Iteration: iteration})
		return false
	}

	if result.Feedback != "" {
		if _, fbErr := m.ApplyFeedback(todo.ID, result.Feedback, models.FeedbackAuto); fbErr != nil {
			e.logger.Log("[iterate] process %s: feedback for %s: %v", p.ID(), todo.ID, fbErr)
		}
	}
	if err := m.MarkCompleted(todo.ID); err != nil {
		e.logger.Log("[iterate] process %s: mark completed %s: %v", p.ID(), todo.ID, err)
	}
	p.record(ExecutionRecord{
		TodoID: todo.ID, Kind: result.Kind, Output: result.Output,
		Iteration: iteration, StartedAt: start, Duration: time.Since(start),
	})
	e.emitEvent(Event{Type: EventTodoCompleted, ProcessID: p.ID(), TodoID: todo.ID, Message: result.Output, Iteration: iteration})
	return true
}

// remediate asks the reasoning service what to do about a failed todo and
// turns actionable suggestions into new todos. Remediation failures are
// logged, never fatal; the stuck check decides whether the process dies.
func (e *Engine) remediate(ctx context.Context, p *Process, todo *models.Todo) {
	current, err := p.Manager().Get(todo.ID)
	if err != nil {
		return
	}

	var feedback string
	if last := current.LastFeedback(); last != nil {
		feedback = last.Text
	}

	analysis, err := e.analyze(ctx, reasoning.AnalyzeRequest{
		TodoContent:  current.Content,
		TodoStatus:   string(current.Status),
		Feedback:     feedback,
		CurrentTodos: p.Manager().Summary().String(),
	})
	if err != nil {
		e.logger.Log("[remediate] process %s: analysis for %s failed: %v", p.ID(), todo.ID, err)
		analysis, err = e.fallback.Analyze(ctx, reasoning.AnalyzeRequest{
			TodoContent: current.Content,
			TodoStatus:  string(current.Status),
			Feedback:    feedback,
		})
		if err != nil {
			return
		}
	}

	suggestions := synthesize.ActionableSuggestions(synthesize.ParseSuggestions(analysis))
	if len(suggestions) > maxRemediationTodos {
		suggestions = suggestions[:maxRemediationTodos]
	}

	for _, s := range suggestions {
		created, err := p.Manager().Create(s, nil, manager.CreateOptions{
			Reasoning: fmt.Sprintf("Remediation for failed todo %s", todo.ID),
		})
		if err != nil {
			e.logger.Log("[remediate] process %s: create %q: %v", p.ID(), s, err)
			continue
		}
		e.logger.Log("[remediate] process %s: created todo %s: %q", p.ID(), created.ID, s)
		e.emitEvent(Event{Type: EventTodosCreated, ProcessID: p.ID(), TodoID: created.ID, Message: s})
	}
}

// checkTermination applies the termination rules in order: everything
// completed wins, then the iteration bound, then the stuck check (no ready
// work left and at least one failure).
func (e *Engine) checkTermination(p *Process, iterations int) {
	m := p.Manager()
	switch {
	case m.AllCompleted():
		p.setStatus(models.ProcessCompleted)
	case iterations >= e.cfg.MaxIterations:
		p.setStatus(models.ProcessMaxIterations)
	case len(m.ReadySet()) == 0 && m.HasFailed():
		p.setStatus(models.ProcessFailed)
	}
}
