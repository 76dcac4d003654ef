package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rgoodwin/cotflow/internal/config"
	"github.com/rgoodwin/cotflow/internal/engine"
	"github.com/rgoodwin/cotflow/internal/executor"
	"github.com/rgoodwin/cotflow/internal/feedback"
	"github.com/rgoodwin/cotflow/internal/reasoning"
	"github.com/rgoodwin/cotflow/internal/state"
	"github.com/rgoodwin/cotflow/internal/tui"
	"github.com/rgoodwin/cotflow/pkg/models"
)

var (
	runMaxIterations int
	runHeuristic     bool
	runTUI           bool
	runNoSave        bool
)

var runCmd = &cobra.Command{
	Use:   "run <query>",
	Short: "Work a query through the reasoning and execution loop",
	Long: `Run a query end to end: generate chain-of-thought reasoning steps,
synthesize a dependency-ordered todo set, and iterate over the ready set
until everything completes, the iteration budget runs out, or the process
gets stuck on a failure.

While a run is active, drop a file named <todo-id>.txt into
.cotflow/feedback/ to attach manual feedback to that todo. Feedback text
starting with "rework:" reopens a completed or failed todo and re-blocks
its dependents. Create .cotflow/signals/stop to wind the run down early.

Use --heuristic to skip the Anthropic API and decompose the query with
the deterministic offline reasoner.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "Override the iteration budget")
	runCmd.Flags().BoolVar(&runHeuristic, "heuristic", false, "Use the offline heuristic reasoner (no API calls)")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show the live TUI instead of plain output")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Do not persist the process snapshot")
}

func runQuery(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runMaxIterations > 0 {
		cfg.Engine.MaxIterations = runMaxIterations
	}
	if runHeuristic {
		cfg.Engine.UseHeuristic = true
	}

	projectPath, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	reasoner, err := buildReasoner(cfg)
	if err != nil {
		return err
	}

	logger := engine.NewDebugLoggerForDir(projectPath)
	defer logger.Close()

	events := make(chan engine.Event, 256)
	eng := engine.New(reasoner, executor.NewLocal(), engine.Config{
		MaxIterations:    cfg.Engine.MaxIterations,
		ReasoningRetries: cfg.Engine.ReasoningRetries,
		TodoTimeout:      cfg.Timeouts.Todo,
		ReasoningTimeout: cfg.Timeouts.Reasoning,
	}, engine.WithLogger(logger), engine.WithEvents(events))

	proc := engine.NewProcess(query)

	var store *state.Store
	if !runNoSave {
		dbPath := cfg.State.Path
		if dbPath == "" {
			dbPath = state.ProjectDBPath(projectPath)
		}
		db, err := state.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open state database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrate state database: %w", err)
		}
		store = state.NewStore(db)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
		cancel()
	}()

	watcher, err := feedback.NewWatcher(projectPath, proc)
	if err != nil {
		return fmt.Errorf("start feedback watcher: %w", err)
	}
	watcher.Logf = logger.Log
	watcher.ClearSignals()
	defer watcher.Close()

	// The poll loop backs up fsnotify: it applies feedback files the
	// watcher may have missed and maps the stop file onto cancellation.
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				watcher.Drain()
				if watcher.ShouldStop() {
					cancel()
					return
				}
			}
		}
	}()

	if runTUI {
		return runWithTUI(ctx, cfg, eng, proc, store, events)
	}
	return runHeadless(ctx, eng, proc, store, events)
}

// buildReasoner picks the reasoning producer from config.
func buildReasoner(cfg *config.Config) (reasoning.Service, error) {
	if cfg.Engine.UseHeuristic {
		return reasoning.NewHeuristic(), nil
	}
	client, err := reasoning.NewClient(reasoning.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		MaxTokens:     int64(cfg.Anthropic.MaxTokens),
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("create reasoning client: %w", err)
	}
	return client, nil
}

// runHeadless prints events as colored lines while the engine works.
func runHeadless(ctx context.Context, eng *engine.Engine, proc *engine.Process, store *state.Store, events chan engine.Event) error {
	printDone := make(chan struct{})
	go func() {
		defer close(printDone)
		for ev := range events {
			printEvent(ev)
			if store != nil && ev.Type == engine.EventIterationStarted {
				store.SaveSnapshot(proc.Snapshot())
			}
		}
	}()

	runErr := eng.Run(ctx, proc)
	close(events)
	<-printDone

	saveSnapshot(store, proc)
	printSummary(proc)
	return runErr
}

// runWithTUI drives the bubbletea view; the engine runs underneath it.
func runWithTUI(ctx context.Context, cfg *config.Config, eng *engine.Engine, proc *engine.Process, store *state.Store, events chan engine.Event) error {
	done := make(chan tui.DoneMsg, 1)

	var runErr error
	go func() {
		runErr = eng.Run(ctx, proc)
		saveSnapshot(store, proc)
		done <- tui.DoneMsg{Status: proc.Status(), Err: runErr}
	}()

	app := tui.New(proc.Query())
	if err := tui.Run(app, events, proc.Snapshot, cfg.TUI.RefreshRate, done); err != nil {
		return err
	}
	printSummary(proc)
	return runErr
}

func saveSnapshot(store *state.Store, proc *engine.Process) {
	if store == nil {
		return
	}
	if err := store.SaveSnapshot(proc.Snapshot()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: save snapshot: %v\n", err)
	}
}

// printEvent renders one engine event for headless output.
func printEvent(ev engine.Event) {
	switch ev.Type {
	case engine.EventProcessStarted:
		fmt.Printf("%s %s\n", color.CyanString("▸"), ev.Message)
	case engine.EventTodosCreated:
		fmt.Printf("%s %s\n", color.CyanString("+"), ev.Message)
	case engine.EventIterationStarted:
		fmt.Printf("%s iteration %d: %s\n", color.CyanString("▸"), ev.Iteration, ev.Message)
	case engine.EventTodoStarted:
		fmt.Printf("  %s %s\n", color.YellowString("●"), ev.Message)
	case engine.EventTodoCompleted:
		fmt.Printf("  %s %s\n", color.GreenString("✓"), ev.Message)
	case engine.EventTodoFailed:
		fmt.Printf("  %s %s\n", color.RedString("✗"), ev.Message)
	case engine.EventProcessFinished:
		// Summary printed separately.
	}
}

// printSummary prints the final process state.
func printSummary(proc *engine.Process) {
	snap := proc.Snapshot()

	var statusStr string
	switch snap.Status {
	case models.ProcessCompleted:
		statusStr = color.GreenString(string(snap.Status))
	case models.ProcessFailed:
		statusStr = color.RedString(string(snap.Status))
	default:
		statusStr = color.YellowString(string(snap.Status))
	}

	fmt.Printf("\nProcess %s: %s after %d iteration(s)\n", snap.ProcessID, statusStr, snap.IterationCount)
	for _, todo := range snap.Todos {
		icon := color.WhiteString("·")
		switch todo.Status {
		case models.TodoStatusCompleted:
			icon = color.GreenString("✓")
		case models.TodoStatusFailed:
			icon = color.RedString("✗")
		case models.TodoStatusBlocked:
			icon = color.YellowString("⊘")
		}
		fmt.Printf("  %s %s\n", icon, todo.Content)
	}
}
