package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rgoodwin/cotflow/internal/state"
	"github.com/rgoodwin/cotflow/pkg/models"
)

var statusYAML bool

var statusCmd = &cobra.Command{
	Use:   "status [process-id]",
	Short: "Show stored process state",
	Long: `Display stored process snapshots.

Without arguments, lists all processes recorded in the project database.
With a process ID, shows that process's todos, statuses, dependencies,
and feedback. Use --yaml to dump the raw snapshot.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusYAML, "yaml", false, "Print the snapshot as YAML")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dbPath := state.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No recorded processes. Run 'cotflow run <query>' to start one.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	store := state.NewStore(db)

	if len(args) == 1 {
		return displayProcess(store, args[0])
	}
	return displayProcessList(store)
}

func displayProcessList(store *state.Store) error {
	infos, err := store.ListProcesses()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}
	if len(infos) == 0 {
		fmt.Println("No recorded processes. Run 'cotflow run <query>' to start one.")
		return nil
	}

	fmt.Println("Recorded processes:")
	for _, info := range infos {
		fmt.Printf("  %s  %s  %s  (%d todos, %d iterations)\n",
			info.ProcessID, statusColor(info.Status), truncateQuery(info.Query), info.TodoCount, info.IterationCount)
	}
	return nil
}

func displayProcess(store *state.Store, processID string) error {
	snap, err := store.LoadSnapshot(processID)
	if err != nil {
		return fmt.Errorf("load process: %w", err)
	}

	if statusYAML {
		out, err := yaml.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		fmt.Print(string(out))
		return nil
	}

	fmt.Printf("Process: %s\n", snap.ProcessID)
	fmt.Printf("  Query: %s\n", snap.Query)
	fmt.Printf("  Status: %s\n", statusColor(snap.Status))
	fmt.Printf("  Iterations: %d\n", snap.IterationCount)
	fmt.Printf("  Updated: %s\n", snap.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Println()

	for _, todo := range snap.Todos {
		fmt.Printf("  %s %s [%s]\n", todoIcon(todo.Status), todo.Content, todo.ID)
		if len(todo.Dependencies) > 0 {
			fmt.Printf("      depends on: %s\n", strings.Join(todo.Dependencies, ", "))
		}
		for _, fb := range todo.Feedback {
			fmt.Printf("      feedback (%s): %s\n", fb.Source, fb.Text)
		}
	}
	return nil
}

func statusColor(s models.ProcessStatus) string {
	switch s {
	case models.ProcessCompleted:
		return color.GreenString(string(s))
	case models.ProcessFailed:
		return color.RedString(string(s))
	case models.ProcessRunning:
		return color.CyanString(string(s))
	default:
		return color.YellowString(string(s))
	}
}

func todoIcon(s models.TodoStatus) string {
	switch s {
	case models.TodoStatusCompleted:
		return color.GreenString("✓")
	case models.TodoStatusFailed:
		return color.RedString("✗")
	case models.TodoStatusBlocked:
		return color.YellowString("⊘")
	case models.TodoStatusInProgress:
		return color.CyanString("●")
	default:
		return "·"
	}
}

func truncateQuery(q string) string {
	if len(q) > 50 {
		return q[:47] + "..."
	}
	return q
}
