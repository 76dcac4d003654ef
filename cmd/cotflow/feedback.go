package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rgoodwin/cotflow/internal/feedback"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <todo-id> <text...>",
	Short: "Send manual feedback to a running process",
	Long: `Attach manual feedback to a todo of the process running in this
directory. The feedback is dropped into .cotflow/feedback/ and picked up
between iterations.

Feedback text starting with "rework:" reopens a completed or failed todo;
its dependents move back to blocked until the rework completes.

Examples:
  cotflow feedback 3f2a91c0 "rework: the total is wrong, recalculate"
  cotflow feedback 3f2a91c0 "looks good, nothing to change"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runFeedback,
}

func runFeedback(cmd *cobra.Command, args []string) error {
	todoID := args[0]
	text := strings.Join(args[1:], " ")

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	if err := feedback.Send(cwd, todoID, text); err != nil {
		return fmt.Errorf("send feedback: %w", err)
	}

	fmt.Printf("Feedback queued for todo %s\n", todoID)
	return nil
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask the running process to wind down",
	Long: `Signal the process running in this directory to stop after the
current iteration. The run finishes its in-flight todo first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		if err := feedback.SendStop(cwd); err != nil {
			return fmt.Errorf("send stop signal: %w", err)
		}
		fmt.Println("Stop signal sent")
		return nil
	},
}
