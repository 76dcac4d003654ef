package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cotflow",
	Short: "Chain-of-thought todo engine",
	Long: `cotflow turns a natural-language query into a dependency-ordered todo
graph by chain-of-thought reasoning, then works through the graph
iteration by iteration, feeding execution results back in as feedback.

Core capabilities:
- Generates reasoning steps for a query (Anthropic API or offline heuristic)
- Synthesizes todos with dependencies from the reasoning trace
- Executes ready todos in order, recording results as feedback
- Reopens completed work on "rework:" feedback and re-blocks dependents
- Persists process snapshots for later inspection`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
