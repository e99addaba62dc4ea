// Package cli implements the callaudit command line interface: analyzing
// recorded calls, running agent comparisons, and serving the HTTP API.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// Execute builds the root command tree and runs it with ctx. Cancellation of
// ctx aborts whatever subcommand is in flight.
func Execute(ctx context.Context) error {
	var configPath string

	root := &cobra.Command{
		Use:   "callaudit",
		Short: "Voice agent call analysis and comparison",
		Long: `callaudit analyzes voice agent call recordings for conversation-flow
problems (pauses, interruptions, abrupt endings) and benchmarks competing
agent configurations against each other through simulated conversations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config file")

	root.AddCommand(
		newAnalyzeCmd(&configPath),
		newCompareCmd(&configPath),
		newServeCmd(&configPath),
	)

	return root.ExecuteContext(ctx)
}
