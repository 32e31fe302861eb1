package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/longrun/cmd/longrun/commands"
	"github.com/teranos/longrun/logger"
)

var rootCmd = &cobra.Command{
	Use:   "longrun",
	Short: "longrun - timed asynchronous jobs with durable status",
	Long: `longrun - timed asynchronous jobs with durable status.

Jobs are started with a random duration and recorded in a registry. Their
status is always derived from when they started and the wall clock, so any
later invocation that reaches the same registry can answer for them.

Available commands:
  run     - Start a batch of timed jobs
  status  - Show the derived status of jobs
  results - Show when a job ran
  ls      - List jobs recorded in the registry
  serve   - Serve the service over HTTP
  am      - Manage configuration ("I am")
  db      - Manage the registry database

Examples:
  longrun run --jobs 3 --min-duration 5
  longrun status 6f1c...           # in a later shell, same answer
  longrun serve --port 8787`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		// serve logs at Info by default; one-shot commands stay quiet
		if cmd.Name() == "serve" && verbosity == 0 {
			verbosity = 1
		}
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON")
	commands.AddPersistentFlags(rootCmd)

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.ResultsCmd)
	rootCmd.AddCommand(commands.LsCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
