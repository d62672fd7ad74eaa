package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/katje/colorizer/logger"
)

var jsonLogs bool

var rootCmd = &cobra.Command{
	Use:   "katjed",
	Short: "Katje Colorizer daemon",
	Long: `Katje Colorizer daemon - queued image colorization.

The daemon accepts image uploads, runs them through the generative image
API one at a time, and delivers finished artifacts to the output
directory. Browser clients follow the queue over a WebSocket feed.

Examples:
  katjed serve             # Start the daemon
  katjed config            # Show the effective configuration
  katjed version           # Show build information`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.InitializeWithVerbosity(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit JSON structured logs instead of console output")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
