package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for cliqcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cliqcrawl",
		Short: "Concurrent product data crawler for tatacliq.com",
		Long: `cliqcrawl extracts product data from a list of tatacliq.com product URLs.

Input URLs are validated against the target domain and deduplicated. Each
unique URL is fetched by a fixed pool of workers with per-request retry,
and every input yields exactly one output row, in input order.

Press Ctrl+C once to stop scheduling new work and keep the results gathered
so far. Press it again to abort in-flight requests.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .cliqcrawl in current directory or XDG config)")
	cmd.PersistentFlags().String("env-file", "",
		"Load environment variables from this file (default: .env if present)")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
