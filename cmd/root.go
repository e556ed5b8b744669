package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stocksync",
	Short: "Daily equity price synchronization and export service",
	Long: `stocksync ingests daily OHLCV data for a ticker universe, reconstructs
unadjusted prices from split-adjusted feed data, and merges the result into
PostgreSQL with idempotent upsert semantics. A companion web service exposes
token-gated streaming CSV export of the stored data.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
