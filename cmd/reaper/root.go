package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "reaper",
	Short: "Reaper - retention policy engine for Prometheus-compatible stores",
	Long: `Reaper enforces per-metric retention policies against a
Prometheus-compatible metrics store.

Each policy maps a metric-name pattern (glob or regular expression) to a
retention duration. Reaper matches patterns against the store's metric
catalog and deletes series older than each policy's cutoff through the
store's admin API, either on demand or on a fixed sweep schedule.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
