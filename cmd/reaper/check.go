package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"chrono-hq/reaper/pkg/config"
	"chrono-hq/reaper/pkg/promstore"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe the remote store connection",
	Long: `Probe the configured remote store with a trivial query and report
whether it is reachable. Exits non-zero on failure.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		client := promstore.NewClient(promstore.Config{
			BaseURL: cfg.RemoteStore.URL,
			Timeout: cfg.RemoteStore.Timeout,
		})

		if err := client.CheckConnection(context.Background()); err != nil {
			return fmt.Errorf("remote store %s unreachable: %w", cfg.RemoteStore.URL, err)
		}

		fmt.Printf("✓ Remote store reachable (%s)\n", cfg.RemoteStore.URL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
