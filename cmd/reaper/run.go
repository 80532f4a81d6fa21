package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"chrono-hq/reaper/pkg/config"
	"chrono-hq/reaper/pkg/policyfile"
	"chrono-hq/reaper/pkg/promstore"
	"chrono-hq/reaper/pkg/retention"
	"chrono-hq/reaper/pkg/retention/store"
	"chrono-hq/reaper/pkg/server"
	"chrono-hq/reaper/pkg/telemetry/logging"
	"chrono-hq/reaper/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the reaper daemon",
	Long: `Start the reaper daemon with the specified configuration.

The daemon serves the policy management API, applies the optional policy
seed file, and sweeps all enabled retention policies on a fixed interval.

Examples:
  # Start with default config
  reaper run

  # Start with custom config
  reaper run --config /etc/reaper/config.yaml

  # Override listen address
  reaper run --listen 0.0.0.0:8080

  # Validate config without starting the daemon
  reaper run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the daemon")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.Setup(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	policies, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer policies.Close()

	remote := promstore.NewClient(promstore.Config{
		BaseURL: cfg.RemoteStore.URL,
		Timeout: cfg.RemoteStore.Timeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A down remote store is logged, not fatal: policies and the API
	// must stay available while it recovers.
	if err := remote.CheckConnection(ctx); err != nil {
		slog.Warn("remote store unreachable at startup",
			"url", cfg.RemoteStore.URL,
			"error", err,
		)
	}

	var instr *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		instr = metrics.NewCollector(nil)
	}

	deleter := retention.NewDeleter(remote, retention.DeleterConfig{
		RequestsPerSecond: cfg.Retention.DeleteRequestsPerSecond,
	})
	orch := retention.NewOrchestrator(policies, remote, deleter, instr)

	if cfg.Retention.SeedFile != "" {
		if err := policyfile.LoadAndApply(ctx, cfg.Retention.SeedFile, policies, logger); err != nil {
			return fmt.Errorf("failed to apply policy seed file: %w", err)
		}
		fmt.Printf("✓ Policy seed file applied (%s)\n", cfg.Retention.SeedFile)

		if cfg.Retention.WatchSeedFile {
			watcher, err := policyfile.NewWatcher(cfg.Retention.SeedFile, logger)
			if err != nil {
				return fmt.Errorf("failed to create seed file watcher: %w", err)
			}
			go func() {
				if err := watcher.Watch(ctx, func() error {
					return policyfile.LoadAndApply(ctx, cfg.Retention.SeedFile, policies, logger)
				}); err != nil {
					slog.Error("seed file watcher stopped", "error", err)
				}
			}()
			defer watcher.Stop()
		}
	}

	sched := retention.NewScheduler(orch, cfg.SweepInterval(), instr)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	fmt.Printf("✓ Scheduler started (sweep every %s)\n", cfg.SweepInterval())
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Println("\nPress Ctrl+C to stop")

	// Blocks until SIGINT/SIGTERM or a fatal server error.
	srv := server.NewServer(&cfg.Server, policies, orch, sched, remote, instr)
	return srv.Start(ctx)
}

// openStore constructs the configured policy store backend.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Database.Backend {
	case "sqlite":
		st, err := store.NewSQLiteStore(store.SQLiteConfig{Path: cfg.Database.Path})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return st, nil
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported database backend: %s", cfg.Database.Backend)
	}
}
