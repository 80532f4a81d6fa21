package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load builds the configuration from an optional YAML file, applies
// defaults and REAPER_* environment overrides, then validates.
//
// The loading sequence is:
//  1. Start from defaults
//  2. Overlay the YAML file, when path is non-empty
//  3. Apply environment variable overrides
//  4. Validate the final configuration
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
		ApplyDefaults(cfg)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies REAPER_* environment variable overrides.
// Environment variables always take precedence over file configuration.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("REAPER_REMOTE_STORE_URL"); val != "" {
		cfg.RemoteStore.URL = val
	}
	if val := os.Getenv("REAPER_REMOTE_STORE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.RemoteStore.Timeout = d
		}
	}

	if val := os.Getenv("REAPER_SWEEP_INTERVAL_HOURS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Retention.SweepIntervalHours = i
		}
	}
	if val := os.Getenv("REAPER_DELETE_REQUESTS_PER_SECOND"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Retention.DeleteRequestsPerSecond = f
		}
	}
	if val := os.Getenv("REAPER_SEED_FILE"); val != "" {
		cfg.Retention.SeedFile = val
	}
	if val := os.Getenv("REAPER_WATCH_SEED_FILE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Retention.WatchSeedFile = b
		}
	}

	if val := os.Getenv("REAPER_DATABASE_BACKEND"); val != "" {
		cfg.Database.Backend = val
	}
	if val := os.Getenv("REAPER_DATABASE_PATH"); val != "" {
		cfg.Database.Path = val
	}

	if val := os.Getenv("REAPER_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}

	if val := os.Getenv("REAPER_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("REAPER_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("REAPER_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
}
