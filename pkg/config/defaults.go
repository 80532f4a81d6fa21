package config

import "time"

// Default values for configuration fields.
const (
	// Remote store defaults
	DefaultRemoteStoreURL     = "http://localhost:9090"
	DefaultRemoteStoreTimeout = 30 * time.Second

	// Retention defaults
	DefaultSweepIntervalHours      = 6
	DefaultDeleteRequestsPerSecond = 5.0

	// Database defaults
	DefaultDatabaseBackend = "sqlite"
	DefaultDatabasePath    = "data/reaper.db"

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Telemetry defaults
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultMetricsEnabled = true
)

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.RemoteStore.URL == "" {
		cfg.RemoteStore.URL = DefaultRemoteStoreURL
	}
	if cfg.RemoteStore.Timeout == 0 {
		cfg.RemoteStore.Timeout = DefaultRemoteStoreTimeout
	}

	if cfg.Retention.SweepIntervalHours == 0 {
		cfg.Retention.SweepIntervalHours = DefaultSweepIntervalHours
	}
	if cfg.Retention.DeleteRequestsPerSecond == 0 {
		cfg.Retention.DeleteRequestsPerSecond = DefaultDeleteRequestsPerSecond
	}

	if cfg.Database.Backend == "" {
		cfg.Database.Backend = DefaultDatabaseBackend
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = DefaultDatabasePath
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
}

// SweepInterval returns the scheduler interval as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Retention.SweepIntervalHours) * time.Hour
}
