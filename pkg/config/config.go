package config

import "time"

// Config is the root configuration structure for the reaper daemon.
type Config struct {
	// RemoteStore describes the Prometheus-compatible store whose
	// catalog is matched and whose series are deleted.
	RemoteStore RemoteStoreConfig `yaml:"remote_store"`

	// Retention configures the policy engine and its scheduler.
	Retention RetentionConfig `yaml:"retention"`

	// Database configures policy and audit-log persistence.
	Database DatabaseConfig `yaml:"database"`

	// Server configures the management HTTP API.
	Server ServerConfig `yaml:"server"`

	// Telemetry configures logging and engine metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RemoteStoreConfig contains the remote store connection settings.
type RemoteStoreConfig struct {
	// URL is the remote store base URL, e.g. "http://localhost:9090".
	URL string `yaml:"url"`

	// Timeout is the per-call timeout for catalog, query, deletion, and
	// compaction requests. Default: 30s.
	Timeout time.Duration `yaml:"timeout"`
}

// RetentionConfig configures the engine and scheduler.
type RetentionConfig struct {
	// SweepIntervalHours is the scheduler interval in hours. Default: 6.
	SweepIntervalHours int `yaml:"sweep_interval_hours"`

	// DeleteRequestsPerSecond paces per-metric deletion calls.
	// Default: 5.
	DeleteRequestsPerSecond float64 `yaml:"delete_requests_per_second"`

	// SeedFile is an optional YAML file of policies upserted on startup.
	// Empty disables seeding.
	SeedFile string `yaml:"seed_file"`

	// WatchSeedFile re-applies the seed file when it changes on disk.
	WatchSeedFile bool `yaml:"watch_seed_file"`
}

// DatabaseConfig selects and configures the policy store backend.
type DatabaseConfig struct {
	// Backend is "sqlite" or "memory". Default: "sqlite".
	Backend string `yaml:"backend"`

	// Path is the SQLite database file path.
	Path string `yaml:"path"`
}

// ServerConfig contains configuration for the management HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080".
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	Format string `yaml:"format"`
}

// MetricsConfig configures the engine's own Prometheus metrics.
type MetricsConfig struct {
	// Enabled controls the /metrics endpoint. Default: true.
	Enabled bool `yaml:"enabled"`
}
