package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for errors. All problems are
// collected and reported together.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.RemoteStore.URL == "" {
		errs = append(errs, "remote_store.url is required")
	} else {
		u, err := url.Parse(cfg.RemoteStore.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Sprintf("remote_store.url %q must be an http(s) URL", cfg.RemoteStore.URL))
		}
	}
	if cfg.RemoteStore.Timeout <= 0 {
		errs = append(errs, "remote_store.timeout must be positive")
	}

	if cfg.Retention.SweepIntervalHours < 1 {
		errs = append(errs, "retention.sweep_interval_hours must be at least 1")
	}
	if cfg.Retention.DeleteRequestsPerSecond <= 0 {
		errs = append(errs, "retention.delete_requests_per_second must be positive")
	}

	switch cfg.Database.Backend {
	case "sqlite":
		if cfg.Database.Path == "" {
			errs = append(errs, "database.path is required for the sqlite backend")
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("database.backend %q must be \"sqlite\" or \"memory\"", cfg.Database.Backend))
	}

	if cfg.Server.ListenAddress == "" {
		errs = append(errs, "server.listen_address is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
