// Reaper is a retention policy engine for Prometheus-compatible
// metrics stores.
//
// It maps metric-name patterns to retention durations, matches the
// patterns against the remote store's metric catalog, and deletes
// series older than each policy's cutoff through the store's admin
// API. Policies are managed through a JSON REST API or a declarative
// YAML seed file, and a scheduler sweeps all enabled policies on a
// fixed interval.
//
// Usage:
//
//	# Start the daemon with default configuration
//	reaper run
//
//	# Start with a custom configuration file
//	reaper run --config /etc/reaper/config.yaml
//
//	# Probe the remote store connection
//	reaper check
//
//	# Show version information
//	reaper version
package main

func main() {
	Execute()
}
