// Package server provides the management HTTP API for the retention
// engine.
//
// This package ties the policy store, execution orchestrator, and
// scheduler together behind a JSON REST surface and provides server
// lifecycle management including start, graceful shutdown, and health
// checks.
//
// # Routes
//
// The server exposes the following HTTP endpoints:
//
//   - POST   /api/v1/policies               - Create a policy
//   - GET    /api/v1/policies               - List policies (newest first)
//   - GET    /api/v1/policies/{id}          - Fetch a policy
//   - PUT    /api/v1/policies/{id}          - Partially update a policy
//   - DELETE /api/v1/policies/{id}          - Delete a policy
//   - POST   /api/v1/policies/execute-all   - Execute all enabled policies
//   - POST   /api/v1/policies/{id}/execute  - Execute one policy
//   - POST   /api/v1/policies/{id}/dry-run  - Preview without deleting
//   - GET    /api/v1/policies/{id}/logs     - Execution history
//   - GET    /api/v1/scheduler/status       - Scheduler state and next run
//   - GET    /api/v1/connection             - Remote store reachability
//   - GET    /health                        - Liveness probe
//   - GET    /metrics                       - Prometheus metrics (optional)
//
// # Graceful Shutdown
//
// Start blocks until the context is cancelled, a SIGTERM/SIGINT
// arrives, or Shutdown is called; active requests are drained up to
// the configured shutdown timeout.
package server
