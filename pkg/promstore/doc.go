// Package promstore is the HTTP client for the Prometheus-compatible
// remote store consumed by the retention engine. It covers the four
// admin/query calls the engine needs: metric-name catalog retrieval,
// instant queries for connectivity checks, series deletion over an
// epoch-seconds range, and tombstone cleanup.
//
// All calls are plain request/response with an explicit timeout.
// Failures are classified into typed errors so callers can distinguish
// timeouts, transport failures, and non-2xx responses.
package promstore
