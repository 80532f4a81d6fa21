// Package retention implements the retention policy engine: pattern
// matching against the metric-name catalog, cutoff computation, the
// deletion driver for the remote store's admin API, single-policy and
// full-sweep orchestration, and the background sweep scheduler.
//
// The engine is deliberately sequential. Policies execute one at a time
// within a sweep, and per-metric deletion requests are paced with a rate
// limiter, to bound load on the remote store. The only concurrency
// guarantee the engine makes is that at most one full sweep runs at a
// time and that a given policy cannot be executed concurrently by a
// manual trigger and the scheduler.
//
// Persistence lives in the store subpackage; the HTTP client for the
// remote store lives in pkg/promstore.
package retention
