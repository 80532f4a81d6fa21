// Package store provides persistence for retention policies and their
// append-only execution audit log. Two implementations share the Store
// interface: a SQLite backend for durable single-instance deployments
// and an in-memory backend for tests and ephemeral runs.
//
// The store owns the write-time invariants: non-empty compilable
// patterns, inclusive retention bounds, and pattern uniqueness across
// all policies. A violated write fails with a typed validation error
// and leaves no partial record. Deleting a policy never cascades to its
// execution log; the audit trail outlives the policy.
package store
