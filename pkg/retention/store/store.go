package store

import (
	"context"
	"fmt"
	"time"

	"chrono-hq/reaper/pkg/retention"
)

// Store is the repository interface for retention policies and the
// execution audit log.
type Store interface {
	// CreatePolicy validates and persists a new policy, assigning its id
	// and timestamps. Fails with *retention.ValidationError or
	// *retention.DuplicatePatternError without mutating anything.
	CreatePolicy(ctx context.Context, create retention.PolicyCreate) (*retention.Policy, error)

	// GetPolicy returns the policy with the given id or
	// *retention.NotFoundError.
	GetPolicy(ctx context.Context, id string) (*retention.Policy, error)

	// UpdatePolicy applies a partial update: only supplied fields change.
	// Uniqueness is re-validated excluding the record being updated.
	UpdatePolicy(ctx context.Context, id string, update retention.PolicyUpdate) (*retention.Policy, error)

	// DeletePolicy removes the policy unconditionally by id. Historical
	// execution log entries are kept.
	DeletePolicy(ctx context.Context, id string) error

	// ListPolicies returns all policies ordered by creation time, most
	// recent first.
	ListPolicies(ctx context.Context) ([]*retention.Policy, error)

	// ListEnabledPolicies returns enabled policies in the same order.
	ListEnabledPolicies(ctx context.Context) ([]*retention.Policy, error)

	// SetLastExecuted records the completion of an execution attempt.
	SetLastExecuted(ctx context.Context, id string, executedAt time.Time) error

	// AppendExecutionLog persists an audit record and assigns its ID.
	// Entries are immutable once written.
	AppendExecutionLog(ctx context.Context, entry *retention.ExecutionLogEntry) error

	// ListExecutionLogs returns audit records ordered by execution time,
	// most recent first. policyID filters when non-empty; limit bounds
	// the result when positive.
	ListExecutionLogs(ctx context.Context, policyID string, limit int) ([]*retention.ExecutionLogEntry, error)

	// Close releases resources held by the store.
	Close() error
}

// StorageError represents a failure in the persistence backend itself,
// as opposed to a validation or not-found condition.
type StorageError struct {
	Backend   string // "sqlite", "memory"
	Operation string // "create_policy", "append_log", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}
