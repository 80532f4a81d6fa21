package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chrono-hq/reaper/pkg/retention"
)

// MemoryStore is an in-memory Store implementation. It enforces the
// same invariants as the SQLite backend and is used in tests and
// ephemeral deployments where persistence across restarts is not
// required.
type MemoryStore struct {
	mu        sync.RWMutex
	policies  map[string]*retention.Policy
	logs      []*retention.ExecutionLogEntry
	nextLogID int64
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		policies:  make(map[string]*retention.Policy),
		nextLogID: 1,
		now:       time.Now,
	}
}

// CreatePolicy validates and stores a new policy.
func (s *MemoryStore) CreatePolicy(_ context.Context, create retention.PolicyCreate) (*retention.Policy, error) {
	if err := create.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.policies {
		if p.Pattern == create.Pattern {
			return nil, &retention.DuplicatePatternError{Pattern: create.Pattern}
		}
	}

	now := s.now().UTC()
	policy := &retention.Policy{
		ID:            uuid.NewString(),
		Pattern:       create.Pattern,
		RetentionDays: create.RetentionDays,
		Description:   strings.TrimSpace(create.Description),
		Enabled:       create.IsEnabled(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.policies[policy.ID] = policy

	return clonePolicy(policy), nil
}

// GetPolicy returns the policy with the given id.
func (s *MemoryStore) GetPolicy(_ context.Context, id string) (*retention.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policy, ok := s.policies[id]
	if !ok {
		return nil, &retention.NotFoundError{PolicyID: id}
	}
	return clonePolicy(policy), nil
}

// UpdatePolicy applies a partial update to an existing policy.
func (s *MemoryStore) UpdatePolicy(_ context.Context, id string, update retention.PolicyUpdate) (*retention.Policy, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	policy, ok := s.policies[id]
	if !ok {
		return nil, &retention.NotFoundError{PolicyID: id}
	}

	if update.Pattern != nil && *update.Pattern != policy.Pattern {
		for otherID, other := range s.policies {
			if otherID != id && other.Pattern == *update.Pattern {
				return nil, &retention.DuplicatePatternError{Pattern: *update.Pattern}
			}
		}
		policy.Pattern = *update.Pattern
	}
	if update.RetentionDays != nil {
		policy.RetentionDays = *update.RetentionDays
	}
	if update.Description != nil {
		policy.Description = strings.TrimSpace(*update.Description)
	}
	if update.Enabled != nil {
		policy.Enabled = *update.Enabled
	}
	policy.UpdatedAt = s.now().UTC()

	return clonePolicy(policy), nil
}

// DeletePolicy removes a policy by id. The execution log is untouched.
func (s *MemoryStore) DeletePolicy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.policies[id]; !ok {
		return &retention.NotFoundError{PolicyID: id}
	}
	delete(s.policies, id)
	return nil
}

// ListPolicies returns all policies, most recently created first.
func (s *MemoryStore) ListPolicies(_ context.Context) ([]*retention.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(func(*retention.Policy) bool { return true }), nil
}

// ListEnabledPolicies returns enabled policies, most recently created first.
func (s *MemoryStore) ListEnabledPolicies(_ context.Context) ([]*retention.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(func(p *retention.Policy) bool { return p.Enabled }), nil
}

// listLocked snapshots matching policies sorted by creation time DESC.
// Callers must hold at least the read lock.
func (s *MemoryStore) listLocked(keep func(*retention.Policy) bool) []*retention.Policy {
	out := make([]*retention.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		if keep(p) {
			out = append(out, clonePolicy(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// SetLastExecuted records a completed execution attempt.
func (s *MemoryStore) SetLastExecuted(_ context.Context, id string, executedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	policy, ok := s.policies[id]
	if !ok {
		return &retention.NotFoundError{PolicyID: id}
	}
	t := executedAt.UTC()
	policy.LastExecutedAt = &t
	return nil
}

// AppendExecutionLog appends an immutable audit record.
func (s *MemoryStore) AppendExecutionLog(_ context.Context, entry *retention.ExecutionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *entry
	stored.ID = s.nextLogID
	s.nextLogID++
	s.logs = append(s.logs, &stored)

	entry.ID = stored.ID
	return nil
}

// ListExecutionLogs returns audit records, most recent first.
func (s *MemoryStore) ListExecutionLogs(_ context.Context, policyID string, limit int) ([]*retention.ExecutionLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*retention.ExecutionLogEntry, 0, len(s.logs))
	for _, e := range s.logs {
		if policyID != "" && e.PolicyID != policyID {
			continue
		}
		ec := *e
		out = append(out, &ec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ExecutedAt.Equal(out[j].ExecutedAt) {
			return out[i].ExecutedAt.After(out[j].ExecutedAt)
		}
		return out[i].ID > out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// clonePolicy copies a policy so callers cannot mutate stored state.
func clonePolicy(p *retention.Policy) *retention.Policy {
	c := *p
	if p.LastExecutedAt != nil {
		t := *p.LastExecutedAt
		c.LastExecutedAt = &t
	}
	return &c
}
