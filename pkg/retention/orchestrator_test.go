package retention

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"chrono-hq/reaper/pkg/promstore"
)

// fakePolicyStore is a scripted PolicyStore for engine tests.
type fakePolicyStore struct {
	mu       sync.Mutex
	policies []*Policy
	logs     []*ExecutionLogEntry
	seq      int
}

func newFakePolicyStore() *fakePolicyStore {
	return &fakePolicyStore{}
}

// add validates and stores a policy the way a real backend would,
// assigning a deterministic id.
func (f *fakePolicyStore) add(t *testing.T, create PolicyCreate) *Policy {
	t.Helper()
	if err := create.Validate(); err != nil {
		t.Fatalf("invalid test policy: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	now := time.Now().UTC()
	policy := &Policy{
		ID:            fmt.Sprintf("policy-%d", f.seq),
		Pattern:       create.Pattern,
		RetentionDays: create.RetentionDays,
		Description:   create.Description,
		Enabled:       create.IsEnabled(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.policies = append(f.policies, policy)
	return policy
}

// findLocked returns the stored policy or nil. Callers hold f.mu.
func (f *fakePolicyStore) findLocked(id string) *Policy {
	for _, p := range f.policies {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (f *fakePolicyStore) GetPolicy(_ context.Context, id string) (*Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	policy := f.findLocked(id)
	if policy == nil {
		return nil, &NotFoundError{PolicyID: id}
	}
	c := *policy
	return &c, nil
}

func (f *fakePolicyStore) ListEnabledPolicies(_ context.Context) ([]*Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []*Policy{}
	for _, p := range f.policies {
		if p.Enabled {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakePolicyStore) SetLastExecuted(_ context.Context, id string, executedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	policy := f.findLocked(id)
	if policy == nil {
		return &NotFoundError{PolicyID: id}
	}
	ts := executedAt.UTC()
	policy.LastExecutedAt = &ts
	return nil
}

func (f *fakePolicyStore) AppendExecutionLog(_ context.Context, entry *ExecutionLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry.ID = int64(len(f.logs) + 1)
	stored := *entry
	f.logs = append(f.logs, &stored)
	return nil
}

// logsFor returns recorded audit entries, all of them when policyID is
// empty.
func (f *fakePolicyStore) logsFor(policyID string) []*ExecutionLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []*ExecutionLogEntry{}
	for _, e := range f.logs {
		if policyID == "" || e.PolicyID == policyID {
			c := *e
			out = append(out, &c)
		}
	}
	return out
}

func newTestOrchestrator(t *testing.T, remote *fakeMetricStore) (*Orchestrator, *fakePolicyStore) {
	t.Helper()
	policies := newFakePolicyStore()
	orch := NewOrchestrator(policies, remote, fastDeleter(remote), nil)
	return orch, policies
}

func mustCreatePolicy(t *testing.T, st *fakePolicyStore, create PolicyCreate) *Policy {
	t.Helper()
	return st.add(t, create)
}

// TestOrchestrator_ExecutePolicy tests the full path: match, delete,
// audit log, last-executed marker.
func TestOrchestrator_ExecutePolicy(t *testing.T) {
	remote := &fakeMetricStore{catalog: []string{"cpu_user", "cpu_system", "mem_free"}}
	orch, policies := newTestOrchestrator(t, remote)
	ctx := context.Background()

	policy := mustCreatePolicy(t, policies, PolicyCreate{Pattern: "cpu_*", RetentionDays: 7})

	result, err := orch.ExecutePolicy(ctx, policy.ID)
	if err != nil {
		t.Fatalf("ExecutePolicy() failed: %v", err)
	}

	if !result.Succeeded {
		t.Errorf("Succeeded = false, want true: %s", result.ErrorDetail)
	}
	if result.MetricsMatched != 2 {
		t.Errorf("MetricsMatched = %d, want 2", result.MetricsMatched)
	}
	if result.SeriesDeleted != 2 {
		t.Errorf("SeriesDeleted = %d, want 2", result.SeriesDeleted)
	}

	// Cutoff must be exactly seven days before execution.
	wantEnd := result.ExecutedAt.Unix() - 7*86400
	if got := remote.deleteCalls[0].end; got != wantEnd {
		t.Errorf("deletion end = %d, want %d", got, wantEnd)
	}

	logs := policies.logsFor(policy.ID)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	if !logs[0].Succeeded || logs[0].SeriesDeleted != 2 || logs[0].Pattern != "cpu_*" {
		t.Errorf("unexpected log entry: %+v", logs[0])
	}

	reloaded, err := policies.GetPolicy(ctx, policy.ID)
	if err != nil {
		t.Fatalf("GetPolicy() failed: %v", err)
	}
	if reloaded.LastExecutedAt == nil {
		t.Error("LastExecutedAt not set after execution")
	}
}

// TestOrchestrator_ExecutePolicy_NotFound tests the unknown-id path.
func TestOrchestrator_ExecutePolicy_NotFound(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &fakeMetricStore{})

	_, err := orch.ExecutePolicy(context.Background(), "no-such-id")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}
}

// TestOrchestrator_ExecutePolicy_Disabled verifies that direct
// execution of a disabled policy is rejected with no side effects.
func TestOrchestrator_ExecutePolicy_Disabled(t *testing.T) {
	remote := &fakeMetricStore{catalog: []string{"cpu_user"}}
	orch, policies := newTestOrchestrator(t, remote)
	ctx := context.Background()

	disabled := false
	policy := mustCreatePolicy(t, policies, PolicyCreate{
		Pattern: "cpu_*", RetentionDays: 7, Enabled: &disabled,
	})

	_, err := orch.ExecutePolicy(ctx, policy.ID)
	var disabledErr *DisabledPolicyError
	if !errors.As(err, &disabledErr) {
		t.Fatalf("expected *DisabledPolicyError, got %v", err)
	}

	if len(remote.deleteCalls) != 0 {
		t.Error("disabled policy must not reach the remote store")
	}
	if logs := policies.logsFor(policy.ID); len(logs) != 0 {
		t.Error("disabled policy must not produce a log entry")
	}
}

// TestOrchestrator_ExecutePolicy_InProgress verifies the per-policy
// execution lock.
func TestOrchestrator_ExecutePolicy_InProgress(t *testing.T) {
	orch, policies := newTestOrchestrator(t, &fakeMetricStore{})
	policy := mustCreatePolicy(t, policies, PolicyCreate{Pattern: "cpu_*", RetentionDays: 7})

	if !orch.acquire(policy.ID) {
		t.Fatal("acquire() failed on a free policy")
	}
	defer orch.release(policy.ID)

	_, err := orch.ExecutePolicy(context.Background(), policy.ID)
	var inProgress *ExecutionInProgressError
	if !errors.As(err, &inProgress) {
		t.Fatalf("expected *ExecutionInProgressError, got %v", err)
	}
}

// TestOrchestrator_CatalogFailure verifies that a catalog fetch failure
// becomes a failed result with an audit entry, not a propagated fault.
func TestOrchestrator_CatalogFailure(t *testing.T) {
	remote := &fakeMetricStore{
		catalogErr: &promstore.TimeoutError{Op: "catalog", Timeout: 30 * time.Second},
	}
	orch, policies := newTestOrchestrator(t, remote)
	ctx := context.Background()

	policy := mustCreatePolicy(t, policies, PolicyCreate{Pattern: "cpu_*", RetentionDays: 7})

	result, err := orch.ExecutePolicy(ctx, policy.ID)
	if err != nil {
		t.Fatalf("ExecutePolicy() returned fault, want failed result: %v", err)
	}
	if result.Succeeded {
		t.Error("Succeeded = true, want false")
	}
	if result.ErrorDetail == "" {
		t.Error("ErrorDetail empty on failed execution")
	}

	logs := policies.logsFor(policy.ID)
	if len(logs) != 1 || logs[0].Succeeded {
		t.Fatalf("expected 1 failed log entry, got %+v", logs)
	}

	reloaded, _ := policies.GetPolicy(ctx, policy.ID)
	if reloaded.LastExecutedAt == nil {
		t.Error("LastExecutedAt must be set on failed executions too")
	}
}

// TestOrchestrator_PartialFailureStillSucceeds verifies that per-metric
// failures inside a completed batch leave the execution succeeded.
func TestOrchestrator_PartialFailureStillSucceeds(t *testing.T) {
	remote := &fakeMetricStore{
		catalog: []string{"cpu_user", "cpu_system"},
		deleteErrs: map[string]error{
			"cpu_system": &promstore.TransportError{Op: "delete_series", Cause: errors.New("reset")},
		},
	}
	orch, policies := newTestOrchestrator(t, remote)

	policy := mustCreatePolicy(t, policies, PolicyCreate{Pattern: "cpu_*", RetentionDays: 7})

	result, err := orch.ExecutePolicy(context.Background(), policy.ID)
	if err != nil {
		t.Fatalf("ExecutePolicy() failed: %v", err)
	}
	if !result.Succeeded {
		t.Error("partial deletion failure must not fail the execution")
	}
	if result.SeriesDeleted != 1 || len(result.Failures) != 1 {
		t.Errorf("unexpected result: deleted=%d failures=%d", result.SeriesDeleted, len(result.Failures))
	}
}

// TestOrchestrator_ExecuteAllEnabled tests a sweep: enabled policies
// only, sequential, never aborted by one failure.
func TestOrchestrator_ExecuteAllEnabled(t *testing.T) {
	remote := &fakeMetricStore{catalog: []string{"cpu_user", "mem_free", "disk_io"}}
	orch, policies := newTestOrchestrator(t, remote)
	ctx := context.Background()

	mustCreatePolicy(t, policies, PolicyCreate{Pattern: "cpu_*", RetentionDays: 7})
	mustCreatePolicy(t, policies, PolicyCreate{Pattern: "mem_*", RetentionDays: 30})

	disabled := false
	mustCreatePolicy(t, policies, PolicyCreate{
		Pattern: "disk_*", RetentionDays: 1, Enabled: &disabled,
	})

	results := orch.ExecuteAllEnabled(ctx)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Succeeded {
			t.Errorf("policy %s failed: %s", r.PolicyID, r.ErrorDetail)
		}
	}

	for _, call := range remote.deleteCalls {
		if call.selector == `{__name__="disk_io"}` {
			t.Error("disabled policy's metrics must not be deleted")
		}
	}
}

// TestOrchestrator_ExecuteAllEnabled_SkipsInflight verifies that a
// sweep skips a policy that is already executing manually.
func TestOrchestrator_ExecuteAllEnabled_SkipsInflight(t *testing.T) {
	remote := &fakeMetricStore{catalog: []string{"cpu_user", "mem_free"}}
	orch, policies := newTestOrchestrator(t, remote)

	busy := mustCreatePolicy(t, policies, PolicyCreate{Pattern: "cpu_*", RetentionDays: 7})
	mustCreatePolicy(t, policies, PolicyCreate{Pattern: "mem_*", RetentionDays: 30})

	if !orch.acquire(busy.ID) {
		t.Fatal("acquire() failed")
	}
	defer orch.release(busy.ID)

	results := orch.ExecuteAllEnabled(context.Background())
	if len(results) != 1 {
		t.Fatalf("expected 1 result (busy policy skipped), got %d", len(results))
	}
	if results[0].Pattern != "mem_*" {
		t.Errorf("executed pattern = %q, want mem_*", results[0].Pattern)
	}
}

// TestOrchestrator_DryRun verifies reporting without any mutation:
// no deletion, no log entry, no last-executed update.
func TestOrchestrator_DryRun(t *testing.T) {
	remote := &fakeMetricStore{catalog: []string{"cpu_user", "cpu_system", "mem_free"}}
	orch, policies := newTestOrchestrator(t, remote)
	ctx := context.Background()

	policy := mustCreatePolicy(t, policies, PolicyCreate{Pattern: "cpu_*", RetentionDays: 7})

	result, err := orch.DryRun(ctx, policy.ID)
	if err != nil {
		t.Fatalf("DryRun() failed: %v", err)
	}

	if len(result.MatchedMetrics) != 2 {
		t.Errorf("MatchedMetrics = %v, want 2 names", result.MatchedMetrics)
	}
	if result.CutoffUnix != result.Cutoff.Unix() {
		t.Errorf("CutoffUnix = %d, want %d", result.CutoffUnix, result.Cutoff.Unix())
	}

	if len(remote.deleteCalls) != 0 || remote.cleanCalls != 0 {
		t.Error("dry run must not touch the remote store's admin API")
	}
	if logs := policies.logsFor(policy.ID); len(logs) != 0 {
		t.Error("dry run must not produce a log entry")
	}
	reloaded, _ := policies.GetPolicy(ctx, policy.ID)
	if reloaded.LastExecutedAt != nil {
		t.Error("dry run must not update LastExecutedAt")
	}
}

// TestOrchestrator_DryRun_DisabledAllowed verifies that disabled
// policies may still be dry-run.
func TestOrchestrator_DryRun_DisabledAllowed(t *testing.T) {
	remote := &fakeMetricStore{catalog: []string{"cpu_user"}}
	orch, policies := newTestOrchestrator(t, remote)

	disabled := false
	policy := mustCreatePolicy(t, policies, PolicyCreate{
		Pattern: "cpu_*", RetentionDays: 7, Enabled: &disabled,
	})

	if _, err := orch.DryRun(context.Background(), policy.ID); err != nil {
		t.Fatalf("DryRun() on disabled policy failed: %v", err)
	}
}
