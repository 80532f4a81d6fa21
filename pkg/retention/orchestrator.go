package retention

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chrono-hq/reaper/pkg/telemetry/metrics"
)

// PolicyStore is the slice of the policy repository the orchestrator
// consumes: loading policies and recording execution outcomes. Both
// store backends satisfy it.
type PolicyStore interface {
	GetPolicy(ctx context.Context, id string) (*Policy, error)
	ListEnabledPolicies(ctx context.Context) ([]*Policy, error)
	SetLastExecuted(ctx context.Context, id string, executedAt time.Time) error
	AppendExecutionLog(ctx context.Context, entry *ExecutionLogEntry) error
}

// Orchestrator executes retention policies end to end: match against
// the live catalog, compute the cutoff, drive deletion, and persist the
// audit record. One policy id never executes twice concurrently.
type Orchestrator struct {
	policies PolicyStore
	remote   MetricStore
	deleter  *Deleter
	instr    *metrics.Collector
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}

	// now is swappable for tests.
	now func() time.Time
}

// NewOrchestrator creates an orchestrator over the given policy store
// and remote metric store. instr may be nil.
func NewOrchestrator(policies PolicyStore, remote MetricStore, deleter *Deleter, instr *metrics.Collector) *Orchestrator {
	return &Orchestrator{
		policies: policies,
		remote:   remote,
		deleter:  deleter,
		instr:    instr,
		logger:   slog.Default().With("component", "retention.orchestrator"),
		inflight: make(map[string]struct{}),
		now:      time.Now,
	}
}

// ExecutePolicy runs one policy end to end.
//
// Unknown ids fail with *NotFoundError, disabled policies with
// *DisabledPolicyError, and a policy already executing with
// *ExecutionInProgressError; none of those produce a log entry.
// Once execution starts, an ExecutionLogEntry is written on both the
// success and failure paths and LastExecutedAt is updated on either
// terminal state. Failures during matching or deletion are converted
// into a failed result, never propagated as a fault.
func (o *Orchestrator) ExecutePolicy(ctx context.Context, id string) (*ExecutionResult, error) {
	policy, err := o.policies.GetPolicy(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.Enabled {
		return nil, &DisabledPolicyError{PolicyID: id}
	}

	if !o.acquire(id) {
		return nil, &ExecutionInProgressError{PolicyID: id}
	}
	defer o.release(id)

	return o.run(ctx, policy), nil
}

// run executes an already-loaded, enabled policy. The caller holds the
// per-policy lock.
func (o *Orchestrator) run(ctx context.Context, policy *Policy) *ExecutionResult {
	executedAt := o.now().UTC()
	cutoff := Cutoff(executedAt, policy.RetentionDays)

	o.logger.Info("executing policy",
		"policy_id", policy.ID,
		"pattern", policy.Pattern,
		"retention_days", policy.RetentionDays,
		"cutoff", cutoff.Unix(),
	)

	matcher, err := CompilePattern(policy.Pattern)
	if err != nil {
		// Stored patterns are validated at write time, so this only
		// fires if the database was edited out of band.
		return o.finish(ctx, policy, executedAt, 0, nil, err.Error())
	}

	catalog, err := o.remote.Catalog(ctx)
	if err != nil {
		return o.finish(ctx, policy, executedAt, 0, nil, err.Error())
	}

	matched := matcher.MatchAll(catalog)
	batch := o.deleter.DeleteBefore(ctx, matched, cutoff)

	return o.finish(ctx, policy, executedAt, len(matched), &batch, "")
}

// finish writes the audit record and last-executed marker, then builds
// the result. errDetail empty means the batch completed; per-metric
// failures inside a completed batch still count as success.
func (o *Orchestrator) finish(ctx context.Context, policy *Policy, executedAt time.Time, matched int, batch *BatchResult, errDetail string) *ExecutionResult {
	result := &ExecutionResult{
		PolicyID:       policy.ID,
		Pattern:        policy.Pattern,
		MetricsMatched: matched,
		ExecutedAt:     executedAt,
		Succeeded:      errDetail == "",
		ErrorDetail:    errDetail,
	}
	if batch != nil {
		result.SeriesDeleted = batch.Accepted
		result.Failures = batch.Failures
	}

	entry := &ExecutionLogEntry{
		PolicyID:       policy.ID,
		Pattern:        policy.Pattern,
		MetricsMatched: result.MetricsMatched,
		SeriesDeleted:  result.SeriesDeleted,
		ExecutedAt:     executedAt,
		Succeeded:      result.Succeeded,
		ErrorDetail:    errDetail,
	}
	if err := o.policies.AppendExecutionLog(ctx, entry); err != nil {
		// The remote deletion already happened; the audit record is
		// best-effort at this point. Documented at-least-once gap.
		o.logger.Error("failed to append execution log", "policy_id", policy.ID, "error", err)
	}

	if err := o.policies.SetLastExecuted(ctx, policy.ID, executedAt); err != nil {
		o.logger.Error("failed to update last-executed marker", "policy_id", policy.ID, "error", err)
	}

	o.instr.RecordExecution(result.Succeeded)
	o.instr.RecordBatch(result.SeriesDeleted, len(result.Failures))

	if result.Succeeded {
		o.logger.Info("policy executed",
			"policy_id", policy.ID,
			"metrics_matched", result.MetricsMatched,
			"series_deleted", result.SeriesDeleted,
			"failures", len(result.Failures),
		)
	} else {
		o.logger.Warn("policy execution failed",
			"policy_id", policy.ID,
			"error", errDetail,
		)
	}

	return result
}

// ExecuteAllEnabled executes every enabled policy sequentially. The
// sweep never aborts early: a failing policy yields a failure result
// and the loop moves on. The returned slice has one result per policy
// that was attempted.
func (o *Orchestrator) ExecuteAllEnabled(ctx context.Context) []*ExecutionResult {
	policies, err := o.policies.ListEnabledPolicies(ctx)
	if err != nil {
		o.logger.Error("failed to load enabled policies", "error", err)
		return nil
	}

	o.logger.Info("executing enabled policies", "count", len(policies))

	results := make([]*ExecutionResult, 0, len(policies))
	for _, policy := range policies {
		if !o.acquire(policy.ID) {
			// A manual execution of this policy is in flight; skip it
			// rather than stacking a second run.
			o.logger.Warn("skipping policy, execution already in progress", "policy_id", policy.ID)
			continue
		}
		result := o.run(ctx, policy)
		o.release(policy.ID)
		results = append(results, result)
	}

	return results
}

// DryRun reports which metrics a policy would affect and the cutoff it
// would use, without deleting anything, writing a log entry, or
// touching LastExecutedAt. Disabled policies may be dry-run; the check
// only guards destructive execution.
func (o *Orchestrator) DryRun(ctx context.Context, id string) (*DryRunResult, error) {
	policy, err := o.policies.GetPolicy(ctx, id)
	if err != nil {
		return nil, err
	}

	matcher, err := CompilePattern(policy.Pattern)
	if err != nil {
		return nil, err
	}

	catalog, err := o.remote.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := Cutoff(o.now().UTC(), policy.RetentionDays)

	return &DryRunResult{
		PolicyID:       policy.ID,
		Pattern:        policy.Pattern,
		Cutoff:         cutoff,
		CutoffUnix:     cutoff.Unix(),
		MatchedMetrics: matcher.MatchAll(catalog),
	}, nil
}

// acquire takes the per-policy execution lock without blocking.
func (o *Orchestrator) acquire(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inflight[id]; busy {
		return false
	}
	o.inflight[id] = struct{}{}
	return true
}

// release frees the per-policy execution lock.
func (o *Orchestrator) release(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, id)
}
