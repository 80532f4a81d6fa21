package retention

import (
	"strings"
	"time"
)

// Retention duration bounds, in days. Both bounds are inclusive.
const (
	// MinRetentionDays is one minute expressed in days.
	MinRetentionDays = 1.0 / 1440.0

	// MaxRetentionDays is roughly ten years.
	MaxRetentionDays = 3650.0
)

// Policy is a stored retention rule mapping a metric-name pattern to a
// retention duration. Policies are created, updated, and deleted
// exclusively through a store.Store implementation.
type Policy struct {
	// ID uniquely identifies the policy. Assigned on creation, immutable.
	ID string `json:"id"`

	// Pattern is the metric-name pattern: a glob when it contains '*' or
	// '?', otherwise a regular expression. Unique across all policies.
	Pattern string `json:"pattern"`

	// RetentionDays is the retention duration in days. Fractional values
	// are allowed; bounds are [MinRetentionDays, MaxRetentionDays].
	RetentionDays float64 `json:"retention_days"`

	// Description is optional free text.
	Description string `json:"description,omitempty"`

	// Enabled controls whether the policy participates in scheduled and
	// bulk execution. Disabled policies also reject direct execution.
	Enabled bool `json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// LastExecutedAt is set only on a completed execution attempt,
	// success or failure. Dry runs never touch it.
	LastExecutedAt *time.Time `json:"last_executed_at,omitempty"`
}

// PolicyCreate carries the caller-supplied fields for a new policy.
type PolicyCreate struct {
	Pattern       string  `json:"pattern" yaml:"pattern"`
	RetentionDays float64 `json:"retention_days" yaml:"retention_days"`
	Description   string  `json:"description,omitempty" yaml:"description,omitempty"`

	// Enabled defaults to true when nil.
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// Validate checks the pattern and retention bounds. It normalizes the
// pattern by trimming surrounding whitespace.
func (c *PolicyCreate) Validate() error {
	pattern, err := validatePattern(c.Pattern)
	if err != nil {
		return err
	}
	c.Pattern = pattern

	return validateRetentionDays(c.RetentionDays)
}

// IsEnabled resolves the optional Enabled field, defaulting to true.
func (c *PolicyCreate) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// PolicyUpdate carries a partial update: only non-nil fields change.
type PolicyUpdate struct {
	Pattern       *string  `json:"pattern,omitempty"`
	RetentionDays *float64 `json:"retention_days,omitempty"`
	Description   *string  `json:"description,omitempty"`
	Enabled       *bool    `json:"enabled,omitempty"`
}

// Validate checks the supplied fields only. The updated pattern is
// trimmed in place.
func (u *PolicyUpdate) Validate() error {
	if u.Pattern != nil {
		pattern, err := validatePattern(*u.Pattern)
		if err != nil {
			return err
		}
		*u.Pattern = pattern
	}

	if u.RetentionDays != nil {
		if err := validateRetentionDays(*u.RetentionDays); err != nil {
			return err
		}
	}

	return nil
}

// validatePattern trims the pattern, rejects empty values, and verifies
// that it compiles. Bad patterns must never reach the stored state.
func validatePattern(pattern string) (string, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return "", NewValidationError("pattern", "pattern cannot be empty")
	}

	if _, err := CompilePattern(pattern); err != nil {
		return "", err
	}

	return pattern, nil
}

// validateRetentionDays enforces the inclusive duration bounds.
func validateRetentionDays(days float64) error {
	if days < MinRetentionDays {
		return NewValidationError("retention_days",
			"retention must be at least 1 minute (0.0007 days)")
	}
	if days > MaxRetentionDays {
		return NewValidationError("retention_days",
			"retention cannot exceed 3650 days (10 years)")
	}
	return nil
}

// ExecutionLogEntry is an immutable audit record for one execution
// attempt. Dry runs do not produce one. Entries are never mutated or
// deleted by the engine and survive deletion of their policy.
type ExecutionLogEntry struct {
	ID int64 `json:"id"`

	PolicyID string `json:"policy_id"`

	// Pattern is a snapshot of the policy's pattern at execution time,
	// not a live reference.
	Pattern string `json:"pattern"`

	// MetricsMatched is the number of catalog names the pattern matched
	// before deletion.
	MetricsMatched int `json:"metrics_matched"`

	// SeriesDeleted is the number of matched metrics for which the
	// remote store acknowledged the deletion request.
	SeriesDeleted int `json:"series_deleted"`

	ExecutedAt time.Time `json:"executed_at"`
	Succeeded  bool      `json:"succeeded"`

	// ErrorDetail is populated only when Succeeded is false.
	ErrorDetail string `json:"error_detail,omitempty"`
}

// MetricFailure records a per-metric deletion failure within a batch.
type MetricFailure struct {
	Metric string `json:"metric"`
	Reason string `json:"reason"`
}

// BatchResult is the outcome of one deletion batch.
type BatchResult struct {
	// Accepted counts metrics whose deletion the remote store
	// acknowledged, including not-found responses (success, zero effect).
	Accepted int `json:"accepted"`

	// Failures lists metrics whose deletion was rejected or failed in
	// transport. Failures never abort the rest of the batch.
	Failures []MetricFailure `json:"failures,omitempty"`
}

// ExecutionResult is returned by the orchestrator for one policy run.
type ExecutionResult struct {
	PolicyID       string          `json:"policy_id"`
	Pattern        string          `json:"pattern"`
	MetricsMatched int             `json:"metrics_matched"`
	SeriesDeleted  int             `json:"series_deleted"`
	Failures       []MetricFailure `json:"failures,omitempty"`
	ExecutedAt     time.Time       `json:"executed_at"`
	Succeeded      bool            `json:"succeeded"`
	ErrorDetail    string          `json:"error_detail,omitempty"`
}

// DryRunResult reports what a policy execution would affect, without
// touching the remote store or the audit log.
type DryRunResult struct {
	PolicyID       string    `json:"policy_id"`
	Pattern        string    `json:"pattern"`
	Cutoff         time.Time `json:"cutoff"`
	CutoffUnix     int64     `json:"cutoff_unix"`
	MatchedMetrics []string  `json:"matched_metrics"`
}
