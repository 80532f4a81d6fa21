package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"chrono-hq/reaper/pkg/retention"
)

// SQLiteConfig contains configuration for the SQLite store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path:        "data/reaper.db",
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteStore implements Store using SQLite with WAL mode. Suitable for
// single-instance deployments, which is all the engine targets.
type SQLiteStore struct {
	db     *sql.DB
	config SQLiteConfig
	mu     sync.Mutex
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if necessary) the policy database and
// initializes its schema.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultSQLiteConfig().Path
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = DefaultSQLiteConfig().BusyTimeout
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:     db,
		config: cfg,
		logger: slog.Default().With("component", "retention.store.sqlite"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("sqlite policy store initialized", "path", cfg.Path)

	return s, nil
}

// initialize creates the schema and records the schema version.
func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// CreatePolicy validates and persists a new policy.
func (s *SQLiteStore) CreatePolicy(ctx context.Context, create retention.PolicyCreate) (*retention.Policy, error) {
	if err := create.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	taken, err := s.patternTaken(ctx, create.Pattern, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &retention.DuplicatePatternError{Pattern: create.Pattern}
	}

	now := time.Now().UTC()
	policy := &retention.Policy{
		ID:            uuid.NewString(),
		Pattern:       create.Pattern,
		RetentionDays: create.RetentionDays,
		Description:   strings.TrimSpace(create.Description),
		Enabled:       create.IsEnabled(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO retention_policies
			(id, pattern, retention_days, description, enabled, created_at, updated_at, last_executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`,
		policy.ID, policy.Pattern, policy.RetentionDays, policy.Description,
		boolToInt(policy.Enabled), now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return nil, NewStorageError("sqlite", "create_policy", err)
	}

	return policy, nil
}

// GetPolicy returns the policy with the given id.
func (s *SQLiteStore) GetPolicy(ctx context.Context, id string) (*retention.Policy, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pattern, retention_days, description, enabled, created_at, updated_at, last_executed_at
		FROM retention_policies WHERE id = ?`, id)

	policy, err := scanPolicy(row)
	if err == sql.ErrNoRows {
		return nil, &retention.NotFoundError{PolicyID: id}
	}
	if err != nil {
		return nil, NewStorageError("sqlite", "get_policy", err)
	}
	return policy, nil
}

// UpdatePolicy applies a partial update to an existing policy.
func (s *SQLiteStore) UpdatePolicy(ctx context.Context, id string, update retention.PolicyUpdate) (*retention.Policy, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	policy, err := s.GetPolicy(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Pattern != nil && *update.Pattern != policy.Pattern {
		taken, err := s.patternTaken(ctx, *update.Pattern, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, &retention.DuplicatePatternError{Pattern: *update.Pattern}
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
	policy.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE retention_policies
		SET pattern = ?, retention_days = ?, description = ?, enabled = ?, updated_at = ?
		WHERE id = ?`,
		policy.Pattern, policy.RetentionDays, policy.Description,
		boolToInt(policy.Enabled), policy.UpdatedAt.UnixNano(), id,
	)
	if err != nil {
		return nil, NewStorageError("sqlite", "update_policy", err)
	}

	return policy, nil
}

// DeletePolicy removes a policy by id. Execution log rows are kept.
func (s *SQLiteStore) DeletePolicy(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM retention_policies WHERE id = ?`, id)
	if err != nil {
		return NewStorageError("sqlite", "delete_policy", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return NewStorageError("sqlite", "delete_policy", err)
	}
	if affected == 0 {
		return &retention.NotFoundError{PolicyID: id}
	}
	return nil
}

// ListPolicies returns all policies, most recently created first.
func (s *SQLiteStore) ListPolicies(ctx context.Context) ([]*retention.Policy, error) {
	return s.listPolicies(ctx, `
		SELECT id, pattern, retention_days, description, enabled, created_at, updated_at, last_executed_at
		FROM retention_policies ORDER BY created_at DESC, id DESC`)
}

// ListEnabledPolicies returns enabled policies, most recently created first.
func (s *SQLiteStore) ListEnabledPolicies(ctx context.Context) ([]*retention.Policy, error) {
	return s.listPolicies(ctx, `
		SELECT id, pattern, retention_days, description, enabled, created_at, updated_at, last_executed_at
		FROM retention_policies WHERE enabled = 1 ORDER BY created_at DESC, id DESC`)
}

func (s *SQLiteStore) listPolicies(ctx context.Context, query string) ([]*retention.Policy, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, NewStorageError("sqlite", "list_policies", err)
	}
	defer rows.Close()

	policies := []*retention.Policy{}
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, NewStorageError("sqlite", "scan_policy", err)
		}
		policies = append(policies, policy)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "list_policies", err)
	}
	return policies, nil
}

// SetLastExecuted records a completed execution attempt.
func (s *SQLiteStore) SetLastExecuted(ctx context.Context, id string, executedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`UPDATE retention_policies SET last_executed_at = ? WHERE id = ?`,
		executedAt.UTC().UnixNano(), id)
	if err != nil {
		return NewStorageError("sqlite", "set_last_executed", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return NewStorageError("sqlite", "set_last_executed", err)
	}
	if affected == 0 {
		return &retention.NotFoundError{PolicyID: id}
	}
	return nil
}

// AppendExecutionLog persists an immutable audit record.
func (s *SQLiteStore) AppendExecutionLog(ctx context.Context, entry *retention.ExecutionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errorDetail interface{}
	if entry.ErrorDetail != "" {
		errorDetail = entry.ErrorDetail
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO execution_logs
			(policy_id, pattern, metrics_matched, series_deleted, executed_at, succeeded, error_detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.PolicyID, entry.Pattern, entry.MetricsMatched, entry.SeriesDeleted,
		entry.ExecutedAt.UTC().UnixNano(), boolToInt(entry.Succeeded), errorDetail,
	)
	if err != nil {
		return NewStorageError("sqlite", "append_log", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return NewStorageError("sqlite", "append_log", err)
	}
	entry.ID = id
	return nil
}

// ListExecutionLogs returns audit records, most recent first.
func (s *SQLiteStore) ListExecutionLogs(ctx context.Context, policyID string, limit int) ([]*retention.ExecutionLogEntry, error) {
	query := `
		SELECT id, policy_id, pattern, metrics_matched, series_deleted, executed_at, succeeded, error_detail
		FROM execution_logs`
	args := []interface{}{}

	if policyID != "" {
		query += ` WHERE policy_id = ?`
		args = append(args, policyID)
	}
	query += ` ORDER BY executed_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "list_logs", err)
	}
	defer rows.Close()

	entries := []*retention.ExecutionLogEntry{}
	for rows.Next() {
		var (
			entry       retention.ExecutionLogEntry
			executedAt  int64
			succeeded   int
			errorDetail sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.PolicyID, &entry.Pattern,
			&entry.MetricsMatched, &entry.SeriesDeleted, &executedAt, &succeeded, &errorDetail); err != nil {
			return nil, NewStorageError("sqlite", "scan_log", err)
		}
		entry.ExecutedAt = time.Unix(0, executedAt).UTC()
		entry.Succeeded = succeeded != 0
		if errorDetail.Valid {
			entry.ErrorDetail = errorDetail.String
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "list_logs", err)
	}
	return entries, nil
}

// Close checkpoints the WAL and closes the database.
func (s *SQLiteStore) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	if err := s.db.Close(); err != nil {
		return NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("sqlite policy store closed")
	return nil
}

// patternTaken reports whether another policy already uses the pattern.
func (s *SQLiteStore) patternTaken(ctx context.Context, pattern, excludeID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM retention_policies WHERE pattern = ? AND id != ?`,
		pattern, excludeID).Scan(&count)
	if err != nil {
		return false, NewStorageError("sqlite", "check_pattern", err)
	}
	return count > 0, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanPolicy scans one policy row.
func scanPolicy(row rowScanner) (*retention.Policy, error) {
	var (
		policy       retention.Policy
		enabled      int
		createdAt    int64
		updatedAt    int64
		lastExecuted sql.NullInt64
	)

	err := row.Scan(&policy.ID, &policy.Pattern, &policy.RetentionDays, &policy.Description,
		&enabled, &createdAt, &updatedAt, &lastExecuted)
	if err != nil {
		return nil, err
	}

	policy.Enabled = enabled != 0
	policy.CreatedAt = time.Unix(0, createdAt).UTC()
	policy.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if lastExecuted.Valid {
		t := time.Unix(0, lastExecuted.Int64).UTC()
		policy.LastExecutedAt = &t
	}

	return &policy, nil
}

// boolToInt converts a bool to its SQLite integer representation.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
