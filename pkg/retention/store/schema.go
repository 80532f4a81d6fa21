package store

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the policy database schema.
// Timestamps are stored as integer unix nanoseconds.
const Schema = `
-- Retention policies
CREATE TABLE IF NOT EXISTS retention_policies (
    id TEXT PRIMARY KEY,
    pattern TEXT NOT NULL UNIQUE,
    retention_days REAL NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    last_executed_at INTEGER
);

-- Append-only execution audit log. No foreign key on purpose: the audit
-- trail outlives its policy.
CREATE TABLE IF NOT EXISTS execution_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    policy_id TEXT NOT NULL,
    pattern TEXT NOT NULL,
    metrics_matched INTEGER NOT NULL DEFAULT 0,
    series_deleted INTEGER NOT NULL DEFAULT 0,
    executed_at INTEGER NOT NULL,
    succeeded INTEGER NOT NULL,
    error_detail TEXT
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_policies_created_at ON retention_policies(created_at);
CREATE INDEX IF NOT EXISTS idx_policies_enabled ON retention_policies(enabled);
CREATE INDEX IF NOT EXISTS idx_logs_policy_id ON execution_logs(policy_id);
CREATE INDEX IF NOT EXISTS idx_logs_executed_at ON execution_logs(executed_at);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
