package db

import (
	"database/sql"
)

// MigrateUp creates the audit_logs table and its query indexes.
// Statements are idempotent so the worker can run it on every start.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS audit_logs (
    id             UUID PRIMARY KEY,
    actor_id       TEXT,
    action         VARCHAR(128) NOT NULL,
    resource_type  VARCHAR(64) NOT NULL,
    resource_id    TEXT,
    before_value   JSONB,
    after_value    JSONB,
    ip_address     TEXT,
    user_agent     TEXT,
    metadata       JSONB,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	indexes := []string{
		// newest-first listing, used by every query
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_actor_id ON audit_logs(actor_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs(action)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown drops the audit log schema.
// Use with caution: this deletes every committed audit record.
func MigrateDown(db *sql.DB) error {
	_, err := db.Exec(`DROP TABLE IF EXISTS audit_logs CASCADE`)
	return err
}
