package db

import (
	"database/sql"
)

// MigrateUp creates the addon schema. Every statement is idempotent.
func MigrateUp(db *sql.DB) error {
	tables := []string{
		`
CREATE TABLE IF NOT EXISTS addons (
    id           BIGSERIAL PRIMARY KEY,
    provider     TEXT NOT NULL,
    enabled      BOOLEAN NOT NULL DEFAULT TRUE,
    description  TEXT,
    parameters   JSONB NOT NULL DEFAULT '{}'::jsonb,
    events       JSONB NOT NULL DEFAULT '[]'::jsonb,
    projects     JSONB NOT NULL DEFAULT '[]'::jsonb,
    environments JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS events (
    id                 BIGSERIAL PRIMARY KEY,
    type               TEXT NOT NULL,
    created_by         TEXT NOT NULL,
    created_by_user_id BIGINT,
    ip                 TEXT,
    data               JSONB,
    pre_data           JSONB,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS integration_events (
    id             BIGSERIAL PRIMARY KEY,
    integration_id BIGINT NOT NULL REFERENCES addons(id) ON DELETE CASCADE,
    state          TEXT NOT NULL,
    state_details  TEXT NOT NULL,
    event          JSONB NOT NULL,
    details        JSONB,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS tag_types (
    name        TEXT PRIMARY KEY,
    description TEXT,
    icon        TEXT
)`,
	}
	for _, stmt := range tables {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	indexes := []string{
		// dispatcher loads only enabled rows
		`CREATE INDEX IF NOT EXISTS idx_addons_enabled ON addons(enabled) WHERE enabled = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_integration_events_integration_id ON integration_events(integration_id, id DESC)`,
		// retention sweep
		`CREATE INDEX IF NOT EXISTS idx_integration_events_created_at ON integration_events(created_at)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	_, _ = db.Exec(`
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_constraint
        WHERE conname = 'chk_integration_event_state'
    ) THEN
        ALTER TABLE integration_events ADD CONSTRAINT chk_integration_event_state
        CHECK (state IN ('success', 'failed', 'failed-retryable'));
    END IF;
END $$;
`)

	return nil
}

// MigrateDown drops the addon schema in reverse dependency order.
// Use with caution: this deletes all addon configurations and their delivery trail.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS integration_events CASCADE`,
		`DROP TABLE IF EXISTS tag_types`,
		`DROP TABLE IF EXISTS events`,
		`DROP TABLE IF EXISTS addons CASCADE`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
