package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaLockKey int64 = 2026101501

// schemaDDL creates every table used by the service. Selection and iteration
// logs are append-only; the guard trigger fails UPDATE and DELETE with
// SQLSTATE 55000 instead of silently ignoring them.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	category TEXT NOT NULL DEFAULT '',
	detected_category TEXT NOT NULL DEFAULT '',
	category_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
	overall_status TEXT NOT NULL DEFAULT '',
	document JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC);

CREATE TABLE IF NOT EXISTS category_selections (
	id BIGSERIAL PRIMARY KEY,
	analysis_id TEXT NOT NULL REFERENCES analyses(id),
	selected_category TEXT NOT NULL,
	detected_category TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	changed BOOLEAN NOT NULL,
	selected_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_category_selections_analysis ON category_selections(analysis_id, selected_at);

CREATE TABLE IF NOT EXISTS analysis_sessions (
	id TEXT PRIMARY KEY,
	origin_analysis_id TEXT NOT NULL UNIQUE REFERENCES analyses(id),
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS session_iterations (
	session_id TEXT NOT NULL REFERENCES analysis_sessions(id),
	seq BIGINT NOT NULL,
	id TEXT NOT NULL UNIQUE,
	kind TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (session_id, seq)
);

CREATE OR REPLACE FUNCTION append_only_guard() RETURNS trigger AS $$
BEGIN
	RAISE EXCEPTION '% is immutable; % is not allowed', TG_TABLE_NAME, TG_OP
		USING ERRCODE = '55000';
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_category_selections_block_update ON category_selections;
CREATE TRIGGER trg_category_selections_block_update
	BEFORE UPDATE ON category_selections
	FOR EACH ROW EXECUTE FUNCTION append_only_guard();

DROP TRIGGER IF EXISTS trg_category_selections_block_delete ON category_selections;
CREATE TRIGGER trg_category_selections_block_delete
	BEFORE DELETE ON category_selections
	FOR EACH ROW EXECUTE FUNCTION append_only_guard();

DROP TRIGGER IF EXISTS trg_session_iterations_block_update ON session_iterations;
CREATE TRIGGER trg_session_iterations_block_update
	BEFORE UPDATE ON session_iterations
	FOR EACH ROW EXECUTE FUNCTION append_only_guard();

DROP TRIGGER IF EXISTS trg_session_iterations_block_delete ON session_iterations;
CREATE TRIGGER trg_session_iterations_block_delete
	BEFORE DELETE ON session_iterations
	FOR EACH ROW EXECUTE FUNCTION append_only_guard();
`

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
