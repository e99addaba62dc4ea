// Package postgres provides the PostgreSQL-backed persistence layer for
// callaudit: analyzed calls, comparison jobs, their simulation runs, and
// per-agent aggregates.
//
// All tables share a single [pgxpool.Pool] connection pool. [Migrate] is
// idempotent and safe to call on every application start.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.SaveCallAnalysis(ctx, callID, audioKey, result)
//
//	// Store satisfies compare.Recorder, so the orchestrator persists
//	// comparison progress through it directly.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlCalls = `
CREATE TABLE IF NOT EXISTS calls (
    id           TEXT         PRIMARY KEY,
    audio_key    TEXT         NOT NULL DEFAULT '',
    health_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    analysis     JSONB        NOT NULL,
    created_at   TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_calls_created_at
    ON calls (created_at);
`

const ddlComparisons = `
CREATE TABLE IF NOT EXISTS comparisons (
    id          TEXT         PRIMARY KEY,
    status      TEXT         NOT NULL,
    phase       TEXT         NOT NULL DEFAULT '',
    result      JSONB,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_comparisons_status
    ON comparisons (status);

CREATE INDEX IF NOT EXISTS idx_comparisons_created_at
    ON comparisons (created_at);
`

const ddlRuns = `
CREATE TABLE IF NOT EXISTS runs (
    run_id            TEXT    PRIMARY KEY,
    comparison_id     TEXT    NOT NULL REFERENCES comparisons (id) ON DELETE CASCADE,
    agent_id          TEXT    NOT NULL,
    agent_name        TEXT    NOT NULL DEFAULT '',
    simulation_number INT     NOT NULL,
    status            TEXT    NOT NULL,
    data              JSONB   NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_comparison_id
    ON runs (comparison_id);

CREATE INDEX IF NOT EXISTS idx_runs_agent_id
    ON runs (agent_id);
`

const ddlAggregates = `
CREATE TABLE IF NOT EXISTS aggregates (
    comparison_id  TEXT   NOT NULL REFERENCES comparisons (id) ON DELETE CASCADE,
    agent_id       TEXT   NOT NULL,
    data           JSONB  NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (comparison_id, agent_id)
);
`

// Migrate creates or ensures all required database tables and indexes exist.
// It is idempotent (CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT EXISTS)
// and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		ddlCalls,
		ddlComparisons,
		ddlRuns,
		ddlAggregates,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
