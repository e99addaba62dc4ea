package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sonavox/callaudit/internal/compare"
)

// ComparisonRecord is a persisted comparison job with its terminal result, if
// the job has finished.
type ComparisonRecord struct {
	ComparisonID string          `json:"comparison_id"`
	Status       string          `json:"status"`
	Phase        string          `json:"phase,omitempty"`
	Result       *compare.Result `json:"result,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// SetPhase implements [compare.Recorder]. It upserts the comparison row with
// the current status and execution phase.
func (s *Store) SetPhase(ctx context.Context, comparisonID, status, phase string) error {
	const q = `
		INSERT INTO comparisons (id, status, phase)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    phase = EXCLUDED.phase,
		    updated_at = now()`

	if _, err := s.pool.Exec(ctx, q, comparisonID, status, phase); err != nil {
		return fmt.Errorf("postgres store: set phase: %w", err)
	}
	return nil
}

// RecordRun implements [compare.Recorder]. It upserts one simulation run.
// The full run is stored as JSONB; frequently filtered fields are broken out
// into their own columns.
func (s *Store) RecordRun(ctx context.Context, run *compare.Run) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("postgres store: marshal run: %w", err)
	}

	const q = `
		INSERT INTO runs (run_id, comparison_id, agent_id, agent_name, simulation_number, status, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO UPDATE
		SET status = EXCLUDED.status,
		    data = EXCLUDED.data,
		    updated_at = now()`

	_, err = s.pool.Exec(ctx, q,
		run.RunID,
		run.ComparisonID,
		run.AgentID,
		run.AgentName,
		run.SimulationNumber,
		run.Status,
		payload,
	)
	if err != nil {
		return fmt.Errorf("postgres store: record run: %w", err)
	}
	return nil
}

// RecordAggregate implements [compare.Recorder]. It upserts the per-agent
// aggregate for a comparison.
func (s *Store) RecordAggregate(ctx context.Context, comparisonID string, agg *compare.Aggregate) error {
	payload, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("postgres store: marshal aggregate: %w", err)
	}

	const q = `
		INSERT INTO aggregates (comparison_id, agent_id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (comparison_id, agent_id) DO UPDATE
		SET data = EXCLUDED.data`

	if _, err := s.pool.Exec(ctx, q, comparisonID, agg.AgentID, payload); err != nil {
		return fmt.Errorf("postgres store: record aggregate: %w", err)
	}
	return nil
}

// Complete implements [compare.Recorder]. It stores the terminal result and
// marks the comparison completed.
func (s *Store) Complete(ctx context.Context, comparisonID string, result *compare.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("postgres store: marshal result: %w", err)
	}

	const q = `
		UPDATE comparisons
		SET status = $2, phase = '', result = $3, updated_at = now()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, q, comparisonID, compare.StatusCompleted, payload)
	if err != nil {
		return fmt.Errorf("postgres store: complete comparison: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: comparison %q", ErrNotFound, comparisonID)
	}
	return nil
}

// GetComparison returns the stored comparison job, or [ErrNotFound].
func (s *Store) GetComparison(ctx context.Context, comparisonID string) (*ComparisonRecord, error) {
	const q = `
		SELECT id, status, phase, result, created_at, updated_at
		FROM   comparisons
		WHERE  id = $1`

	var (
		rec     ComparisonRecord
		payload []byte
	)
	err := s.pool.QueryRow(ctx, q, comparisonID).Scan(
		&rec.ComparisonID, &rec.Status, &rec.Phase, &payload, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: comparison %q", ErrNotFound, comparisonID)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: get comparison: %w", err)
	}

	if len(payload) > 0 {
		rec.Result = &compare.Result{}
		if err := json.Unmarshal(payload, rec.Result); err != nil {
			return nil, fmt.Errorf("postgres store: unmarshal result: %w", err)
		}
	}
	return &rec, nil
}

// ListComparisons returns the most recent comparison jobs, newest first.
// A limit of 0 or less defaults to 50.
func (s *Store) ListComparisons(ctx context.Context, limit int) ([]ComparisonRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	const q = `
		SELECT id, status, phase, result, created_at, updated_at
		FROM   comparisons
		ORDER  BY created_at DESC
		LIMIT  $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list comparisons: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ComparisonRecord, error) {
		var (
			rec     ComparisonRecord
			payload []byte
		)
		if err := row.Scan(&rec.ComparisonID, &rec.Status, &rec.Phase, &payload, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return ComparisonRecord{}, err
		}
		if len(payload) > 0 {
			rec.Result = &compare.Result{}
			if err := json.Unmarshal(payload, rec.Result); err != nil {
				return ComparisonRecord{}, err
			}
		}
		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan comparisons: %w", err)
	}
	if records == nil {
		records = []ComparisonRecord{}
	}
	return records, nil
}

// ListRuns returns all simulation runs recorded under comparisonID, ordered
// by agent and simulation number.
func (s *Store) ListRuns(ctx context.Context, comparisonID string) ([]compare.Run, error) {
	const q = `
		SELECT data
		FROM   runs
		WHERE  comparison_id = $1
		ORDER  BY agent_id, simulation_number`

	rows, err := s.pool.Query(ctx, q, comparisonID)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (compare.Run, error) {
		var payload []byte
		if err := row.Scan(&payload); err != nil {
			return compare.Run{}, err
		}
		var run compare.Run
		if err := json.Unmarshal(payload, &run); err != nil {
			return compare.Run{}, err
		}
		return run, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan runs: %w", err)
	}
	if runs == nil {
		runs = []compare.Run{}
	}
	return runs, nil
}

// DeleteComparison removes the comparison and, through ON DELETE CASCADE,
// all of its runs and aggregates. Deleting an unknown ID returns [ErrNotFound].
func (s *Store) DeleteComparison(ctx context.Context, comparisonID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comparisons WHERE id = $1`, comparisonID)
	if err != nil {
		return fmt.Errorf("postgres store: delete comparison: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: comparison %q", ErrNotFound, comparisonID)
	}
	return nil
}
