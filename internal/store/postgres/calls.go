package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sonavox/callaudit/internal/analyzer"
)

// CallRecord is a persisted call analysis.
type CallRecord struct {
	CallID      string           `json:"call_id"`
	AudioKey    string           `json:"audio_key,omitempty"`
	HealthScore float64          `json:"health_score"`
	Analysis    *analyzer.Result `json:"analysis"`
	CreatedAt   time.Time        `json:"created_at"`
}

// SaveCallAnalysis upserts the analysis result for callID. audioKey is the
// blob-store key of the analyzed recording and may be empty for local files.
func (s *Store) SaveCallAnalysis(ctx context.Context, callID, audioKey string, res *analyzer.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("postgres store: marshal analysis: %w", err)
	}

	const q = `
		INSERT INTO calls (id, audio_key, health_score, analysis)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET audio_key = EXCLUDED.audio_key,
		    health_score = EXCLUDED.health_score,
		    analysis = EXCLUDED.analysis`

	_, err = s.pool.Exec(ctx, q, callID, audioKey, res.Summary.ConversationHealthScore, payload)
	if err != nil {
		return fmt.Errorf("postgres store: save call analysis: %w", err)
	}
	return nil
}

// GetCallAnalysis returns the stored analysis for callID, or [ErrNotFound].
func (s *Store) GetCallAnalysis(ctx context.Context, callID string) (*CallRecord, error) {
	const q = `
		SELECT id, audio_key, health_score, analysis, created_at
		FROM   calls
		WHERE  id = $1`

	var (
		rec     CallRecord
		payload []byte
	)
	err := s.pool.QueryRow(ctx, q, callID).Scan(
		&rec.CallID, &rec.AudioKey, &rec.HealthScore, &payload, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: call %q", ErrNotFound, callID)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: get call analysis: %w", err)
	}

	rec.Analysis = &analyzer.Result{}
	if err := json.Unmarshal(payload, rec.Analysis); err != nil {
		return nil, fmt.Errorf("postgres store: unmarshal analysis: %w", err)
	}
	return &rec, nil
}

// ListCalls returns the most recent call analyses, newest first. A limit of
// 0 or less defaults to 50.
func (s *Store) ListCalls(ctx context.Context, limit int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	const q = `
		SELECT id, audio_key, health_score, analysis, created_at
		FROM   calls
		ORDER  BY created_at DESC
		LIMIT  $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list calls: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (CallRecord, error) {
		var (
			rec     CallRecord
			payload []byte
		)
		if err := row.Scan(&rec.CallID, &rec.AudioKey, &rec.HealthScore, &payload, &rec.CreatedAt); err != nil {
			return CallRecord{}, err
		}
		rec.Analysis = &analyzer.Result{}
		if err := json.Unmarshal(payload, rec.Analysis); err != nil {
			return CallRecord{}, err
		}
		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan calls: %w", err)
	}
	if records == nil {
		records = []CallRecord{}
	}
	return records, nil
}

// DeleteCall removes the call analysis for callID. Deleting an unknown ID
// returns [ErrNotFound].
func (s *Store) DeleteCall(ctx context.Context, callID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM calls WHERE id = $1`, callID)
	if err != nil {
		return fmt.Errorf("postgres store: delete call: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: call %q", ErrNotFound, callID)
	}
	return nil
}
