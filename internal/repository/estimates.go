// Package repository persists emitted estimates in Postgres.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"wisefido-rppg/internal/models"
)

// Schema creates the estimate history table.
const Schema = `
CREATE TABLE IF NOT EXISTS rppg_estimates (
	id             BIGSERIAL PRIMARY KEY,
	session_id     TEXT NOT NULL,
	captured_at    DOUBLE PRECISION NOT NULL,
	heart_rate_bpm DOUBLE PRECISION,
	hrv_ms         DOUBLE PRECISION,
	eye_redness    DOUBLE PRECISION,
	label          TEXT NOT NULL,
	peaks          BIGINT[] NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_rppg_estimates_session ON rppg_estimates (session_id, id DESC);
`

// EstimateRecord is one stored estimate.
type EstimateRecord struct {
	ID        int64
	SessionID string
	Estimate  models.MetricEstimate
	Peaks     []int64
	CreatedAt time.Time
}

// EstimateRepository reads and writes rppg_estimates.
type EstimateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEstimateRepository creates the repository.
func NewEstimateRepository(db *sql.DB, logger *zap.Logger) *EstimateRepository {
	return &EstimateRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the table and index when missing.
func (r *EstimateRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create rppg_estimates: %w", err)
	}
	return nil
}

// Insert stores est for sessionID and returns the row id.
func (r *EstimateRepository) Insert(ctx context.Context, sessionID string, est *models.MetricEstimate, peaks []int) (int64, error) {
	if sessionID == "" {
		return 0, fmt.Errorf("session_id is required")
	}
	if est == nil {
		return 0, fmt.Errorf("estimate is required")
	}

	stored := make([]int64, len(peaks))
	for i, p := range peaks {
		stored[i] = int64(p)
	}

	query := `
		INSERT INTO rppg_estimates (session_id, captured_at, heart_rate_bpm, hrv_ms, eye_redness, label, peaks)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		sessionID,
		est.Timestamp,
		est.HeartRateBPM,
		est.HRVMs,
		est.EyeRedness,
		est.Label,
		pq.Array(stored),
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert estimate",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return 0, fmt.Errorf("failed to insert estimate: %w", err)
	}
	return id, nil
}

// ListBySession returns up to limit estimates of a session, newest first.
func (r *EstimateRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]EstimateRecord, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, session_id, captured_at, heart_rate_bpm, hrv_ms, eye_redness, label, peaks, created_at
		FROM rppg_estimates
		WHERE session_id = $1
		ORDER BY id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query estimates: %w", err)
	}
	defer rows.Close()

	var records []EstimateRecord
	for rows.Next() {
		var (
			rec              EstimateRecord
			hr, hrv, redness sql.NullFloat64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.Estimate.Timestamp,
			&hr,
			&hrv,
			&redness,
			&rec.Estimate.Label,
			pq.Array(&rec.Peaks),
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan estimate: %w", err)
		}
		rec.Estimate.HeartRateBPM = nullable(hr)
		rec.Estimate.HRVMs = nullable(hrv)
		rec.Estimate.EyeRedness = nullable(redness)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate estimates: %w", err)
	}
	return records, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return models.Float64Ptr(v.Float64)
}
