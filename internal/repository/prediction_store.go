package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PoolCast/internal/domain/models"
	pkgch "PoolCast/pkg/clickhouse"
	applogger "PoolCast/pkg/logger"
)

// CHPredictionStore implements PredictionStore backed by ClickHouse.
// Predictions are append-only; the validated state lives in a separate
// prediction_validations marker table because ClickHouse rows are not
// updated in place. Due scans exclude marked ids with a subquery.
type CHPredictionStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHPredictionStore(ch *pkgch.Client, l *applogger.Logger) *CHPredictionStore {
	return &CHPredictionStore{db: ch.DB(), l: l}
}

const predictionCols = `prediction_id, created_at, target_ts, horizon_hours,
    predicted_price, confidence_lower, confidence_upper, confidence_score,
    model_version, features_used`

func (s *CHPredictionStore) InsertBatch(ctx context.Context, rows []models.Prediction) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO predictions (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, predictionCols))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		p := &rows[i]
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.CreatedAt.UTC(), p.TargetTS.UTC(), p.HorizonHours,
			p.Price, p.ConfidenceLower, p.ConfidenceUpper, p.ConfidenceScore,
			p.ModelVersion, p.FeaturesUsed,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit predictions: %w", err)
	}
	return nil
}

func (s *CHPredictionStore) ListWindow(ctx context.Context, from, to, createdAfter time.Time) ([]models.Prediction, error) {
	q := fmt.Sprintf(`
        SELECT %s FROM predictions
        WHERE target_ts > ? AND target_ts <= ? AND created_at >= ?
        ORDER BY target_ts ASC, created_at ASC`, predictionCols)

	rows, err := s.db.QueryContext(ctx, q, from.UTC(), to.UTC(), createdAfter.UTC())
	if err != nil {
		s.l.Error("clickhouse prediction window query error", applogger.Error(err))
		return nil, fmt.Errorf("prediction window: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

func (s *CHPredictionStore) ListDue(ctx context.Context, before time.Time, limit int) ([]models.Prediction, error) {
	q := fmt.Sprintf(`
        SELECT %s FROM predictions
        WHERE target_ts <= ?
          AND prediction_id NOT IN (SELECT prediction_id FROM prediction_validations FINAL)
        ORDER BY target_ts ASC
        LIMIT ?`, predictionCols)

	rows, err := s.db.QueryContext(ctx, q, before.UTC(), limit)
	if err != nil {
		s.l.Error("clickhouse due predictions query error", applogger.Error(err))
		return nil, fmt.Errorf("due predictions: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

func (s *CHPredictionStore) MarkValidated(ctx context.Context, predictionID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prediction_validations (prediction_id, validated_at) VALUES (?, ?)`,
		predictionID, at.UTC())
	if err != nil {
		return fmt.Errorf("mark validated %s: %w", predictionID, err)
	}
	return nil
}

func scanPredictions(rows *sql.Rows) ([]models.Prediction, error) {
	out := make([]models.Prediction, 0, 256)
	for rows.Next() {
		var p models.Prediction
		if err := rows.Scan(
			&p.ID, &p.CreatedAt, &p.TargetTS, &p.HorizonHours,
			&p.Price, &p.ConfidenceLower, &p.ConfidenceUpper, &p.ConfidenceScore,
			&p.ModelVersion, &p.FeaturesUsed,
		); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
