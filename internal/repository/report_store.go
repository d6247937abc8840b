package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"PoolCast/internal/domain/models"
	pkgch "PoolCast/pkg/clickhouse"
	applogger "PoolCast/pkg/logger"
)

// CHModelStore persists immutable model versions. The active model is
// resolved as the newest row by trained_at.
type CHModelStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHModelStore(ch *pkgch.Client, l *applogger.Logger) *CHModelStore {
	return &CHModelStore{db: ch.DB(), l: l}
}

func (s *CHModelStore) Insert(ctx context.Context, mv *models.ModelVersion) error {
	hp, err := json.Marshal(mv.Hyperparameters)
	if err != nil {
		return fmt.Errorf("marshal hyperparameters: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO model_versions
            (version_id, trained_at, hyperparameters, feature_names, weights,
             intercept, residual_std, mae, rmse, smape, r_squared, training_records)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mv.VersionID, mv.TrainedAt.UTC(), string(hp), mv.FeatureNames, mv.Weights,
		mv.Intercept, mv.ResidualStd,
		mv.Performance.MAE, mv.Performance.RMSE, mv.Performance.SMAPE,
		mv.Performance.RSquared, mv.Performance.TrainingRecords,
	)
	if err != nil {
		return fmt.Errorf("insert model version: %w", err)
	}
	return nil
}

func (s *CHModelStore) Active(ctx context.Context) (*models.ModelVersion, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT version_id, trained_at, hyperparameters, feature_names, weights,
               intercept, residual_std, mae, rmse, smape, r_squared, training_records
        FROM model_versions
        ORDER BY trained_at DESC
        LIMIT 1`)

	var (
		mv models.ModelVersion
		hp string
	)
	err := row.Scan(
		&mv.VersionID, &mv.TrainedAt, &hp, &mv.FeatureNames, &mv.Weights,
		&mv.Intercept, &mv.ResidualStd,
		&mv.Performance.MAE, &mv.Performance.RMSE, &mv.Performance.SMAPE,
		&mv.Performance.RSquared, &mv.Performance.TrainingRecords,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active model: %w", err)
	}

	if err := json.Unmarshal([]byte(hp), &mv.Hyperparameters); err != nil {
		s.l.Warn("model version has malformed hyperparameters",
			applogger.String("version", mv.VersionID))
		mv.Hyperparameters = map[string]float64{}
	}
	return &mv, nil
}

// CHAccuracyStore persists append-only accuracy records.
type CHAccuracyStore struct {
	db *sql.DB
}

func NewCHAccuracyStore(ch *pkgch.Client) *CHAccuracyStore {
	return &CHAccuracyStore{db: ch.DB()}
}

func (s *CHAccuracyStore) Insert(ctx context.Context, rec *models.AccuracyRecord) error {
	within := uint8(0)
	if rec.WithinInterval {
		within = 1
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO accuracy_records
            (prediction_id, target_ts, predicted_price, actual_price,
             absolute_error, percent_error, symmetric_percent_error,
             horizon_hours, within_interval, actual_regime, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.PredictionID, rec.TargetTS.UTC(), rec.PredictedPrice, rec.ActualPrice,
		rec.AbsoluteError, rec.PercentError, rec.SymmetricPercentError,
		rec.HorizonHours, within, rec.ActualRegime, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert accuracy record: %w", err)
	}
	return nil
}

func (s *CHAccuracyStore) ListSince(ctx context.Context, since time.Time) ([]models.AccuracyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT prediction_id, target_ts, predicted_price, actual_price,
               absolute_error, percent_error, symmetric_percent_error,
               horizon_hours, within_interval, actual_regime, created_at
        FROM accuracy_records
        WHERE target_ts >= ?
        ORDER BY target_ts ASC`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("list accuracy records: %w", err)
	}
	defer rows.Close()

	out := make([]models.AccuracyRecord, 0, 256)
	for rows.Next() {
		var (
			rec    models.AccuracyRecord
			within uint8
		)
		if err := rows.Scan(
			&rec.PredictionID, &rec.TargetTS, &rec.PredictedPrice, &rec.ActualPrice,
			&rec.AbsoluteError, &rec.PercentError, &rec.SymmetricPercentError,
			&rec.HorizonHours, &within, &rec.ActualRegime, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan accuracy record: %w", err)
		}
		rec.WithinInterval = within == 1
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// CHCVStore persists cross-validation fold rows.
type CHCVStore struct {
	db *sql.DB
}

func NewCHCVStore(ch *pkgch.Client) *CHCVStore {
	return &CHCVStore{db: ch.DB()}
}

func (s *CHCVStore) InsertFolds(ctx context.Context, folds []models.CVFold) error {
	if len(folds) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO cv_folds
            (run_id, fold, train_start, train_end, validation_start, validation_end,
             train_rows, validation_rows, mae, rmse, smape, mape)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range folds {
		f := &folds[i]
		if _, err := stmt.ExecContext(ctx,
			f.RunID, f.Fold, f.TrainStart.UTC(), f.TrainEnd.UTC(),
			f.ValidationStart.UTC(), f.ValidationEnd.UTC(),
			f.TrainRows, f.ValidationRows,
			f.Metrics.MAE, f.Metrics.RMSE, f.Metrics.SMAPE, f.Metrics.MAPE,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec fold %d: %w", f.Fold, err)
		}
	}
	return tx.Commit()
}

// CHRetrainingStore persists the retraining audit log.
type CHRetrainingStore struct {
	db *sql.DB
}

func NewCHRetrainingStore(ch *pkgch.Client) *CHRetrainingStore {
	return &CHRetrainingStore{db: ch.DB()}
}

func (s *CHRetrainingStore) Insert(ctx context.Context, ev *models.RetrainingEvent) error {
	before, err := json.Marshal(ev.PerformanceBefore)
	if err != nil {
		return fmt.Errorf("marshal performance before: %w", err)
	}
	after, err := json.Marshal(ev.PerformanceAfter)
	if err != nil {
		return fmt.Errorf("marshal performance after: %w", err)
	}
	triggered := uint8(0)
	if ev.Triggered {
		triggered = 1
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO retraining_events
            (created_at, triggered, reason, performance_before, performance_after,
             improvement, duration_ms)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.CreatedAt.UTC(), triggered, ev.Reason, string(before), string(after),
		ev.Improvement, ev.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert retraining event: %w", err)
	}
	return nil
}

func (s *CHRetrainingStore) LastTriggered(ctx context.Context) (*models.RetrainingEvent, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT created_at, reason, performance_before, performance_after,
               improvement, duration_ms
        FROM retraining_events
        WHERE triggered = 1
        ORDER BY created_at DESC
        LIMIT 1`)

	var (
		ev            models.RetrainingEvent
		before, after string
	)
	err := row.Scan(&ev.CreatedAt, &ev.Reason, &before, &after, &ev.Improvement, &ev.DurationMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last triggered retraining: %w", err)
	}
	ev.Triggered = true
	_ = json.Unmarshal([]byte(before), &ev.PerformanceBefore)
	_ = json.Unmarshal([]byte(after), &ev.PerformanceAfter)
	return &ev, nil
}

// CHTelemetryStore persists best-effort forecast telemetry rows.
type CHTelemetryStore struct {
	db *sql.DB
}

func NewCHTelemetryStore(ch *pkgch.Client) *CHTelemetryStore {
	return &CHTelemetryStore{db: ch.DB()}
}

func (s *CHTelemetryStore) Insert(ctx context.Context, row *models.ForecastTelemetry) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO forecast_telemetry
            (created_at, horizon_hours, duration_ms, cache_hits, cache_misses,
             hit_rate_pct, batch_count, generated)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.CreatedAt.UTC(), row.HorizonHours, row.DurationMs,
		row.CacheHits, row.CacheMisses, row.HitRatePct, row.BatchCount, row.Generated,
	)
	if err != nil {
		return fmt.Errorf("insert telemetry: %w", err)
	}
	return nil
}

// CHQualityStore persists data quality reports.
type CHQualityStore struct {
	db *sql.DB
}

func NewCHQualityStore(ch *pkgch.Client) *CHQualityStore {
	return &CHQualityStore{db: ch.DB()}
}

func (s *CHQualityStore) Insert(ctx context.Context, report *models.QualityReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal quality report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO quality_reports (created_at, overall_score, records, report)
        VALUES (?, ?, ?, ?)`,
		report.CreatedAt.UTC(), report.OverallScore, report.Records, string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert quality report: %w", err)
	}
	return nil
}

func (s *CHQualityStore) Latest(ctx context.Context) (*models.QualityReport, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
        SELECT report FROM quality_reports
        ORDER BY created_at DESC
        LIMIT 1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest quality report: %w", err)
	}

	var report models.QualityReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("unmarshal quality report: %w", err)
	}
	return &report, nil
}
