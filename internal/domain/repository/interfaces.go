package repository

import (
	"context"
	"time"

	"PoolCast/internal/domain/models"
)

// ObservationStore persists hourly market observations.
type ObservationStore interface {
	// InsertBatch upserts observations keyed by ts. Safe to replay.
	InsertBatch(ctx context.Context, rows []models.Observation) error

	// ListRange returns observations with from <= ts < to, ascending.
	ListRange(ctx context.Context, from, to time.Time) ([]models.Observation, error)

	// ListPage returns up to limit observations with ts > after,
	// ascending. Drives the feature calculation cursor.
	ListPage(ctx context.Context, after time.Time, limit int) ([]models.Observation, error)

	// FindNearest returns the observation closest to target within
	// tolerance, or nil when none exists.
	FindNearest(ctx context.Context, target time.Time, tolerance time.Duration) (*models.Observation, error)

	Count(ctx context.Context) (int64, error)
}

// FeatureStore persists engineered feature records keyed by ts.
type FeatureStore interface {
	UpsertBatch(ctx context.Context, rows []models.FeatureRecord) error
	ListRange(ctx context.Context, from, to time.Time) ([]models.FeatureRecord, error)
	Latest(ctx context.Context) (*models.FeatureRecord, error)
}

// PredictionStore persists forecasts and their validation markers.
type PredictionStore interface {
	InsertBatch(ctx context.Context, rows []models.Prediction) error

	// ListWindow returns predictions with from < target_ts <= to and
	// created_at >= createdAfter.
	ListWindow(ctx context.Context, from, to, createdAfter time.Time) ([]models.Prediction, error)

	// ListDue returns unvalidated predictions with target_ts <= before,
	// oldest target first, capped at limit.
	ListDue(ctx context.Context, before time.Time, limit int) ([]models.Prediction, error)

	// MarkValidated records the validation marker for a prediction.
	MarkValidated(ctx context.Context, predictionID string, at time.Time) error
}

// ModelStore persists immutable model versions.
type ModelStore interface {
	Insert(ctx context.Context, mv *models.ModelVersion) error

	// Active returns the latest version by trained_at, or nil when no
	// model has been trained yet.
	Active(ctx context.Context) (*models.ModelVersion, error)
}

// AccuracyStore persists append-only accuracy records.
type AccuracyStore interface {
	Insert(ctx context.Context, rec *models.AccuracyRecord) error
	ListSince(ctx context.Context, since time.Time) ([]models.AccuracyRecord, error)
}

// CVStore persists cross-validation fold rows.
type CVStore interface {
	InsertFolds(ctx context.Context, folds []models.CVFold) error
}

// RetrainingStore persists the retraining audit log.
type RetrainingStore interface {
	Insert(ctx context.Context, ev *models.RetrainingEvent) error

	// LastTriggered returns the newest event with triggered=true, or
	// nil when retraining has never run.
	LastTriggered(ctx context.Context) (*models.RetrainingEvent, error)
}

// TelemetryStore persists best-effort forecast telemetry rows.
type TelemetryStore interface {
	Insert(ctx context.Context, row *models.ForecastTelemetry) error
}

// QualityStore persists data quality reports.
type QualityStore interface {
	Insert(ctx context.Context, report *models.QualityReport) error
	Latest(ctx context.Context) (*models.QualityReport, error)
}

// Metrics records operational metrics.
type Metrics interface {
	RecordForecastRequest(source string)
	RecordCacheLookup(outcome string)
	RecordError(kind string)
	RecordValidation(regime string)
	RecordLastPoolPrice(price float64)
	RecordModelSMAPE(smape float64)
	RecordLatency(op string, seconds float64)
}
