package models

import "time"

// PerformanceMetrics are held-out regression metrics for one model fit.
type PerformanceMetrics struct {
	MAE             float64 `json:"mae"`
	RMSE            float64 `json:"rmse"`
	SMAPE           float64 `json:"smape"`
	RSquared        float64 `json:"r_squared"`
	TrainingRecords int     `json:"training_records"`
}

// ModelVersion is one immutable trained model. The active version is
// the latest by TrainedAt. Weights, intercept and residual std are the
// fitted parameters needed to reproduce predictions and intervals.
type ModelVersion struct {
	VersionID       string             `json:"version_id"`
	TrainedAt       time.Time          `json:"trained_at"`
	Hyperparameters map[string]float64 `json:"hyperparameters"`
	Performance     PerformanceMetrics `json:"performance_metrics"`
	FeatureNames    []string           `json:"feature_names"`
	Weights         []float64          `json:"weights"`
	Intercept       float64            `json:"intercept"`
	ResidualStd     float64            `json:"residual_std"`
}

// CVMetrics are per-fold error metrics.
type CVMetrics struct {
	MAE   float64 `json:"mae"`
	RMSE  float64 `json:"rmse"`
	SMAPE float64 `json:"smape"`
	MAPE  float64 `json:"mape"`
}

// CVFold is one chronological train/validation split. ValidationStart
// is always strictly after TrainEnd.
type CVFold struct {
	RunID           string    `json:"run_id"`
	Fold            int       `json:"fold"`
	TrainStart      time.Time `json:"train_start"`
	TrainEnd        time.Time `json:"train_end"`
	ValidationStart time.Time `json:"validation_start"`
	ValidationEnd   time.Time `json:"validation_end"`
	TrainRows       int       `json:"train_rows"`
	ValidationRows  int       `json:"validation_rows"`
	Metrics         CVMetrics `json:"metrics"`
}

// CVResult aggregates a cross-validation run. Skipped folds (zero
// usable rows) are excluded from Average.
type CVResult struct {
	RunID          string    `json:"run_id"`
	Folds          []CVFold  `json:"fold_results"`
	Average        CVMetrics `json:"average_metrics"`
	CompletedFolds int       `json:"completed_folds"`
	SkippedFolds   int       `json:"skipped_folds"`
}

// TrainingResult is the public payload of a training run.
type TrainingResult struct {
	ModelVersion string             `json:"model_version"`
	Performance  PerformanceMetrics `json:"performance_metrics"`
}
