package models

import "time"

// Price regimes classify how extreme a realized pool price is.
const (
	RegimeNormal   = "normal"
	RegimeElevated = "elevated"
	RegimeSpike    = "spike"
)

// AccuracyRecord compares one prediction with the realized pool price.
// Written exactly once per validated prediction, before the prediction
// is marked validated.
type AccuracyRecord struct {
	PredictionID          string    `json:"prediction_id"`
	TargetTS              time.Time `json:"target_ts"`
	PredictedPrice        float64   `json:"predicted_price"`
	ActualPrice           float64   `json:"actual_price"`
	AbsoluteError         float64   `json:"absolute_error"`
	PercentError          float64   `json:"percent_error"`
	SymmetricPercentError float64   `json:"symmetric_percent_error"`
	HorizonHours          int       `json:"horizon_hours"`
	WithinInterval        bool      `json:"within_confidence_interval"`
	ActualRegime          string    `json:"actual_regime"`
	CreatedAt             time.Time `json:"created_at"`
}

// AccuracySummary aggregates accuracy records for one horizon or regime
// bucket.
type AccuracySummary struct {
	Count              int     `json:"count"`
	MeanAbsoluteError  float64 `json:"mean_absolute_error"`
	MeanSymmetricError float64 `json:"mean_symmetric_percent_error"`
	WithinIntervalRate float64 `json:"within_interval_rate"`
}

// ValidationResult is the public payload of a validation pass.
type ValidationResult struct {
	Validated        int                        `json:"validated"`
	Errors           int                        `json:"errors"`
	Deferred         int                        `json:"deferred"`
	SummaryByHorizon map[int]AccuracySummary    `json:"summary_by_horizon"`
	SummaryByRegime  map[string]AccuracySummary `json:"summary_by_regime"`
}
