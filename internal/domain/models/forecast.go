package models

import "time"

// Prediction is one forecast point for a future hour. Multiple rows may
// exist per target hour, generated at different lead times; the newest
// created_at wins for cache lookups. ValidatedAt is set exactly once by
// the accuracy tracker.
type Prediction struct {
	ID              string     `json:"prediction_id"`
	CreatedAt       time.Time  `json:"created_at"`
	TargetTS        time.Time  `json:"timestamp"`
	HorizonHours    int        `json:"horizon_hours"`
	Price           float64    `json:"price"`
	ConfidenceLower float64    `json:"confidence_lower"`
	ConfidenceUpper float64    `json:"confidence_upper"`
	ConfidenceScore float64    `json:"confidence_score"`
	ModelVersion    string     `json:"model_version"`
	FeaturesUsed    []string   `json:"features_used,omitempty"`
	ValidatedAt     *time.Time `json:"validated_at,omitempty"`

	// Cached marks whether this point was served from the prediction
	// store rather than freshly generated. Not persisted.
	Cached bool `json:"cached"`
}

// ForecastPerformance summarizes one forecast call for the caller and
// the telemetry table.
type ForecastPerformance struct {
	TotalDurationMs         int64   `json:"total_duration_ms"`
	CacheHitCount           int     `json:"cache_hit_count"`
	CacheMissCount          int     `json:"cache_miss_count"`
	CacheHitRatePercent     float64 `json:"cache_hit_rate_percent"`
	NewPredictionsGenerated int     `json:"new_predictions_generated"`
	BatchCount              int     `json:"batch_count"`
}

// ForecastResult is the public forecast payload.
type ForecastResult struct {
	Predictions []Prediction        `json:"predictions"`
	Performance ForecastPerformance `json:"performance"`
}

// ForecastTelemetry is one best-effort row recording cache behavior of a
// single forecast call.
type ForecastTelemetry struct {
	CreatedAt    time.Time `json:"created_at"`
	HorizonHours int       `json:"horizon_hours"`
	DurationMs   int64     `json:"duration_ms"`
	CacheHits    int       `json:"cache_hits"`
	CacheMisses  int       `json:"cache_misses"`
	HitRatePct   float64   `json:"hit_rate_pct"`
	BatchCount   int       `json:"batch_count"`
	Generated    int       `json:"generated"`
}
