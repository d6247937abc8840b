package models

import "time"

// RetrainingEvent is one append-only audit row for a retraining check.
// Triggered=false rows record no-op checks.
type RetrainingEvent struct {
	CreatedAt         time.Time           `json:"created_at"`
	Triggered         bool                `json:"triggered"`
	Reason            string              `json:"reason"`
	PerformanceBefore *PerformanceMetrics `json:"performance_before,omitempty"`
	PerformanceAfter  *PerformanceMetrics `json:"performance_after,omitempty"`
	Improvement       float64             `json:"improvement"`
	DurationMs        int64               `json:"duration_ms"`
}

// RetrainingCheckResult is the public payload of a retraining check.
type RetrainingCheckResult struct {
	RetrainingCompleted bool     `json:"retraining_completed"`
	Reason              string   `json:"reason"`
	Improvement         *float64 `json:"improvement,omitempty"`
}

// SearchTrial is one hyperparameter search trial.
type SearchTrial struct {
	Hyperparameters map[string]float64 `json:"hyperparameters"`
	Performance     PerformanceMetrics `json:"performance"`
}

// SearchResult summarizes a hyperparameter search run.
type SearchResult struct {
	Trials []SearchTrial `json:"trials"`
	Best   *SearchTrial  `json:"best,omitempty"`
}
