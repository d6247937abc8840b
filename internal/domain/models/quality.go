package models

import "time"

// OutlierAnalysis describes the Tukey fence analysis on price. Fences
// use 3x IQR because spot prices are legitimately heavy tailed.
type OutlierAnalysis struct {
	LowerBound  float64 `json:"lower_bound"`
	UpperBound  float64 `json:"upper_bound"`
	OutlierRate float64 `json:"outlier_rate"`
	Outliers    int     `json:"outliers"`
}

// QualityReport is a point-in-time data quality snapshot over the
// observation store. Scores are 0-100.
type QualityReport struct {
	CreatedAt          time.Time          `json:"created_at"`
	Records            int                `json:"records"`
	OverallScore       float64            `json:"overall_quality_score"`
	MissingRates       map[string]float64 `json:"missing_data_analysis"`
	Outliers           OutlierAnalysis    `json:"outlier_analysis"`
	RecentCompleteness float64            `json:"recent_completeness"`
	FeatureCoverage    map[string]float64 `json:"feature_coverage"`
	NegativeValueRate  float64            `json:"negative_value_rate"`
	ContinuityScore    float64            `json:"continuity_score"`
	Recommendations    []string           `json:"recommendations"`
}
