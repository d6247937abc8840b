package service

import (
	"context"

	"PoolCast/internal/domain/models"
)

// TrainRequest asks a Predictor to fit a model. Matrix rows align with
// Targets; columns align with FeatureNames.
type TrainRequest struct {
	FeatureNames    []string
	Matrix          [][]float64
	Targets         []float64
	Hyperparameters map[string]float64
}

// TrainResult holds the fitted parameters.
type TrainResult struct {
	Weights     []float64
	Intercept   float64
	ResidualStd float64
}

// PredictRequest asks a Predictor for point forecasts with intervals.
// Vector columns align with Model.FeatureNames.
type PredictRequest struct {
	Model   *models.ModelVersion
	Vectors [][]float64
}

// PredictionPoint is one forecast point with an uncertainty interval.
type PredictionPoint struct {
	Price           float64
	ConfidenceLower float64
	ConfidenceUpper float64
	ConfidenceScore float64
}

// Predictor is the injectable regression capability. Train and Predict
// are separate typed entry points rather than a mode flag.
type Predictor interface {
	Train(ctx context.Context, req *TrainRequest) (*TrainResult, error)
	Predict(ctx context.Context, req *PredictRequest) ([]PredictionPoint, error)
}
