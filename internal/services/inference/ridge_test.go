package inference

import (
	"context"
	"errors"
	"math"
	"testing"

	"PoolCast/internal/domain/models"
	"PoolCast/internal/domain/service"
)

func TestTrainRecoversLinearRelationship(t *testing.T) {
	// y = 10 + 2*a - 3*b with no noise; tiny lambda keeps shrinkage
	// negligible.
	var x [][]float64
	var y []float64
	for a := 0.0; a < 8; a++ {
		for b := 0.0; b < 5; b++ {
			x = append(x, []float64{a, b})
			y = append(y, 10+2*a-3*b)
		}
	}

	res, err := NewRidgePredictor().Train(context.Background(), &service.TrainRequest{
		FeatureNames:    []string{"a", "b"},
		Matrix:          x,
		Targets:         y,
		Hyperparameters: map[string]float64{"lambda": 1e-9},
	})
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	if math.Abs(res.Intercept-10) > 1e-6 {
		t.Fatalf("intercept = %v, want 10", res.Intercept)
	}
	if math.Abs(res.Weights[0]-2) > 1e-6 || math.Abs(res.Weights[1]+3) > 1e-6 {
		t.Fatalf("weights = %v, want [2 -3]", res.Weights)
	}
	if res.ResidualStd > 1e-6 {
		t.Fatalf("residual std = %v, want ~0 for noiseless data", res.ResidualStd)
	}
}

func TestTrainRejectsInsufficientRows(t *testing.T) {
	_, err := NewRidgePredictor().Train(context.Background(), &service.TrainRequest{
		FeatureNames: []string{"a", "b"},
		Matrix:       [][]float64{{1, 2}, {3, 4}},
		Targets:      []float64{1, 2},
	})
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestPredictAppliesPersistedParameters(t *testing.T) {
	model := &models.ModelVersion{
		FeatureNames: []string{"a", "b"},
		Weights:      []float64{2, -3},
		Intercept:    10,
		ResidualStd:  4,
	}

	points, err := NewRidgePredictor().Predict(context.Background(), &service.PredictRequest{
		Model:   model,
		Vectors: [][]float64{{1, 1}, {5, 0}},
	})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}

	if points[0].Price != 9 || points[1].Price != 20 {
		t.Fatalf("prices = %v, %v; want 9, 20", points[0].Price, points[1].Price)
	}
	half := 1.96 * 4.0
	if points[0].ConfidenceLower != 9-half || points[0].ConfidenceUpper != 9+half {
		t.Fatalf("interval = [%v, %v], want centered +/- %v", points[0].ConfidenceLower, points[0].ConfidenceUpper, half)
	}
	if points[0].ConfidenceScore <= 0 || points[0].ConfidenceScore >= 1 {
		t.Fatalf("confidence score %v outside (0,1)", points[0].ConfidenceScore)
	}
}

func TestPredictRejectsMismatchedVector(t *testing.T) {
	model := &models.ModelVersion{
		FeatureNames: []string{"a", "b"},
		Weights:      []float64{1, 1},
	}
	_, err := NewRidgePredictor().Predict(context.Background(), &service.PredictRequest{
		Model:   model,
		Vectors: [][]float64{{1}},
	})
	if err == nil {
		t.Fatalf("expected error for mismatched vector width")
	}
}

func TestSolveRejectsSingularSystem(t *testing.T) {
	_, err := solve([][]float64{{1, 2}, {2, 4}}, []float64{1, 2})
	if !errors.Is(err, ErrSingularMatrix) {
		t.Fatalf("expected ErrSingularMatrix, got %v", err)
	}
}
