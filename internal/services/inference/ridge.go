package inference

import (
	"context"
	"errors"
	"fmt"
	"math"

	"PoolCast/internal/domain/service"
)

// Default ridge penalty when no hyperparameters are supplied.
const DefaultLambda = 1.0

// Interval half-width multiplier for ~95% nominal coverage.
const intervalZ = 1.96

var (
	ErrInsufficientData = errors.New("inference: insufficient training data")
	ErrSingularMatrix   = errors.New("inference: normal equations are singular")
)

// RidgePredictor fits a linear model by solving the regularized normal
// equations. Small feature counts make a direct solve cheap and exact.
type RidgePredictor struct{}

func NewRidgePredictor() *RidgePredictor {
	return &RidgePredictor{}
}

// Train solves (X'X + lambda*I) w = X'y with an unpenalized intercept
// column, then measures residual spread on the training rows.
func (p *RidgePredictor) Train(_ context.Context, req *service.TrainRequest) (*service.TrainResult, error) {
	n := len(req.Matrix)
	if n == 0 || n != len(req.Targets) {
		return nil, ErrInsufficientData
	}
	cols := len(req.FeatureNames)
	for i, row := range req.Matrix {
		if len(row) != cols {
			return nil, fmt.Errorf("inference: row %d has %d columns, want %d", i, len(row), cols)
		}
	}
	if n <= cols {
		return nil, ErrInsufficientData
	}

	lambda := DefaultLambda
	if v, ok := req.Hyperparameters["lambda"]; ok && v >= 0 {
		lambda = v
	}

	// Augment with an intercept column at index 0.
	d := cols + 1
	xtx := make([][]float64, d)
	for i := range xtx {
		xtx[i] = make([]float64, d)
	}
	xty := make([]float64, d)

	for r := 0; r < n; r++ {
		row := req.Matrix[r]
		y := req.Targets[r]
		xtx[0][0]++
		xty[0] += y
		for i := 0; i < cols; i++ {
			xtx[0][i+1] += row[i]
			xtx[i+1][0] += row[i]
			xty[i+1] += row[i] * y
			for j := 0; j < cols; j++ {
				xtx[i+1][j+1] += row[i] * row[j]
			}
		}
	}
	// Penalize weights only, never the intercept.
	for i := 1; i < d; i++ {
		xtx[i][i] += lambda
	}

	sol, err := solve(xtx, xty)
	if err != nil {
		return nil, err
	}
	intercept := sol[0]
	weights := sol[1:]

	var ss float64
	for r := 0; r < n; r++ {
		pred := intercept + dot(weights, req.Matrix[r])
		if math.IsNaN(pred) || math.IsInf(pred, 0) {
			return nil, fmt.Errorf("inference: fit diverged at row %d", r)
		}
		resid := req.Targets[r] - pred
		ss += resid * resid
	}
	residualStd := math.Sqrt(ss / float64(n-1))

	return &service.TrainResult{
		Weights:     weights,
		Intercept:   intercept,
		ResidualStd: residualStd,
	}, nil
}

// Predict applies persisted model parameters to prediction vectors.
func (p *RidgePredictor) Predict(_ context.Context, req *service.PredictRequest) ([]service.PredictionPoint, error) {
	if req.Model == nil {
		return nil, errors.New("inference: no model available")
	}
	w := req.Model.Weights
	if len(w) != len(req.Model.FeatureNames) {
		return nil, fmt.Errorf("inference: model has %d weights for %d features", len(w), len(req.Model.FeatureNames))
	}

	half := intervalZ * req.Model.ResidualStd
	out := make([]service.PredictionPoint, 0, len(req.Vectors))
	for i, vec := range req.Vectors {
		if len(vec) != len(w) {
			return nil, fmt.Errorf("inference: vector %d has %d columns, want %d", i, len(vec), len(w))
		}
		price := req.Model.Intercept + dot(w, vec)
		if math.IsNaN(price) || math.IsInf(price, 0) {
			return nil, fmt.Errorf("inference: prediction diverged at vector %d", i)
		}
		out = append(out, service.PredictionPoint{
			Price:           price,
			ConfidenceLower: price - half,
			ConfidenceUpper: price + half,
			ConfidenceScore: confidenceScore(price, req.Model.ResidualStd),
		})
	}
	return out, nil
}

// confidenceScore shrinks toward 0 as the residual spread grows
// relative to the predicted level.
func confidenceScore(price, residualStd float64) float64 {
	denom := math.Abs(price) + 1
	score := 1 - residualStd/denom
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func dot(w, x []float64) float64 {
	var s float64
	for i := range w {
		s += w[i] * x[i]
	}
	return s
}

// solve performs Gaussian elimination with partial pivoting.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	// Work on copies so callers keep their matrices.
	m := make([][]float64, n)
	for i := range a {
		m[i] = append([]float64(nil), a[i]...)
		m[i] = append(m[i], b[i])
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return nil, ErrSingularMatrix
		}
		m[col], m[pivot] = m[pivot], m[col]

		for r := col + 1; r < n; r++ {
			factor := m[r][col] / m[col][col]
			for c := col; c <= n; c++ {
				m[r][c] -= factor * m[col][c]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := m[i][n]
		for j := i + 1; j < n; j++ {
			sum -= m[i][j] * x[j]
		}
		x[i] = sum / m[i][i]
	}
	return x, nil
}
