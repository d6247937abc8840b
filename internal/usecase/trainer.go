package usecase

import (
	"context"
	"fmt"
	"time"

	"PoolCast/internal/domain/models"
	"PoolCast/internal/domain/repository"
	"PoolCast/internal/domain/service"
	"PoolCast/internal/services/features"
	"PoolCast/pkg/cache"
	pkghttp "PoolCast/pkg/http"
	applogger "PoolCast/pkg/logger"
)

const (
	// minTrainingRows is one week of usable hourly rows.
	minTrainingRows = 168

	// holdoutFraction of the newest rows is reserved for evaluation.
	holdoutFraction = 0.2
)

// Trainer fits a new model version on stored features. The previous
// version is never touched; a failed run leaves the active model as is.
type Trainer struct {
	feats     repository.FeatureStore
	models    repository.ModelStore
	predictor service.Predictor
	cache     cache.Service
	metrics   repository.Metrics
	l         *applogger.Logger

	minRows int

	now func() time.Time
}

func NewTrainer(
	feats repository.FeatureStore,
	modelStore repository.ModelStore,
	predictor service.Predictor,
	cacheSvc cache.Service,
	metrics repository.Metrics,
	l *applogger.Logger,
) *Trainer {
	return &Trainer{
		feats:     feats,
		models:    modelStore,
		predictor: predictor,
		cache:     cacheSvc,
		metrics:   metrics,
		l:         l,
		minRows:   minTrainingRows,
		now:       time.Now,
	}
}

// Tune overrides the minimum usable row count. Zero keeps the default.
func (u *Trainer) Tune(minRows int) *Trainer {
	if minRows > 0 {
		u.minRows = minRows
	}
	return u
}

// TrainModel fits on the oldest 80% of usable rows, evaluates on the
// newest 20%, persists the version and returns its held-out metrics.
func (u *Trainer) TrainModel(ctx context.Context, hyper map[string]float64) (*models.TrainingResult, error) {
	started := u.now()
	now := started.UTC()

	records, err := u.feats.ListRange(ctx, time.Time{}, now)
	if err != nil {
		u.metrics.RecordError("training_load")
		return nil, err
	}

	x, y, _ := features.TrainingMatrix(records)
	if len(x) < u.minRows {
		return nil, pkghttp.BadRequestError("training_data").
			WithParam("usable_rows", fmt.Sprintf("%d", len(x))).
			WithParam("required_rows", fmt.Sprintf("%d", u.minRows))
	}

	split := len(x) - int(float64(len(x))*holdoutFraction)
	if split <= 0 || split >= len(x) {
		split = len(x) - 1
	}

	fit, err := u.predictor.Train(ctx, &service.TrainRequest{
		FeatureNames:    features.FeatureNames(),
		Matrix:          x[:split],
		Targets:         y[:split],
		Hyperparameters: hyper,
	})
	if err != nil {
		u.metrics.RecordError("training_fit")
		return nil, err
	}

	version := &models.ModelVersion{
		VersionID:       fmt.Sprintf("v%s", now.Format("20060102T150405.000000000Z")),
		TrainedAt:       now,
		Hyperparameters: hyper,
		FeatureNames:    features.FeatureNames(),
		Weights:         fit.Weights,
		Intercept:       fit.Intercept,
		ResidualStd:     fit.ResidualStd,
	}

	perf, err := u.evaluate(ctx, version, x[split:], y[split:])
	if err != nil {
		u.metrics.RecordError("training_eval")
		return nil, err
	}
	perf.TrainingRecords = split
	version.Performance = *perf

	if err := u.models.Insert(ctx, version); err != nil {
		u.metrics.RecordError("training_persist")
		return nil, err
	}

	// Predictions from the previous version are stale now.
	if err := u.cache.DeleteByPattern(ctx, "forecast:*"); err != nil {
		u.l.Warn("forecast cache invalidation failed", applogger.Error(err))
	}

	u.metrics.RecordModelSMAPE(perf.SMAPE)
	u.metrics.RecordLatency("train_model", time.Since(started).Seconds())
	u.l.Info("model trained",
		applogger.String("version", version.VersionID),
		applogger.Int("training_rows", split),
		applogger.Int("holdout_rows", len(x)-split),
		applogger.Float64("smape", perf.SMAPE))

	return &models.TrainingResult{
		ModelVersion: version.VersionID,
		Performance:  *perf,
	}, nil
}

func (u *Trainer) evaluate(ctx context.Context, mv *models.ModelVersion, x [][]float64, y []float64) (*models.PerformanceMetrics, error) {
	points, err := u.predictor.Predict(ctx, &service.PredictRequest{Model: mv, Vectors: x})
	if err != nil {
		return nil, err
	}
	predicted := make([]float64, len(points))
	for i := range points {
		predicted[i] = points[i].Price
	}
	return &models.PerformanceMetrics{
		MAE:      meanAbsoluteError(y, predicted),
		RMSE:     rootMeanSquaredError(y, predicted),
		SMAPE:    symmetricMAPE(y, predicted),
		RSquared: rSquared(y, predicted),
	}, nil
}
