package usecase

import (
	"context"
	"fmt"
	"time"

	"PoolCast/internal/domain/models"
	"PoolCast/internal/domain/repository"
	"PoolCast/internal/domain/service"
	"PoolCast/internal/services/features"
	pkghttp "PoolCast/pkg/http"
	applogger "PoolCast/pkg/logger"
)

// CrossValidator runs expanding-window time series cross-validation.
// Every fold trains strictly before its validation window, so metrics
// never benefit from future information.
type CrossValidator struct {
	feats     repository.FeatureStore
	cv        repository.CVStore
	predictor service.Predictor
	metrics   repository.Metrics
	l         *applogger.Logger

	now func() time.Time
}

func NewCrossValidator(
	feats repository.FeatureStore,
	cv repository.CVStore,
	predictor service.Predictor,
	metrics repository.Metrics,
	l *applogger.Logger,
) *CrossValidator {
	return &CrossValidator{
		feats:     feats,
		cv:        cv,
		predictor: predictor,
		metrics:   metrics,
		l:         l,
		now:       time.Now,
	}
}

// RunCV validates numFolds consecutive windows of validationWindowHours
// at the end of the series. Folds whose train or validation side has no
// usable rows are skipped and excluded from the average.
func (u *CrossValidator) RunCV(ctx context.Context, numFolds, validationWindowHours int, hyper map[string]float64) (*models.CVResult, error) {
	started := u.now()
	now := started.UTC()

	records, err := u.feats.ListRange(ctx, time.Time{}, now)
	if err != nil {
		u.metrics.RecordError("cv_load")
		return nil, err
	}

	x, y, used := features.TrainingMatrix(records)
	valLen := validationWindowHours
	if len(x) < valLen+minTrainingRows {
		return nil, pkghttp.BadRequestError("cv_data").
			WithParam("usable_rows", fmt.Sprintf("%d", len(x))).
			WithParam("required_rows", fmt.Sprintf("%d", valLen+minTrainingRows))
	}

	result := &models.CVResult{
		RunID: fmt.Sprintf("cv-%s", now.Format("20060102T150405Z")),
	}

	var sum models.CVMetrics
	for fold := 0; fold < numFolds; fold++ {
		// Fold 0 validates the oldest window, the last fold the newest.
		valEnd := len(x) - (numFolds-1-fold)*valLen
		valStart := valEnd - valLen
		if valStart <= 0 || valEnd <= valStart {
			result.SkippedFolds++
			continue
		}

		fit, err := u.predictor.Train(ctx, &service.TrainRequest{
			FeatureNames:    features.FeatureNames(),
			Matrix:          x[:valStart],
			Targets:         y[:valStart],
			Hyperparameters: hyper,
		})
		if err != nil {
			u.l.Warn("cv fold training failed, skipping",
				applogger.Int("fold", fold),
				applogger.Error(err))
			result.SkippedFolds++
			continue
		}

		mv := &models.ModelVersion{
			FeatureNames: features.FeatureNames(),
			Weights:      fit.Weights,
			Intercept:    fit.Intercept,
			ResidualStd:  fit.ResidualStd,
		}
		points, err := u.predictor.Predict(ctx, &service.PredictRequest{Model: mv, Vectors: x[valStart:valEnd]})
		if err != nil {
			u.l.Warn("cv fold prediction failed, skipping",
				applogger.Int("fold", fold),
				applogger.Error(err))
			result.SkippedFolds++
			continue
		}

		actual := y[valStart:valEnd]
		predicted := make([]float64, len(points))
		for i := range points {
			predicted[i] = points[i].Price
		}
		metrics := models.CVMetrics{
			MAE:   meanAbsoluteError(actual, predicted),
			RMSE:  rootMeanSquaredError(actual, predicted),
			SMAPE: symmetricMAPE(actual, predicted),
			MAPE:  meanAbsolutePercentError(actual, predicted),
		}

		result.Folds = append(result.Folds, models.CVFold{
			RunID:           result.RunID,
			Fold:            fold,
			TrainStart:      used[0].TS,
			TrainEnd:        used[valStart-1].TS,
			ValidationStart: used[valStart].TS,
			ValidationEnd:   used[valEnd-1].TS,
			TrainRows:       valStart,
			ValidationRows:  valEnd - valStart,
			Metrics:         metrics,
		})
		result.CompletedFolds++
		sum.MAE += metrics.MAE
		sum.RMSE += metrics.RMSE
		sum.SMAPE += metrics.SMAPE
		sum.MAPE += metrics.MAPE
	}

	if result.CompletedFolds > 0 {
		n := float64(result.CompletedFolds)
		result.Average = models.CVMetrics{
			MAE:   sum.MAE / n,
			RMSE:  sum.RMSE / n,
			SMAPE: sum.SMAPE / n,
			MAPE:  sum.MAPE / n,
		}
	}

	if err := u.cv.InsertFolds(ctx, result.Folds); err != nil {
		u.metrics.RecordError("cv_persist")
		u.l.Error("cv fold persistence failed", applogger.Error(err))
	}

	u.metrics.RecordLatency("run_cv", time.Since(started).Seconds())
	u.l.Info("cross-validation finished",
		applogger.String("run_id", result.RunID),
		applogger.Int("completed", result.CompletedFolds),
		applogger.Int("skipped", result.SkippedFolds))
	return result, nil
}
