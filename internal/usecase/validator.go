package usecase

import (
	"context"
	"math"
	"time"

	"PoolCast/internal/domain/models"
	"PoolCast/internal/domain/repository"
	applogger "PoolCast/pkg/logger"
)

const (
	// matchTolerance is how far an actual observation may sit from the
	// prediction's target hour and still count as its realization.
	matchTolerance = 30 * time.Minute

	validationBatchLimit = 500

	spikeThreshold    = 200.0
	elevatedThreshold = 100.0
)

// ValidationTracker matches past-due predictions with realized pool
// prices and writes accuracy records. The accuracy row always lands
// before the validation marker, so a crash between the two repeats the
// accuracy write instead of losing it.
type ValidationTracker struct {
	preds    repository.PredictionStore
	obs      repository.ObservationStore
	accuracy repository.AccuracyStore
	metrics  repository.Metrics
	l        *applogger.Logger

	tolerance  time.Duration
	batchLimit int
	spike      float64
	elevated   float64

	now func() time.Time
}

func NewValidationTracker(
	preds repository.PredictionStore,
	obs repository.ObservationStore,
	accuracy repository.AccuracyStore,
	metrics repository.Metrics,
	l *applogger.Logger,
) *ValidationTracker {
	return &ValidationTracker{
		preds:    preds,
		obs:      obs,
		accuracy: accuracy,
		metrics:  metrics,
		l:        l,

		tolerance:  matchTolerance,
		batchLimit: validationBatchLimit,
		spike:      spikeThreshold,
		elevated:   elevatedThreshold,

		now: time.Now,
	}
}

// Tune overrides the validation parameters. Zero values keep the
// defaults.
func (u *ValidationTracker) Tune(tolerance time.Duration, batchLimit int, spike, elevated float64) *ValidationTracker {
	if tolerance > 0 {
		u.tolerance = tolerance
	}
	if batchLimit > 0 {
		u.batchLimit = batchLimit
	}
	if spike > 0 {
		u.spike = spike
	}
	if elevated > 0 {
		u.elevated = elevated
	}
	return u
}

// ValidatePredictions processes due predictions oldest first. A
// prediction with no matching observation yet is deferred to a later
// run; one whose accuracy write fails is retried later too.
func (u *ValidationTracker) ValidatePredictions(ctx context.Context) (*models.ValidationResult, error) {
	started := u.now()
	now := started.UTC()

	due, err := u.preds.ListDue(ctx, now, u.batchLimit)
	if err != nil {
		u.metrics.RecordError("validation_load")
		return nil, err
	}

	result := &models.ValidationResult{
		SummaryByHorizon: map[int]models.AccuracySummary{},
		SummaryByRegime:  map[string]models.AccuracySummary{},
	}
	var validated []models.AccuracyRecord

	for i := range due {
		p := &due[i]

		obs, err := u.obs.FindNearest(ctx, p.TargetTS, u.tolerance)
		if err != nil {
			u.metrics.RecordError("validation_lookup")
			result.Errors++
			continue
		}
		if obs == nil || obs.Price == nil {
			result.Deferred++
			continue
		}

		actual := *obs.Price
		rec := models.AccuracyRecord{
			PredictionID:          p.ID,
			TargetTS:              p.TargetTS,
			PredictedPrice:        p.Price,
			ActualPrice:           actual,
			AbsoluteError:         math.Abs(actual - p.Price),
			PercentError:          percentError(actual, p.Price),
			SymmetricPercentError: symmetricPercentError(actual, p.Price),
			HorizonHours:          p.HorizonHours,
			WithinInterval:        actual >= p.ConfidenceLower && actual <= p.ConfidenceUpper,
			ActualRegime:          classifyRegime(actual, u.spike, u.elevated),
			CreatedAt:             now,
		}

		if err := u.accuracy.Insert(ctx, &rec); err != nil {
			u.metrics.RecordError("accuracy_persist")
			u.l.Error("accuracy record insert failed",
				applogger.String("prediction_id", p.ID),
				applogger.Error(err))
			result.Errors++
			continue
		}
		if err := u.preds.MarkValidated(ctx, p.ID, now); err != nil {
			// The accuracy row exists; the next run revisits this
			// prediction and the marker insert is retried.
			u.metrics.RecordError("validation_mark")
			u.l.Error("validation marker insert failed",
				applogger.String("prediction_id", p.ID),
				applogger.Error(err))
			result.Errors++
			continue
		}

		u.metrics.RecordValidation(rec.ActualRegime)
		validated = append(validated, rec)
		result.Validated++
	}

	summarize(validated, result)

	u.metrics.RecordLatency("validate_predictions", time.Since(started).Seconds())
	u.l.Info("validation pass finished",
		applogger.Int("validated", result.Validated),
		applogger.Int("deferred", result.Deferred),
		applogger.Int("errors", result.Errors))
	return result, nil
}

func classifyRegime(price, spike, elevated float64) string {
	switch {
	case price >= spike:
		return models.RegimeSpike
	case price >= elevated:
		return models.RegimeElevated
	default:
		return models.RegimeNormal
	}
}

func percentError(actual, predicted float64) float64 {
	if math.Abs(actual) < 1e-9 {
		return 0
	}
	return math.Abs(actual-predicted) / math.Abs(actual) * 100
}

func summarize(records []models.AccuracyRecord, result *models.ValidationResult) {
	byHorizon := map[int][]models.AccuracyRecord{}
	byRegime := map[string][]models.AccuracyRecord{}
	for _, rec := range records {
		byHorizon[rec.HorizonHours] = append(byHorizon[rec.HorizonHours], rec)
		byRegime[rec.ActualRegime] = append(byRegime[rec.ActualRegime], rec)
	}
	for horizon, group := range byHorizon {
		result.SummaryByHorizon[horizon] = summaryOf(group)
	}
	for regime, group := range byRegime {
		result.SummaryByRegime[regime] = summaryOf(group)
	}
}

func summaryOf(records []models.AccuracyRecord) models.AccuracySummary {
	s := models.AccuracySummary{Count: len(records)}
	if len(records) == 0 {
		return s
	}
	within := 0
	for _, rec := range records {
		s.MeanAbsoluteError += rec.AbsoluteError
		s.MeanSymmetricError += rec.SymmetricPercentError
		if rec.WithinInterval {
			within++
		}
	}
	n := float64(len(records))
	s.MeanAbsoluteError /= n
	s.MeanSymmetricError /= n
	s.WithinIntervalRate = float64(within) / n * 100
	return s
}
