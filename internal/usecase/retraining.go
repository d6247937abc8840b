package usecase

import (
	"context"
	"fmt"
	"time"

	"PoolCast/internal/domain/models"
	"PoolCast/internal/domain/repository"
	"PoolCast/internal/services/inference"
	applogger "PoolCast/pkg/logger"
)

const (
	// Retraining triggers.
	smapeTrigger   = 25.0
	qualityTrigger = 70.0
	maxModelAge    = 7 * 24 * time.Hour

	// accuracyWindow is the lookback for recent model performance.
	accuracyWindow = 7 * 24 * time.Hour

	// minAccuracySamples guards the sMAPE trigger against reacting to a
	// handful of validations.
	minAccuracySamples = 24
)

// defaultSearchLambdas is the grid used when a search request names no
// candidates.
var defaultSearchLambdas = []float64{0.01, 0.1, 1.0, 10.0, 100.0}

// RetrainingScheduler decides when the model is stale and retrains it.
// Every check writes an audit row, including no-op checks.
type RetrainingScheduler struct {
	trainer    *Trainer
	models     repository.ModelStore
	accuracy   repository.AccuracyStore
	quality    repository.QualityStore
	retraining repository.RetrainingStore
	events     EventPublisher
	metrics    repository.Metrics
	l          *applogger.Logger

	smapeThreshold   float64
	qualityThreshold float64
	maxAge           time.Duration
	window           time.Duration

	now func() time.Time
}

func NewRetrainingScheduler(
	trainer *Trainer,
	modelStore repository.ModelStore,
	accuracy repository.AccuracyStore,
	quality repository.QualityStore,
	retraining repository.RetrainingStore,
	events EventPublisher,
	metrics repository.Metrics,
	l *applogger.Logger,
) *RetrainingScheduler {
	return &RetrainingScheduler{
		trainer:    trainer,
		models:     modelStore,
		accuracy:   accuracy,
		quality:    quality,
		retraining: retraining,
		events:     events,
		metrics:    metrics,
		l:          l,

		smapeThreshold:   smapeTrigger,
		qualityThreshold: qualityTrigger,
		maxAge:           maxModelAge,
		window:           accuracyWindow,

		now: time.Now,
	}
}

// Tune overrides the trigger thresholds. Zero values keep the defaults.
func (u *RetrainingScheduler) Tune(smapeThreshold, qualityThreshold float64, maxAge, window time.Duration) *RetrainingScheduler {
	if smapeThreshold > 0 {
		u.smapeThreshold = smapeThreshold
	}
	if qualityThreshold > 0 {
		u.qualityThreshold = qualityThreshold
	}
	if maxAge > 0 {
		u.maxAge = maxAge
	}
	if window > 0 {
		u.window = window
	}
	return u
}

// CheckAndRetrain evaluates the trigger conditions and retrains when
// any fires: recent sMAPE above threshold, data quality below
// threshold, or a model older than a week.
func (u *RetrainingScheduler) CheckAndRetrain(ctx context.Context) (*models.RetrainingCheckResult, error) {
	started := u.now()
	now := started.UTC()

	active, err := u.models.Active(ctx)
	if err != nil {
		u.metrics.RecordError("retraining_check")
		return nil, err
	}

	reason := u.triggerReason(ctx, active, now)
	if reason == "" {
		ev := &models.RetrainingEvent{
			CreatedAt:  now,
			Triggered:  false,
			Reason:     "no trigger conditions met",
			DurationMs: time.Since(started).Milliseconds(),
		}
		if err := u.retraining.Insert(ctx, ev); err != nil {
			u.l.Warn("retraining check audit insert failed", applogger.Error(err))
		}
		return &models.RetrainingCheckResult{Reason: ev.Reason}, nil
	}

	u.l.Info("retraining triggered", applogger.String("reason", reason))

	var before *models.PerformanceMetrics
	if active != nil {
		perf := active.Performance
		before = &perf
	}

	trained, err := u.trainer.TrainModel(ctx, map[string]float64{"lambda": inference.DefaultLambda})
	if err != nil {
		u.metrics.RecordError("retraining_train")
		ev := &models.RetrainingEvent{
			CreatedAt:         now,
			Triggered:         true,
			Reason:            fmt.Sprintf("%s (training failed: %v)", reason, err),
			PerformanceBefore: before,
			DurationMs:        time.Since(started).Milliseconds(),
		}
		if insErr := u.retraining.Insert(ctx, ev); insErr != nil {
			u.l.Warn("retraining audit insert failed", applogger.Error(insErr))
		}
		return nil, err
	}

	after := trained.Performance
	improvement := 0.0
	if before != nil {
		improvement = before.SMAPE - after.SMAPE
	}

	ev := &models.RetrainingEvent{
		CreatedAt:         now,
		Triggered:         true,
		Reason:            reason,
		PerformanceBefore: before,
		PerformanceAfter:  &after,
		Improvement:       improvement,
		DurationMs:        time.Since(started).Milliseconds(),
	}
	if err := u.retraining.Insert(ctx, ev); err != nil {
		u.l.Warn("retraining audit insert failed", applogger.Error(err))
	}
	if u.events != nil {
		if err := u.events.PublishMessage(ctx, TopicRetrainingEvents, ev); err != nil {
			u.l.Warn("retraining event publish failed", applogger.Error(err))
		}
	}

	u.metrics.RecordLatency("retraining_check", time.Since(started).Seconds())
	return &models.RetrainingCheckResult{
		RetrainingCompleted: true,
		Reason:              reason,
		Improvement:         &improvement,
	}, nil
}

func (u *RetrainingScheduler) triggerReason(ctx context.Context, active *models.ModelVersion, now time.Time) string {
	if active == nil {
		return "no trained model"
	}

	if age := now.Sub(active.TrainedAt); age > u.maxAge {
		return fmt.Sprintf("model age %.0fh exceeds %.0fh", age.Hours(), u.maxAge.Hours())
	}

	records, err := u.accuracy.ListSince(ctx, now.Add(-u.window))
	if err != nil {
		u.l.Warn("accuracy lookup failed during retraining check", applogger.Error(err))
	} else if len(records) >= minAccuracySamples {
		var sum float64
		for _, rec := range records {
			sum += rec.SymmetricPercentError
		}
		smape := sum / float64(len(records))
		if smape > u.smapeThreshold {
			return fmt.Sprintf("recent sMAPE %.1f%% above %.0f%%", smape, u.smapeThreshold)
		}
	}

	report, err := u.quality.Latest(ctx)
	if err != nil {
		u.l.Warn("quality lookup failed during retraining check", applogger.Error(err))
	} else if report != nil && report.OverallScore < u.qualityThreshold {
		return fmt.Sprintf("data quality score %.1f below %.0f", report.OverallScore, u.qualityThreshold)
	}

	return ""
}

// RunHyperparameterSearch trains one trial per lambda and finishes by
// retraining with the best one so the active model matches the winner.
func (u *RetrainingScheduler) RunHyperparameterSearch(ctx context.Context, lambdas []float64) (*models.SearchResult, error) {
	started := u.now()
	if len(lambdas) == 0 {
		lambdas = defaultSearchLambdas
	}

	result := &models.SearchResult{}
	for _, lambda := range lambdas {
		hyper := map[string]float64{"lambda": lambda}
		trained, err := u.trainer.TrainModel(ctx, hyper)
		if err != nil {
			u.l.Warn("search trial failed",
				applogger.Float64("lambda", lambda),
				applogger.Error(err))
			continue
		}
		trial := models.SearchTrial{Hyperparameters: hyper, Performance: trained.Performance}
		result.Trials = append(result.Trials, trial)
		if result.Best == nil || trial.Performance.SMAPE < result.Best.Performance.SMAPE {
			best := trial
			result.Best = &best
		}
	}
	if result.Best == nil {
		return nil, fmt.Errorf("hyperparameter search: all %d trials failed", len(lambdas))
	}

	// The last trial trained is the active model; refit with the winner
	// unless it already is the winner.
	last := result.Trials[len(result.Trials)-1]
	if last.Hyperparameters["lambda"] != result.Best.Hyperparameters["lambda"] {
		if _, err := u.trainer.TrainModel(ctx, result.Best.Hyperparameters); err != nil {
			return nil, fmt.Errorf("refit with best lambda: %w", err)
		}
	}

	bestPerf := result.Best.Performance
	ev := &models.RetrainingEvent{
		CreatedAt: started.UTC(),
		Triggered: true,
		Reason: fmt.Sprintf("hyperparameter search: %d of %d trials succeeded, best lambda %g",
			len(result.Trials), len(lambdas), result.Best.Hyperparameters["lambda"]),
		PerformanceAfter: &bestPerf,
		DurationMs:       time.Since(started).Milliseconds(),
	}
	if err := u.retraining.Insert(ctx, ev); err != nil {
		u.l.Warn("search audit insert failed", applogger.Error(err))
	}

	u.metrics.RecordLatency("hyperparameter_search", time.Since(started).Seconds())
	u.l.Info("hyperparameter search finished",
		applogger.Int("trials", len(result.Trials)),
		applogger.Float64("best_lambda", result.Best.Hyperparameters["lambda"]),
		applogger.Float64("best_smape", result.Best.Performance.SMAPE))
	return result, nil
}
