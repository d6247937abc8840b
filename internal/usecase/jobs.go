package usecase

import (
	"context"

	applogger "PoolCast/pkg/logger"
	"PoolCast/pkg/queue"
)

// Queue message types for background jobs.
const (
	MsgTypeHyperparameterSearch = "hyperparameter_search"
	MsgTypeRetrainingCheck      = "retraining_check"
)

// SearchJobPayload carries the lambda grid for a queued search. An
// empty grid means the default one.
type SearchJobPayload struct {
	Lambdas []float64 `json:"lambdas,omitempty"`
}

// HyperparameterSearchJob runs a queued lambda grid search. Searches
// run off the request path because each trial is a full training run.
type HyperparameterSearchJob struct {
	scheduler *RetrainingScheduler
	l         *applogger.Logger
}

func NewHyperparameterSearchJob(scheduler *RetrainingScheduler, l *applogger.Logger) *HyperparameterSearchJob {
	return &HyperparameterSearchJob{scheduler: scheduler, l: l}
}

func (j *HyperparameterSearchJob) Name() string { return "hyperparameter-search" }
func (j *HyperparameterSearchJob) Type() string { return MsgTypeHyperparameterSearch }

func (j *HyperparameterSearchJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[SearchJobPayload](payload)
	if err != nil {
		return err
	}

	result, err := j.scheduler.RunHyperparameterSearch(ctx, p.Lambdas)
	if err != nil {
		return err
	}
	j.l.Info("queued hyperparameter search done",
		applogger.Int("trials", len(result.Trials)))
	return nil
}

// RetrainingCheckJob runs a queued retraining check.
type RetrainingCheckJob struct {
	scheduler *RetrainingScheduler
	l         *applogger.Logger
}

func NewRetrainingCheckJob(scheduler *RetrainingScheduler, l *applogger.Logger) *RetrainingCheckJob {
	return &RetrainingCheckJob{scheduler: scheduler, l: l}
}

func (j *RetrainingCheckJob) Name() string { return "retraining-check" }
func (j *RetrainingCheckJob) Type() string { return MsgTypeRetrainingCheck }

func (j *RetrainingCheckJob) Handle(ctx context.Context, payload interface{}) error {
	result, err := j.scheduler.CheckAndRetrain(ctx)
	if err != nil {
		return err
	}
	j.l.Info("queued retraining check done",
		applogger.Bool("retrained", result.RetrainingCompleted),
		applogger.String("reason", result.Reason))
	return nil
}
