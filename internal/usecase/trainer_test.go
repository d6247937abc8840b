package usecase

import (
	"context"
	"testing"
	"time"

	"PoolCast/internal/domain/models"
	"PoolCast/internal/domain/service"
)

func seededFeatureStore(now time.Time, hours int) *fakeFeatureStore {
	feats := &fakeFeatureStore{}
	start := now.Add(-time.Duration(hours+1) * time.Hour)
	for i := 0; i < hours; i++ {
		feats.rows = append(feats.rows, fullFeatureRecord(start.Add(time.Duration(i)*time.Hour), 50))
	}
	return feats
}

func TestTrainRejectsInsufficientRows(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	trainer := NewTrainer(seededFeatureStore(now, 10), &fakeModelStore{}, &fakePredictor{},
		newFakeCache(), fakeMetrics{}, testLogger())
	trainer.now = func() time.Time { return now }

	if _, err := trainer.TrainModel(context.Background(), nil); err == nil {
		t.Fatalf("expected error with only 10 usable rows")
	}
}

func TestTrainPersistsVersionAndInvalidatesForecastCache(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	modelStore := &fakeModelStore{}
	cacheSvc := newFakeCache()
	if err := cacheSvc.Set(context.Background(), "forecast:h24", "stale", time.Minute); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	predictor := &fakePredictor{point: service.PredictionPoint{Price: 50}}
	trainer := NewTrainer(seededFeatureStore(now, 300), modelStore, predictor,
		cacheSvc, fakeMetrics{}, testLogger())
	trainer.now = func() time.Time { return now }

	result, err := trainer.TrainModel(context.Background(), map[string]float64{"lambda": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(modelStore.versions) != 1 {
		t.Fatalf("expected one persisted version, got %d", len(modelStore.versions))
	}
	mv := modelStore.versions[0]
	if mv.VersionID != result.ModelVersion {
		t.Fatalf("result version %s does not match persisted %s", result.ModelVersion, mv.VersionID)
	}
	if mv.Performance.TrainingRecords != 240 {
		t.Fatalf("expected 240 training rows after the 80/20 split, got %d",
			mv.Performance.TrainingRecords)
	}
	if len(mv.Weights) == 0 {
		t.Fatalf("persisted version has no weights")
	}

	var raw string
	if err := cacheSvc.Get(context.Background(), "forecast:h24", &raw); err == nil {
		t.Fatalf("forecast cache should be invalidated after training")
	}
}

func TestFailedTrainingLeavesActiveModelUntouched(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	existing := &models.ModelVersion{VersionID: "v-old", TrainedAt: now.Add(-time.Hour)}
	modelStore := &fakeModelStore{versions: []*models.ModelVersion{existing}}

	predictor := &fakePredictor{trainErr: context.DeadlineExceeded}
	trainer := NewTrainer(seededFeatureStore(now, 300), modelStore, predictor,
		newFakeCache(), fakeMetrics{}, testLogger())
	trainer.now = func() time.Time { return now }

	if _, err := trainer.TrainModel(context.Background(), nil); err == nil {
		t.Fatalf("expected training error")
	}

	active, _ := modelStore.Active(context.Background())
	if active == nil || active.VersionID != "v-old" {
		t.Fatalf("failed training must not replace the active model, got %+v", active)
	}
}
