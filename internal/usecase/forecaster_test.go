package usecase

import (
	"context"
	"testing"
	"time"

	"PoolCast/internal/domain/models"
	"PoolCast/internal/domain/service"
)

func newTestForecaster(
	preds *fakePredictionStore,
	feats *fakeFeatureStore,
	modelStore *fakeModelStore,
	cacheSvc *fakeCache,
	now time.Time,
) (*Forecaster, *fakeTelemetryStore) {
	telemetry := &fakeTelemetryStore{}
	predictor := &fakePredictor{point: service.PredictionPoint{
		Price:           50,
		ConfidenceLower: 40,
		ConfidenceUpper: 60,
		ConfidenceScore: 0.9,
	}}
	f := NewForecaster(preds, feats, modelStore, telemetry, predictor, cacheSvc,
		&fakeEvents{}, fakeMetrics{}, testLogger())
	f.now = func() time.Time { return now }
	return f, telemetry
}

func trainedModelStore(now time.Time) *fakeModelStore {
	return &fakeModelStore{versions: []*models.ModelVersion{{
		VersionID:    "v1",
		TrainedAt:    now.Add(-time.Hour),
		FeatureNames: []string{"lag_1h"},
		Weights:      []float64{0},
		Intercept:    50,
		ResidualStd:  1,
	}}}
}

func featureStoreWithLatest(now time.Time) *fakeFeatureStore {
	return &fakeFeatureStore{rows: []models.FeatureRecord{
		fullFeatureRecord(now.Truncate(time.Hour), 50),
	}}
}

func TestEmptyStoreGeneratesEveryHour(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)
	f, _ := newTestForecaster(newFakePredictionStore(), featureStoreWithLatest(now),
		trainedModelStore(now), newFakeCache(), now)

	result, err := f.GetForecast(context.Background(), 24, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Predictions) != 24 {
		t.Fatalf("expected 24 predictions, got %d", len(result.Predictions))
	}
	if result.Performance.CacheMissCount != 24 || result.Performance.CacheHitCount != 0 {
		t.Fatalf("expected 24 misses and 0 hits, got %+v", result.Performance)
	}
	if result.Performance.NewPredictionsGenerated != 24 {
		t.Fatalf("expected 24 generated, got %d", result.Performance.NewPredictionsGenerated)
	}
	if result.Performance.BatchCount != 1 {
		t.Fatalf("expected 1 batch, got %d", result.Performance.BatchCount)
	}

	want := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	for i, p := range result.Predictions {
		if !p.TargetTS.Equal(want.Add(time.Duration(i) * time.Hour)) {
			t.Fatalf("prediction %d has target %v", i, p.TargetTS)
		}
		if p.Cached {
			t.Fatalf("prediction %d should not be marked cached", i)
		}
	}
}

func TestSecondCallWithinTTLServesIdenticalValuesFromCache(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)
	f, _ := newTestForecaster(newFakePredictionStore(), featureStoreWithLatest(now),
		trainedModelStore(now), newFakeCache(), now)

	first, err := f.GetForecast(context.Background(), 24, false)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := f.GetForecast(context.Background(), 24, false)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if second.Performance.CacheHitCount < 24 {
		t.Fatalf("expected at least 24 cache hits, got %d", second.Performance.CacheHitCount)
	}
	if len(second.Predictions) != len(first.Predictions) {
		t.Fatalf("cardinality changed between calls: %d vs %d",
			len(first.Predictions), len(second.Predictions))
	}
	for i := range first.Predictions {
		if first.Predictions[i].Price != second.Predictions[i].Price {
			t.Fatalf("price %d changed between calls", i)
		}
		if !second.Predictions[i].Cached {
			t.Fatalf("prediction %d should be marked cached on second call", i)
		}
	}
}

func TestCachedResponseRollsForwardAtHourBoundary(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 55, 0, 0, time.UTC)
	f, _ := newTestForecaster(newFakePredictionStore(), featureStoreWithLatest(start),
		trainedModelStore(start), newFakeCache(), start)

	if _, err := f.GetForecast(context.Background(), 2, false); err != nil {
		t.Fatalf("first call: %v", err)
	}

	// Ten minutes later the hour has rolled over; still inside the TTL.
	later := time.Date(2026, 3, 10, 11, 5, 0, 0, time.UTC)
	f.now = func() time.Time { return later }

	result, err := f.GetForecast(context.Background(), 2, false)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if len(result.Predictions) != 2 {
		t.Fatalf("expected 2 predictions, got %d", len(result.Predictions))
	}
	want := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	for i, p := range result.Predictions {
		if !p.TargetTS.Equal(want.Add(time.Duration(i) * time.Hour)) {
			t.Fatalf("prediction %d has target %v, want %v", i, p.TargetTS,
				want.Add(time.Duration(i)*time.Hour))
		}
		if !p.TargetTS.After(later) {
			t.Fatalf("prediction %d targets the past: %v", i, p.TargetTS)
		}
	}
}

func TestStoredPredictionsAreReusedAcrossInstances(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)
	preds := newFakePredictionStore()
	feats := featureStoreWithLatest(now)
	modelStore := trainedModelStore(now)

	first, _ := newTestForecaster(preds, feats, modelStore, newFakeCache(), now)
	if _, err := first.GetForecast(context.Background(), 24, false); err != nil {
		t.Fatalf("seeding call: %v", err)
	}

	// Fresh response cache, shared prediction store.
	second, _ := newTestForecaster(preds, feats, modelStore, newFakeCache(), now)
	result, err := second.GetForecast(context.Background(), 24, false)
	if err != nil {
		t.Fatalf("reuse call: %v", err)
	}

	if result.Performance.CacheHitCount != 24 {
		t.Fatalf("expected 24 stored hits, got %+v", result.Performance)
	}
	if result.Performance.NewPredictionsGenerated != 0 {
		t.Fatalf("expected nothing generated, got %d", result.Performance.NewPredictionsGenerated)
	}
	if len(result.Predictions) != 24 {
		t.Fatalf("expected exactly 24 predictions, got %d", len(result.Predictions))
	}
	for i, p := range result.Predictions {
		if !p.Cached {
			t.Fatalf("prediction %d should be marked cached", i)
		}
	}
}

func TestDedupKeepsNewestCreatedAtPerHour(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)
	target := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)

	preds := newFakePredictionStore()
	preds.rows = []models.Prediction{
		{ID: "old", TargetTS: target, CreatedAt: now.Add(-10 * time.Minute), Price: 30,
			ConfidenceLower: 20, ConfidenceUpper: 40},
		{ID: "new", TargetTS: target, CreatedAt: now.Add(-1 * time.Minute), Price: 55,
			ConfidenceLower: 45, ConfidenceUpper: 65},
	}

	f, _ := newTestForecaster(preds, featureStoreWithLatest(now), trainedModelStore(now),
		newFakeCache(), now)
	result, err := f.GetForecast(context.Background(), 1, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Predictions) != 1 {
		t.Fatalf("expected 1 prediction, got %d", len(result.Predictions))
	}
	if result.Predictions[0].ID != "new" || result.Predictions[0].Price != 55 {
		t.Fatalf("expected the newest stored prediction, got %+v", result.Predictions[0])
	}
}

func TestForceRefreshBypassesStoredPredictions(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)
	preds := newFakePredictionStore()
	preds.rows = []models.Prediction{{
		ID: "stale", TargetTS: time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
		CreatedAt: now.Add(-1 * time.Minute), Price: 999,
	}}

	f, _ := newTestForecaster(preds, featureStoreWithLatest(now), trainedModelStore(now),
		newFakeCache(), now)
	result, err := f.GetForecast(context.Background(), 1, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Performance.CacheHitCount != 0 {
		t.Fatalf("force refresh should not reuse stored rows, got %+v", result.Performance)
	}
	if result.Predictions[0].Price != 50 {
		t.Fatalf("expected freshly generated price 50, got %v", result.Predictions[0].Price)
	}
}

func TestHorizonOutOfRangeIsRejected(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)
	f, _ := newTestForecaster(newFakePredictionStore(), featureStoreWithLatest(now),
		trainedModelStore(now), newFakeCache(), now)

	for _, h := range []int{0, -1, maxHorizonHours + 1} {
		if _, err := f.GetForecast(context.Background(), h, false); err == nil {
			t.Fatalf("expected error for horizon %d", h)
		}
	}
}

func TestMissingModelFailsTheForecast(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)
	f, _ := newTestForecaster(newFakePredictionStore(), featureStoreWithLatest(now),
		&fakeModelStore{}, newFakeCache(), now)

	if _, err := f.GetForecast(context.Background(), 24, false); err == nil {
		t.Fatalf("expected error without a trained model")
	}
}
