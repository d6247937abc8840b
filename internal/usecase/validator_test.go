package usecase

import (
	"context"
	"testing"
	"time"

	"PoolCast/internal/domain/models"
)

func newTestValidator(preds *fakePredictionStore, obs *fakeObservationStore, now time.Time) (*ValidationTracker, *fakeAccuracyStore) {
	accuracy := &fakeAccuracyStore{}
	v := NewValidationTracker(preds, obs, accuracy, fakeMetrics{}, testLogger())
	v.now = func() time.Time { return now }
	return v, accuracy
}

func TestValidationChecksConfidenceInterval(t *testing.T) {
	now := time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)
	target := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	preds := newFakePredictionStore()
	preds.rows = []models.Prediction{{
		ID:              "p1",
		CreatedAt:       time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		TargetTS:        target,
		HorizonHours:    2,
		Price:           50,
		ConfidenceLower: 40,
		ConfidenceUpper: 60,
	}}
	obs := &fakeObservationStore{rows: []models.Observation{{TS: target, Price: fp(55)}}}

	v, accuracy := newTestValidator(preds, obs, now)
	result, err := v.ValidatePredictions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Validated != 1 || result.Deferred != 0 || result.Errors != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	rec := accuracy.rows[0]
	if !rec.WithinInterval {
		t.Fatalf("actual 55 inside [40, 60] should be within interval")
	}
	if rec.ActualRegime != models.RegimeNormal {
		t.Fatalf("expected normal regime, got %s", rec.ActualRegime)
	}
	if rec.AbsoluteError != 5 {
		t.Fatalf("expected absolute error 5, got %v", rec.AbsoluteError)
	}
	if rec.HorizonHours != 2 {
		t.Fatalf("expected horizon 2, got %d", rec.HorizonHours)
	}
	if _, ok := result.SummaryByHorizon[2]; !ok {
		t.Fatalf("expected a horizon 2 summary, got %+v", result.SummaryByHorizon)
	}
}

func TestValidationIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)
	target := now.Add(-time.Hour)

	preds := newFakePredictionStore()
	preds.rows = []models.Prediction{{ID: "p1", TargetTS: target, Price: 50,
		ConfidenceLower: 40, ConfidenceUpper: 60}}
	obs := &fakeObservationStore{rows: []models.Observation{{TS: target, Price: fp(48)}}}

	v, accuracy := newTestValidator(preds, obs, now)
	first, err := v.ValidatePredictions(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := v.ValidatePredictions(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.Validated != 1 {
		t.Fatalf("first run should validate 1, got %d", first.Validated)
	}
	if second.Validated != 0 {
		t.Fatalf("second run should validate 0, got %d", second.Validated)
	}
	if len(accuracy.rows) != 1 {
		t.Fatalf("expected exactly one accuracy record, got %d", len(accuracy.rows))
	}
}

func TestMissingObservationIsDeferredNotFailed(t *testing.T) {
	now := time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)

	preds := newFakePredictionStore()
	preds.rows = []models.Prediction{{ID: "p1", TargetTS: now.Add(-time.Hour), Price: 50}}

	v, accuracy := newTestValidator(preds, &fakeObservationStore{}, now)
	result, err := v.ValidatePredictions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Deferred != 1 || result.Validated != 0 || result.Errors != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(accuracy.rows) != 0 {
		t.Fatalf("no accuracy record should be written for a deferred prediction")
	}
	if len(preds.validated) != 0 {
		t.Fatalf("deferred prediction must stay due")
	}
}

func TestObservationOutsideToleranceIsDeferred(t *testing.T) {
	now := time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)
	target := now.Add(-2 * time.Hour)

	preds := newFakePredictionStore()
	preds.rows = []models.Prediction{{ID: "p1", TargetTS: target, Price: 50}}
	obs := &fakeObservationStore{rows: []models.Observation{
		{TS: target.Add(45 * time.Minute), Price: fp(48)},
	}}

	v, _ := newTestValidator(preds, obs, now)
	result, err := v.ValidatePredictions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Deferred != 1 {
		t.Fatalf("observation 45m away should not match, got %+v", result)
	}
}

func TestRegimeClassificationThresholds(t *testing.T) {
	cases := map[float64]string{
		50:  models.RegimeNormal,
		99:  models.RegimeNormal,
		100: models.RegimeElevated,
		199: models.RegimeElevated,
		200: models.RegimeSpike,
		900: models.RegimeSpike,
	}
	for price, want := range cases {
		if got := classifyRegime(price, spikeThreshold, elevatedThreshold); got != want {
			t.Fatalf("price %v: got %s want %s", price, got, want)
		}
	}
}
