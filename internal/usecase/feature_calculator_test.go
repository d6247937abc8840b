package usecase

import (
	"context"
	"testing"
	"time"

	"PoolCast/internal/domain/models"
	"PoolCast/pkg/util"
)

type fakeFuelSource struct {
	prices map[time.Time]float64
	calls  int
}

func (s *fakeFuelSource) DailyPrices(context.Context, time.Time, time.Time) (map[time.Time]float64, error) {
	s.calls++
	return s.prices, nil
}

func seedObservations(now time.Time, hours int) *fakeObservationStore {
	obs := &fakeObservationStore{}
	start := util.FloorToHour(now.Add(-time.Duration(hours) * time.Hour))
	for i := 0; i < hours; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		price := 50.0 + float64(i%24)
		obs.rows = append(obs.rows, models.Observation{
			TS:       ts,
			Price:    &price,
			DemandMW: fp(10000),
			WindMW:   fp(1200),
			IsValid:  true,
		})
	}
	return obs
}

func TestFeatureCalculationCoversEveryObservation(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	obs := seedObservations(now, 200)
	feats := &fakeFeatureStore{}

	calc := NewFeatureCalculator(obs, feats, &fakeFuelSource{}, fakeMetrics{}, testLogger())
	calc.now = func() time.Time { return now }
	calc.pageSize = 50

	n, err := calc.CalculateFeatures(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 200 {
		t.Fatalf("expected 200 features calculated, got %d", n)
	}
	if len(feats.rows) != 200 {
		t.Fatalf("expected 200 stored feature rows, got %d", len(feats.rows))
	}
}

func TestFeatureLagsSurvivePageBoundaries(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	obs := seedObservations(now, 200)
	feats := &fakeFeatureStore{}

	calc := NewFeatureCalculator(obs, feats, &fakeFuelSource{}, fakeMetrics{}, testLogger())
	calc.now = func() time.Time { return now }
	calc.pageSize = 24

	if _, err := calc.CalculateFeatures(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Row 100 sits deep in a later page; its 24h lag crosses at least
	// four page boundaries.
	target := obs.rows[100].TS
	var rec *models.FeatureRecord
	for i := range feats.rows {
		if feats.rows[i].TS.Equal(target) {
			rec = &feats.rows[i]
			break
		}
	}
	if rec == nil {
		t.Fatalf("no feature row for %v", target)
	}
	if rec.Lag24h == nil {
		t.Fatalf("24h lag missing despite paging")
	}
	if want := *obs.rows[76].Price; *rec.Lag24h != want {
		t.Fatalf("24h lag = %v, want %v", *rec.Lag24h, want)
	}
}

func TestFeatureRecalculationIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	obs := seedObservations(now, 180)
	feats := &fakeFeatureStore{}

	calc := NewFeatureCalculator(obs, feats, &fakeFuelSource{}, fakeMetrics{}, testLogger())
	calc.now = func() time.Time { return now }

	if _, err := calc.CalculateFeatures(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := calc.CalculateFeatures(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(feats.rows) != 180 {
		t.Fatalf("recalculation duplicated rows: %d", len(feats.rows))
	}
}

func TestGasPricesJoinIntoFeatures(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	obs := seedObservations(now, 48)
	feats := &fakeFeatureStore{}

	fuelPrices := map[time.Time]float64{}
	for d := -50; d <= 1; d++ {
		day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
		fuelPrices[day] = 2.4
	}

	calc := NewFeatureCalculator(obs, feats, &fakeFuelSource{prices: fuelPrices},
		fakeMetrics{}, testLogger())
	calc.now = func() time.Time { return now }

	if _, err := calc.CalculateFeatures(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := feats.rows[len(feats.rows)-1]
	if last.GasLag1d == nil || *last.GasLag1d != 2.4 {
		t.Fatalf("expected gas_lag_1d 2.4, got %v", last.GasLag1d)
	}
}
