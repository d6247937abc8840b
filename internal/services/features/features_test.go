package features

import (
	"testing"
	"time"

	"PoolCast/internal/domain/models"
)

func hourlyObs(start time.Time, prices []float64) []models.Observation {
	out := make([]models.Observation, len(prices))
	for i := range prices {
		p := prices[i]
		out[i] = models.Observation{TS: start.Add(time.Duration(i) * time.Hour), Price: &p, IsValid: true}
	}
	return out
}

func TestFlatPriceVolatilityAndMomentumAreZero(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]float64, 24)
	for i := range prices {
		prices[i] = 50
	}
	obs := hourlyObs(start, prices)

	calc := NewCalculator(nil)
	recs := calc.Compute(nil, obs, time.Now())
	if len(recs) != 24 {
		t.Fatalf("expected 24 records, got %d", len(recs))
	}

	last := recs[23]
	if last.Volatility24h == nil || *last.Volatility24h != 0 {
		t.Fatalf("expected zero volatility at hour 23, got %v", last.Volatility24h)
	}
	if last.Momentum3h == nil || *last.Momentum3h != 0 {
		t.Fatalf("expected zero momentum at hour 23, got %v", last.Momentum3h)
	}
}

func TestLagsAreNilAtSeriesStart(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	obs := hourlyObs(start, []float64{10, 20, 30})

	calc := NewCalculator(nil)
	recs := calc.Compute(nil, obs, time.Now())

	if recs[0].Lag1h != nil {
		t.Fatalf("expected nil lag_1h at series start, got %v", *recs[0].Lag1h)
	}
	if recs[1].Lag1h == nil || *recs[1].Lag1h != 10 {
		t.Fatalf("expected lag_1h=10 at hour 1, got %v", recs[1].Lag1h)
	}
	if recs[2].Lag24h != nil {
		t.Fatalf("expected nil lag_24h with only 3 hours of history")
	}
}

func TestMomentumClampsAtSeriesStart(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	obs := hourlyObs(start, []float64{100, 110})

	calc := NewCalculator(nil)
	recs := calc.Compute(nil, obs, time.Now())

	// Lookback clamps to index 0; momentum at index 0 is 0 by definition.
	if recs[0].Momentum3h == nil || *recs[0].Momentum3h != 0 {
		t.Fatalf("expected zero momentum at index 0, got %v", recs[0].Momentum3h)
	}
	// Index 1 compares against index 0 after clamping: (110-100)/100.
	if recs[1].Momentum3h == nil || *recs[1].Momentum3h != 10 {
		t.Fatalf("expected 10%% momentum at index 1, got %v", recs[1].Momentum3h)
	}
}

func TestNoLookaheadLeakage(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	base := make([]float64, 48)
	for i := range base {
		base[i] = float64(40 + i)
	}

	calc := NewCalculator(nil)
	recsA := calc.Compute(nil, hourlyObs(start, base), time.Now())

	// Change only the final price; every earlier record must be unchanged.
	mutated := append([]float64(nil), base...)
	mutated[47] = 9999
	recsB := calc.Compute(nil, hourlyObs(start, mutated), time.Now())

	for i := 0; i < 47; i++ {
		a, b := recsA[i], recsB[i]
		if !floatPtrEq(a.Volatility24h, b.Volatility24h) || !floatPtrEq(a.RollMean24h, b.RollMean24h) {
			t.Fatalf("record %d changed after mutating a later observation", i)
		}
	}
}

func TestHistoryCarriesAcrossPages(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	all := hourlyObs(start, []float64{10, 20, 30, 40})

	calc := NewCalculator(nil)
	whole := calc.Compute(nil, all, time.Now())
	paged := calc.Compute(all[:2], all[2:], time.Now())

	if len(paged) != 2 {
		t.Fatalf("expected 2 records for the page, got %d", len(paged))
	}
	if !floatPtrEq(paged[0].Lag1h, whole[2].Lag1h) {
		t.Fatalf("paged lag_1h mismatch: %v vs %v", paged[0].Lag1h, whole[2].Lag1h)
	}
	if !floatPtrEq(paged[1].RollMean3h, whole[3].RollMean3h) {
		t.Fatalf("paged roll_mean_3h mismatch")
	}
}

func TestGasJoinFloorsToHourAndMissingIsNil(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	gas := map[time.Time]float64{day: 2.5}

	calc := NewCalculator(gas)
	ts := time.Date(2025, 6, 2, 13, 45, 0, 0, time.UTC) // lag 1d lands on June 1
	obs := []models.Observation{{TS: ts, Price: f(50)}}
	recs := calc.Compute(nil, obs, time.Now())

	if recs[0].GasLag1d == nil || *recs[0].GasLag1d != 2.5 {
		t.Fatalf("expected gas_lag_1d=2.5, got %v", recs[0].GasLag1d)
	}
	if recs[0].GasLag7d != nil {
		t.Fatalf("expected nil gas_lag_7d for missing day, got %v", *recs[0].GasLag7d)
	}
}

func TestTrainingMatrixDropsIncompleteRows(t *testing.T) {
	ts := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	complete := models.FeatureRecord{
		TS: ts, Price: f(55),
		Lag1h: f(54), Lag24h: f(50), Lag168h: f(48),
		RollMean3h: f(53), RollStd3h: f(1), RollMean24h: f(51), RollStd24h: f(2),
		Volatility24h: f(2), Momentum3h: f(1.5), GasLag1d: f(2.4),
	}
	incomplete := complete
	incomplete.Lag168h = nil

	x, y, used := TrainingMatrix([]models.FeatureRecord{incomplete, complete})
	if len(x) != 1 || len(y) != 1 || len(used) != 1 {
		t.Fatalf("expected 1 usable row, got %d", len(x))
	}
	if len(x[0]) != len(FeatureNames()) {
		t.Fatalf("vector width %d does not match feature names %d", len(x[0]), len(FeatureNames()))
	}
	if y[0] != 55 {
		t.Fatalf("expected target 55, got %v", y[0])
	}
}

func TestFutureVectorUsesTargetTimeFeatures(t *testing.T) {
	latest := &models.FeatureRecord{
		TS: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), Price: f(55),
		Lag1h: f(54), Lag24h: f(50), Lag168h: f(48),
		RollMean3h: f(53), RollStd3h: f(1), RollMean24h: f(51), RollStd24h: f(2),
		Volatility24h: f(2), Momentum3h: f(1.5), GasLag1d: f(2.4),
	}

	a, ok := FutureVector(latest, time.Date(2025, 6, 11, 3, 0, 0, 0, time.UTC))
	if !ok {
		t.Fatalf("expected usable vector")
	}
	b, _ := FutureVector(latest, time.Date(2025, 6, 11, 15, 0, 0, 0, time.UTC))
	if a[0] == b[0] {
		t.Fatalf("expected hour features to differ between target hours")
	}
	// Market features persist from the latest record.
	if a[4] != b[4] || a[4] != 54 {
		t.Fatalf("expected lag_1h to persist from latest record")
	}
}

func f(v float64) *float64 { return &v }

func floatPtrEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
