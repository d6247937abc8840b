package quality

import (
	"testing"
	"time"

	"PoolCast/internal/domain/models"
)

func f(v float64) *float64 { return &v }

func cleanObs(start time.Time, n int) []models.Observation {
	out := make([]models.Observation, n)
	for i := 0; i < n; i++ {
		out[i] = models.Observation{
			TS:       start.Add(time.Duration(i) * time.Hour),
			Price:    f(50),
			DemandMW: f(9000),
			WindMW:   f(1200),
			TempC:    f(15),
			IsValid:  true,
		}
	}
	return out
}

func TestCleanDataScoresHigh(t *testing.T) {
	now := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	obs := cleanObs(now.Add(-72*time.Hour), 72)
	feats := make([]models.FeatureRecord, len(obs))
	for i := range obs {
		feats[i] = models.FeatureRecord{TS: obs[i].TS, Lag24h: f(50), RollMean24h: f(50), Volatility24h: f(0), GasLag1d: f(2.5), CurtailmentMW: f(0)}
	}

	r := NewAnalyzer().Analyze(obs, feats, now)
	if r.OverallScore < 99 {
		t.Fatalf("expected near-perfect score for clean data, got %.2f", r.OverallScore)
	}
	if len(r.Recommendations) != 0 {
		t.Fatalf("expected no recommendations, got %v", r.Recommendations)
	}
}

func TestTukeyFencesUseTripleIQR(t *testing.T) {
	now := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	obs := cleanObs(now.Add(-100*time.Hour), 100)
	// One extreme spike well past Q3 + 3*IQR of an otherwise flat series.
	obs[50].Price = f(5000)

	r := NewAnalyzer().Analyze(obs, nil, now)
	if r.Outliers.Outliers != 1 {
		t.Fatalf("expected exactly 1 outlier, got %d", r.Outliers.Outliers)
	}
	if r.Outliers.UpperBound >= 5000 {
		t.Fatalf("upper fence %.1f should sit below the spike", r.Outliers.UpperBound)
	}
}

func TestMissingPriceLowersScoreAndRecommends(t *testing.T) {
	now := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	obs := cleanObs(now.Add(-50*time.Hour), 50)
	for i := 0; i < 10; i++ {
		obs[i].Price = nil
	}

	r := NewAnalyzer().Analyze(obs, nil, now)
	if r.MissingRates["price"] != 20 {
		t.Fatalf("expected 20%% missing price, got %.1f", r.MissingRates["price"])
	}
	if len(r.Recommendations) == 0 {
		t.Fatalf("expected recommendations for 20%% missing data")
	}
}

func TestContinuityPenalizesGaps(t *testing.T) {
	now := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	obs := cleanObs(now.Add(-50*time.Hour), 10)
	// Open a 5 hour hole after the fifth row.
	for i := 5; i < 10; i++ {
		obs[i].TS = obs[i].TS.Add(5 * time.Hour)
	}

	r := NewAnalyzer().Analyze(obs, nil, now)
	if r.ContinuityScore >= 100 {
		t.Fatalf("expected continuity below 100, got %.1f", r.ContinuityScore)
	}
}

func TestNegativePricesCounted(t *testing.T) {
	now := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	obs := cleanObs(now.Add(-20*time.Hour), 20)
	obs[3].DemandMW = f(-100)

	r := NewAnalyzer().Analyze(obs, nil, now)
	if r.NegativeValueRate <= 0 {
		t.Fatalf("expected positive negative-value rate")
	}
}

func TestEmptyStoreReturnsRecommendationOnly(t *testing.T) {
	r := NewAnalyzer().Analyze(nil, nil, time.Now())
	if r.OverallScore != 0 || len(r.Recommendations) != 1 {
		t.Fatalf("unexpected empty-store report: %+v", r)
	}
}
