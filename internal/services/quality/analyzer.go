package quality

import (
	"fmt"
	"math"
	"sort"
	"time"

	"PoolCast/internal/domain/models"
)

// Thresholds driving recommendations, percent scales.
const (
	coverageThreshold     = 90.0
	completenessThreshold = 95.0
	missingRateThreshold  = 10.0
	continuityThreshold   = 95.0

	// Tukey multiplier. 3x rather than 1.5x because spot electricity
	// prices are legitimately heavy tailed.
	tukeyK = 3.0

	recentWindow = 30 * 24 * time.Hour
	maxGap       = 90 * time.Minute
)

// Analyzer computes data quality reports over the observation store.
// Pure reads plus a single report write by the caller.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze computes a quality report from observations and their
// engineered features. Both slices are sorted ascending by ts; feats
// may be shorter than obs when feature calculation lags behind.
func (a *Analyzer) Analyze(obs []models.Observation, feats []models.FeatureRecord, now time.Time) *models.QualityReport {
	report := &models.QualityReport{
		CreatedAt:    now,
		Records:      len(obs),
		MissingRates: map[string]float64{},
	}
	if len(obs) == 0 {
		report.Recommendations = []string{"no observations available; ingest market data before training"}
		return report
	}

	report.MissingRates = missingRates(obs)
	report.Outliers = priceOutliers(obs)
	report.RecentCompleteness = recentCompleteness(obs, feats, now)
	report.FeatureCoverage = featureCoverage(feats)
	report.NegativeValueRate = negativeRate(obs)
	report.ContinuityScore = continuityScore(obs)

	maxMissing := 0.0
	for _, r := range report.MissingRates {
		if r > maxMissing {
			maxMissing = r
		}
	}
	meanCoverage := 100.0
	if len(report.FeatureCoverage) > 0 {
		meanCoverage = 0
		for _, c := range report.FeatureCoverage {
			meanCoverage += c
		}
		meanCoverage /= float64(len(report.FeatureCoverage))
	}

	report.OverallScore = mean6(
		100-maxMissing,
		100-report.Outliers.OutlierRate,
		report.RecentCompleteness,
		meanCoverage,
		100-report.NegativeValueRate,
		report.ContinuityScore,
	)
	report.Recommendations = recommendations(report, maxMissing, meanCoverage)
	return report
}

func missingRates(obs []models.Observation) map[string]float64 {
	n := float64(len(obs))
	counts := map[string]int{}
	for i := range obs {
		o := &obs[i]
		if o.Price == nil {
			counts["price"]++
		}
		if o.DemandMW == nil {
			counts["demand_mw"]++
		}
		if o.WindMW == nil {
			counts["wind_mw"]++
		}
		if o.TempC == nil {
			counts["temp_c"]++
		}
	}
	rates := map[string]float64{}
	for _, field := range []string{"price", "demand_mw", "wind_mw", "temp_c"} {
		rates[field] = float64(counts[field]) / n * 100
	}
	return rates
}

func priceOutliers(obs []models.Observation) models.OutlierAnalysis {
	prices := make([]float64, 0, len(obs))
	for i := range obs {
		if obs[i].Price != nil {
			prices = append(prices, *obs[i].Price)
		}
	}
	if len(prices) < 4 {
		return models.OutlierAnalysis{}
	}

	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1

	out := models.OutlierAnalysis{
		LowerBound: q1 - tukeyK*iqr,
		UpperBound: q3 + tukeyK*iqr,
	}
	for _, p := range prices {
		if p < out.LowerBound || p > out.UpperBound {
			out.Outliers++
		}
	}
	out.OutlierRate = float64(out.Outliers) / float64(len(prices)) * 100
	return out
}

func recentCompleteness(obs []models.Observation, feats []models.FeatureRecord, now time.Time) float64 {
	cutoff := now.Add(-recentWindow)
	lag24 := map[time.Time]bool{}
	for i := range feats {
		if feats[i].Lag24h != nil {
			lag24[feats[i].TS] = true
		}
	}

	var total, complete int
	for i := range obs {
		o := &obs[i]
		if o.TS.Before(cutoff) {
			continue
		}
		total++
		if o.Price != nil && o.DemandMW != nil && o.WindMW != nil && lag24[o.TS] {
			complete++
		}
	}
	if total == 0 {
		return 100
	}
	return float64(complete) / float64(total) * 100
}

func featureCoverage(feats []models.FeatureRecord) map[string]float64 {
	if len(feats) == 0 {
		return map[string]float64{}
	}
	n := float64(len(feats))
	counts := map[string]int{}
	for i := range feats {
		f := &feats[i]
		if f.Lag24h != nil {
			counts["lag_24h"]++
		}
		if f.RollMean24h != nil {
			counts["roll_mean_24h"]++
		}
		if f.Volatility24h != nil {
			counts["volatility_24h"]++
		}
		if f.GasLag1d != nil {
			counts["gas_lag_1d"]++
		}
		if f.CurtailmentMW != nil {
			counts["curtailment_mw"]++
		}
	}
	cov := map[string]float64{}
	for _, name := range []string{"lag_24h", "roll_mean_24h", "volatility_24h", "gas_lag_1d", "curtailment_mw"} {
		cov[name] = float64(counts[name]) / n * 100
	}
	return cov
}

func negativeRate(obs []models.Observation) float64 {
	var checked, negative int
	for i := range obs {
		o := &obs[i]
		for _, v := range []*float64{o.Price, o.DemandMW, o.GasMW, o.WindMW, o.SolarMW, o.HydroMW, o.CoalMW} {
			if v == nil {
				continue
			}
			checked++
			if *v < 0 {
				negative++
			}
		}
	}
	if checked == 0 {
		return 0
	}
	return float64(negative) / float64(checked) * 100
}

func continuityScore(obs []models.Observation) float64 {
	if len(obs) < 2 {
		return 100
	}
	var gaps int
	for i := 1; i < len(obs); i++ {
		if obs[i].TS.Sub(obs[i-1].TS) > maxGap {
			gaps++
		}
	}
	score := 100 - float64(gaps)/float64(len(obs)-1)*100
	return math.Max(0, score)
}

func recommendations(r *models.QualityReport, maxMissing, meanCoverage float64) []string {
	var recs []string
	if maxMissing > missingRateThreshold {
		recs = append(recs, fmt.Sprintf("missing data rate %.1f%% exceeds %.0f%%; review upstream ingestion", maxMissing, missingRateThreshold))
	}
	if r.RecentCompleteness < completenessThreshold {
		recs = append(recs, fmt.Sprintf("last-30-day completeness %.1f%% below %.0f%%; recent rows are degrading training quality", r.RecentCompleteness, completenessThreshold))
	}
	for name, cov := range r.FeatureCoverage {
		if cov < coverageThreshold {
			recs = append(recs, fmt.Sprintf("feature %s coverage %.1f%% below %.0f%%; run feature calculation or check the fuel feed", name, cov, coverageThreshold))
		}
	}
	if r.ContinuityScore < continuityThreshold {
		recs = append(recs, fmt.Sprintf("temporal continuity %.1f%% below %.0f%%; observation gaps exceed 1.5h", r.ContinuityScore, continuityThreshold))
	}
	if r.Outliers.OutlierRate > 5 {
		recs = append(recs, fmt.Sprintf("price outlier rate %.1f%% is high; verify settlement data", r.Outliers.OutlierRate))
	}
	sort.Strings(recs)
	return recs
}

// quantile uses linear interpolation on a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func mean6(a, b, c, d, e, f float64) float64 {
	return (a + b + c + d + e + f) / 6
}
