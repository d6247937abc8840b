package features

import (
	"math"
	"time"

	"PoolCast/internal/domain/models"
)

// FeatureNames is the canonical column order shared between the
// training matrix and future prediction vectors. Changing the order
// invalidates persisted model weights.
func FeatureNames() []string {
	return []string{
		"hour_sin", "hour_cos",
		"dow_sin", "dow_cos",
		"lag_1h", "lag_24h", "lag_168h",
		"roll_mean_3h", "roll_std_3h",
		"roll_mean_24h", "roll_std_24h",
		"volatility_24h", "momentum_3h",
		"gas_lag_1d",
	}
}

// TrainingMatrix builds an X matrix and y target vector from feature
// records. Rows missing any required feature or the target price are
// dropped so the model never trains on values the pipeline could not
// compute. Returns the rows actually used.
func TrainingMatrix(records []models.FeatureRecord) (x [][]float64, y []float64, used []models.FeatureRecord) {
	for i := range records {
		rec := &records[i]
		if rec.Price == nil {
			continue
		}
		vec, ok := rowVector(rec, rec.TS)
		if !ok {
			continue
		}
		x = append(x, vec)
		y = append(y, *rec.Price)
		used = append(used, *rec)
	}
	return x, y, used
}

// FutureVector builds a prediction vector for a future target hour.
// Time features come from the target; market features persist from the
// latest computed record (the best information available at forecast
// time). Returns false when the latest record lacks required values.
func FutureVector(latest *models.FeatureRecord, target time.Time) ([]float64, bool) {
	if latest == nil {
		return nil, false
	}
	return rowVector(latest, target)
}

func rowVector(rec *models.FeatureRecord, ts time.Time) ([]float64, bool) {
	required := []*float64{
		rec.Lag1h, rec.Lag24h, rec.Lag168h,
		rec.RollMean3h, rec.RollStd3h,
		rec.RollMean24h, rec.RollStd24h,
		rec.Volatility24h, rec.Momentum3h,
		rec.GasLag1d,
	}
	for _, v := range required {
		if v == nil {
			return nil, false
		}
	}

	hour := float64(ts.UTC().Hour())
	dow := float64(ts.UTC().Weekday())
	return []float64{
		math.Sin(2 * math.Pi * hour / 24), math.Cos(2 * math.Pi * hour / 24),
		math.Sin(2 * math.Pi * dow / 7), math.Cos(2 * math.Pi * dow / 7),
		*rec.Lag1h, *rec.Lag24h, *rec.Lag168h,
		*rec.RollMean3h, *rec.RollStd3h,
		*rec.RollMean24h, *rec.RollStd24h,
		*rec.Volatility24h, *rec.Momentum3h,
		*rec.GasLag1d,
	}, true
}
