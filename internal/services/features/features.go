package features

import (
	"math"
	"time"

	"PoolCast/internal/domain/models"
)

// Window sizes in hours.
const (
	shortWindow      = 3
	dayWindow        = 24
	weekWindow       = 168
	volatilityWindow = 24
	momentumWindow   = 3
)

// Calculator derives engineered feature records from ordered
// observations. GasDaily is the auxiliary fuel price series keyed by
// UTC day start.
type Calculator struct {
	GasDaily map[time.Time]float64
}

// NewCalculator creates a feature calculator with the given fuel
// price series.
func NewCalculator(gasDaily map[time.Time]float64) *Calculator {
	return &Calculator{GasDaily: gasDaily}
}

// Compute produces one FeatureRecord per observation in page. history
// is the tail of observations immediately preceding page, supplying
// lookback context across page boundaries. Both slices must be sorted
// ascending by ts.
func (c *Calculator) Compute(history, page []models.Observation, computedAt time.Time) []models.FeatureRecord {
	all := make([]models.Observation, 0, len(history)+len(page))
	all = append(all, history...)
	all = append(all, page...)

	prices := make([]*float64, len(all))
	for i := range all {
		prices[i] = all[i].Price
	}

	out := make([]models.FeatureRecord, 0, len(page))
	for i := len(history); i < len(all); i++ {
		obs := all[i]
		rec := models.FeatureRecord{
			TS:         obs.TS,
			Price:      obs.Price,
			Lag1h:      Lag(prices, i, 1),
			Lag24h:     Lag(prices, i, dayWindow),
			Lag168h:    Lag(prices, i, weekWindow),
			Momentum3h: Momentum(prices, i, momentumWindow),
			ComputedAt: computedAt,
		}
		rec.RollMean3h, rec.RollStd3h = Rolling(prices, i, shortWindow)
		rec.RollMean24h, rec.RollStd24h = Rolling(prices, i, dayWindow)
		rec.Volatility24h = Volatility(prices, i, volatilityWindow)
		rec.GasLag1d = c.gasLag(obs.TS, 1)
		rec.GasLag7d = c.gasLag(obs.TS, 7)
		rec.GasLag30d = c.gasLag(obs.TS, 30)
		rec.CurtailmentMW = Curtailment(&obs)
		out = append(out, rec)
	}
	return out
}

// Lag returns the price steps hours back, or nil when the series does
// not reach that far or the value is missing.
func Lag(prices []*float64, i, steps int) *float64 {
	j := i - steps
	if j < 0 {
		return nil
	}
	return prices[j]
}

// Rolling returns the sample mean and stddev of the non-missing prices
// in the window (i-window, i], or nils when no points are available.
// Requires the full window to be inside the series so early rows stay
// null instead of being computed from a shorter lookback.
func Rolling(prices []*float64, i, window int) (*float64, *float64) {
	lo := i - window + 1
	if lo < 0 {
		return nil, nil
	}
	xs := collect(prices, lo, i)
	if len(xs) == 0 {
		return nil, nil
	}
	m := mean(xs)
	s := sampleStdDev(xs, m)
	return &m, &s
}

// Volatility is the sample stddev of price over [i-window, i], using at
// most window+1 points and fewer at the start of the series.
func Volatility(prices []*float64, i, window int) *float64 {
	lo := i - window
	if lo < 0 {
		lo = 0
	}
	xs := collect(prices, lo, i)
	if len(xs) == 0 {
		return nil
	}
	s := sampleStdDev(xs, mean(xs))
	return &s
}

// Momentum is the percent change between the current price and the
// price window steps back. The lookback index clamps to zero at the
// start of the series; when it equals the current index the momentum
// is 0 by definition.
func Momentum(prices []*float64, i, window int) *float64 {
	j := i - window
	if j < 0 {
		j = 0
	}
	if j == i {
		zero := 0.0
		return &zero
	}
	cur, base := prices[i], prices[j]
	if cur == nil || base == nil || *base == 0 {
		return nil
	}
	v := (*cur - *base) / *base * 100
	return &v
}

// Curtailment estimates curtailed wind output as the share of grid
// oversupply attributable to wind, in MW.
func Curtailment(obs *models.Observation) *float64 {
	if obs.WindMW == nil || obs.DemandMW == nil {
		return nil
	}
	total := *obs.WindMW
	for _, g := range []*float64{obs.GasMW, obs.SolarMW, obs.HydroMW, obs.CoalMW} {
		if g != nil {
			total += *g
		}
	}
	over := total - *obs.DemandMW
	if over <= 0 {
		zero := 0.0
		return &zero
	}
	v := math.Min(*obs.WindMW, over)
	return &v
}

func (c *Calculator) gasLag(ts time.Time, days int) *float64 {
	// Floor to hour first, then to the UTC day the lagged hour falls in.
	h := ts.UTC().Truncate(time.Hour).AddDate(0, 0, -days)
	day := time.Date(h.Year(), h.Month(), h.Day(), 0, 0, 0, 0, time.UTC)
	if v, ok := c.GasDaily[day]; ok {
		return &v
	}
	return nil
}

func collect(prices []*float64, lo, hi int) []float64 {
	xs := make([]float64, 0, hi-lo+1)
	for k := lo; k <= hi; k++ {
		if prices[k] != nil {
			xs = append(xs, *prices[k])
		}
	}
	return xs
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func sampleStdDev(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
