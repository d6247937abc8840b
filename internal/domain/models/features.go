package models

import "time"

// FeatureRecord holds the engineered features for one observation hour.
// Keyed 1:1 by TS; recomputable from observations at any time. Nil lag
// and rolling values mark rows near the start of the series where the
// lookback window is not available.
type FeatureRecord struct {
	TS    time.Time `json:"ts"`
	Price *float64  `json:"price"`

	Lag1h   *float64 `json:"lag_1h"`
	Lag24h  *float64 `json:"lag_24h"`
	Lag168h *float64 `json:"lag_168h"`

	RollMean3h  *float64 `json:"roll_mean_3h"`
	RollStd3h   *float64 `json:"roll_std_3h"`
	RollMean24h *float64 `json:"roll_mean_24h"`
	RollStd24h  *float64 `json:"roll_std_24h"`

	Volatility24h *float64 `json:"volatility_24h"`
	Momentum3h    *float64 `json:"momentum_3h"`

	// Natural gas daily price joined by hour-floored lookup.
	GasLag1d  *float64 `json:"gas_lag_1d"`
	GasLag7d  *float64 `json:"gas_lag_7d"`
	GasLag30d *float64 `json:"gas_lag_30d"`

	// Estimated wind curtailment, MW.
	CurtailmentMW *float64 `json:"curtailment_mw"`

	ComputedAt time.Time `json:"computed_at"`
}
