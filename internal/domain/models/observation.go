package models

import "time"

// Observation is one hourly market row: pool price, demand, generation
// mix and weather. Nil pointers mean the upstream feed had no value for
// that field, which is distinct from zero.
type Observation struct {
	TS       time.Time `json:"ts"`
	Price    *float64  `json:"price"`
	DemandMW *float64  `json:"demand_mw"`

	// Generation mix by fuel, MW.
	GasMW   *float64 `json:"gas_mw"`
	WindMW  *float64 `json:"wind_mw"`
	SolarMW *float64 `json:"solar_mw"`
	HydroMW *float64 `json:"hydro_mw"`
	CoalMW  *float64 `json:"coal_mw"`

	// Weather.
	TempC   *float64 `json:"temp_c"`
	WindKMH *float64 `json:"wind_kmh"`

	IsValid bool `json:"is_valid"`
}

// ObservationMessage is the Kafka ingest payload on poolcast.observations.
type ObservationMessage struct {
	TS         string             `json:"ts"`
	Price      *float64           `json:"price"`
	DemandMW   *float64           `json:"demand_mw"`
	Generation map[string]float64 `json:"generation,omitempty"`
	Weather    map[string]float64 `json:"weather,omitempty"`
}
