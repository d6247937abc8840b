package models

// ForecastRequest is the query contract of GET /api/forecast.
type ForecastRequest struct {
	Horizon      string `query:"horizon" default:"24h"`
	ForceRefresh bool   `query:"force_refresh"`
}

// CVRequest is the body contract of POST /api/cv.
type CVRequest struct {
	NumFolds              int `json:"num_folds" default:"5" validate:"min=2,max=20"`
	ValidationWindowHours int `json:"validation_window_hours" default:"168" validate:"min=24,max=720"`
}

// ObservationsRequest is the query contract of GET /api/observations.
type ObservationsRequest struct {
	From string `query:"from" validate:"required"`
	To   string `query:"to" validate:"required"`
}

// SearchRequest is the body contract of POST /api/retraining/search.
type SearchRequest struct {
	// Ridge penalties to try. Empty uses the built-in grid.
	Lambdas []float64 `json:"lambdas" validate:"max=16,dive,gte=0"`
}
