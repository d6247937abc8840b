package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	forecastRequests *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	validations      *prometheus.CounterVec
	lastPoolPrice    prometheus.Gauge
	modelSMAPE       prometheus.Gauge
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		forecastRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolcast_forecast_requests_total",
				Help: "Total number of forecast requests served",
			},
			[]string{"source"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolcast_forecast_cache_lookups_total",
				Help: "Forecast cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		validations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolcast_prediction_validations_total",
				Help: "Predictions validated against actual pool prices",
			},
			[]string{"regime"},
		),
		lastPoolPrice: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "poolcast_last_pool_price",
				Help: "Most recently ingested pool price",
			},
		),
		modelSMAPE: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "poolcast_active_model_smape",
				Help: "Rolling sMAPE of the active model",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "poolcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordForecastRequest records a served forecast and where it came from
// (cache, store, model).
func (r *Recorder) RecordForecastRequest(source string) {
	r.forecastRequests.WithLabelValues(source).Inc()
}

// RecordCacheLookup records a forecast cache lookup outcome (hit, miss).
func (r *Recorder) RecordCacheLookup(outcome string) {
	r.cacheLookups.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordValidation records a validated prediction by price regime.
func (r *Recorder) RecordValidation(regime string) {
	r.validations.WithLabelValues(regime).Inc()
}

// RecordLastPoolPrice records the most recent observed pool price.
func (r *Recorder) RecordLastPoolPrice(price float64) {
	r.lastPoolPrice.Set(price)
}

// RecordModelSMAPE records the rolling sMAPE of the active model.
func (r *Recorder) RecordModelSMAPE(smape float64) {
	r.modelSMAPE.Set(smape)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
