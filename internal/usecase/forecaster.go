package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"PoolCast/internal/domain/models"
	"PoolCast/internal/domain/repository"
	"PoolCast/internal/domain/service"
	"PoolCast/internal/services/features"
	"PoolCast/pkg/cache"
	pkghttp "PoolCast/pkg/http"
	applogger "PoolCast/pkg/logger"
	"PoolCast/pkg/util"
)

// Kafka topics produced and consumed by the pipeline.
const (
	TopicObservations     = "poolcast.observations"
	TopicForecastEvents   = "poolcast.forecast.events"
	TopicRetrainingEvents = "poolcast.retraining.events"
)

const (
	// forecastCacheTTL bounds how stale a served prediction may be.
	forecastCacheTTL = 15 * time.Minute

	inferenceBatchSize = 24
	maxHorizonHours    = 168
)

// EventPublisher emits pipeline events. Satisfied by kafka.Producer.
type EventPublisher interface {
	PublishMessage(ctx context.Context, topic string, value interface{}) error
}

// Forecaster serves hourly pool price forecasts, reusing stored
// predictions younger than the cache TTL and generating the rest in
// batches.
type Forecaster struct {
	preds     repository.PredictionStore
	feats     repository.FeatureStore
	models    repository.ModelStore
	telemetry repository.TelemetryStore
	predictor service.Predictor
	cache     cache.Service
	events    EventPublisher
	metrics   repository.Metrics
	l         *applogger.Logger

	cacheTTL   time.Duration
	batchSize  int
	maxHorizon int

	now func() time.Time
}

func NewForecaster(
	preds repository.PredictionStore,
	feats repository.FeatureStore,
	modelStore repository.ModelStore,
	telemetry repository.TelemetryStore,
	predictor service.Predictor,
	cacheSvc cache.Service,
	events EventPublisher,
	metrics repository.Metrics,
	l *applogger.Logger,
) *Forecaster {
	return &Forecaster{
		preds:     preds,
		feats:     feats,
		models:    modelStore,
		telemetry: telemetry,
		predictor: predictor,
		cache:     cacheSvc,
		events:    events,
		metrics:   metrics,
		l:         l,

		cacheTTL:   forecastCacheTTL,
		batchSize:  inferenceBatchSize,
		maxHorizon: maxHorizonHours,

		now: time.Now,
	}
}

// Tune overrides the serving parameters. Zero values keep the defaults.
func (u *Forecaster) Tune(cacheTTL time.Duration, batchSize, maxHorizon int) *Forecaster {
	if cacheTTL > 0 {
		u.cacheTTL = cacheTTL
	}
	if batchSize > 0 {
		u.batchSize = batchSize
	}
	if maxHorizon > 0 {
		u.maxHorizon = maxHorizon
	}
	return u
}

// GetForecast returns one prediction per future hour in (now, now+h].
// Stored predictions created within the TTL are reused; missing hours
// are generated with the active model. forceRefresh bypasses both the
// response cache and stored predictions.
func (u *Forecaster) GetForecast(ctx context.Context, horizonHours int, forceRefresh bool) (*models.ForecastResult, error) {
	started := u.now()
	now := started.UTC()

	if horizonHours < 1 || horizonHours > u.maxHorizon {
		return nil, pkghttp.BadRequestError("horizon").
			WithParam("max_hours", fmt.Sprintf("%d", u.maxHorizon))
	}

	// The memo key carries the window start, so a memoized response
	// never survives an hour boundary and serves a target that is no
	// longer in the future.
	first := util.NextHour(now)
	cacheKey := fmt.Sprintf("forecast:h%d:%s", horizonHours, first.Format("2006010215"))
	if !forceRefresh {
		if cached, err := cache.GetTyped[models.ForecastResult](ctx, u.cache, cacheKey); err == nil {
			u.metrics.RecordCacheLookup("response_hit")
			u.metrics.RecordForecastRequest("cache")
			return u.servedFromCache(cached, started), nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			u.l.Warn("forecast response cache read failed", applogger.Error(err))
		}
	}

	targets := make([]time.Time, horizonHours)
	for i := range targets {
		targets[i] = first.Add(time.Duration(i) * time.Hour)
	}
	windowEnd := targets[len(targets)-1]

	hits := map[time.Time]models.Prediction{}
	if !forceRefresh {
		stored, err := u.preds.ListWindow(ctx, now, windowEnd, now.Add(-u.cacheTTL))
		if err != nil {
			u.metrics.RecordError("prediction_window")
			u.l.Warn("stored prediction lookup failed, regenerating all hours",
				applogger.Error(err))
		} else {
			hits = dedupByHour(stored)
		}
	}

	var misses []time.Time
	for _, target := range targets {
		if _, ok := hits[target]; !ok {
			misses = append(misses, target)
		}
	}

	generated, batchCount, err := u.generate(ctx, misses, now)
	if err != nil {
		return nil, err
	}

	out := make([]models.Prediction, 0, horizonHours)
	hitCount := 0
	for _, target := range targets {
		if p, ok := hits[target]; ok {
			p.Cached = true
			out = append(out, p)
			hitCount++
			continue
		}
		if p, ok := generated[target]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetTS.Before(out[j].TargetTS) })
	if len(out) > horizonHours {
		out = out[:horizonHours]
	}
	if len(out) < horizonHours {
		u.l.Warn("forecast is short of requested horizon",
			applogger.Int("requested", horizonHours),
			applogger.Int("returned", len(out)))
	}

	missCount := len(misses)
	result := &models.ForecastResult{
		Predictions: out,
		Performance: models.ForecastPerformance{
			TotalDurationMs:         time.Since(started).Milliseconds(),
			CacheHitCount:           hitCount,
			CacheMissCount:          missCount,
			CacheHitRatePercent:     hitRate(hitCount, hitCount+missCount),
			NewPredictionsGenerated: len(generated),
			BatchCount:              batchCount,
		},
	}

	if len(out) == horizonHours {
		if payload, err := json.Marshal(result); err == nil {
			if err := u.cache.Set(ctx, cacheKey, string(payload), u.cacheTTL); err != nil {
				u.l.Warn("forecast response cache write failed", applogger.Error(err))
			}
		}
	}

	u.metrics.RecordForecastRequest("generated")
	for i := 0; i < hitCount; i++ {
		u.metrics.RecordCacheLookup("hit")
	}
	for i := 0; i < missCount; i++ {
		u.metrics.RecordCacheLookup("miss")
	}
	u.metrics.RecordLatency("get_forecast", time.Since(started).Seconds())
	go u.recordTelemetry(result, horizonHours)

	return result, nil
}

// generate runs inference for the missing target hours in fixed-size
// batches. A failed batch is logged and skipped; the forecast degrades
// instead of failing outright.
func (u *Forecaster) generate(ctx context.Context, misses []time.Time, now time.Time) (map[time.Time]models.Prediction, int, error) {
	generated := map[time.Time]models.Prediction{}
	if len(misses) == 0 {
		return generated, 0, nil
	}

	model, err := u.models.Active(ctx)
	if err != nil {
		u.metrics.RecordError("model_load")
		return nil, 0, err
	}
	if model == nil {
		return nil, 0, pkghttp.UnavailableError("model").
			WithParam("hint", "train a model before requesting forecasts")
	}

	latest, err := u.feats.Latest(ctx)
	if err != nil {
		u.metrics.RecordError("feature_load")
		return nil, 0, err
	}
	if latest == nil {
		return nil, 0, pkghttp.UnavailableError("features").
			WithParam("hint", "run feature calculation before requesting forecasts")
	}

	var toInsert []models.Prediction
	batchCount := 0
	for off := 0; off < len(misses); off += u.batchSize {
		end := off + u.batchSize
		if end > len(misses) {
			end = len(misses)
		}
		batch := misses[off:end]
		batchCount++

		vectors := make([][]float64, 0, len(batch))
		batchTargets := make([]time.Time, 0, len(batch))
		for _, target := range batch {
			vec, ok := features.FutureVector(latest, target)
			if !ok {
				u.metrics.RecordError("feature_vector")
				continue
			}
			vectors = append(vectors, vec)
			batchTargets = append(batchTargets, target)
		}
		if len(vectors) == 0 {
			continue
		}

		points, err := u.predictor.Predict(ctx, &service.PredictRequest{Model: model, Vectors: vectors})
		if err != nil {
			u.metrics.RecordError("inference")
			u.l.Error("inference batch failed, skipping",
				applogger.Int("batch", batchCount),
				applogger.Error(err))
			continue
		}

		for i, point := range points {
			target := batchTargets[i]
			p := models.Prediction{
				ID:              fmt.Sprintf("%s-%d", target.Format("2006010215"), now.UnixNano()),
				CreatedAt:       now,
				TargetTS:        target,
				HorizonHours:    int(target.Sub(util.FloorToHour(now)).Hours()),
				Price:           point.Price,
				ConfidenceLower: point.ConfidenceLower,
				ConfidenceUpper: point.ConfidenceUpper,
				ConfidenceScore: point.ConfidenceScore,
				ModelVersion:    model.VersionID,
				FeaturesUsed:    model.FeatureNames,
			}
			generated[target] = p
			toInsert = append(toInsert, p)
		}
	}

	if len(toInsert) > 0 {
		if err := u.preds.InsertBatch(ctx, toInsert); err != nil {
			// Still serve the forecast; only future cache reuse is lost.
			u.metrics.RecordError("prediction_persist")
			u.l.Error("prediction persistence failed", applogger.Error(err))
		}
	}
	return generated, batchCount, nil
}

// servedFromCache rewrites the performance block of a memoized response
// so it reflects this call: every hour came from cache.
func (u *Forecaster) servedFromCache(cached *models.ForecastResult, started time.Time) *models.ForecastResult {
	for i := range cached.Predictions {
		cached.Predictions[i].Cached = true
	}
	n := len(cached.Predictions)
	cached.Performance = models.ForecastPerformance{
		TotalDurationMs:     time.Since(started).Milliseconds(),
		CacheHitCount:       n,
		CacheHitRatePercent: hitRate(n, n),
	}
	return cached
}

func (u *Forecaster) recordTelemetry(result *models.ForecastResult, horizonHours int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	row := &models.ForecastTelemetry{
		CreatedAt:    u.now().UTC(),
		HorizonHours: horizonHours,
		DurationMs:   result.Performance.TotalDurationMs,
		CacheHits:    result.Performance.CacheHitCount,
		CacheMisses:  result.Performance.CacheMissCount,
		HitRatePct:   result.Performance.CacheHitRatePercent,
		BatchCount:   result.Performance.BatchCount,
		Generated:    result.Performance.NewPredictionsGenerated,
	}
	if err := u.telemetry.Insert(ctx, row); err != nil {
		u.l.Warn("telemetry insert failed", applogger.Error(err))
	}
	if u.events != nil {
		if err := u.events.PublishMessage(ctx, TopicForecastEvents, row); err != nil {
			u.l.Warn("forecast event publish failed", applogger.Error(err))
		}
	}
}

// dedupByHour collapses stored predictions to one per target hour,
// keeping the newest created_at.
func dedupByHour(stored []models.Prediction) map[time.Time]models.Prediction {
	out := map[time.Time]models.Prediction{}
	for _, p := range stored {
		key := util.FloorToHour(p.TargetTS)
		if best, ok := out[key]; ok && !p.CreatedAt.After(best.CreatedAt) {
			continue
		}
		out[key] = p
	}
	return out
}

func hitRate(hits, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
