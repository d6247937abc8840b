package usecase

import (
	"context"
	"time"

	"PoolCast/internal/domain/models"
	"PoolCast/internal/domain/repository"
	"PoolCast/internal/service/fuel"
	"PoolCast/internal/services/features"
	applogger "PoolCast/pkg/logger"
)

const (
	defaultFeaturePageSize = 1000

	// historyTail covers the longest lookback (168h lag) so feature
	// values do not change across page boundaries.
	historyTail = 168

	// gasLookback covers gas_lag_30d plus margin when loading the fuel
	// price series for the oldest page.
	gasLookback = 45 * 24 * time.Hour
)

// FeatureCalculator pages through stored observations and materializes
// engineered feature records. Pages commit independently, so a failed
// page loses only its own rows and is recomputed on the next run.
type FeatureCalculator struct {
	obs      repository.ObservationStore
	feats    repository.FeatureStore
	fuel     fuel.PriceSource
	metrics  repository.Metrics
	l        *applogger.Logger
	pageSize int

	now func() time.Time
}

func NewFeatureCalculator(
	obs repository.ObservationStore,
	feats repository.FeatureStore,
	fuelSource fuel.PriceSource,
	metrics repository.Metrics,
	l *applogger.Logger,
) *FeatureCalculator {
	return &FeatureCalculator{
		obs:      obs,
		feats:    feats,
		fuel:     fuelSource,
		metrics:  metrics,
		l:        l,
		pageSize: defaultFeaturePageSize,
		now:      time.Now,
	}
}

// Tune overrides the observation page size. Zero keeps the default.
func (u *FeatureCalculator) Tune(pageSize int) *FeatureCalculator {
	if pageSize > 0 {
		u.pageSize = pageSize
	}
	return u
}

// CalculateFeatures recomputes features for all stored observations and
// returns the number of feature rows written. Upserts are keyed by ts,
// so reruns converge rather than duplicate.
func (u *FeatureCalculator) CalculateFeatures(ctx context.Context) (int, error) {
	started := u.now()
	now := started.UTC()

	gas, err := u.fuel.DailyPrices(ctx, now.Add(-400*24*time.Hour).Add(-gasLookback), now)
	if err != nil {
		// DailyPrices falls back internally; an error here means even
		// the fallback table could not be built.
		u.metrics.RecordError("fuel_prices")
		return 0, err
	}
	calc := features.NewCalculator(gas)

	var (
		history []models.Observation
		after   time.Time
		total   int
		pages   int
	)

	for {
		page, err := u.obs.ListPage(ctx, after, u.pageSize)
		if err != nil {
			u.metrics.RecordError("feature_page")
			return total, err
		}
		if len(page) == 0 {
			break
		}
		pages++

		records := calc.Compute(history, page, now)
		if err := u.feats.UpsertBatch(ctx, records); err != nil {
			// Skip this page; the cursor still advances so one bad
			// page cannot stall the whole pipeline.
			u.metrics.RecordError("feature_upsert")
			u.l.Error("feature page upsert failed, skipping page",
				applogger.Time("after", after),
				applogger.Int("rows", len(records)),
				applogger.Error(err))
		} else {
			total += len(records)
		}

		history = appendTail(history, page, historyTail)
		after = page[len(page)-1].TS

		if len(page) < u.pageSize {
			break
		}
	}

	u.metrics.RecordLatency("calculate_features", time.Since(started).Seconds())
	u.l.Info("feature calculation finished",
		applogger.Int("pages", pages),
		applogger.Int("features_calculated", total))
	return total, nil
}

// appendTail returns the last n observations of history+page.
func appendTail(history, page []models.Observation, n int) []models.Observation {
	merged := append(history, page...)
	if len(merged) > n {
		merged = merged[len(merged)-n:]
	}
	out := make([]models.Observation, len(merged))
	copy(out, merged)
	return out
}
