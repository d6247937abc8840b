package usecase

import (
	"context"
	"time"

	"PoolCast/internal/domain/models"
	"PoolCast/internal/domain/repository"
	"PoolCast/internal/services/quality"
	applogger "PoolCast/pkg/logger"
)

// QualityAuditor runs data quality analysis over the stored series and
// keeps the resulting reports for the retraining scheduler.
type QualityAuditor struct {
	obs      repository.ObservationStore
	feats    repository.FeatureStore
	reports  repository.QualityStore
	analyzer *quality.Analyzer
	metrics  repository.Metrics
	l        *applogger.Logger

	now func() time.Time
}

func NewQualityAuditor(
	obs repository.ObservationStore,
	feats repository.FeatureStore,
	reports repository.QualityStore,
	analyzer *quality.Analyzer,
	metrics repository.Metrics,
	l *applogger.Logger,
) *QualityAuditor {
	return &QualityAuditor{
		obs:      obs,
		feats:    feats,
		reports:  reports,
		analyzer: analyzer,
		metrics:  metrics,
		l:        l,
		now:      time.Now,
	}
}

// AnalyzeQuality scores the full stored series and persists the report.
// A failed persist still returns the report; only the audit trail and
// the retraining trigger miss it.
func (u *QualityAuditor) AnalyzeQuality(ctx context.Context) (*models.QualityReport, error) {
	started := u.now()
	now := started.UTC()

	obs, err := u.obs.ListRange(ctx, time.Time{}, now)
	if err != nil {
		u.metrics.RecordError("quality_load")
		return nil, err
	}
	feats, err := u.feats.ListRange(ctx, time.Time{}, now)
	if err != nil {
		u.metrics.RecordError("quality_load")
		return nil, err
	}

	report := u.analyzer.Analyze(obs, feats, now)
	if err := u.reports.Insert(ctx, report); err != nil {
		u.metrics.RecordError("quality_persist")
		u.l.Error("quality report persistence failed", applogger.Error(err))
	}

	u.metrics.RecordLatency("analyze_quality", time.Since(started).Seconds())
	u.l.Info("quality analysis finished",
		applogger.Int("records", report.Records),
		applogger.Float64("overall_score", report.OverallScore))
	return report, nil
}
