package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"PoolCast/internal/domain/models"
	"PoolCast/internal/domain/repository"
	applogger "PoolCast/pkg/logger"
	"PoolCast/pkg/util"
)

// ObservationIngestHandler consumes hourly market rows from Kafka and
// upserts them. Replayed messages converge because the store is keyed
// by ts.
type ObservationIngestHandler struct {
	obs     repository.ObservationStore
	metrics repository.Metrics
	l       *applogger.Logger
}

func NewObservationIngestHandler(
	obs repository.ObservationStore,
	metrics repository.Metrics,
	l *applogger.Logger,
) *ObservationIngestHandler {
	return &ObservationIngestHandler{obs: obs, metrics: metrics, l: l}
}

func (h *ObservationIngestHandler) Topic() string { return TopicObservations }

func (h *ObservationIngestHandler) Handle(ctx context.Context, payload []byte) error {
	var msg models.ObservationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		// Malformed payloads go to the DLQ rather than retrying forever.
		h.metrics.RecordError("ingest_decode")
		return fmt.Errorf("decode observation message: %w", err)
	}

	ts, ok := util.ParseTime(msg.TS)
	if !ok {
		h.metrics.RecordError("ingest_timestamp")
		return fmt.Errorf("observation message has invalid ts %q", msg.TS)
	}

	obs := observationFromMessage(&msg, ts)
	if err := h.obs.InsertBatch(ctx, []models.Observation{obs}); err != nil {
		h.metrics.RecordError("ingest_persist")
		return fmt.Errorf("persist observation: %w", err)
	}

	if obs.Price != nil {
		h.metrics.RecordLastPoolPrice(*obs.Price)
	}
	h.l.Debug("observation ingested", applogger.Time("ts", obs.TS))
	return nil
}

func observationFromMessage(msg *models.ObservationMessage, ts time.Time) models.Observation {
	obs := models.Observation{
		TS:       util.FloorToHour(ts),
		Price:    msg.Price,
		DemandMW: msg.DemandMW,
		IsValid:  msg.Price != nil,
	}
	obs.GasMW = lookup(msg.Generation, "gas")
	obs.WindMW = lookup(msg.Generation, "wind")
	obs.SolarMW = lookup(msg.Generation, "solar")
	obs.HydroMW = lookup(msg.Generation, "hydro")
	obs.CoalMW = lookup(msg.Generation, "coal")
	obs.TempC = lookup(msg.Weather, "temp_c")
	obs.WindKMH = lookup(msg.Weather, "wind_kmh")
	return obs
}

func lookup(m map[string]float64, key string) *float64 {
	if m == nil {
		return nil
	}
	v, ok := m[key]
	if !ok {
		return nil
	}
	return &v
}
