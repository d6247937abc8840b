package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"PoolCast/internal/domain/models"
)

func TestIngestHandlerPersistsObservation(t *testing.T) {
	obs := &fakeObservationStore{}
	h := NewObservationIngestHandler(obs, fakeMetrics{}, testLogger())

	msg := models.ObservationMessage{
		TS:       "2026-03-10T14:05:00Z",
		Price:    fp(62.5),
		DemandMW: fp(10500),
		Generation: map[string]float64{
			"gas":  5200,
			"wind": 1800,
		},
		Weather: map[string]float64{"temp_c": -4},
	}
	payload, _ := json.Marshal(msg)

	if err := h.Handle(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(obs.rows) != 1 {
		t.Fatalf("expected one stored row, got %d", len(obs.rows))
	}
	row := obs.rows[0]
	want := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	if !row.TS.Equal(want) {
		t.Fatalf("timestamp not floored to hour: %v", row.TS)
	}
	if row.Price == nil || *row.Price != 62.5 {
		t.Fatalf("price not carried: %v", row.Price)
	}
	if row.GasMW == nil || *row.GasMW != 5200 {
		t.Fatalf("gas generation not mapped: %v", row.GasMW)
	}
	if row.SolarMW != nil {
		t.Fatalf("absent generation keys must stay nil")
	}
	if row.TempC == nil || *row.TempC != -4 {
		t.Fatalf("weather not mapped: %v", row.TempC)
	}
	if !row.IsValid {
		t.Fatalf("row with a price should be valid")
	}
}

func TestIngestHandlerRejectsMalformedPayloads(t *testing.T) {
	obs := &fakeObservationStore{}
	h := NewObservationIngestHandler(obs, fakeMetrics{}, testLogger())

	if err := h.Handle(context.Background(), []byte("{not json")); err == nil {
		t.Fatalf("expected error for malformed json")
	}
	if err := h.Handle(context.Background(), []byte(`{"ts":"not-a-time"}`)); err == nil {
		t.Fatalf("expected error for invalid timestamp")
	}
	if len(obs.rows) != 0 {
		t.Fatalf("nothing should be stored for rejected payloads")
	}
}

func TestIngestHandlerTopic(t *testing.T) {
	h := NewObservationIngestHandler(&fakeObservationStore{}, fakeMetrics{}, testLogger())
	if h.Topic() != TopicObservations {
		t.Fatalf("unexpected topic %q", h.Topic())
	}
}
