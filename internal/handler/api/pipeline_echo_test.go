package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	xhttp "PoolCast/pkg/http"
	xlogger "PoolCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func echoContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) xhttp.APIResponse {
	t.Helper()
	var env xhttp.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestHealthzWithoutCheckerReportsOK(t *testing.T) {
	h := NewPipelineEchoHandler(testLogger(t), nil, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	c, rec := echoContext(http.MethodGet, "/healthz")

	if err := h.Healthz(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusOK {
		t.Fatalf("expected envelope status 200, got %d", env.Status)
	}
}

type failingHealth struct{}

func (failingHealth) Health(context.Context) error { return context.DeadlineExceeded }

func TestHealthzReportsStorageOutage(t *testing.T) {
	h := NewPipelineEchoHandler(testLogger(t), nil, nil, nil, nil, nil, nil, nil, nil, nil, failingHealth{})
	c, rec := echoContext(http.MethodGet, "/healthz")

	if err := h.Healthz(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected envelope status 503, got %d", env.Status)
	}
}

func TestForecastRejectsMalformedHorizon(t *testing.T) {
	h := NewPipelineEchoHandler(testLogger(t), nil, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	c, rec := echoContext(http.MethodGet, "/api/forecast?horizon=abc")

	if err := h.Forecast(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("expected envelope status 400, got %d", env.Status)
	}
	if !strings.Contains(rec.Body.String(), "horizon") {
		t.Fatalf("error should name the horizon field: %s", rec.Body.String())
	}
}

func TestObservationsRequireRange(t *testing.T) {
	h := NewPipelineEchoHandler(testLogger(t), nil, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	c, rec := echoContext(http.MethodGet, "/api/observations")

	if err := h.Observations(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("expected envelope status 400, got %d", env.Status)
	}
}

func TestObservationsRejectInvertedRange(t *testing.T) {
	h := NewPipelineEchoHandler(testLogger(t), nil, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	c, rec := echoContext(http.MethodGet,
		"/api/observations?from=2026-03-11T00:00:00Z&to=2026-03-10T00:00:00Z")

	if err := h.Observations(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("expected envelope status 400, got %d", env.Status)
	}
}
