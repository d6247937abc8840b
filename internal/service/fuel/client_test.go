package fuel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"PoolCast/pkg/logger"
)

func testLogger() *logger.Logger {
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		panic(err)
	}
	return l
}

func TestUnconfiguredFeedFallsBackToDefaults(t *testing.T) {
	c := NewClient(Config{}, testLogger())

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	prices, err := c.DailyPrices(context.Background(), from, to)
	if err != nil {
		t.Fatalf("fallback must not error: %v", err)
	}
	if len(prices) != 3 {
		t.Fatalf("expected 3 fallback days, got %d", len(prices))
	}
	if prices[from] != defaultMonthlyPrices[time.June] {
		t.Fatalf("expected June default price, got %v", prices[from])
	}
}

func TestFeedErrorFallsBackToDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{APIURL: srv.URL, APIKey: "k"}, testLogger())
	from := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	prices, err := c.DailyPrices(context.Background(), from, from)
	if err != nil {
		t.Fatalf("fallback must not error: %v", err)
	}
	if prices[from] != defaultMonthlyPrices[time.January] {
		t.Fatalf("expected January default, got %v", prices[from])
	}
}

func TestTokenIsCachedUntilExpiry(t *testing.T) {
	var tokenCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token":
			atomic.AddInt32(&tokenCalls, 1)
			json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 3600})
		default:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"prices": []map[string]interface{}{{"date": "2025-06-01", "price": 2.42}},
			})
		}
	}))
	defer srv.Close()

	c := NewClient(Config{APIURL: srv.URL, APIKey: "k"}, testLogger())
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		prices, err := c.DailyPrices(context.Background(), day, day)
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if prices[day] != 2.42 {
			t.Fatalf("expected feed price, got %v", prices[day])
		}
	}
	if n := atomic.LoadInt32(&tokenCalls); n != 1 {
		t.Fatalf("expected 1 token fetch, got %d", n)
	}

	// Advance past expiry; the next call re-authenticates.
	clock = clock.Add(2 * time.Hour)
	if _, err := c.DailyPrices(context.Background(), day, day); err != nil {
		t.Fatalf("fetch after expiry: %v", err)
	}
	if n := atomic.LoadInt32(&tokenCalls); n != 2 {
		t.Fatalf("expected token refresh after expiry, got %d fetches", n)
	}
}
