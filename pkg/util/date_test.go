package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2026-03-10T10:00:00Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestFloorToHour(t *testing.T) {
	in := time.Date(2026, 3, 10, 14, 37, 12, 500, time.UTC)
	want := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	if got := FloorToHour(in); !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestNextHour(t *testing.T) {
	in := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	want := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	if got := NextHour(in); !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestParseHorizon(t *testing.T) {
	cases := map[string]int{"24h": 24, "24": 24, " 48H ": 48, "1h": 1}
	for in, want := range cases {
		got, err := ParseHorizon(in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: got %d want %d", in, got, want)
		}
	}
	if _, err := ParseHorizon("0h"); err == nil {
		t.Fatalf("expected error for zero horizon")
	}
	if _, err := ParseHorizon("abc"); err == nil {
		t.Fatalf("expected error for garbage")
	}
}
