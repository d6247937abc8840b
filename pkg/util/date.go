package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// FloorToHour rounds a timestamp down to the start of its hour in UTC.
// Pool prices settle hourly; every join and cache lookup keys on this.
func FloorToHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// NextHour returns the start of the hour strictly after t.
func NextHour(t time.Time) time.Time {
	return FloorToHour(t).Add(time.Hour)
}

// ParseHorizon parses a horizon string like "24h" or "36" into whole hours.
func ParseHorizon(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("horizon is empty")
	}
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "h")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid horizon %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("horizon must be positive, got %d", n)
	}
	return n, nil
}
