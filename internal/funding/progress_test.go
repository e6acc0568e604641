package funding

import (
	"testing"
	"time"
)

func TestClampProgress(t *testing.T) {
	cases := []struct {
		name      string
		allocated int64
		total     int64
		want      string
	}{
		{"empty round", 0, 1000, "0"},
		{"no shares", 10, 0, "0"},
		{"negative allocation", -5, 10, "0"},
		{"partial", 1, 3, "33.33"},
		{"two thirds truncates", 2, 3, "66.66"},
		{"quarter", 250, 1000, "25"},
		{"fifty shares short", 999950, 1000000, "99.99"},
		{"one share short", 999999, 1000000, "99.99"},
		{"exactly full", 1000, 1000, "100"},
		{"corrupted overshoot", 1500, 1000, "100"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClampProgress(tc.allocated, tc.total)
			if got.String() != tc.want {
				t.Fatalf("ClampProgress(%d, %d) = %s, want %s", tc.allocated, tc.total, got, tc.want)
			}
		})
	}
	if !IsFullyFunded(ClampProgress(1000, 1000)) {
		t.Fatal("expected full allocation to count as fully funded")
	}
	if IsFullyFunded(ClampProgress(999, 1000)) {
		t.Fatal("expected 99.9% to not be fully funded")
	}
	if IsFullyFunded(ClampProgress(999950, 1000000)) {
		t.Fatal("expected a round with unsold shares to not be fully funded")
	}
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	opened := now.Add(-10 * 24 * time.Hour)
	if got := DaysRemaining(&opened, 60, now); got != 50 {
		t.Fatalf("expected 50 days, got %d", got)
	}
	partial := now.Add(-10*24*time.Hour - time.Hour)
	if got := DaysRemaining(&partial, 60, now); got != 50 {
		t.Fatalf("expected partial day to round up to 50, got %d", got)
	}
	if got := DaysRemaining(nil, 45, now); got != 45 {
		t.Fatalf("expected unopened round to report full window, got %d", got)
	}
	closed := now.Add(-90 * 24 * time.Hour)
	if got := DaysRemaining(&closed, 60, now); got != 0 {
		t.Fatalf("expected elapsed window to report 0, got %d", got)
	}
}
