package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCronJobMetricsRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.ObserveRun("escrow-expiry", 250*time.Millisecond, nil)
	m.ObserveRun("escrow-expiry", time.Second, errors.New("boom"))
	m.AddItems("escrow-expiry", 3)
	m.AddItems("escrow-expiry", 0)
	m.IncSkippedCycle()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	for outcome, want := range map[string]float64{"success": 1, "failure": 1} {
		got, err := fetchCounter(mfs, "cron_job_runs_total", map[string]string{"job": "escrow-expiry", "outcome": outcome})
		if err != nil || got != want {
			t.Fatalf("%s: expected %v, got %v (%v)", outcome, want, got, err)
		}
	}
	if got, err := fetchCounterValue(mfs, "cron_job_items_total", "job", "escrow-expiry"); err != nil || got != 3 {
		t.Fatalf("expected 3 items, got %v (%v)", got, err)
	}
	if got, err := fetchCounter(mfs, "cron_cycles_skipped_total", nil); err != nil || got != 1 {
		t.Fatalf("expected 1 skipped cycle, got %v (%v)", got, err)
	}
	hist, err := fetchHistogram(mfs, "cron_job_duration_seconds", map[string]string{"job": "escrow-expiry"})
	if err != nil {
		t.Fatalf("duration: %v", err)
	}
	if hist.GetSampleCount() != 2 || hist.GetSampleSum() != 1.25 {
		t.Fatalf("unexpected histogram count=%d sum=%v", hist.GetSampleCount(), hist.GetSampleSum())
	}
}

func TestCronJobMetricsBlankJobLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCronJobMetrics(reg).ObserveRun("", time.Millisecond, nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if _, err := fetchCounter(mfs, "cron_job_runs_total", map[string]string{"job": "unknown"}); err != nil {
		t.Fatalf("expected unknown job label: %v", err)
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveRun("share-vesting", time.Second, nil)
	m.AddItems("share-vesting", 2)
	m.IncSkippedCycle()
	NewCronJobMetrics(nil).AddItems("share-vesting", 1)
}
