package instance

import (
	"os"
	"strconv"
	"strings"
	"testing"
)

func TestGetIDPrefersWorkerID(t *testing.T) {
	t.Setenv("WORKER_ID", "cron-a")
	if got := GetID(); got != "cron-a" {
		t.Fatalf("expected cron-a, got %q", got)
	}
}

func TestGetIDFallsBackToHostAndPID(t *testing.T) {
	t.Setenv("WORKER_ID", "")
	got := GetID()
	if !strings.HasSuffix(got, "-"+strconv.Itoa(os.Getpid())) {
		t.Fatalf("expected pid suffix, got %q", got)
	}
}
