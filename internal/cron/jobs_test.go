package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
)

type fakeSweeper struct {
	calledAt []time.Time
	expired  []models.EscrowRecord
	err      error
}

func (f *fakeSweeper) SweepExpirations(_ context.Context, now time.Time) ([]models.EscrowRecord, error) {
	f.calledAt = append(f.calledAt, now)
	return f.expired, f.err
}

type fakeVester struct {
	franchiseID *uuid.UUID
	calledAt    time.Time
	vested      int
	err         error
}

func (f *fakeVester) ProcessVesting(_ context.Context, franchiseID *uuid.UUID, now time.Time) (int, error) {
	f.franchiseID = franchiseID
	f.calledAt = now
	return f.vested, f.err
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestEscrowExpiryJobSweepsAtCurrentTime(t *testing.T) {
	now := time.Date(2026, 3, 31, 9, 0, 0, 0, time.FixedZone("EST", -5*3600))
	sweeper := &fakeSweeper{expired: []models.EscrowRecord{{ID: uuid.New()}}}
	jobIface, err := NewEscrowExpiryJob(EscrowExpiryJobParams{Logger: quietLogger(), Escrow: sweeper})
	if err != nil {
		t.Fatalf("NewEscrowExpiryJob: %v", err)
	}
	job := jobIface.(*escrowExpiryJob)
	job.now = func() time.Time { return now }

	result, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("expected 1 processed, got %d", result.Processed)
	}
	if len(sweeper.calledAt) != 1 || !sweeper.calledAt[0].Equal(now) {
		t.Fatalf("unexpected sweep calls %v", sweeper.calledAt)
	}
	if sweeper.calledAt[0].Location() != time.UTC {
		t.Fatalf("expected sweep time in UTC")
	}
	if job.Name() != "escrow-expiry" {
		t.Fatalf("unexpected name %q", job.Name())
	}
}

func TestEscrowExpiryJobReportsPartialFailure(t *testing.T) {
	sweeper := &fakeSweeper{
		expired: []models.EscrowRecord{{ID: uuid.New()}, {ID: uuid.New()}},
		err:     errors.New("expire escrow x: boom"),
	}
	job, err := NewEscrowExpiryJob(EscrowExpiryJobParams{Logger: quietLogger(), Escrow: sweeper})
	if err != nil {
		t.Fatalf("NewEscrowExpiryJob: %v", err)
	}
	result, err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected sweep error to propagate")
	}
	if result.Processed != 2 {
		t.Fatalf("records that committed must still be counted, got %d", result.Processed)
	}
}

func TestShareVestingJobProcessesAllRounds(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	vester := &fakeVester{vested: 4}
	jobIface, err := NewShareVestingJob(ShareVestingJobParams{Logger: quietLogger(), Shares: vester})
	if err != nil {
		t.Fatalf("NewShareVestingJob: %v", err)
	}
	job := jobIface.(*shareVestingJob)
	job.now = func() time.Time { return now }

	result, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Processed != 4 {
		t.Fatalf("expected 4 vested, got %d", result.Processed)
	}
	if vester.franchiseID != nil {
		t.Fatalf("expected vesting across all rounds")
	}
	if !vester.calledAt.Equal(now) {
		t.Fatalf("unexpected vesting time %s", vester.calledAt)
	}
}

func TestJobConstructorsRequireDependencies(t *testing.T) {
	if _, err := NewEscrowExpiryJob(EscrowExpiryJobParams{Logger: quietLogger()}); err == nil {
		t.Fatal("expected missing escrow service error")
	}
	if _, err := NewShareVestingJob(ShareVestingJobParams{Shares: &fakeVester{}}); err == nil {
		t.Fatal("expected missing logger error")
	}
	if _, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: quietLogger()}); err == nil {
		t.Fatal("expected missing db runner error")
	}
}
