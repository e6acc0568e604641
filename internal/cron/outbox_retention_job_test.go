package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeOutboxPruner struct {
	cutoff      time.Time
	minAttempts int
	deleted     int64
	err         error
}

func (f *fakeOutboxPruner) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttempts int) (int64, error) {
	f.cutoff = cutoff
	f.minAttempts = minAttempts
	return f.deleted, f.err
}

type fakeDLQPruner struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakeDLQPruner) DeleteFailedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newRetentionJob(t *testing.T, params OutboxRetentionJobParams) *outboxRetentionJob {
	t.Helper()
	params.Logger = quietLogger()
	params.DB = passthroughTx{}
	job, err := NewOutboxRetentionJob(params)
	require.NoError(t, err)
	return job.(*outboxRetentionJob)
}

func TestOutboxRetentionJobPrunesEventsAndDeadLetters(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	events := &fakeOutboxPruner{deleted: 7}
	letters := &fakeDLQPruner{deleted: 2}
	job := newRetentionJob(t, OutboxRetentionJobParams{
		Repository:       events,
		DLQ:              letters,
		RetentionDays:    7,
		DLQRetentionDays: 60,
		TerminalAttempts: 12,
	})
	job.now = func() time.Time { return now }

	result, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 9, result.Processed)
	require.Equal(t, now.Add(-7*24*time.Hour), events.cutoff)
	require.Equal(t, 12, events.minAttempts)
	require.Equal(t, now.Add(-60*24*time.Hour), letters.cutoff)
}

func TestOutboxRetentionJobDefaults(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	events := &fakeOutboxPruner{}
	job := newRetentionJob(t, OutboxRetentionJobParams{Repository: events})
	job.now = func() time.Time { return now }

	_, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, now.Add(-defaultOutboxRetention), events.cutoff)
	require.Equal(t, defaultTerminalAttempts, events.minAttempts)
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job := newRetentionJob(t, OutboxRetentionJobParams{
		Repository: &fakeOutboxPruner{},
		DLQ:        &fakeDLQPruner{err: errors.New("boom")},
	})
	_, err := job.Run(context.Background())
	require.ErrorContains(t, err, "prune dead letters")
}
