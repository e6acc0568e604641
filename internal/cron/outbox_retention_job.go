package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultDLQRetention    = 90 * 24 * time.Hour
	// Rows that failed this many times without publishing count as terminal.
	defaultTerminalAttempts = 10
)

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type dlqPruner interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// OutboxRetentionJobParams configure pruning of relayed ledger events. The
// retention values are days, matching the FRANCHISEFUND_OUTBOX_* settings.
// DLQ is optional; without it dead letters are kept forever.
type OutboxRetentionJobParams struct {
	Logger           *logger.Logger
	DB               txRunner
	Repository       outboxPruner
	DLQ              dlqPruner
	RetentionDays    int
	DLQRetentionDays int
	TerminalAttempts int
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:             params.Logger,
		db:               params.DB,
		outbox:           params.Repository,
		dlq:              params.DLQ,
		retention:        days(params.RetentionDays, defaultOutboxRetention),
		dlqRetention:     days(params.DLQRetentionDays, defaultDLQRetention),
		terminalAttempts: params.TerminalAttempts,
		now:              time.Now,
	}
	if job.terminalAttempts <= 0 {
		job.terminalAttempts = defaultTerminalAttempts
	}
	return job, nil
}

func days(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * 24 * time.Hour
}

type outboxRetentionJob struct {
	logg             *logger.Logger
	db               txRunner
	outbox           outboxPruner
	dlq              dlqPruner
	retention        time.Duration
	dlqRetention     time.Duration
	terminalAttempts int
	now              func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) (Result, error) {
	now := j.now().UTC()
	cutoff := now.Add(-j.retention)
	dlqCutoff := now.Add(-j.dlqRetention)
	var events, letters int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		events, err = j.outbox.DeletePublishedBefore(ctx, tx, cutoff, j.terminalAttempts)
		if err != nil {
			return fmt.Errorf("prune events: %w", err)
		}
		if j.dlq == nil {
			return nil
		}
		letters, err = j.dlq.DeleteFailedBefore(ctx, tx, dlqCutoff)
		if err != nil {
			return fmt.Errorf("prune dead letters: %w", err)
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":               cutoff,
		"dlq_cutoff":           dlqCutoff,
		"events_deleted":       events,
		"dead_letters_deleted": letters,
	}), "ledger outbox pruned")
	return Result{Processed: int(events + letters)}, nil
}
