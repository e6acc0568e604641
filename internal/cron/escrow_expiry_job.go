package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
)

type escrowSweeper interface {
	SweepExpirations(ctx context.Context, now time.Time) ([]models.EscrowRecord, error)
}

// EscrowExpiryJobParams configure the escrow expiry sweep.
type EscrowExpiryJobParams struct {
	Logger *logger.Logger
	Escrow escrowSweeper
}

// NewEscrowExpiryJob builds the cron job that settles held escrow past its deadline.
func NewEscrowExpiryJob(params EscrowExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Escrow == nil {
		return nil, fmt.Errorf("escrow service required")
	}
	return &escrowExpiryJob{
		logg:   params.Logger,
		escrow: params.Escrow,
		now:    time.Now,
	}, nil
}

type escrowExpiryJob struct {
	logg   *logger.Logger
	escrow escrowSweeper
	now    func() time.Time
}

func (j *escrowExpiryJob) Name() string { return "escrow-expiry" }

func (j *escrowExpiryJob) Run(ctx context.Context) (Result, error) {
	now := j.now().UTC()
	expired, err := j.escrow.SweepExpirations(ctx, now)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"swept_at": now,
		"expired":  len(expired),
	})
	if err != nil {
		// Records that did commit are still reported above.
		j.logg.Warn(logCtx, "escrow expiry sweep finished with errors")
		return Result{Processed: len(expired)}, fmt.Errorf("escrow expiry: %w", err)
	}
	j.logg.Info(logCtx, "escrow expiry sweep complete")
	return Result{Processed: len(expired)}, nil
}
