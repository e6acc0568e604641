package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
)

type shareVester interface {
	ProcessVesting(ctx context.Context, franchiseID *uuid.UUID, now time.Time) (int, error)
}

// ShareVestingJobParams configure the vesting run.
type ShareVestingJobParams struct {
	Logger *logger.Logger
	Shares shareVester
}

// NewShareVestingJob builds the cron job that vests shares whose period has elapsed.
func NewShareVestingJob(params ShareVestingJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Shares == nil {
		return nil, fmt.Errorf("share service required")
	}
	return &shareVestingJob{
		logg:   params.Logger,
		shares: params.Shares,
		now:    time.Now,
	}, nil
}

type shareVestingJob struct {
	logg   *logger.Logger
	shares shareVester
	now    func() time.Time
}

func (j *shareVestingJob) Name() string { return "share-vesting" }

func (j *shareVestingJob) Run(ctx context.Context) (Result, error) {
	now := j.now().UTC()
	vested, err := j.shares.ProcessVesting(ctx, nil, now)
	if err != nil {
		return Result{}, fmt.Errorf("share vesting: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"processed_at": now,
		"vested":       vested,
	})
	j.logg.Info(logCtx, "share vesting run complete")
	return Result{Processed: vested}, nil
}
