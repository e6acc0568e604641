package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/franchisefund-backend/pkg/db"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
)

// SeedRound inserts a round with total shares at a 1.00 price. Fields left
// zero on overrides take test defaults.
func SeedRound(t testing.TB, client *db.Client, stage enums.RoundStage, totalShares int64, overrides ...func(*models.FundingRound)) *models.FundingRound {
	t.Helper()

	total := decimal.NewFromInt(totalShares)
	round := &models.FundingRound{
		BrandID:            uuid.New(),
		Name:               "Downtown Location",
		TotalInvestmentUSD: total,
		SharePriceUSD:      decimal.NewFromInt(1),
		TotalShares:        totalShares,
		Stage:              stage,
		FundingGoalUSD:     total,
		CurrentFundingUSD:  decimal.Zero,
		FundingWindowDays:  60,
	}
	if stage != enums.RoundStageApproval {
		opened := time.Now().UTC()
		round.FundingOpenedAt = &opened
	}
	for _, apply := range overrides {
		apply(round)
	}
	if err := client.DB().Create(round).Error; err != nil {
		t.Fatalf("seed round: %v", err)
	}
	return round
}

// ReloadRound reads the current row for id.
func ReloadRound(t testing.TB, client *db.Client, id uuid.UUID) models.FundingRound {
	t.Helper()
	var round models.FundingRound
	if err := client.DB().Where("id = ?", id).First(&round).Error; err != nil {
		t.Fatalf("reload round: %v", err)
	}
	return round
}
