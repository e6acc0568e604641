package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
)

// FundingRound is a single franchise location's capital raise.
type FundingRound struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	BrandID            uuid.UUID        `gorm:"column:brand_id;type:uuid;not null;index"`
	Name               string           `gorm:"column:name;not null"`
	TotalInvestmentUSD decimal.Decimal  `gorm:"column:total_investment_usd;type:numeric(14,2);not null"`
	SharePriceUSD      decimal.Decimal  `gorm:"column:share_price_usd;type:numeric(14,2);not null"`
	TotalShares        int64            `gorm:"column:total_shares;not null"`
	AllocatedShares    int64            `gorm:"column:allocated_shares;not null;default:0;check:chk_funding_rounds_allocation,allocated_shares <= total_shares"`
	Stage              enums.RoundStage `gorm:"column:stage;type:round_stage_enum;not null;default:approval"`
	FundingGoalUSD     decimal.Decimal  `gorm:"column:funding_goal_usd;type:numeric(14,2);not null"`
	CurrentFundingUSD  decimal.Decimal  `gorm:"column:current_funding_usd;type:numeric(14,2);not null;default:0"`
	InvestorCount      int              `gorm:"column:investor_count;not null;default:0"`
	FundingWindowDays  int              `gorm:"column:funding_window_days;not null"`
	FundingOpenedAt    *time.Time       `gorm:"column:funding_opened_at"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (FundingRound) TableName() string { return "funding_rounds" }

func (r *FundingRound) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// RemainingShares is the capacity still open for allocation.
func (r FundingRound) RemainingShares() int64 {
	if remaining := r.TotalShares - r.AllocatedShares; remaining > 0 {
		return remaining
	}
	return 0
}
