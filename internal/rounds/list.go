package rounds

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	pkgpagination "github.com/angelmondragon/franchisefund-backend/pkg/pagination"
)

type ListParams struct {
	BrandID *uuid.UUID
	Stage   *enums.RoundStage
	pkgpagination.Params
}

type ListResult struct {
	Items  []RoundDTO `json:"items"`
	Cursor string     `json:"cursor"`
}

// RoundDTO is the API shape of a funding round.
type RoundDTO struct {
	ID                 uuid.UUID        `json:"id"`
	BrandID            uuid.UUID        `json:"brand_id"`
	Name               string           `json:"name"`
	TotalInvestmentUSD decimal.Decimal  `json:"total_investment_usd"`
	SharePriceUSD      decimal.Decimal  `json:"share_price_usd"`
	TotalShares        int64            `json:"total_shares"`
	AllocatedShares    int64            `json:"allocated_shares"`
	RemainingShares    int64            `json:"remaining_shares"`
	Stage              enums.RoundStage `json:"stage"`
	FundingGoalUSD     decimal.Decimal  `json:"funding_goal_usd"`
	CurrentFundingUSD  decimal.Decimal  `json:"current_funding_usd"`
	InvestorCount      int              `json:"investor_count"`
	FundingWindowDays  int              `json:"funding_window_days"`
	FundingOpenedAt    *time.Time       `json:"funding_opened_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

type listQuery struct {
	brandID *uuid.UUID
	stage   *enums.RoundStage
	window  pkgpagination.Window
}

func pageKey(m models.FundingRound) pkgpagination.Cursor {
	return pkgpagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
}

// ToDTO maps a round row to its API shape.
func ToDTO(m models.FundingRound) RoundDTO {
	return RoundDTO{
		ID:                 m.ID,
		BrandID:            m.BrandID,
		Name:               m.Name,
		TotalInvestmentUSD: m.TotalInvestmentUSD,
		SharePriceUSD:      m.SharePriceUSD,
		TotalShares:        m.TotalShares,
		AllocatedShares:    m.AllocatedShares,
		RemainingShares:    m.RemainingShares(),
		Stage:              m.Stage,
		FundingGoalUSD:     m.FundingGoalUSD,
		CurrentFundingUSD:  m.CurrentFundingUSD,
		InvestorCount:      m.InvestorCount,
		FundingWindowDays:  m.FundingWindowDays,
		FundingOpenedAt:    m.FundingOpenedAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}
