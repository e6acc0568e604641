package funding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/franchisefund-backend/internal/investments"
	"github.com/angelmondragon/franchisefund-backend/internal/rounds"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/franchisefund-backend/pkg/errors"
	"github.com/angelmondragon/franchisefund-backend/pkg/fx"
	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
	"github.com/angelmondragon/franchisefund-backend/pkg/money"
)

// atRiskBelow is the progress under which an open round is flagged.
var atRiskBelow = decimal.NewFromInt(25)

type investmentLister interface {
	ListForFranchise(ctx context.Context, franchiseID uuid.UUID) ([]models.Investment, error)
}

type attentionLister interface {
	ListAttention(ctx context.Context, franchiseID uuid.UUID, now time.Time) ([]models.EscrowRecord, error)
}

// Service composes read-only funding signals for a round.
type Service interface {
	FundingProgress(ctx context.Context, franchiseID uuid.UUID) (decimal.Decimal, error)
	InvestmentSummary(ctx context.Context, franchiseID uuid.UUID, display *enums.Currency) (*Summary, error)
}

// Summary is recomputed on every read.
type Summary struct {
	FranchiseID          uuid.UUID        `json:"franchise_id"`
	Stage                enums.RoundStage `json:"stage"`
	TotalInvestedUSD     decimal.Decimal  `json:"total_invested_usd"`
	InvestmentCount      int              `json:"investment_count"`
	UniqueInvestors      int              `json:"unique_investors"`
	AverageInvestmentUSD decimal.Decimal  `json:"average_investment_usd"`
	FundingProgress      decimal.Decimal  `json:"funding_progress"`
	IsFullyFunded        bool             `json:"is_fully_funded"`
	IsAtRisk             bool             `json:"is_at_risk"`
	DaysRemaining        int              `json:"days_remaining"`
	AttentionCount       int              `json:"attention_count"`
	Display              *DisplayAmounts  `json:"display,omitempty"`
}

// DisplayAmounts are presentation conversions and are never persisted.
type DisplayAmounts struct {
	Currency          enums.Currency  `json:"currency"`
	Rate              decimal.Decimal `json:"rate"`
	TotalInvested     decimal.Decimal `json:"total_invested"`
	AverageInvestment decimal.Decimal `json:"average_investment"`
}

type ServiceParams struct {
	Rounds            *rounds.Repository
	Investments       investmentLister
	Escrow            attentionLister
	Rates             fx.RateProvider
	Logger            *logger.Logger
	FundingWindowDays int
	Now               func() time.Time
}

type service struct {
	rounds      *rounds.Repository
	investments investmentLister
	escrow      attentionLister
	rates       fx.RateProvider
	logg        *logger.Logger
	windowDays  int
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Rounds == nil {
		return nil, fmt.Errorf("round repository required")
	}
	if params.Investments == nil {
		return nil, fmt.Errorf("investment lister required")
	}
	if params.Escrow == nil {
		return nil, fmt.Errorf("escrow lister required")
	}
	window := params.FundingWindowDays
	if window <= 0 {
		window = 60
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		rounds:      params.Rounds,
		investments: params.Investments,
		escrow:      params.Escrow,
		rates:       params.Rates,
		logg:        params.Logger,
		windowDays:  window,
		now:         now,
	}, nil
}

func (s *service) FundingProgress(ctx context.Context, franchiseID uuid.UUID) (decimal.Decimal, error) {
	round, err := s.rounds.FindByID(ctx, franchiseID)
	if err != nil {
		return decimal.Zero, rounds.MapLookupError(err)
	}
	return ClampProgress(round.AllocatedShares, round.TotalShares), nil
}

func (s *service) InvestmentSummary(ctx context.Context, franchiseID uuid.UUID, display *enums.Currency) (*Summary, error) {
	if display != nil && !display.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported display currency")
	}
	round, err := s.rounds.FindByID(ctx, franchiseID)
	if err != nil {
		return nil, rounds.MapLookupError(err)
	}
	rows, err := s.investments.ListForFranchise(ctx, franchiseID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	attention, err := s.escrow.ListAttention(ctx, franchiseID, now)
	if err != nil {
		return nil, err
	}

	total, investors := investments.FundingTotals(rows)
	counted := 0
	for _, row := range rows {
		if row.Status != enums.InvestmentStatusFailed && row.Status != enums.InvestmentStatusRefunded {
			counted++
		}
	}
	average := decimal.Zero
	if counted > 0 {
		average = total.DivRound(decimal.NewFromInt(int64(counted)), money.CentPlaces)
	}

	window := round.FundingWindowDays
	if window <= 0 {
		window = s.windowDays
	}
	progress := ClampProgress(round.AllocatedShares, round.TotalShares)
	summary := &Summary{
		FranchiseID:          round.ID,
		Stage:                round.Stage,
		TotalInvestedUSD:     total,
		InvestmentCount:      counted,
		UniqueInvestors:      investors,
		AverageInvestmentUSD: average,
		FundingProgress:      progress,
		IsFullyFunded:        IsFullyFunded(progress),
		IsAtRisk:             progress.LessThan(atRiskBelow) && round.Stage != enums.RoundStageApproval,
		DaysRemaining:        DaysRemaining(round.FundingOpenedAt, window, now),
		AttentionCount:       len(attention),
	}

	if display != nil && *display != enums.CurrencyUSD {
		converted, err := s.convert(ctx, *display, total, average)
		if err != nil {
			return nil, err
		}
		summary.Display = converted
	}
	return summary, nil
}

func (s *service) convert(ctx context.Context, to enums.Currency, total, average decimal.Decimal) (*DisplayAmounts, error) {
	if s.rates == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "display conversion unavailable")
	}
	convertedTotal, rate, err := fx.Convert(ctx, s.rates, total, enums.CurrencyUSD, to)
	if err != nil {
		return nil, err
	}
	return &DisplayAmounts{
		Currency:          to,
		Rate:              rate,
		TotalInvested:     convertedTotal,
		AverageInvestment: average.Mul(rate).Round(money.CentPlaces),
	}, nil
}
