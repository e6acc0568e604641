package investments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	pkgpagination "github.com/angelmondragon/franchisefund-backend/pkg/pagination"
	"github.com/angelmondragon/franchisefund-backend/pkg/types"
)

type ListParams struct {
	FranchiseID uuid.UUID
	InvestorID  *uuid.UUID
	pkgpagination.Params
}

type ListResult struct {
	Items  []InvestmentDTO `json:"items"`
	Cursor string          `json:"cursor"`
}

type InvestmentDTO struct {
	ID                  uuid.UUID              `json:"id"`
	FranchiseID         uuid.UUID              `json:"franchise_id"`
	InvestorID          uuid.UUID              `json:"investor_id"`
	InvestmentAmountUSD decimal.Decimal        `json:"investment_amount_usd"`
	SharesPurchased     int64                  `json:"shares_purchased"`
	PricePerShare       decimal.Decimal        `json:"price_per_share"`
	PlatformCommission  decimal.Decimal        `json:"platform_commission"`
	NetInvestmentAmount decimal.Decimal        `json:"net_investment_amount"`
	UnattributedAmount  decimal.Decimal        `json:"unattributed_amount"`
	Status              enums.InvestmentStatus `json:"status"`
	ShareID             *uuid.UUID             `json:"share_id,omitempty"`
	OriginalAmount      *decimal.Decimal       `json:"original_amount,omitempty"`
	OriginalCurrency    *enums.Currency        `json:"original_currency,omitempty"`
	ExchangeRate        *decimal.Decimal       `json:"exchange_rate,omitempty"`
	PaymentReference    *string                `json:"payment_reference,omitempty"`
	FailureReason       *string                `json:"failure_reason,omitempty"`
	Metadata            types.Metadata         `json:"metadata"`
	CreatedAt           time.Time              `json:"created_at"`
}

type listQuery struct {
	franchiseID uuid.UUID
	investorID  *uuid.UUID
	window      pkgpagination.Window
}

func pageKey(m models.Investment) pkgpagination.Cursor {
	return pkgpagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
}

// ToDTO maps an investment row to its API shape.
func ToDTO(m models.Investment) InvestmentDTO {
	return InvestmentDTO{
		ID:                  m.ID,
		FranchiseID:         m.FranchiseID,
		InvestorID:          m.InvestorID,
		InvestmentAmountUSD: m.InvestmentAmountUSD,
		SharesPurchased:     m.SharesPurchased,
		PricePerShare:       m.PricePerShare,
		PlatformCommission:  m.PlatformCommission,
		NetInvestmentAmount: m.NetInvestmentAmount,
		UnattributedAmount:  m.UnattributedAmount,
		Status:              m.Status,
		ShareID:             m.ShareID,
		OriginalAmount:      m.OriginalAmount,
		OriginalCurrency:    m.OriginalCurrency,
		ExchangeRate:        m.ExchangeRate,
		PaymentReference:    m.PaymentReference,
		FailureReason:       m.FailureReason,
		Metadata:            m.Metadata,
		CreatedAt:           m.CreatedAt,
	}
}
