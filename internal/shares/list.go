package shares

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	pkgpagination "github.com/angelmondragon/franchisefund-backend/pkg/pagination"
)

type ListParams struct {
	FranchiseID   uuid.UUID
	ShareholderID *uuid.UUID
	pkgpagination.Params
}

type ListResult struct {
	Items  []ShareDTO `json:"items"`
	Cursor string     `json:"cursor"`
}

type ShareDTO struct {
	ID                uuid.UUID         `json:"id"`
	FranchiseID       uuid.UUID         `json:"franchise_id"`
	ShareholderID     uuid.UUID         `json:"shareholder_id"`
	InvestmentID      *uuid.UUID        `json:"investment_id,omitempty"`
	SharesAllocated   int64             `json:"shares_allocated"`
	SharePrice        decimal.Decimal   `json:"share_price"`
	TotalValue        decimal.Decimal   `json:"total_value"`
	ShareType         enums.ShareType   `json:"share_type"`
	Status            enums.ShareStatus `json:"status"`
	IsVested          bool              `json:"is_vested"`
	VestingPeriodDays *int              `json:"vesting_period_days,omitempty"`
	AllocatedAt       time.Time         `json:"allocated_at"`
	VestedAt          *time.Time        `json:"vested_at,omitempty"`
	TransferredTo     *uuid.UUID        `json:"transferred_to,omitempty"`
}

type listQuery struct {
	franchiseID   uuid.UUID
	shareholderID *uuid.UUID
	window        pkgpagination.Window
}

func pageKey(m models.Share) pkgpagination.Cursor {
	return pkgpagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
}

// ToDTO maps a share row to its API shape.
func ToDTO(m models.Share) ShareDTO {
	return ShareDTO{
		ID:                m.ID,
		FranchiseID:       m.FranchiseID,
		ShareholderID:     m.ShareholderID,
		InvestmentID:      m.InvestmentID,
		SharesAllocated:   m.SharesAllocated,
		SharePrice:        m.SharePrice,
		TotalValue:        m.TotalValue,
		ShareType:         m.ShareType,
		Status:            m.Status,
		IsVested:          m.IsVested,
		VestingPeriodDays: m.VestingPeriodDays,
		AllocatedAt:       m.AllocatedAt,
		VestedAt:          m.VestedAt,
		TransferredTo:     m.TransferredTo,
	}
}
