package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
)

// Approval is the snapshot of a round taken at submission time. Snapshot
// columns are written once on insert; only the decision columns change later.
type Approval struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	FranchiseID        uuid.UUID            `gorm:"column:franchise_id;type:uuid;not null;index"`
	TotalInvestmentUSD decimal.Decimal      `gorm:"column:total_investment_usd;type:numeric(14,2);not null"`
	CostPerAreaUSD     decimal.Decimal      `gorm:"column:cost_per_area_usd;type:numeric(14,2);not null"`
	TotalShares        int64                `gorm:"column:total_shares;not null"`
	SelectedShares     int64                `gorm:"column:selected_shares;not null"`
	SharePriceUSD      decimal.Decimal      `gorm:"column:share_price_usd;type:numeric(14,2);not null"`
	Status             enums.ApprovalStatus `gorm:"column:status;type:approval_status_enum;not null;default:pending"`
	SubmittedBy        uuid.UUID            `gorm:"column:submitted_by;type:uuid;not null"`
	SubmittedAt        time.Time            `gorm:"column:submitted_at;not null"`
	ReviewStartedAt    *time.Time           `gorm:"column:review_started_at"`
	DecidedAt          *time.Time           `gorm:"column:decided_at"`
	DecidedBy          *uuid.UUID           `gorm:"column:decided_by;type:uuid"`
	Notes              *string              `gorm:"column:notes"`
	RejectionReason    *string              `gorm:"column:rejection_reason"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (Approval) TableName() string { return "approvals" }

func (a *Approval) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
