package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
)

// Share is an allocation of ownership against a funding round.
type Share struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	FranchiseID       uuid.UUID         `gorm:"column:franchise_id;type:uuid;not null;index"`
	ShareholderID     uuid.UUID         `gorm:"column:shareholder_id;type:uuid;not null;index"`
	InvestmentID      *uuid.UUID        `gorm:"column:investment_id;type:uuid"`
	SharesAllocated   int64             `gorm:"column:shares_allocated;not null"`
	SharePrice        decimal.Decimal   `gorm:"column:share_price;type:numeric(14,2);not null"`
	TotalValue        decimal.Decimal   `gorm:"column:total_value;type:numeric(14,2);not null"`
	ShareType         enums.ShareType   `gorm:"column:share_type;type:share_type_enum;not null;default:common"`
	Status            enums.ShareStatus `gorm:"column:status;type:share_status_enum;not null;default:allocated"`
	IsVested          bool              `gorm:"column:is_vested;not null;default:false"`
	VestingPeriodDays *int              `gorm:"column:vesting_period_days"`
	AllocatedAt       time.Time         `gorm:"column:allocated_at;not null"`
	VestedAt          *time.Time        `gorm:"column:vested_at"`
	TransferredTo     *uuid.UUID        `gorm:"column:transferred_to;type:uuid"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Share) TableName() string { return "shares" }

func (s *Share) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// VestsAt returns when the allocation becomes vested; nil means no vesting schedule.
func (s Share) VestsAt() *time.Time {
	if s.VestingPeriodDays == nil {
		return nil
	}
	at := s.AllocatedAt.Add(time.Duration(*s.VestingPeriodDays) * 24 * time.Hour)
	return &at
}
