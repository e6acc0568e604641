package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	"github.com/angelmondragon/franchisefund-backend/pkg/types"
)

// Investment is one investor's capital commitment to a round.
type Investment struct {
	ID                  uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	FranchiseID         uuid.UUID              `gorm:"column:franchise_id;type:uuid;not null;index"`
	InvestorID          uuid.UUID              `gorm:"column:investor_id;type:uuid;not null;index"`
	InvestmentAmountUSD decimal.Decimal        `gorm:"column:investment_amount_usd;type:numeric(14,2);not null"`
	SharesPurchased     int64                  `gorm:"column:shares_purchased;not null"`
	PricePerShare       decimal.Decimal        `gorm:"column:price_per_share;type:numeric(14,2);not null"`
	PlatformCommission  decimal.Decimal        `gorm:"column:platform_commission;type:numeric(14,2);not null"`
	NetInvestmentAmount decimal.Decimal        `gorm:"column:net_investment_amount;type:numeric(14,2);not null"`
	UnattributedAmount  decimal.Decimal        `gorm:"column:unattributed_amount;type:numeric(14,2);not null;default:0"`
	Status              enums.InvestmentStatus `gorm:"column:status;type:investment_status_enum;not null;default:pending"`
	ShareID             *uuid.UUID             `gorm:"column:share_id;type:uuid"`
	OriginalAmount      *decimal.Decimal       `gorm:"column:original_amount;type:numeric(20,8)"`
	OriginalCurrency    *enums.Currency        `gorm:"column:original_currency"`
	ExchangeRate        *decimal.Decimal       `gorm:"column:exchange_rate;type:numeric(20,10)"`
	PaymentReference    *string                `gorm:"column:payment_reference"`
	FailureReason       *string                `gorm:"column:failure_reason"`
	Metadata            types.Metadata         `gorm:"column:metadata;type:jsonb"`
	ConfirmedAt         *time.Time             `gorm:"column:confirmed_at"`
	CompletedAt         *time.Time             `gorm:"column:completed_at"`
	CreatedAt           time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (Investment) TableName() string { return "investments" }

func (i *Investment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
