package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	"github.com/angelmondragon/franchisefund-backend/pkg/types"
)

// EscrowRecord is a held payment awaiting release or refund.
type EscrowRecord struct {
	ID                    uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	FranchiseID           uuid.UUID          `gorm:"column:franchise_id;type:uuid;not null;index"`
	UserID                uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	InvestmentID          *uuid.UUID         `gorm:"column:investment_id;type:uuid"`
	AmountUSD             decimal.Decimal    `gorm:"column:amount_usd;type:numeric(14,2);not null"`
	Shares                int64              `gorm:"column:shares;not null;default:0"`
	Status                enums.EscrowStatus `gorm:"column:status;type:escrow_status_enum;not null;default:held"`
	Stage                 enums.RoundStage   `gorm:"column:stage;type:round_stage_enum;not null"`
	ExpiresAt             time.Time          `gorm:"column:expires_at;not null"`
	AutoRefundEnabled     bool               `gorm:"column:auto_refund_enabled;not null"`
	ManualReleaseRequired bool               `gorm:"column:manual_release_required;not null;default:false"`
	ReleaseSignature      *string            `gorm:"column:release_signature"`
	RefundSignature       *string            `gorm:"column:refund_signature"`
	RefundReason          *string            `gorm:"column:refund_reason"`
	AttentionFlaggedAt    *time.Time         `gorm:"column:attention_flagged_at"`
	ResolvedAt            *time.Time         `gorm:"column:resolved_at"`
	Metadata              types.Metadata     `gorm:"column:metadata;type:jsonb"`
	CreatedAt             time.Time          `gorm:"column:created_at;not null"`
	UpdatedAt             time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (EscrowRecord) TableName() string { return "escrow_records" }

func (e *EscrowRecord) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}
