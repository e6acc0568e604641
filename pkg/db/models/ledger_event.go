package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
)

// LedgerEvent records an immutable money movement tied to a funding round.
type LedgerEvent struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	FranchiseID  uuid.UUID             `gorm:"column:franchise_id;type:uuid;not null;index"`
	InvestmentID *uuid.UUID            `gorm:"column:investment_id;type:uuid"`
	EscrowID     *uuid.UUID            `gorm:"column:escrow_id;type:uuid"`
	ActorID      uuid.UUID             `gorm:"column:actor_id;type:uuid;not null"`
	Type         enums.LedgerEventType `gorm:"column:type;type:ledger_event_type_enum;not null"`
	AmountUSD    decimal.Decimal       `gorm:"column:amount_usd;type:numeric(14,2);not null"`
	Metadata     json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (LedgerEvent) TableName() string { return "ledger_events" }

func (e *LedgerEvent) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
