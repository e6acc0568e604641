package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
)

// InvestmentRecordedEvent is emitted for every recorded investment, failed ones included.
type InvestmentRecordedEvent struct {
	InvestmentID        uuid.UUID              `json:"investment_id"`
	FranchiseID         uuid.UUID              `json:"franchise_id"`
	InvestorID          uuid.UUID              `json:"investor_id"`
	Status              enums.InvestmentStatus `json:"status"`
	InvestmentAmountUSD decimal.Decimal        `json:"investment_amount_usd"`
	PlatformCommission  decimal.Decimal        `json:"platform_commission"`
	NetInvestmentAmount decimal.Decimal        `json:"net_investment_amount"`
	SharesPurchased     int64                  `json:"shares_purchased"`
	FailureReason       string                 `json:"failure_reason,omitempty"`
}

// InvestmentStatusChangedEvent covers confirm, complete and refund transitions.
type InvestmentStatusChangedEvent struct {
	InvestmentID uuid.UUID              `json:"investment_id"`
	FranchiseID  uuid.UUID              `json:"franchise_id"`
	InvestorID   uuid.UUID              `json:"investor_id"`
	From         enums.InvestmentStatus `json:"from"`
	To           enums.InvestmentStatus `json:"to"`
	ChangedAt    time.Time              `json:"changed_at"`
}

// EscrowEvent is shared by every escrow transition so the settlement actor
// receives one consistent shape.
type EscrowEvent struct {
	EscrowID     uuid.UUID          `json:"escrow_id"`
	FranchiseID  uuid.UUID          `json:"franchise_id"`
	UserID       uuid.UUID          `json:"user_id"`
	InvestmentID *uuid.UUID         `json:"investment_id,omitempty"`
	AmountUSD    decimal.Decimal    `json:"amount_usd"`
	Shares       int64              `json:"shares"`
	Status       enums.EscrowStatus `json:"status"`
	Stage        enums.RoundStage   `json:"stage"`
	ExpiresAt    time.Time          `json:"expires_at"`
	Signature    string             `json:"signature,omitempty"`
	Reason       string             `json:"reason,omitempty"`
}

// ApprovalEvent is emitted on submit, approve and reject.
type ApprovalEvent struct {
	ApprovalID  uuid.UUID            `json:"approval_id"`
	FranchiseID uuid.UUID            `json:"franchise_id"`
	Status      enums.ApprovalStatus `json:"status"`
	ActorID     uuid.UUID            `json:"actor_id"`
	Notes       string               `json:"notes,omitempty"`
	Reason      string               `json:"reason,omitempty"`
	RefundedIDs []uuid.UUID          `json:"refunded_escrow_ids,omitempty"`
}

// RoundStageChangedEvent reports a funding round stage move.
type RoundStageChangedEvent struct {
	FranchiseID uuid.UUID        `json:"franchise_id"`
	From        enums.RoundStage `json:"from"`
	To          enums.RoundStage `json:"to"`
	ChangedAt   time.Time        `json:"changed_at"`
}

// SharesVestedEvent summarises one vesting sweep for a round.
type SharesVestedEvent struct {
	FranchiseID uuid.UUID   `json:"franchise_id"`
	ShareIDs    []uuid.UUID `json:"share_ids"`
	VestedAt    time.Time   `json:"vested_at"`
}
