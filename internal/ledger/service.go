package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
)

// Service records money movements. Writes always join the caller's transaction
// so a ledger row exists exactly when the movement it describes committed.
type Service interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error)
	HasEscrowEvent(ctx context.Context, tx *gorm.DB, escrowID uuid.UUID, eventType enums.LedgerEventType) (bool, error)
	ListForFranchise(ctx context.Context, franchiseID uuid.UUID) ([]models.LedgerEvent, error)
}

type service struct {
	repo Repository
}

// RecordLedgerEventInput captures the immutable data a ledger event requires.
type RecordLedgerEventInput struct {
	FranchiseID  uuid.UUID             `json:"franchise_id"`
	InvestmentID *uuid.UUID            `json:"investment_id,omitempty"`
	EscrowID     *uuid.UUID            `json:"escrow_id,omitempty"`
	ActorID      uuid.UUID             `json:"actor_id"`
	Type         enums.LedgerEventType `json:"type"`
	AmountUSD    decimal.Decimal       `json:"amount_usd"`
	Metadata     json.RawMessage       `json:"metadata"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error) {
	if input.FranchiseID == uuid.Nil {
		return nil, fmt.Errorf("franchise id is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, fmt.Errorf("actor id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger event type %q", input.Type)
	}
	if input.AmountUSD.IsNegative() {
		return nil, fmt.Errorf("ledger amount must not be negative")
	}

	event := &models.LedgerEvent{
		FranchiseID:  input.FranchiseID,
		InvestmentID: input.InvestmentID,
		EscrowID:     input.EscrowID,
		ActorID:      input.ActorID,
		Type:         input.Type,
		AmountUSD:    input.AmountUSD,
		Metadata:     input.Metadata,
	}

	if err := s.repo.WithTx(tx).Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) HasEscrowEvent(ctx context.Context, tx *gorm.DB, escrowID uuid.UUID, eventType enums.LedgerEventType) (bool, error) {
	if escrowID == uuid.Nil {
		return false, fmt.Errorf("escrow id is required")
	}
	if !eventType.IsValid() {
		return false, fmt.Errorf("invalid ledger event type %q", eventType)
	}
	count, err := s.repo.WithTx(tx).CountByEscrowAndType(ctx, escrowID, eventType)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *service) ListForFranchise(ctx context.Context, franchiseID uuid.UUID) ([]models.LedgerEvent, error) {
	if franchiseID == uuid.Nil {
		return nil, fmt.Errorf("franchise id is required")
	}
	return s.repo.ListByFranchiseID(ctx, franchiseID)
}
