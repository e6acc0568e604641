package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/internal/repo"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
)

// Repository manages persistence for ledger events. Rows are insert-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.LedgerEvent) error
	ListByFranchiseID(ctx context.Context, franchiseID uuid.UUID) ([]models.LedgerEvent, error)
	ListByEscrowID(ctx context.Context, escrowID uuid.UUID) ([]models.LedgerEvent, error)
	CountByEscrowAndType(ctx context.Context, escrowID uuid.UUID, eventType enums.LedgerEventType) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, event *models.LedgerEvent) error {
	return r.DB(ctx).Create(event).Error
}

func (r *repository) ListByFranchiseID(ctx context.Context, franchiseID uuid.UUID) ([]models.LedgerEvent, error) {
	var events []models.LedgerEvent
	if err := r.DB(ctx).
		Where("franchise_id = ?", franchiseID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) ListByEscrowID(ctx context.Context, escrowID uuid.UUID) ([]models.LedgerEvent, error) {
	var events []models.LedgerEvent
	if err := r.DB(ctx).
		Where("escrow_id = ?", escrowID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) CountByEscrowAndType(ctx context.Context, escrowID uuid.UUID, eventType enums.LedgerEventType) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.LedgerEvent{}).
		Where("escrow_id = ? AND type = ?", escrowID, eventType).
		Count(&count).Error
	return count, err
}
