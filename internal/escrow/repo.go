package escrow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/internal/repo"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
)

// Repository manages escrow record persistence.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

func (r *Repository) Create(ctx context.Context, record *models.EscrowRecord) error {
	return r.DB(ctx).Create(record).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.EscrowRecord, error) {
	var record models.EscrowRecord
	if err := r.DB(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.EscrowRecord, error) {
	var record models.EscrowRecord
	if err := r.Locked(ctx).
		Where("id = ?", id).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// TransitionStatus moves a held record out of held. It reports false when
// another writer already moved it.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	updates["updated_at"] = time.Now().UTC()
	result := r.DB(ctx).
		Model(&models.EscrowRecord{}).
		Where("id = ? AND status = ?", id, enums.EscrowStatusHeld).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// FlagAttention stamps attention_flagged_at once on a held record.
func (r *Repository) FlagAttention(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.DB(ctx).
		Model(&models.EscrowRecord{}).
		Where("id = ? AND status = ? AND attention_flagged_at IS NULL", id, enums.EscrowStatusHeld).
		Updates(map[string]any{"attention_flagged_at": at, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListExpiredHeld returns held records whose deadline passed, oldest first.
// Manual records that were already flagged stay held indefinitely, so they are
// skipped to keep them from filling every batch.
func (r *Repository) ListExpiredHeld(ctx context.Context, now time.Time, limit int) ([]models.EscrowRecord, error) {
	var rows []models.EscrowRecord
	if err := r.DB(ctx).
		Where("status = ? AND expires_at <= ?", enums.EscrowStatusHeld, now).
		Where("auto_refund_enabled = ? OR attention_flagged_at IS NULL", true).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) ListHeldByFranchise(ctx context.Context, franchiseID uuid.UUID) ([]models.EscrowRecord, error) {
	var rows []models.EscrowRecord
	if err := r.DB(ctx).
		Where("franchise_id = ? AND status = ?", franchiseID, enums.EscrowStatusHeld).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListExpiringHeld returns held records of a round expiring at or before cutoff.
func (r *Repository) ListExpiringHeld(ctx context.Context, franchiseID uuid.UUID, cutoff time.Time) ([]models.EscrowRecord, error) {
	var rows []models.EscrowRecord
	if err := r.DB(ctx).
		Where("franchise_id = ? AND status = ? AND expires_at <= ?", franchiseID, enums.EscrowStatusHeld, cutoff).
		Order("expires_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
