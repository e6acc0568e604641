package approvals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/internal/repo"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
)

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

func (r *Repository) Create(ctx context.Context, approval *models.Approval) error {
	return r.DB(ctx).Create(approval).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Approval, error) {
	var approval models.Approval
	if err := r.DB(ctx).Where("id = ?", id).First(&approval).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Approval, error) {
	var approval models.Approval
	if err := r.Locked(ctx).
		Where("id = ?", id).
		First(&approval).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

// FindOutstanding returns the pending or under review approval of a round.
func (r *Repository) FindOutstanding(ctx context.Context, franchiseID uuid.UUID) (*models.Approval, error) {
	var approval models.Approval
	if err := r.DB(ctx).
		Where("franchise_id = ? AND status IN ?", franchiseID, enums.OutstandingApprovalStatuses).
		First(&approval).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

// TransitionStatus writes decision columns only while the approval is in from.
// Snapshot columns are never part of updates.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from enums.ApprovalStatus, updates map[string]any) (bool, error) {
	updates["updated_at"] = time.Now().UTC()
	result := r.DB(ctx).
		Model(&models.Approval{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) ListByFranchise(ctx context.Context, franchiseID uuid.UUID) ([]models.Approval, error) {
	var rows []models.Approval
	if err := r.DB(ctx).
		Where("franchise_id = ?", franchiseID).
		Order("submitted_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
