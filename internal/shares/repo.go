package shares

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/internal/repo"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
)

// Repository manages share persistence.
type Repository struct {
	repo.Base
}

// NewRepository constructs a share repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx binds the repository to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

func (r *Repository) Create(ctx context.Context, share *models.Share) error {
	return r.DB(ctx).Create(share).Error
}

func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Share, error) {
	var share models.Share
	if err := r.Locked(ctx).
		Where("id = ?", id).
		First(&share).Error; err != nil {
		return nil, err
	}
	return &share, nil
}

// TransitionStatus applies updates only while the share is still in from.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from enums.ShareStatus, updates map[string]any) (bool, error) {
	updates["updated_at"] = time.Now().UTC()
	result := r.DB(ctx).
		Model(&models.Share{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListVestingCandidates returns allocated, unvested shares that carry a
// vesting schedule, optionally scoped to one round.
func (r *Repository) ListVestingCandidates(ctx context.Context, franchiseID *uuid.UUID) ([]models.Share, error) {
	query := r.DB(ctx).
		Model(&models.Share{}).
		Where("status = ? AND is_vested = ? AND vesting_period_days IS NOT NULL", enums.ShareStatusAllocated, false)
	if franchiseID != nil {
		query = query.Where("franchise_id = ?", *franchiseID)
	}
	var rows []models.Share
	if err := query.Order("allocated_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActive returns every non-cancelled share of a round.
func (r *Repository) ListActive(ctx context.Context, franchiseID uuid.UUID) ([]models.Share, error) {
	var rows []models.Share
	if err := r.DB(ctx).
		Where("franchise_id = ? AND status <> ?", franchiseID, enums.ShareStatusCancelled).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Share, error) {
	query := r.DB(ctx).Model(&models.Share{}).Where("franchise_id = ?", opts.franchiseID)
	if opts.shareholderID != nil {
		query = query.Where("shareholder_id = ?", *opts.shareholderID)
	}
	query = opts.window.Apply(query)

	var rows []models.Share
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
