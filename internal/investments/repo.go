package investments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/internal/repo"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
)

// Repository manages investment persistence.
type Repository struct {
	repo.Base
}

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

func (r *Repository) Create(ctx context.Context, inv *models.Investment) error {
	return r.DB(ctx).Create(inv).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Investment, error) {
	var inv models.Investment
	if err := r.DB(ctx).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Investment, error) {
	var inv models.Investment
	if err := r.Locked(ctx).
		Where("id = ?", id).
		First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// Update writes arbitrary columns without a status guard. Used right after
// insert while the row is still private to the transaction.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	return r.DB(ctx).Model(&models.Investment{}).Where("id = ?", id).Updates(updates).Error
}

// TransitionStatus applies updates only while the investment is still in from.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from enums.InvestmentStatus, updates map[string]any) (bool, error) {
	updates["updated_at"] = time.Now().UTC()
	result := r.DB(ctx).
		Model(&models.Investment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListByFranchise returns every investment of a round, oldest first.
func (r *Repository) ListByFranchise(ctx context.Context, franchiseID uuid.UUID) ([]models.Investment, error) {
	var rows []models.Investment
	if err := r.DB(ctx).
		Where("franchise_id = ?", franchiseID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Investment, error) {
	query := r.DB(ctx).Model(&models.Investment{}).Where("franchise_id = ?", opts.franchiseID)
	if opts.investorID != nil {
		query = query.Where("investor_id = ?", *opts.investorID)
	}
	query = opts.window.Apply(query)

	var rows []models.Investment
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
