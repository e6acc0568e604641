package rounds

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/internal/repo"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
)

// Repository manages funding round persistence.
type Repository struct {
	repo.Base
}

// NewRepository constructs a round repository tied to the provided GORM DB.
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

func (r *Repository) Create(ctx context.Context, round *models.FundingRound) error {
	return r.DB(ctx).Create(round).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.FundingRound, error) {
	var round models.FundingRound
	if err := r.DB(ctx).Where("id = ?", id).First(&round).Error; err != nil {
		return nil, err
	}
	return &round, nil
}

// FindByIDForUpdate row-locks the round for the rest of the transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.FundingRound, error) {
	var round models.FundingRound
	if err := r.Locked(ctx).
		Where("id = ?", id).
		First(&round).Error; err != nil {
		return nil, err
	}
	return &round, nil
}

func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.FundingRound, error) {
	query := r.DB(ctx).Model(&models.FundingRound{})
	if opts.brandID != nil {
		query = query.Where("brand_id = ?", *opts.brandID)
	}
	if opts.stage != nil {
		query = query.Where("stage = ?", *opts.stage)
	}
	query = opts.window.Apply(query)

	var rows []models.FundingRound
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// TryAllocate adds n to allocated_shares only when capacity remains. It is a
// single conditional UPDATE, so concurrent callers can never oversubscribe.
func (r *Repository) TryAllocate(ctx context.Context, id uuid.UUID, n int64) (bool, error) {
	result := r.DB(ctx).
		Model(&models.FundingRound{}).
		Where("id = ? AND allocated_shares + ? <= total_shares", id, n).
		Updates(map[string]any{
			"allocated_shares": gorm.Expr("allocated_shares + ?", n),
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReturnAllocation gives n shares of capacity back to the round.
func (r *Repository) ReturnAllocation(ctx context.Context, id uuid.UUID, n int64) (bool, error) {
	result := r.DB(ctx).
		Model(&models.FundingRound{}).
		Where("id = ? AND allocated_shares >= ?", id, n).
		Updates(map[string]any{
			"allocated_shares": gorm.Expr("allocated_shares - ?", n),
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateStage moves the round only if it is still in from.
func (r *Repository) UpdateStage(ctx context.Context, id uuid.UUID, from, to enums.RoundStage, openedAt *time.Time) (bool, error) {
	updates := map[string]any{
		"stage":      to,
		"updated_at": time.Now().UTC(),
	}
	if openedAt != nil {
		updates["funding_opened_at"] = *openedAt
	}
	result := r.DB(ctx).
		Model(&models.FundingRound{}).
		Where("id = ? AND stage = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SetFundingTotals stores recomputed funding counters.
func (r *Repository) SetFundingTotals(ctx context.Context, id uuid.UUID, current decimal.Decimal, investorCount int) error {
	return r.DB(ctx).
		Model(&models.FundingRound{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_funding_usd": current,
			"investor_count":      investorCount,
			"updated_at":          time.Now().UTC(),
		}).Error
}
