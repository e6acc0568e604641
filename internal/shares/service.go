package shares

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/internal/rounds"
	"github.com/angelmondragon/franchisefund-backend/pkg/auth"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/franchisefund-backend/pkg/errors"
	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
	"github.com/angelmondragon/franchisefund-backend/pkg/metrics"
	"github.com/angelmondragon/franchisefund-backend/pkg/money"
	"github.com/angelmondragon/franchisefund-backend/pkg/outbox"
	"github.com/angelmondragon/franchisefund-backend/pkg/outbox/payloads"
	pkgpagination "github.com/angelmondragon/franchisefund-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the share ledger.
type Service interface {
	AllocateShares(ctx context.Context, input AllocateInput) (*models.Share, error)
	AllocateSharesTx(ctx context.Context, tx *gorm.DB, input AllocateInput) (*models.Share, error)
	UpdateShareStatus(ctx context.Context, actor auth.Actor, shareID uuid.UUID, status enums.ShareStatus, transferTo *uuid.UUID) (*models.Share, error)
	CancelShareTx(ctx context.Context, tx *gorm.DB, shareID uuid.UUID) error
	ProcessVesting(ctx context.Context, franchiseID *uuid.UUID, now time.Time) (int, error)
	ShareStats(ctx context.Context, franchiseID uuid.UUID) (*Stats, error)
	ListShares(ctx context.Context, params ListParams) (*ListResult, error)
}

// AllocateInput requests a block of shares for one shareholder.
type AllocateInput struct {
	FranchiseID       uuid.UUID
	ShareholderID     uuid.UUID
	InvestmentID      *uuid.UUID
	SharesRequested   int64
	SharePrice        decimal.Decimal
	ShareType         enums.ShareType
	VestingPeriodDays *int
}

// Stats is derived from share rows on every read.
type Stats struct {
	FranchiseID        uuid.UUID       `json:"franchise_id"`
	TotalAllocated     int64           `json:"total_allocated"`
	VestedShares       int64           `json:"vested_shares"`
	UnvestedShares     int64           `json:"unvested_shares"`
	UniqueShareholders int             `json:"unique_shareholders"`
	AveragePrice       decimal.Decimal `json:"average_price"`
}

type ServiceParams struct {
	Repo    *Repository
	Rounds  *rounds.Repository
	Tx      txRunner
	Outbox  outbox.Emitter
	Metrics *metrics.LedgerMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    *Repository
	rounds  *rounds.Repository
	tx      txRunner
	outbox  outbox.Emitter
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("share repository required")
	}
	if params.Rounds == nil {
		return nil, fmt.Errorf("round repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		rounds:  params.Rounds,
		tx:      params.Tx,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

func (s *service) AllocateShares(ctx context.Context, input AllocateInput) (*models.Share, error) {
	var share *models.Share
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.AllocateSharesTx(ctx, tx, input)
		if err != nil {
			return err
		}
		share = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return share, nil
}

// AllocateSharesTx claims capacity on the round and inserts the share inside
// tx. Requests are filled completely or not at all.
func (s *service) AllocateSharesTx(ctx context.Context, tx *gorm.DB, input AllocateInput) (*models.Share, error) {
	if err := validateAllocation(input); err != nil {
		return nil, err
	}
	shareType := input.ShareType
	if shareType == "" {
		shareType = enums.ShareTypeCommon
	}

	roundRepo := s.rounds.WithTx(tx)
	ok, err := roundRepo.TryAllocate(ctx, input.FranchiseID, input.SharesRequested)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim share capacity")
	}
	if !ok {
		round, lookupErr := roundRepo.FindByID(ctx, input.FranchiseID)
		if lookupErr != nil {
			return nil, rounds.MapLookupError(lookupErr)
		}
		s.metrics.IncAllocation("insufficient")
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientShares, fmt.Sprintf("requested %d shares, %d available", input.SharesRequested, round.RemainingShares())).
			WithDetails(map[string]any{
				"requested": input.SharesRequested,
				"available": round.RemainingShares(),
			})
	}

	share := &models.Share{
		FranchiseID:       input.FranchiseID,
		ShareholderID:     input.ShareholderID,
		InvestmentID:      input.InvestmentID,
		SharesAllocated:   input.SharesRequested,
		SharePrice:        input.SharePrice,
		TotalValue:        input.SharePrice.Mul(decimal.NewFromInt(input.SharesRequested)),
		ShareType:         shareType,
		Status:            enums.ShareStatusAllocated,
		VestingPeriodDays: input.VestingPeriodDays,
		AllocatedAt:       s.now().UTC(),
	}
	if err := s.repo.WithTx(tx).Create(ctx, share); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create share")
	}
	s.metrics.IncAllocation("allocated")
	return share, nil
}

func validateAllocation(input AllocateInput) error {
	if input.FranchiseID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "franchise id is required")
	}
	if input.ShareholderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "shareholder id is required")
	}
	if input.SharesRequested <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shares requested must be positive")
	}
	if !input.SharePrice.IsPositive() || !money.IsCents(input.SharePrice) {
		return pkgerrors.New(pkgerrors.CodeValidation, "share price must be a positive cent amount")
	}
	if input.ShareType != "" && !input.ShareType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid share type")
	}
	if input.VestingPeriodDays != nil && *input.VestingPeriodDays < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "vesting period must not be negative")
	}
	return nil
}

func (s *service) UpdateShareStatus(ctx context.Context, actor auth.Actor, shareID uuid.UUID, status enums.ShareStatus, transferTo *uuid.UUID) (*models.Share, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid share status")
	}
	if status == enums.ShareStatusTransferred && (transferTo == nil || *transferTo == uuid.Nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer recipient is required")
	}

	var updated *models.Share
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		share, err := repo.FindByIDForUpdate(ctx, shareID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "share not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup share")
		}
		if err := s.authorizeStatusChange(ctx, tx, actor, share, status); err != nil {
			return err
		}
		if share.Status == status {
			updated = share
			return nil
		}
		if !share.Status.CanTransitionTo(status) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("share cannot move from %s to %s", share.Status, status)).
				WithDetails(map[string]any{"from": share.Status, "to": status})
		}

		if err := s.applyTransition(ctx, tx, share, status, transferTo); err != nil {
			return err
		}
		updated = share
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) authorizeStatusChange(ctx context.Context, tx *gorm.DB, actor auth.Actor, share *models.Share, status enums.ShareStatus) error {
	if actor.IsSystem() || actor.IsAdmin() {
		return nil
	}
	if status == enums.ShareStatusTransferred && actor.ID == share.ShareholderID {
		return nil
	}
	round, err := s.rounds.WithTx(tx).FindByID(ctx, share.FranchiseID)
	if err != nil {
		return rounds.MapLookupError(err)
	}
	if actor.ID == round.BrandID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to change this share")
}

// applyTransition writes a pre-validated move. Cancelling returns the shares
// to the round's open capacity in the same transaction.
func (s *service) applyTransition(ctx context.Context, tx *gorm.DB, share *models.Share, status enums.ShareStatus, transferTo *uuid.UUID) error {
	now := s.now().UTC()
	updates := map[string]any{"status": status}
	switch status {
	case enums.ShareStatusVested:
		updates["is_vested"] = true
		updates["vested_at"] = now
	case enums.ShareStatusTransferred:
		updates["transferred_to"] = *transferTo
	}

	moved, err := s.repo.WithTx(tx).TransitionStatus(ctx, share.ID, share.Status, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update share status")
	}
	if !moved {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "share status changed concurrently")
	}

	if status == enums.ShareStatusCancelled {
		returned, err := s.rounds.WithTx(tx).ReturnAllocation(ctx, share.FranchiseID, share.SharesAllocated)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "return share capacity")
		}
		if !returned {
			return pkgerrors.New(pkgerrors.CodeInternal, "round allocation counter out of sync")
		}
	}

	share.Status = status
	switch status {
	case enums.ShareStatusVested:
		share.IsVested = true
		share.VestedAt = &now
	case enums.ShareStatusTransferred:
		share.TransferredTo = transferTo
	}
	return nil
}

// CancelShareTx cancels a share on behalf of a refund. A refund voids the
// purchase, so vested and transferred shares are cancelled too and their
// capacity returns to the round; UpdateShareStatus still refuses those moves.
// Already cancelled shares are left alone.
func (s *service) CancelShareTx(ctx context.Context, tx *gorm.DB, shareID uuid.UUID) error {
	share, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, shareID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "share not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup share")
	}
	if share.Status == enums.ShareStatusCancelled {
		return nil
	}
	return s.applyTransition(ctx, tx, share, enums.ShareStatusCancelled, nil)
}

// ProcessVesting vests every scheduled share whose period has elapsed at now.
// Re-running it is harmless: vested shares are no longer candidates.
func (s *service) ProcessVesting(ctx context.Context, franchiseID *uuid.UUID, now time.Time) (int, error) {
	now = now.UTC()
	vested := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		candidates, err := repo.ListVestingCandidates(ctx, franchiseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vesting candidates")
		}

		byRound := map[uuid.UUID][]uuid.UUID{}
		for _, share := range candidates {
			due := share.VestsAt()
			if due == nil || due.After(now) {
				continue
			}
			moved, err := repo.TransitionStatus(ctx, share.ID, enums.ShareStatusAllocated, map[string]any{
				"status":    enums.ShareStatusVested,
				"is_vested": true,
				"vested_at": now,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "vest share")
			}
			if moved {
				vested++
				byRound[share.FranchiseID] = append(byRound[share.FranchiseID], share.ID)
			}
		}

		for roundID, ids := range byRound {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSharesVested,
				AggregateType: enums.AggregateFundingRound,
				AggregateID:   roundID,
				Data: payloads.SharesVestedEvent{
					FranchiseID: roundID,
					ShareIDs:    ids,
					VestedAt:    now,
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit shares vested")
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.logg != nil && vested > 0 {
		s.logg.Info(s.logg.WithField(ctx, "vested", vested), "share vesting processed")
	}
	return vested, nil
}

func (s *service) ShareStats(ctx context.Context, franchiseID uuid.UUID) (*Stats, error) {
	if franchiseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "franchise id is required")
	}
	if _, err := s.rounds.FindByID(ctx, franchiseID); err != nil {
		return nil, rounds.MapLookupError(err)
	}
	rows, err := s.repo.ListActive(ctx, franchiseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shares")
	}
	return computeStats(franchiseID, rows), nil
}

func computeStats(franchiseID uuid.UUID, rows []models.Share) *Stats {
	stats := &Stats{FranchiseID: franchiseID, AveragePrice: decimal.Zero}
	holders := map[uuid.UUID]struct{}{}
	totalValue := decimal.Zero
	for _, row := range rows {
		stats.TotalAllocated += row.SharesAllocated
		if row.IsVested {
			stats.VestedShares += row.SharesAllocated
		} else {
			stats.UnvestedShares += row.SharesAllocated
		}
		holders[row.ShareholderID] = struct{}{}
		totalValue = totalValue.Add(row.TotalValue)
	}
	stats.UniqueShareholders = len(holders)
	if stats.TotalAllocated > 0 {
		stats.AveragePrice = totalValue.DivRound(decimal.NewFromInt(stats.TotalAllocated), money.CentPlaces)
	}
	return stats
}

func (s *service) ListShares(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.FranchiseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "franchise id is required")
	}

	window, err := pkgpagination.Resolve(params.Params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query := listQuery{
		franchiseID:   params.FranchiseID,
		shareholderID: params.ShareholderID,
		window:        window,
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shares")
	}

	rows, nextCursor := pkgpagination.Page(window, rows, pageKey)

	items := make([]ShareDTO, len(rows))
	for i, row := range rows {
		items[i] = ToDTO(row)
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}
