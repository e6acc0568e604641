package investments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/internal/ledger"
	"github.com/angelmondragon/franchisefund-backend/internal/rounds"
	"github.com/angelmondragon/franchisefund-backend/internal/shares"
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
	"github.com/angelmondragon/franchisefund-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service records investments and drives their payment lifecycle.
type Service interface {
	RecordInvestment(ctx context.Context, actor auth.Actor, input RecordInput) (*models.Investment, error)
	ConfirmInvestment(ctx context.Context, actor auth.Actor, id uuid.UUID, paymentReference string) (*models.Investment, error)
	CompleteInvestment(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Investment, error)
	CompleteTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, id uuid.UUID) (*models.Investment, error)
	MarkRefundedTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, id uuid.UUID, reason string) (*models.Investment, error)
	GetInvestment(ctx context.Context, id uuid.UUID) (*models.Investment, error)
	GetInvestmentTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Investment, error)
	ListInvestments(ctx context.Context, params ListParams) (*ListResult, error)
	ListForFranchise(ctx context.Context, franchiseID uuid.UUID) ([]models.Investment, error)
}

// RecordInput is one investor's request to buy into a round. Amounts are in
// USD; the original fields only describe what the investor paid upstream.
type RecordInput struct {
	FranchiseID       uuid.UUID
	InvestorID        uuid.UUID
	AmountUSD         decimal.Decimal
	PricePerShare     decimal.Decimal
	ShareType         enums.ShareType
	VestingPeriodDays *int
	OriginalAmount    *decimal.Decimal
	OriginalCurrency  *enums.Currency
	ExchangeRate      *decimal.Decimal
	Metadata          types.Metadata
}

type ServiceParams struct {
	Repo           *Repository
	Rounds         *rounds.Repository
	Shares         shares.Service
	Ledger         ledger.Service
	Tx             txRunner
	Outbox         outbox.Emitter
	Metrics        *metrics.LedgerMetrics
	Logger         *logger.Logger
	CommissionRate decimal.Decimal
	Now            func() time.Time
}

type service struct {
	repo           *Repository
	rounds         *rounds.Repository
	shares         shares.Service
	ledger         ledger.Service
	tx             txRunner
	outbox         outbox.Emitter
	metrics        *metrics.LedgerMetrics
	logg           *logger.Logger
	commissionRate decimal.Decimal
	now            func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("investment repository required")
	}
	if params.Rounds == nil {
		return nil, fmt.Errorf("round repository required")
	}
	if params.Shares == nil {
		return nil, fmt.Errorf("share service required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.CommissionRate.IsNegative() || params.CommissionRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("commission rate must be in [0, 1)")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:           params.Repo,
		rounds:         params.Rounds,
		shares:         params.Shares,
		ledger:         params.Ledger,
		tx:             params.Tx,
		outbox:         params.Outbox,
		metrics:        params.Metrics,
		logg:           params.Logger,
		commissionRate: params.CommissionRate,
		now:            now,
	}, nil
}

// RecordInvestment derives the money split, claims shares, and stores the
// investment in one transaction. When the round cannot cover the shares the
// investment is still stored as failed; the stored row is returned together
// with the InsufficientShares error so callers can report both.
func (s *service) RecordInvestment(ctx context.Context, actor auth.Actor, input RecordInput) (*models.Investment, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	if input.InvestorID == uuid.Nil {
		input.InvestorID = actor.ID
	}
	if !actor.IsSystem() && !actor.CanActFor(input.InvestorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot invest on behalf of another user")
	}
	if input.FranchiseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "franchise id is required")
	}

	var (
		recorded *models.Investment
		allocErr error
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		allocErr = nil
		round, err := s.rounds.WithTx(tx).FindByIDForUpdate(ctx, input.FranchiseID)
		if err != nil {
			return rounds.MapLookupError(err)
		}
		if round.Stage != enums.RoundStageFund {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("round in %s is not accepting investments", round.Stage)).
				WithDetails(map[string]any{"stage": round.Stage})
		}

		price := round.SharePriceUSD
		if !input.PricePerShare.IsZero() && !input.PricePerShare.Equal(price) {
			return pkgerrors.New(pkgerrors.CodeValidation, "price_per_share must match the round share price").
				WithDetails(map[string]any{
					"price_per_share": input.PricePerShare.String(),
					"share_price_usd": price.String(),
				})
		}
		split, err := money.Split(input.AmountUSD, price, s.commissionRate)
		if err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		inv := &models.Investment{
			FranchiseID:         round.ID,
			InvestorID:          input.InvestorID,
			InvestmentAmountUSD: split.Gross,
			SharesPurchased:     split.Shares,
			PricePerShare:       price,
			PlatformCommission:  split.Commission,
			NetInvestmentAmount: split.Net,
			UnattributedAmount:  split.Remainder,
			Status:              enums.InvestmentStatusPending,
			OriginalAmount:      input.OriginalAmount,
			OriginalCurrency:    input.OriginalCurrency,
			ExchangeRate:        input.ExchangeRate,
			Metadata:            input.Metadata,
		}
		if err := repo.Create(ctx, inv); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create investment")
		}

		share, err := s.shares.AllocateSharesTx(ctx, tx, shares.AllocateInput{
			FranchiseID:       round.ID,
			ShareholderID:     inv.InvestorID,
			InvestmentID:      &inv.ID,
			SharesRequested:   split.Shares,
			SharePrice:        price,
			ShareType:         input.ShareType,
			VestingPeriodDays: input.VestingPeriodDays,
		})
		switch {
		case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientShares):
			allocErr = err
			reason := err.Error()
			if err := repo.Update(ctx, inv.ID, map[string]any{
				"status":              enums.InvestmentStatusFailed,
				"failure_reason":      reason,
				"shares_purchased":    0,
				"unattributed_amount": decimal.Zero,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark investment failed")
			}
			inv.Status = enums.InvestmentStatusFailed
			inv.FailureReason = &reason
			inv.SharesPurchased = 0
			inv.UnattributedAmount = decimal.Zero
		case err != nil:
			return err
		default:
			if err := repo.Update(ctx, inv.ID, map[string]any{"share_id": share.ID}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link share")
			}
			inv.ShareID = &share.ID
			if err := s.recordProceeds(ctx, tx, actor, inv); err != nil {
				return err
			}
			if err := s.refreshFundingTotals(ctx, tx, round.ID); err != nil {
				return err
			}
		}

		recorded = inv
		return s.emitRecorded(ctx, tx, actor, inv)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncInvestment(string(recorded.Status))
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"investment_id": recorded.ID.String(),
			"status":        string(recorded.Status),
		})
		logCtx = s.logg.WithFranchiseID(logCtx, recorded.FranchiseID.String())
		s.logg.Info(logCtx, "investment recorded")
	}
	if allocErr != nil {
		return recorded, allocErr
	}
	return recorded, nil
}

// recordProceeds writes the commission and any sub-share remainder to the ledger.
func (s *service) recordProceeds(ctx context.Context, tx *gorm.DB, actor auth.Actor, inv *models.Investment) error {
	entries := []struct {
		kind   enums.LedgerEventType
		amount decimal.Decimal
	}{
		{enums.LedgerEventTypeCommissionAccrued, inv.PlatformCommission},
		{enums.LedgerEventTypeUnattributedProceeds, inv.UnattributedAmount},
	}
	for _, entry := range entries {
		if !entry.amount.IsPositive() {
			continue
		}
		meta, err := json.Marshal(map[string]any{
			"gross":           inv.InvestmentAmountUSD.StringFixed(money.CentPlaces),
			"shares":          inv.SharesPurchased,
			"price_per_share": inv.PricePerShare.StringFixed(money.CentPlaces),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode ledger metadata")
		}
		if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
			FranchiseID:  inv.FranchiseID,
			InvestmentID: &inv.ID,
			ActorID:      actor.ID,
			Type:         entry.kind,
			AmountUSD:    entry.amount,
			Metadata:     meta,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record "+string(entry.kind))
		}
	}
	return nil
}

// refreshFundingTotals recomputes the round's denormalized funding columns
// from its investments. Refunded and failed investments do not count toward
// current funding; only failed ones are excluded from the investor count.
func (s *service) refreshFundingTotals(ctx context.Context, tx *gorm.DB, franchiseID uuid.UUID) error {
	rows, err := s.repo.WithTx(tx).ListByFranchise(ctx, franchiseID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list investments")
	}
	current, investors := FundingTotals(rows)
	if err := s.rounds.WithTx(tx).SetFundingTotals(ctx, franchiseID, current, investors); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update funding totals")
	}
	return nil
}

// FundingTotals returns the USD raised and the distinct investor count.
func FundingTotals(rows []models.Investment) (decimal.Decimal, int) {
	current := decimal.Zero
	investors := map[uuid.UUID]struct{}{}
	for _, row := range rows {
		if row.Status == enums.InvestmentStatusFailed {
			continue
		}
		investors[row.InvestorID] = struct{}{}
		if row.Status != enums.InvestmentStatusRefunded {
			current = current.Add(row.InvestmentAmountUSD)
		}
	}
	return current, len(investors)
}

func (s *service) emitRecorded(ctx context.Context, tx *gorm.DB, actor auth.Actor, inv *models.Investment) error {
	reason := ""
	if inv.FailureReason != nil {
		reason = *inv.FailureReason
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventInvestmentRecorded,
		AggregateType: enums.AggregateInvestment,
		AggregateID:   inv.ID,
		Actor:         &outbox.ActorRef{UserID: actor.ID, Role: actor.PrimaryRole()},
		Data: payloads.InvestmentRecordedEvent{
			InvestmentID:        inv.ID,
			FranchiseID:         inv.FranchiseID,
			InvestorID:          inv.InvestorID,
			Status:              inv.Status,
			InvestmentAmountUSD: inv.InvestmentAmountUSD,
			PlatformCommission:  inv.PlatformCommission,
			NetInvestmentAmount: inv.NetInvestmentAmount,
			SharesPurchased:     inv.SharesPurchased,
			FailureReason:       reason,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit investment recorded")
	}
	return nil
}

func (s *service) ConfirmInvestment(ctx context.Context, actor auth.Actor, id uuid.UUID, paymentReference string) (*models.Investment, error) {
	if paymentReference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	var updated *models.Investment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		inv, err := s.transition(ctx, tx, actor, id, enums.InvestmentStatusConfirmed, func(now time.Time) map[string]any {
			return map[string]any{"payment_reference": paymentReference, "confirmed_at": now}
		})
		if err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) CompleteInvestment(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Investment, error) {
	var updated *models.Investment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		inv, err := s.CompleteTx(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CompleteTx marks a confirmed investment completed inside tx.
func (s *service) CompleteTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, id uuid.UUID) (*models.Investment, error) {
	return s.transition(ctx, tx, actor, id, enums.InvestmentStatusCompleted, func(now time.Time) map[string]any {
		return map[string]any{"completed_at": now}
	})
}

// MarkRefundedTx refunds a pending or confirmed investment, cancels its share,
// and recomputes the round's funding totals.
func (s *service) MarkRefundedTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, id uuid.UUID, reason string) (*models.Investment, error) {
	inv, err := s.transition(ctx, tx, actor, id, enums.InvestmentStatusRefunded, func(time.Time) map[string]any {
		updates := map[string]any{}
		if reason != "" {
			updates["failure_reason"] = reason
		}
		return updates
	})
	if err != nil {
		return nil, err
	}
	if inv.ShareID != nil {
		if err := s.shares.CancelShareTx(ctx, tx, *inv.ShareID); err != nil {
			return nil, err
		}
	}
	if err := s.refreshFundingTotals(ctx, tx, inv.FranchiseID); err != nil {
		return nil, err
	}
	return inv, nil
}

// transition moves an investment to target. Only system and admin actors
// drive payment state. Re-applying the current status returns the row unchanged.
func (s *service) transition(ctx context.Context, tx *gorm.DB, actor auth.Actor, id uuid.UUID, target enums.InvestmentStatus, extra func(now time.Time) map[string]any) (*models.Investment, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	if !actor.IsSystem() && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only operators may change payment state")
	}

	repo := s.repo.WithTx(tx)
	inv, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if inv.Status == target {
		return inv, nil
	}
	if !inv.Status.CanTransitionTo(target) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("investment cannot move from %s to %s", inv.Status, target)).
			WithDetails(map[string]any{"from": inv.Status, "to": target})
	}

	now := s.now().UTC()
	updates := extra(now)
	updates["status"] = target
	moved, err := repo.TransitionStatus(ctx, inv.ID, inv.Status, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update investment status")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "investment status changed concurrently")
	}

	from := inv.Status
	inv.Status = target
	switch target {
	case enums.InvestmentStatusConfirmed:
		if ref, ok := updates["payment_reference"].(string); ok {
			inv.PaymentReference = &ref
		}
		inv.ConfirmedAt = &now
	case enums.InvestmentStatusCompleted:
		inv.CompletedAt = &now
	case enums.InvestmentStatusRefunded:
		if reason, ok := updates["failure_reason"].(string); ok {
			inv.FailureReason = &reason
		}
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     statusEvents[target],
		AggregateType: enums.AggregateInvestment,
		AggregateID:   inv.ID,
		Actor:         &outbox.ActorRef{UserID: actor.ID, Role: actor.PrimaryRole()},
		Data: payloads.InvestmentStatusChangedEvent{
			InvestmentID: inv.ID,
			FranchiseID:  inv.FranchiseID,
			InvestorID:   inv.InvestorID,
			From:         from,
			To:           target,
			ChangedAt:    now,
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit investment status")
	}
	s.metrics.IncInvestment(string(target))
	return inv, nil
}

var statusEvents = map[enums.InvestmentStatus]enums.OutboxEventType{
	enums.InvestmentStatusConfirmed: enums.EventInvestmentConfirmed,
	enums.InvestmentStatusCompleted: enums.EventInvestmentCompleted,
	enums.InvestmentStatusRefunded:  enums.EventInvestmentRefunded,
}

func (s *service) GetInvestment(ctx context.Context, id uuid.UUID) (*models.Investment, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return inv, nil
}

// GetInvestmentTx reads and locks the investment inside tx.
func (s *service) GetInvestmentTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Investment, error) {
	inv, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return inv, nil
}

func (s *service) ListForFranchise(ctx context.Context, franchiseID uuid.UUID) ([]models.Investment, error) {
	rows, err := s.repo.ListByFranchise(ctx, franchiseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list investments")
	}
	return rows, nil
}

func (s *service) ListInvestments(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.FranchiseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "franchise id is required")
	}

	window, err := pkgpagination.Resolve(params.Params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query := listQuery{
		franchiseID: params.FranchiseID,
		investorID:  params.InvestorID,
		window:      window,
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list investments")
	}

	rows, nextCursor := pkgpagination.Page(window, rows, pageKey)

	items := make([]InvestmentDTO, len(rows))
	for i, row := range rows {
		items[i] = ToDTO(row)
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "investment not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup investment")
}
