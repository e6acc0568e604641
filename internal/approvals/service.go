package approvals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/internal/rounds"
	"github.com/angelmondragon/franchisefund-backend/pkg/auth"
	dbpkg "github.com/angelmondragon/franchisefund-backend/pkg/db"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/franchisefund-backend/pkg/errors"
	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
	"github.com/angelmondragon/franchisefund-backend/pkg/money"
	"github.com/angelmondragon/franchisefund-backend/pkg/outbox"
	"github.com/angelmondragon/franchisefund-backend/pkg/outbox/payloads"
)

// outstandingIndex backs the one-outstanding-approval-per-round rule.
const outstandingIndex = "ux_approvals_outstanding"

// refundActor attributes the escrow refunds a rejection triggers.
var refundActor = auth.SystemActor("approvals")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stageAdvancer interface {
	AdvanceStageTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, id uuid.UUID, target enums.RoundStage) (*models.FundingRound, error)
}

type escrowRefunder interface {
	RefundHeldForRoundTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, franchiseID uuid.UUID, reason string) ([]uuid.UUID, error)
}

// Service gates a round's opening for investment.
type Service interface {
	Submit(ctx context.Context, actor auth.Actor, franchiseID uuid.UUID, input SubmitInput) (*models.Approval, error)
	StartReview(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Approval, error)
	Approve(ctx context.Context, actor auth.Actor, id uuid.UUID, notes string) (*models.Approval, error)
	Reject(ctx context.Context, actor auth.Actor, id uuid.UUID, reason string) (*models.Approval, error)
	GetApproval(ctx context.Context, id uuid.UUID) (*models.Approval, error)
	ListForRound(ctx context.Context, franchiseID uuid.UUID) ([]models.Approval, error)
}

// SubmitInput carries the fields of the snapshot the round itself does not hold.
type SubmitInput struct {
	CostPerAreaUSD decimal.Decimal
	SelectedShares int64
	Notes          string
}

type ServiceParams struct {
	Repo   *Repository
	Rounds *rounds.Repository
	Stages stageAdvancer
	Escrow escrowRefunder
	Tx     txRunner
	Outbox outbox.Emitter
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	repo   *Repository
	rounds *rounds.Repository
	stages stageAdvancer
	escrow escrowRefunder
	tx     txRunner
	outbox outbox.Emitter
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("approval repository required")
	}
	if params.Rounds == nil {
		return nil, fmt.Errorf("round repository required")
	}
	if params.Stages == nil {
		return nil, fmt.Errorf("stage advancer required")
	}
	if params.Escrow == nil {
		return nil, fmt.Errorf("escrow refunder required")
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
		repo:   params.Repo,
		rounds: params.Rounds,
		stages: params.Stages,
		escrow: params.Escrow,
		tx:     params.Tx,
		outbox: params.Outbox,
		logg:   params.Logger,
		now:    now,
	}, nil
}

// Submit snapshots the round and opens an approval. A round may only have
// one pending or under review approval at a time.
func (s *service) Submit(ctx context.Context, actor auth.Actor, franchiseID uuid.UUID, input SubmitInput) (*models.Approval, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	if input.CostPerAreaUSD.IsNegative() || !money.IsCents(input.CostPerAreaUSD) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost per area must be a non-negative cent amount")
	}
	if input.SelectedShares < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "selected shares must not be negative")
	}

	var created *models.Approval
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		round, err := s.rounds.WithTx(tx).FindByIDForUpdate(ctx, franchiseID)
		if err != nil {
			return rounds.MapLookupError(err)
		}
		if !actor.CanActFor(round.BrandID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to submit this round")
		}
		if round.Stage != enums.RoundStageApproval {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("round in %s cannot be submitted for approval", round.Stage))
		}
		if input.SelectedShares > round.TotalShares {
			return pkgerrors.New(pkgerrors.CodeValidation, "selected shares exceed total shares")
		}

		repo := s.repo.WithTx(tx)
		existing, err := repo.FindOutstanding(ctx, round.ID)
		switch {
		case err == nil:
			return pendingError(existing.ID)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup outstanding approval")
		}

		approval := &models.Approval{
			FranchiseID:        round.ID,
			TotalInvestmentUSD: round.TotalInvestmentUSD,
			CostPerAreaUSD:     input.CostPerAreaUSD,
			TotalShares:        round.TotalShares,
			SelectedShares:     input.SelectedShares,
			SharePriceUSD:      round.SharePriceUSD,
			Status:             enums.ApprovalStatusPending,
			SubmittedBy:        actor.ID,
			SubmittedAt:        s.now().UTC(),
		}
		if notes := strings.TrimSpace(input.Notes); notes != "" {
			approval.Notes = &notes
		}
		if err := repo.Create(ctx, approval); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pendingError(uuid.Nil)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create approval")
		}
		created = approval
		return s.emit(ctx, tx, actor, enums.EventApprovalSubmitted, approval, nil)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func pendingError(existingID uuid.UUID) error {
	err := pkgerrors.New(pkgerrors.CodeApprovalPending, "round already has an outstanding approval")
	if existingID != uuid.Nil {
		return err.WithDetails(map[string]any{"approval_id": existingID, "index": outstandingIndex})
	}
	return err
}

// StartReview marks a pending approval as picked up by an administrator.
func (s *service) StartReview(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Approval, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators review approvals")
	}

	var updated *models.Approval
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		approval, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapLookupError(err)
		}
		if approval.Status == enums.ApprovalStatusUnderReview {
			updated = approval
			return nil
		}
		if approval.Status != enums.ApprovalStatusPending {
			return transitionError(approval.Status, enums.ApprovalStatusUnderReview)
		}
		now := s.now().UTC()
		ok, err := repo.TransitionStatus(ctx, approval.ID, approval.Status, map[string]any{
			"status":            enums.ApprovalStatusUnderReview,
			"review_started_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start review")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "approval changed concurrently")
		}
		approval.Status = enums.ApprovalStatusUnderReview
		approval.ReviewStartedAt = &now
		updated = approval
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Approve decides an outstanding approval and opens the round for funding.
func (s *service) Approve(ctx context.Context, actor auth.Actor, id uuid.UUID, notes string) (*models.Approval, error) {
	var decided *models.Approval
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		approval, err := s.decide(ctx, tx, actor, id, enums.ApprovalStatusApproved, func(a *models.Approval) map[string]any {
			updates := map[string]any{}
			if notes = strings.TrimSpace(notes); notes != "" {
				updates["notes"] = notes
				a.Notes = &notes
			}
			return updates
		})
		if err != nil {
			return err
		}
		if _, err := s.stages.AdvanceStageTx(ctx, tx, actor, approval.FranchiseID, enums.RoundStageFund); err != nil {
			return err
		}
		decided = approval
		return s.emit(ctx, tx, actor, enums.EventApprovalApproved, approval, nil)
	})
	if err != nil {
		return nil, err
	}
	s.logDecision(ctx, decided)
	return decided, nil
}

// Reject decides an outstanding approval and refunds every held escrow of the
// round. The round stays in approval.
func (s *service) Reject(ctx context.Context, actor auth.Actor, id uuid.UUID, reason string) (*models.Approval, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}

	var decided *models.Approval
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		approval, err := s.decide(ctx, tx, actor, id, enums.ApprovalStatusRejected, func(a *models.Approval) map[string]any {
			a.RejectionReason = &reason
			return map[string]any{"rejection_reason": reason}
		})
		if err != nil {
			return err
		}
		refunded, err := s.escrow.RefundHeldForRoundTx(ctx, tx, refundActor, approval.FranchiseID, "approval rejected: "+reason)
		if err != nil {
			return err
		}
		decided = approval
		return s.emit(ctx, tx, actor, enums.EventApprovalRejected, approval, refunded)
	})
	if err != nil {
		return nil, err
	}
	s.logDecision(ctx, decided)
	return decided, nil
}

// decide applies a terminal status once. The decision columns are stamped in
// the same conditional update that moves the status.
func (s *service) decide(ctx context.Context, tx *gorm.DB, actor auth.Actor, id uuid.UUID, target enums.ApprovalStatus, extra func(*models.Approval) map[string]any) (*models.Approval, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	repo := s.repo.WithTx(tx)
	approval, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	round, err := s.rounds.WithTx(tx).FindByID(ctx, approval.FranchiseID)
	if err != nil {
		return nil, rounds.MapLookupError(err)
	}
	if !actor.CanActFor(round.BrandID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to decide this approval")
	}
	if !approval.Status.IsOutstanding() {
		return nil, transitionError(approval.Status, target)
	}

	now := s.now().UTC()
	updates := extra(approval)
	updates["status"] = target
	updates["decided_at"] = now
	updates["decided_by"] = actor.ID
	ok, err := repo.TransitionStatus(ctx, approval.ID, approval.Status, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decide approval")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "approval changed concurrently")
	}
	approval.Status = target
	approval.DecidedAt = &now
	approval.DecidedBy = &actor.ID
	return approval, nil
}

func (s *service) GetApproval(ctx context.Context, id uuid.UUID) (*models.Approval, error) {
	approval, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return approval, nil
}

func (s *service) ListForRound(ctx context.Context, franchiseID uuid.UUID) ([]models.Approval, error) {
	rows, err := s.repo.ListByFranchise(ctx, franchiseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list approvals")
	}
	return rows, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor auth.Actor, eventType enums.OutboxEventType, approval *models.Approval, refunded []uuid.UUID) error {
	payload := payloads.ApprovalEvent{
		ApprovalID:  approval.ID,
		FranchiseID: approval.FranchiseID,
		Status:      approval.Status,
		ActorID:     actor.ID,
		RefundedIDs: refunded,
	}
	if approval.Notes != nil {
		payload.Notes = *approval.Notes
	}
	if approval.RejectionReason != nil {
		payload.Reason = *approval.RejectionReason
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateApproval,
		AggregateID:   approval.ID,
		Actor:         &outbox.ActorRef{UserID: actor.ID, Role: actor.PrimaryRole()},
		Data:          payload,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

func (s *service) logDecision(ctx context.Context, approval *models.Approval) {
	if s.logg == nil || approval == nil {
		return
	}
	logCtx := s.logg.WithFranchiseID(ctx, approval.FranchiseID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"approval_id": approval.ID.String(),
		"status":      string(approval.Status),
	})
	s.logg.Info(logCtx, "approval decided")
}

func transitionError(from, to enums.ApprovalStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("approval cannot move from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to})
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "approval not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup approval")
}
