package escrow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/internal/investments"
	"github.com/angelmondragon/franchisefund-backend/internal/ledger"
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
	"github.com/angelmondragon/franchisefund-backend/pkg/types"
)

const (
	DefaultAttentionWindow = 7 * 24 * time.Hour
	DefaultSweepBatchSize  = 500
)

// settlementActor attributes linked investment changes made by escrow moves.
var settlementActor = auth.SystemActor("escrow")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the escrow engine.
type Service interface {
	Hold(ctx context.Context, actor auth.Actor, input HoldInput) (*models.EscrowRecord, error)
	Release(ctx context.Context, actor auth.Actor, id uuid.UUID, signature string) (*models.EscrowRecord, error)
	Refund(ctx context.Context, actor auth.Actor, id uuid.UUID, reason, signature string) (*models.EscrowRecord, error)
	RefundHeldForRoundTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, franchiseID uuid.UUID, reason string) ([]uuid.UUID, error)
	SweepExpirations(ctx context.Context, now time.Time) ([]models.EscrowRecord, error)
	ListAttention(ctx context.Context, franchiseID uuid.UUID, now time.Time) ([]models.EscrowRecord, error)
	GetEscrow(ctx context.Context, id uuid.UUID) (*models.EscrowRecord, error)
}

// HoldInput places funds in escrow against a round. A nil ExpiresAt uses the
// default TTL; a nil AutoRefundEnabled means true.
type HoldInput struct {
	FranchiseID           uuid.UUID
	UserID                uuid.UUID
	InvestmentID          *uuid.UUID
	AmountUSD             decimal.Decimal
	Shares                int64
	ExpiresAt             *time.Time
	AutoRefundEnabled     *bool
	ManualReleaseRequired bool
	Metadata              types.Metadata
}

type ServiceParams struct {
	Repo            *Repository
	Rounds          *rounds.Repository
	Investments     investments.Service
	Ledger          ledger.Service
	Tx              txRunner
	Outbox          eventEmitter
	Metrics         *metrics.LedgerMetrics
	Logger          *logger.Logger
	DefaultTTL      time.Duration
	AttentionWindow time.Duration
	SweepBatchSize  int
	Now             func() time.Time
}

type service struct {
	repo            *Repository
	rounds          *rounds.Repository
	investments     investments.Service
	ledger          ledger.Service
	tx              txRunner
	outbox          eventEmitter
	metrics         *metrics.LedgerMetrics
	logg            *logger.Logger
	defaultTTL      time.Duration
	attentionWindow time.Duration
	batchSize       int
	now             func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("escrow repository required")
	}
	if params.Rounds == nil {
		return nil, fmt.Errorf("round repository required")
	}
	if params.Investments == nil {
		return nil, fmt.Errorf("investment service required")
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
	svc := &service{
		repo:            params.Repo,
		rounds:          params.Rounds,
		investments:     params.Investments,
		ledger:          params.Ledger,
		tx:              params.Tx,
		outbox:          params.Outbox,
		metrics:         params.Metrics,
		logg:            params.Logger,
		defaultTTL:      params.DefaultTTL,
		attentionWindow: params.AttentionWindow,
		batchSize:       params.SweepBatchSize,
		now:             params.Now,
	}
	if svc.defaultTTL <= 0 {
		svc.defaultTTL = 30 * 24 * time.Hour
	}
	if svc.attentionWindow <= 0 {
		svc.attentionWindow = DefaultAttentionWindow
	}
	if svc.batchSize <= 0 {
		svc.batchSize = DefaultSweepBatchSize
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// RequiresAttention reports whether a record is still held and expires within
// window of now. Records already past their deadline qualify too.
func RequiresAttention(record models.EscrowRecord, now time.Time, window time.Duration) bool {
	return record.Status == enums.EscrowStatusHeld && record.ExpiresAt.Sub(now) <= window
}

func (s *service) Hold(ctx context.Context, actor auth.Actor, input HoldInput) (*models.EscrowRecord, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	if input.UserID == uuid.Nil {
		input.UserID = actor.ID
	}
	if !actor.IsSystem() && !actor.CanActFor(input.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot hold funds for another user")
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.defaultTTL)
	if input.ExpiresAt != nil {
		expiresAt = input.ExpiresAt.UTC()
	}
	if err := validateHold(input, now, expiresAt); err != nil {
		return nil, err
	}
	autoRefund := true
	if input.AutoRefundEnabled != nil {
		autoRefund = *input.AutoRefundEnabled
	}

	var created *models.EscrowRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		round, err := s.rounds.WithTx(tx).FindByIDForUpdate(ctx, input.FranchiseID)
		if err != nil {
			return rounds.MapLookupError(err)
		}
		if !round.Stage.AcceptsEscrow() {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("round in %s cannot hold funds", round.Stage)).
				WithDetails(map[string]any{"stage": round.Stage})
		}
		if input.InvestmentID != nil {
			if err := s.checkInvestment(ctx, tx, input); err != nil {
				return err
			}
		}

		record := &models.EscrowRecord{
			FranchiseID:           round.ID,
			UserID:                input.UserID,
			InvestmentID:          input.InvestmentID,
			AmountUSD:             input.AmountUSD,
			Shares:                input.Shares,
			Status:                enums.EscrowStatusHeld,
			Stage:                 round.Stage,
			ExpiresAt:             expiresAt,
			AutoRefundEnabled:     autoRefund,
			ManualReleaseRequired: input.ManualReleaseRequired,
			Metadata:              input.Metadata,
			CreatedAt:             now,
		}
		if err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create escrow record")
		}
		if err := s.recordMovement(ctx, tx, actor, record, enums.LedgerEventTypeEscrowHeld, ""); err != nil {
			return err
		}
		created = record
		return s.emit(ctx, tx, actor, enums.EventEscrowHeld, record, "", "")
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncEscrowTransition(string(enums.EscrowStatusHeld), "hold")
	return created, nil
}

func validateHold(input HoldInput, now, expiresAt time.Time) error {
	if input.FranchiseID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "franchise id is required")
	}
	if !input.AmountUSD.IsPositive() || !money.IsCents(input.AmountUSD) {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive cent amount")
	}
	if input.Shares < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shares must not be negative")
	}
	if !expiresAt.After(now) {
		return pkgerrors.New(pkgerrors.CodeValidation, "expiry must be in the future")
	}
	return nil
}

func (s *service) checkInvestment(ctx context.Context, tx *gorm.DB, input HoldInput) error {
	inv, err := s.investments.GetInvestmentTx(ctx, tx, *input.InvestmentID)
	if err != nil {
		return err
	}
	if inv.FranchiseID != input.FranchiseID || inv.InvestorID != input.UserID {
		return pkgerrors.New(pkgerrors.CodeValidation, "investment does not belong to this round and user")
	}
	if inv.Status != enums.InvestmentStatusPending && inv.Status != enums.InvestmentStatusConfirmed {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("investment in %s cannot be escrowed", inv.Status))
	}
	return nil
}

// Release pays a held record out to the brand. Repeating a release with the
// signature already stored returns the record unchanged.
func (s *service) Release(ctx context.Context, actor auth.Actor, id uuid.UUID, signature string) (*models.EscrowRecord, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}

	var (
		result *models.EscrowRecord
		moved  bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapLookupError(err)
		}
		round, err := s.rounds.WithTx(tx).FindByID(ctx, record.FranchiseID)
		if err != nil {
			return rounds.MapLookupError(err)
		}
		if !actor.IsSystem() && !actor.CanActFor(round.BrandID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to release this escrow")
		}

		if record.Status == enums.EscrowStatusReleased {
			if signatureMatches(record.ReleaseSignature, signature) {
				result = record
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "escrow already released with a different signature")
		}
		if record.Status != enums.EscrowStatusHeld {
			return transitionError(record.Status, enums.EscrowStatusReleased)
		}
		if round.Stage != enums.RoundStageLaunch && round.Stage != enums.RoundStageLive {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("round in %s cannot release funds", round.Stage)).
				WithDetails(map[string]any{"stage": round.Stage})
		}
		if record.ManualReleaseRequired && signature == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "release signature is required")
		}

		now := s.now().UTC()
		updates := map[string]any{"status": enums.EscrowStatusReleased, "resolved_at": now}
		if signature != "" {
			updates["release_signature"] = signature
		}
		ok, err := repo.TransitionStatus(ctx, record.ID, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release escrow")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "escrow changed concurrently")
		}
		record.Status = enums.EscrowStatusReleased
		record.ResolvedAt = &now
		if signature != "" {
			record.ReleaseSignature = &signature
		}

		if err := s.recordMovement(ctx, tx, actor, record, enums.LedgerEventTypeEscrowReleased, ""); err != nil {
			return err
		}
		if err := s.settleInvestment(ctx, tx, record, enums.EscrowStatusReleased, ""); err != nil {
			return err
		}
		result = record
		moved = true
		return s.emit(ctx, tx, actor, enums.EventEscrowReleased, record, signature, "")
	})
	if err != nil {
		return nil, err
	}
	if moved {
		s.metrics.IncEscrowTransition(string(enums.EscrowStatusReleased), "release")
	}
	return result, nil
}

// Refund returns held funds to the investor. Investors may only refund while
// the round is still raising; operators and the settlement actor may refund
// at any stage. Repeating a refund with the signature already stored returns
// the record unchanged.
func (s *service) Refund(ctx context.Context, actor auth.Actor, id uuid.UUID, reason, signature string) (*models.EscrowRecord, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}

	var (
		result *models.EscrowRecord
		moved  bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		record, changed, err := s.refundTx(ctx, tx, actor, id, reason, signature)
		if err != nil {
			return err
		}
		result = record
		moved = changed
		return nil
	})
	if err != nil {
		return nil, err
	}
	if moved {
		s.metrics.IncEscrowTransition(string(enums.EscrowStatusRefunded), "refund")
	}
	return result, nil
}

func (s *service) refundTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, id uuid.UUID, reason, signature string) (*models.EscrowRecord, bool, error) {
	repo := s.repo.WithTx(tx)
	record, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, false, mapLookupError(err)
	}
	privileged := actor.IsSystem() || actor.IsAdmin()
	if !privileged && actor.ID != record.UserID {
		return nil, false, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to refund this escrow")
	}
	if record.Status == enums.EscrowStatusRefunded {
		if signatureMatches(record.RefundSignature, signature) {
			return record, false, nil
		}
		return nil, false, pkgerrors.New(pkgerrors.CodeInvalidTransition, "escrow already refunded with a different signature")
	}
	if record.Status != enums.EscrowStatusHeld {
		return nil, false, transitionError(record.Status, enums.EscrowStatusRefunded)
	}
	if !privileged {
		round, err := s.rounds.WithTx(tx).FindByID(ctx, record.FranchiseID)
		if err != nil {
			return nil, false, rounds.MapLookupError(err)
		}
		if round.Stage != enums.RoundStageFund {
			return nil, false, pkgerrors.New(pkgerrors.CodeInvalidTransition, "investor refunds close once the round leaves fund").
				WithDetails(map[string]any{"stage": round.Stage})
		}
	}

	now := s.now().UTC()
	updates := map[string]any{"status": enums.EscrowStatusRefunded, "resolved_at": now}
	if reason != "" {
		updates["refund_reason"] = reason
	}
	if signature != "" {
		updates["refund_signature"] = signature
	}
	ok, err := repo.TransitionStatus(ctx, record.ID, updates)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund escrow")
	}
	if !ok {
		return nil, false, pkgerrors.New(pkgerrors.CodeInvalidTransition, "escrow changed concurrently")
	}
	record.Status = enums.EscrowStatusRefunded
	record.ResolvedAt = &now
	if reason != "" {
		record.RefundReason = &reason
	}
	if signature != "" {
		record.RefundSignature = &signature
	}

	if err := s.recordMovement(ctx, tx, actor, record, enums.LedgerEventTypeEscrowRefunded, reason); err != nil {
		return nil, false, err
	}
	if err := s.settleInvestment(ctx, tx, record, enums.EscrowStatusRefunded, reason); err != nil {
		return nil, false, err
	}
	if err := s.emit(ctx, tx, actor, enums.EventEscrowRefunded, record, signature, reason); err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// RefundHeldForRoundTx refunds every held record of a round inside tx and
// returns the ids it moved.
func (s *service) RefundHeldForRoundTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, franchiseID uuid.UUID, reason string) ([]uuid.UUID, error) {
	held, err := s.repo.WithTx(tx).ListHeldByFranchise(ctx, franchiseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list held escrow")
	}
	refunded := make([]uuid.UUID, 0, len(held))
	for _, record := range held {
		_, moved, err := s.refundTx(ctx, tx, actor, record.ID, reason, "")
		if err != nil {
			return nil, err
		}
		if moved {
			refunded = append(refunded, record.ID)
			s.metrics.IncEscrowTransition(string(enums.EscrowStatusRefunded), "approval_rejected")
		}
	}
	return refunded, nil
}

// SweepExpirations settles held records whose deadline has passed. Records
// with auto refund move to expired; the rest stay held and are flagged once.
// Each record commits on its own so one failure does not block the batch.
func (s *service) SweepExpirations(ctx context.Context, now time.Time) ([]models.EscrowRecord, error) {
	now = now.UTC()
	due, err := s.repo.ListExpiredHeld(ctx, now, s.batchSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired escrow")
	}

	var (
		expired []models.EscrowRecord
		errs    error
		flagged int
	)
	for i := range due {
		record := due[i]
		if !record.AutoRefundEnabled {
			ok, err := s.flagAttention(ctx, record, now)
			errs = multierr.Append(errs, err)
			if ok {
				flagged++
			}
			continue
		}
		ok, err := s.expire(ctx, &record, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire escrow %s: %w", record.ID, err))
			continue
		}
		if ok {
			expired = append(expired, record)
			s.metrics.IncEscrowTransition(string(enums.EscrowStatusExpired), "sweep")
		}
	}

	if s.logg != nil && (len(expired) > 0 || flagged > 0) {
		logCtx := s.logg.WithFields(ctx, map[string]any{"expired": len(expired), "flagged": flagged})
		s.logg.Info(logCtx, "escrow expiry sweep completed")
	}
	return expired, errs
}

func (s *service) expire(ctx context.Context, record *models.EscrowRecord, now time.Time) (bool, error) {
	moved := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, record.ID, map[string]any{
			"status":      enums.EscrowStatusExpired,
			"resolved_at": now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		record.Status = enums.EscrowStatusExpired
		record.ResolvedAt = &now

		if err := s.recordMovement(ctx, tx, settlementActor, record, enums.LedgerEventTypeEscrowExpired, "expired"); err != nil {
			return err
		}
		if err := s.settleInvestment(ctx, tx, record, enums.EscrowStatusExpired, "escrow expired"); err != nil {
			return err
		}
		moved = true
		return s.emit(ctx, tx, settlementActor, enums.EventEscrowExpired, record, "", "expired")
	})
	return moved, err
}

func (s *service) flagAttention(ctx context.Context, record models.EscrowRecord, now time.Time) (bool, error) {
	flagged := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).FlagAttention(ctx, record.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		record.AttentionFlaggedAt = &now
		flagged = true
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEscrowAttentionRequired,
			AggregateType: enums.AggregateEscrowRecord,
			AggregateID:   record.ID,
			Actor:         &outbox.ActorRef{UserID: settlementActor.ID, Role: settlementActor.PrimaryRole()},
			Data:          escrowPayload(&record, "", "manual release or refund required"),
		})
	})
	if err != nil {
		return false, fmt.Errorf("flag escrow %s: %w", record.ID, err)
	}
	return flagged, nil
}

// ListAttention returns the held records of a round that require attention at now.
func (s *service) ListAttention(ctx context.Context, franchiseID uuid.UUID, now time.Time) ([]models.EscrowRecord, error) {
	if franchiseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "franchise id is required")
	}
	rows, err := s.repo.ListExpiringHeld(ctx, franchiseID, now.UTC().Add(s.attentionWindow))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list attention escrow")
	}
	return rows, nil
}

func (s *service) GetEscrow(ctx context.Context, id uuid.UUID) (*models.EscrowRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return record, nil
}

// settleInvestment carries an escrow outcome over to its linked investment.
// Release completes a confirmed investment; refund and expiry refund it.
func (s *service) settleInvestment(ctx context.Context, tx *gorm.DB, record *models.EscrowRecord, outcome enums.EscrowStatus, reason string) error {
	if record.InvestmentID == nil {
		return nil
	}
	inv, err := s.investments.GetInvestmentTx(ctx, tx, *record.InvestmentID)
	if err != nil {
		return err
	}
	switch outcome {
	case enums.EscrowStatusReleased:
		if inv.Status != enums.InvestmentStatusConfirmed {
			return nil
		}
		_, err = s.investments.CompleteTx(ctx, tx, settlementActor, inv.ID)
	default:
		if inv.Status != enums.InvestmentStatusPending && inv.Status != enums.InvestmentStatusConfirmed {
			return nil
		}
		_, err = s.investments.MarkRefundedTx(ctx, tx, settlementActor, inv.ID, reason)
	}
	return err
}

func (s *service) recordMovement(ctx context.Context, tx *gorm.DB, actor auth.Actor, record *models.EscrowRecord, kind enums.LedgerEventType, reason string) error {
	meta := map[string]any{"status": record.Status, "stage": record.Stage}
	if reason != "" {
		meta["reason"] = reason
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode ledger metadata")
	}
	if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
		FranchiseID:  record.FranchiseID,
		InvestmentID: record.InvestmentID,
		EscrowID:     &record.ID,
		ActorID:      actor.ID,
		Type:         kind,
		AmountUSD:    record.AmountUSD,
		Metadata:     raw,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record "+string(kind))
	}
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor auth.Actor, eventType enums.OutboxEventType, record *models.EscrowRecord, signature, reason string) error {
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateEscrowRecord,
		AggregateID:   record.ID,
		Actor:         &outbox.ActorRef{UserID: actor.ID, Role: actor.PrimaryRole()},
		Data:          escrowPayload(record, signature, reason),
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

func escrowPayload(record *models.EscrowRecord, signature, reason string) payloads.EscrowEvent {
	return payloads.EscrowEvent{
		EscrowID:     record.ID,
		FranchiseID:  record.FranchiseID,
		UserID:       record.UserID,
		InvestmentID: record.InvestmentID,
		AmountUSD:    record.AmountUSD,
		Shares:       record.Shares,
		Status:       record.Status,
		Stage:        record.Stage,
		ExpiresAt:    record.ExpiresAt,
		Signature:    signature,
		Reason:       reason,
	}
}

func signatureMatches(stored *string, signature string) bool {
	if stored == nil {
		return signature == ""
	}
	return *stored == signature
}

func transitionError(from, to enums.EscrowStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("escrow cannot move from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to})
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "escrow record not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup escrow record")
}
