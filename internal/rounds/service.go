package rounds

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/pkg/auth"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/franchisefund-backend/pkg/errors"
	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
	"github.com/angelmondragon/franchisefund-backend/pkg/money"
	"github.com/angelmondragon/franchisefund-backend/pkg/outbox"
	"github.com/angelmondragon/franchisefund-backend/pkg/outbox/payloads"
	pkgpagination "github.com/angelmondragon/franchisefund-backend/pkg/pagination"
)

// DefaultSharePrice is the fixed price of one share in USD.
var DefaultSharePrice = decimal.NewFromInt(1)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the funding round lifecycle.
type Service interface {
	CreateRound(ctx context.Context, actor auth.Actor, input CreateRoundInput) (*models.FundingRound, error)
	GetRound(ctx context.Context, id uuid.UUID) (*models.FundingRound, error)
	ListRounds(ctx context.Context, params ListParams) (*ListResult, error)
	AdvanceStage(ctx context.Context, actor auth.Actor, id uuid.UUID, target enums.RoundStage) (*models.FundingRound, error)
	AdvanceStageTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, id uuid.UUID, target enums.RoundStage) (*models.FundingRound, error)
}

// CreateRoundInput describes a new round. Zero values fall back to defaults.
type CreateRoundInput struct {
	BrandID            uuid.UUID
	Name               string
	TotalInvestmentUSD decimal.Decimal
	SharePriceUSD      decimal.Decimal
	FundingGoalUSD     decimal.Decimal
	FundingWindowDays  int
}

// ServiceParams wires the round service.
type ServiceParams struct {
	Repo              *Repository
	Tx                txRunner
	Outbox            outbox.Emitter
	Logger            *logger.Logger
	FundingWindowDays int
	Now               func() time.Time
}

type service struct {
	repo       *Repository
	tx         txRunner
	outbox     outbox.Emitter
	logg       *logger.Logger
	windowDays int
	now        func() time.Time
}

// NewService validates dependencies and returns a round service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("round repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.FundingWindowDays <= 0 {
		return nil, fmt.Errorf("funding window days must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		outbox:     params.Outbox,
		logg:       params.Logger,
		windowDays: params.FundingWindowDays,
		now:        now,
	}, nil
}

func (s *service) CreateRound(ctx context.Context, actor auth.Actor, input CreateRoundInput) (*models.FundingRound, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	if !actor.IsAdmin() && !actor.HasRole(enums.ActorRoleBrand) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only brands may open funding rounds")
	}

	brandID := input.BrandID
	if brandID == uuid.Nil {
		brandID = actor.ID
	}
	if !actor.CanActFor(brandID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot open a round for another brand")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	price := input.SharePriceUSD
	if price.IsZero() {
		price = DefaultSharePrice
	}
	if err := money.ValidateAmounts(input.TotalInvestmentUSD, price); err != nil {
		return nil, err
	}
	totalShares, remainder := money.WholeShares(input.TotalInvestmentUSD, price)
	if !remainder.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total investment must be a whole number of shares")
	}

	goal := input.FundingGoalUSD
	if goal.IsZero() {
		goal = input.TotalInvestmentUSD
	}
	if goal.IsNegative() || !money.IsCents(goal) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid funding goal")
	}

	window := input.FundingWindowDays
	if window == 0 {
		window = s.windowDays
	}
	if window < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "funding window must be positive")
	}

	round := &models.FundingRound{
		BrandID:            brandID,
		Name:               name,
		TotalInvestmentUSD: input.TotalInvestmentUSD,
		SharePriceUSD:      price,
		TotalShares:        totalShares,
		Stage:              enums.RoundStageApproval,
		FundingGoalUSD:     goal,
		CurrentFundingUSD:  decimal.Zero,
		FundingWindowDays:  window,
	}
	if err := s.repo.Create(ctx, round); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create funding round")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFranchiseID(ctx, round.ID.String())
		s.logg.Info(logCtx, "funding round created")
	}
	return round, nil
}

func (s *service) GetRound(ctx context.Context, id uuid.UUID) (*models.FundingRound, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "round id is required")
	}
	round, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, MapLookupError(err)
	}
	return round, nil
}

func (s *service) ListRounds(ctx context.Context, params ListParams) (*ListResult, error) {
	window, err := pkgpagination.Resolve(params.Params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query := listQuery{
		brandID: params.BrandID,
		stage:   params.Stage,
		window:  window,
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list funding rounds")
	}

	rows, nextCursor := pkgpagination.Page(window, rows, pageKey)

	items := make([]RoundDTO, len(rows))
	for i, row := range rows {
		items[i] = ToDTO(row)
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}

func (s *service) AdvanceStage(ctx context.Context, actor auth.Actor, id uuid.UUID, target enums.RoundStage) (*models.FundingRound, error) {
	if target == enums.RoundStageFund {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "rounds open for funding through the approval workflow")
	}
	var updated *models.FundingRound
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		round, err := s.AdvanceStageTx(ctx, tx, actor, id, target)
		if err != nil {
			return err
		}
		updated = round
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AdvanceStageTx moves the round one stage forward inside tx. Asking for the
// stage the round is already in is a no-op.
func (s *service) AdvanceStageTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, id uuid.UUID, target enums.RoundStage) (*models.FundingRound, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid round stage")
	}

	repo := s.repo.WithTx(tx)
	round, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, MapLookupError(err)
	}
	if !actor.IsSystem() && !actor.CanActFor(round.BrandID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to manage this round")
	}
	if round.Stage == target {
		return round, nil
	}
	if !round.Stage.CanAdvanceTo(target) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("round cannot move from %s to %s", round.Stage, target)).
			WithDetails(map[string]any{"from": round.Stage, "to": target})
	}

	now := s.now().UTC()
	var openedAt *time.Time
	if target == enums.RoundStageFund && round.FundingOpenedAt == nil {
		openedAt = &now
	}
	moved, err := repo.UpdateStage(ctx, round.ID, round.Stage, target, openedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update round stage")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "round stage changed concurrently")
	}

	from := round.Stage
	round.Stage = target
	if openedAt != nil {
		round.FundingOpenedAt = openedAt
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRoundStageChanged,
		AggregateType: enums.AggregateFundingRound,
		AggregateID:   round.ID,
		Actor:         &outbox.ActorRef{UserID: actor.ID, Role: actor.PrimaryRole()},
		Data: payloads.RoundStageChangedEvent{
			FranchiseID: round.ID,
			From:        from,
			To:          target,
			ChangedAt:   now,
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit stage change")
	}
	return round, nil
}

// MapLookupError converts a round lookup failure into a domain error.
func MapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "funding round not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup funding round")
}
