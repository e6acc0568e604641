package approvals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/franchisefund-backend/internal/escrow"
	"github.com/angelmondragon/franchisefund-backend/internal/investments"
	"github.com/angelmondragon/franchisefund-backend/internal/ledger"
	"github.com/angelmondragon/franchisefund-backend/internal/rounds"
	"github.com/angelmondragon/franchisefund-backend/internal/shares"
	"github.com/angelmondragon/franchisefund-backend/pkg/auth"
	"github.com/angelmondragon/franchisefund-backend/pkg/db"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/dbtest"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/franchisefund-backend/pkg/errors"
	"github.com/angelmondragon/franchisefund-backend/pkg/outbox"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	now := func() time.Time { return testNow }
	emitter := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	roundRepo := rounds.NewRepository(client.DB())

	roundSvc, err := rounds.NewService(rounds.ServiceParams{
		Repo:              roundRepo,
		Tx:                client,
		Outbox:            emitter,
		FundingWindowDays: 60,
		Now:               now,
	})
	require.NoError(t, err)
	shareSvc, err := shares.NewService(shares.ServiceParams{
		Repo:   shares.NewRepository(client.DB()),
		Rounds: roundRepo,
		Tx:     client,
		Outbox: emitter,
		Now:    now,
	})
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(client.DB()))
	require.NoError(t, err)
	invSvc, err := investments.NewService(investments.ServiceParams{
		Repo:           investments.NewRepository(client.DB()),
		Rounds:         roundRepo,
		Shares:         shareSvc,
		Ledger:         ledgerSvc,
		Tx:             client,
		Outbox:         emitter,
		CommissionRate: decimal.RequireFromString("0.02"),
		Now:            now,
	})
	require.NoError(t, err)
	escrowSvc, err := escrow.NewService(escrow.ServiceParams{
		Repo:        escrow.NewRepository(client.DB()),
		Rounds:      roundRepo,
		Investments: invSvc,
		Ledger:      ledgerSvc,
		Tx:          client,
		Outbox:      emitter,
		Now:         now,
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(client.DB()),
		Rounds: roundRepo,
		Stages: roundSvc,
		Escrow: escrowSvc,
		Tx:     client,
		Outbox: emitter,
		Now:    now,
	})
	require.NoError(t, err)
	return svc, client
}

func ownerOf(round *models.FundingRound) auth.Actor {
	return auth.Actor{ID: round.BrandID, Roles: []enums.ActorRole{enums.ActorRoleBrand}}
}

func snapshot() SubmitInput {
	return SubmitInput{CostPerAreaUSD: decimal.RequireFromString("125.50"), SelectedShares: 400}
}

func seedHeldEscrow(t *testing.T, client *db.Client, round *models.FundingRound, amount string) *models.EscrowRecord {
	t.Helper()
	record := &models.EscrowRecord{
		FranchiseID:       round.ID,
		UserID:            uuid.New(),
		AmountUSD:         decimal.RequireFromString(amount),
		Shares:            500,
		Status:            enums.EscrowStatusHeld,
		Stage:             round.Stage,
		ExpiresAt:         testNow.Add(72 * time.Hour),
		AutoRefundEnabled: true,
		CreatedAt:         testNow.Add(-time.Hour),
	}
	require.NoError(t, client.DB().Create(record).Error)
	return record
}

func TestSubmitSnapshotsRound(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t)
	round := dbtest.SeedRound(t, client, enums.RoundStageApproval, 1000)

	approval, err := svc.Submit(ctx, ownerOf(round), round.ID, snapshot())
	require.NoError(t, err)
	assert.Equal(t, enums.ApprovalStatusPending, approval.Status)
	assert.Equal(t, int64(1000), approval.TotalShares)
	assert.Equal(t, int64(400), approval.SelectedShares)
	assert.True(t, approval.SharePriceUSD.Equal(decimal.NewFromInt(1)))
	assert.True(t, approval.TotalInvestmentUSD.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, round.BrandID, approval.SubmittedBy)

	require.NoError(t, client.DB().Model(&models.FundingRound{}).Where("id = ?", round.ID).Update("total_investment_usd", decimal.NewFromInt(5000)).Error)
	stored, err := svc.GetApproval(ctx, approval.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalInvestmentUSD.Equal(decimal.NewFromInt(1000)))
}

func TestSubmitRejectsSecondOutstanding(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t)
	round := dbtest.SeedRound(t, client, enums.RoundStageApproval, 1000)
	owner := ownerOf(round)

	first, err := svc.Submit(ctx, owner, round.ID, snapshot())
	require.NoError(t, err)

	_, err = svc.Submit(ctx, owner, round.ID, snapshot())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeApprovalPending))

	admin := auth.Actor{ID: uuid.New(), Roles: []enums.ActorRole{enums.ActorRoleAdmin}}
	_, err = svc.StartReview(ctx, admin, first.ID)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, owner, round.ID, snapshot())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeApprovalPending), "under review still blocks")

	_, err = svc.Reject(ctx, owner, first.ID, "incomplete documents")
	require.NoError(t, err)

	again, err := svc.Submit(ctx, owner, round.ID, snapshot())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, again.ID)
}

func TestSubmitGuards(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t)
	round := dbtest.SeedRound(t, client, enums.RoundStageApproval, 1000)
	open := dbtest.SeedRound(t, client, enums.RoundStageFund, 1000)

	stranger := auth.Actor{ID: uuid.New(), Roles: []enums.ActorRole{enums.ActorRoleBrand}}
	_, err := svc.Submit(ctx, stranger, round.ID, snapshot())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Submit(ctx, ownerOf(open), open.ID, snapshot())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	tooMany := snapshot()
	tooMany.SelectedShares = 1001
	_, err = svc.Submit(ctx, ownerOf(round), round.ID, tooMany)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Submit(ctx, ownerOf(round), uuid.New(), snapshot())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestApproveOpensRoundForFunding(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t)
	round := dbtest.SeedRound(t, client, enums.RoundStageApproval, 1000)
	owner := ownerOf(round)

	approval, err := svc.Submit(ctx, owner, round.ID, snapshot())
	require.NoError(t, err)

	_, err = svc.StartReview(ctx, owner, approval.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	approved, err := svc.Approve(ctx, owner, approval.ID, "looks good")
	require.NoError(t, err)
	assert.Equal(t, enums.ApprovalStatusApproved, approved.Status)
	require.NotNil(t, approved.DecidedBy)
	assert.Equal(t, owner.ID, *approved.DecidedBy)
	require.NotNil(t, approved.DecidedAt)

	reloaded := dbtest.ReloadRound(t, client, round.ID)
	assert.Equal(t, enums.RoundStageFund, reloaded.Stage)
	require.NotNil(t, reloaded.FundingOpenedAt)
	assert.True(t, reloaded.FundingOpenedAt.Equal(testNow))

	_, err = svc.Approve(ctx, owner, approval.ID, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	_, err = svc.Reject(ctx, owner, approval.ID, "changed mind")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
}

func TestRejectRefundsHeldEscrowAndKeepsStage(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t)
	round := dbtest.SeedRound(t, client, enums.RoundStageApproval, 1000)
	owner := ownerOf(round)
	held := seedHeldEscrow(t, client, round, "500")

	approval, err := svc.Submit(ctx, owner, round.ID, snapshot())
	require.NoError(t, err)

	_, err = svc.Reject(ctx, owner, approval.ID, "  ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	stranger := auth.Actor{ID: uuid.New(), Roles: []enums.ActorRole{enums.ActorRoleBrand}}
	_, err = svc.Reject(ctx, stranger, approval.ID, "no")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	rejected, err := svc.Reject(ctx, owner, approval.ID, "zoning not approved")
	require.NoError(t, err)
	assert.Equal(t, enums.ApprovalStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)

	var record models.EscrowRecord
	require.NoError(t, client.DB().Where("id = ?", held.ID).First(&record).Error)
	assert.Equal(t, enums.EscrowStatusRefunded, record.Status)
	require.NotNil(t, record.RefundReason)
	assert.Contains(t, *record.RefundReason, "zoning not approved")

	var refunds int64
	require.NoError(t, client.DB().Model(&models.LedgerEvent{}).
		Where("escrow_id = ? AND type = ?", held.ID, enums.LedgerEventTypeEscrowRefunded).
		Count(&refunds).Error)
	assert.Equal(t, int64(1), refunds)

	assert.Equal(t, enums.RoundStageApproval, dbtest.ReloadRound(t, client, round.ID).Stage)

	history, err := svc.ListForRound(ctx, round.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, enums.ApprovalStatusRejected, history[0].Status)
}
