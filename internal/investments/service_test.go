package investments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

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
	pkgpagination "github.com/angelmondragon/franchisefund-backend/pkg/pagination"
)

var defaultRate = decimal.RequireFromString("0.02")

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	emitter := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	roundRepo := rounds.NewRepository(client.DB())

	shareSvc, err := shares.NewService(shares.ServiceParams{
		Repo:   shares.NewRepository(client.DB()),
		Rounds: roundRepo,
		Tx:     client,
		Outbox: emitter,
	})
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(client.DB()))
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:           NewRepository(client.DB()),
		Rounds:         roundRepo,
		Shares:         shareSvc,
		Ledger:         ledgerSvc,
		Tx:             client,
		Outbox:         emitter,
		CommissionRate: defaultRate,
	})
	require.NoError(t, err)
	return svc, client
}

func investorActor() auth.Actor {
	return auth.Actor{ID: uuid.New(), Roles: []enums.ActorRole{enums.ActorRoleInvestor}}
}

func adminActor() auth.Actor {
	return auth.Actor{ID: uuid.New(), Roles: []enums.ActorRole{enums.ActorRoleAdmin}}
}

func usd(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func ledgerEvents(t *testing.T, client *db.Client, investmentID uuid.UUID) map[enums.LedgerEventType]decimal.Decimal {
	t.Helper()
	var rows []models.LedgerEvent
	require.NoError(t, client.DB().Where("investment_id = ?", investmentID).Find(&rows).Error)
	out := map[enums.LedgerEventType]decimal.Decimal{}
	for _, row := range rows {
		out[row.Type] = row.AmountUSD
	}
	return out
}

func countInvestments(t *testing.T, client *db.Client) int64 {
	t.Helper()
	var n int64
	require.NoError(t, client.DB().Model(&models.Investment{}).Count(&n).Error)
	return n
}

func TestRecordInvestmentSplitsGross(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t)
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 10000)
	actor := investorActor()

	inv, err := svc.RecordInvestment(ctx, actor, RecordInput{
		FranchiseID:   round.ID,
		AmountUSD:     usd("101"),
		PricePerShare: usd("1"),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.InvestmentStatusPending, inv.Status)
	assert.Equal(t, actor.ID, inv.InvestorID)
	assert.Equal(t, int64(101), inv.SharesPurchased)
	assert.Equal(t, "2.02", inv.PlatformCommission.StringFixed(2))
	assert.Equal(t, "98.98", inv.NetInvestmentAmount.StringFixed(2))
	require.NotNil(t, inv.ShareID)

	var share models.Share
	require.NoError(t, client.DB().Where("id = ?", *inv.ShareID).First(&share).Error)
	require.NotNil(t, share.InvestmentID)
	assert.Equal(t, inv.ID, *share.InvestmentID)
	assert.Equal(t, int64(101), share.SharesAllocated)

	reloaded := dbtest.ReloadRound(t, client, round.ID)
	assert.Equal(t, int64(101), reloaded.AllocatedShares)
	assert.Equal(t, "101.00", reloaded.CurrentFundingUSD.StringFixed(2))
	assert.Equal(t, 1, reloaded.InvestorCount)

	events := ledgerEvents(t, client, inv.ID)
	assert.Equal(t, "2.02", events[enums.LedgerEventTypeCommissionAccrued].StringFixed(2))
	_, hasRemainder := events[enums.LedgerEventTypeUnattributedProceeds]
	assert.False(t, hasRemainder)
}

func TestRecordInvestmentNetPlusCommissionEqualsGross(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t)
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 1000000)

	for _, amount := range []string{"1.00", "1.49", "33.33", "99.99", "250.25", "12345.67"} {
		inv, err := svc.RecordInvestment(ctx, investorActor(), RecordInput{
			FranchiseID: round.ID,
			AmountUSD:   usd(amount),
		})
		require.NoError(t, err, amount)
		assert.True(t, inv.NetInvestmentAmount.Add(inv.PlatformCommission).Equal(usd(amount)), amount)

		var stored models.Investment
		require.NoError(t, client.DB().Where("id = ?", inv.ID).First(&stored).Error)
		assert.True(t, stored.NetInvestmentAmount.Add(stored.PlatformCommission).Equal(stored.InvestmentAmountUSD), amount)
	}
}

func TestRecordInvestmentRetainsRemainder(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t)
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 1000, func(r *models.FundingRound) {
		r.SharePriceUSD = usd("3")
		r.TotalInvestmentUSD = usd("3000")
		r.FundingGoalUSD = usd("3000")
	})

	inv, err := svc.RecordInvestment(ctx, investorActor(), RecordInput{FranchiseID: round.ID, AmountUSD: usd("10")})
	require.NoError(t, err)
	assert.Equal(t, int64(3), inv.SharesPurchased)
	assert.Equal(t, "1.00", inv.UnattributedAmount.StringFixed(2))
	assert.True(t, inv.PricePerShare.Equal(usd("3")))

	events := ledgerEvents(t, client, inv.ID)
	assert.Equal(t, "1.00", events[enums.LedgerEventTypeUnattributedProceeds].StringFixed(2))
	assert.Equal(t, "0.20", events[enums.LedgerEventTypeCommissionAccrued].StringFixed(2))
	assert.Equal(t, "10.00", dbtest.ReloadRound(t, client, round.ID).CurrentFundingUSD.StringFixed(2))
}

func TestRecordInvestmentStoresFailedWhenOversold(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t)
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 100)
	first := investorActor()

	_, err := svc.RecordInvestment(ctx, first, RecordInput{FranchiseID: round.ID, AmountUSD: usd("60")})
	require.NoError(t, err)

	inv, err := svc.RecordInvestment(ctx, investorActor(), RecordInput{FranchiseID: round.ID, AmountUSD: usd("60")})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientShares))
	require.NotNil(t, inv)
	assert.Equal(t, enums.InvestmentStatusFailed, inv.Status)
	assert.Nil(t, inv.ShareID)
	require.NotNil(t, inv.FailureReason)

	var stored models.Investment
	require.NoError(t, client.DB().Where("id = ?", inv.ID).First(&stored).Error)
	assert.Equal(t, enums.InvestmentStatusFailed, stored.Status)
	assert.Equal(t, int64(0), stored.SharesPurchased)

	reloaded := dbtest.ReloadRound(t, client, round.ID)
	assert.Equal(t, int64(60), reloaded.AllocatedShares)
	assert.Equal(t, "60.00", reloaded.CurrentFundingUSD.StringFixed(2))
	assert.Equal(t, 1, reloaded.InvestorCount)
	assert.Empty(t, ledgerEvents(t, client, inv.ID))
}

func TestRecordInvestmentRejectsBeforeStoring(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t)
	open := dbtest.SeedRound(t, client, enums.RoundStageFund, 100, func(r *models.FundingRound) {
		r.SharePriceUSD = usd("5")
		r.TotalInvestmentUSD = usd("500")
		r.FundingGoalUSD = usd("500")
	})
	pending := dbtest.SeedRound(t, client, enums.RoundStageApproval, 100)

	_, err := svc.RecordInvestment(ctx, investorActor(), RecordInput{FranchiseID: open.ID, AmountUSD: usd("4.99")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.RecordInvestment(ctx, investorActor(), RecordInput{FranchiseID: open.ID, AmountUSD: usd("10.001")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.RecordInvestment(ctx, investorActor(), RecordInput{FranchiseID: pending.ID, AmountUSD: usd("10")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	_, err = svc.RecordInvestment(ctx, investorActor(), RecordInput{FranchiseID: uuid.New(), AmountUSD: usd("10")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.RecordInvestment(ctx, investorActor(), RecordInput{FranchiseID: open.ID, InvestorID: uuid.New(), AmountUSD: usd("10")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	assert.Equal(t, int64(0), countInvestments(t, client))
}

func TestRecordInvestmentRejectsForeignSharePrice(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t)
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 1000)

	_, err := svc.RecordInvestment(ctx, investorActor(), RecordInput{
		FranchiseID:   round.ID,
		AmountUSD:     usd("10"),
		PricePerShare: usd("0.01"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, int64(0), countInvestments(t, client))

	reloaded := dbtest.ReloadRound(t, client, round.ID)
	assert.Equal(t, int64(0), reloaded.AllocatedShares)
	assert.True(t, reloaded.CurrentFundingUSD.IsZero())

	inv, err := svc.RecordInvestment(ctx, investorActor(), RecordInput{
		FranchiseID:   round.ID,
		AmountUSD:     usd("10"),
		PricePerShare: usd("1.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), inv.SharesPurchased)
}

func TestInvestmentPaymentLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t)
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 1000)
	investor := investorActor()
	admin := adminActor()

	inv, err := svc.RecordInvestment(ctx, investor, RecordInput{FranchiseID: round.ID, AmountUSD: usd("100")})
	require.NoError(t, err)

	_, err = svc.ConfirmInvestment(ctx, investor, inv.ID, "pay_123")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.CompleteInvestment(ctx, admin, inv.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	confirmed, err := svc.ConfirmInvestment(ctx, admin, inv.ID, "pay_123")
	require.NoError(t, err)
	assert.Equal(t, enums.InvestmentStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.PaymentReference)
	assert.Equal(t, "pay_123", *confirmed.PaymentReference)
	assert.NotNil(t, confirmed.ConfirmedAt)

	again, err := svc.ConfirmInvestment(ctx, admin, inv.ID, "pay_123")
	require.NoError(t, err)
	assert.Equal(t, enums.InvestmentStatusConfirmed, again.Status)

	completed, err := svc.CompleteInvestment(ctx, auth.SystemActor("settlement"), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.InvestmentStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := svc.MarkRefundedTx(ctx, tx, admin, inv.ID, "late refund")
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
}

func TestMarkRefundedReturnsSharesAndFunding(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t)
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 1000)
	system := auth.SystemActor("escrow")

	inv, err := svc.RecordInvestment(ctx, investorActor(), RecordInput{FranchiseID: round.ID, AmountUSD: usd("250")})
	require.NoError(t, err)
	_, err = svc.ConfirmInvestment(ctx, system, inv.ID, "pay_abc")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		err = client.WithTx(ctx, func(tx *gorm.DB) error {
			refunded, err := svc.MarkRefundedTx(ctx, tx, system, inv.ID, "round rejected")
			if err != nil {
				return err
			}
			assert.Equal(t, enums.InvestmentStatusRefunded, refunded.Status)
			return nil
		})
		require.NoError(t, err)
	}

	var share models.Share
	require.NoError(t, client.DB().Where("id = ?", *inv.ShareID).First(&share).Error)
	assert.Equal(t, enums.ShareStatusCancelled, share.Status)

	reloaded := dbtest.ReloadRound(t, client, round.ID)
	assert.Equal(t, int64(0), reloaded.AllocatedShares)
	assert.True(t, reloaded.CurrentFundingUSD.IsZero())
	assert.Equal(t, 1, reloaded.InvestorCount)
}

func TestFundingTotalsSkipsFailedAndRefunded(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	current, investors := FundingTotals([]models.Investment{
		{InvestorID: a, InvestmentAmountUSD: usd("100"), Status: enums.InvestmentStatusPending},
		{InvestorID: a, InvestmentAmountUSD: usd("50"), Status: enums.InvestmentStatusCompleted},
		{InvestorID: b, InvestmentAmountUSD: usd("75"), Status: enums.InvestmentStatusRefunded},
		{InvestorID: uuid.New(), InvestmentAmountUSD: usd("999"), Status: enums.InvestmentStatusFailed},
	})
	assert.Equal(t, "150.00", current.StringFixed(2))
	assert.Equal(t, 2, investors)
}

func TestListInvestmentsPaginates(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t)
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 1000)
	for i := 0; i < 3; i++ {
		_, err := svc.RecordInvestment(ctx, investorActor(), RecordInput{FranchiseID: round.ID, AmountUSD: usd("10")})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	page, err := svc.ListInvestments(ctx, ListParams{FranchiseID: round.ID, Params: pkgpagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.Cursor)

	rest, err := svc.ListInvestments(ctx, ListParams{FranchiseID: round.ID, Params: pkgpagination.Params{Limit: 2, Cursor: page.Cursor}})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Empty(t, rest.Cursor)
}
