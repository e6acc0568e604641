package shares

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/internal/rounds"
	"github.com/angelmondragon/franchisefund-backend/pkg/auth"
	"github.com/angelmondragon/franchisefund-backend/pkg/db"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/dbtest"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/franchisefund-backend/pkg/errors"
	"github.com/angelmondragon/franchisefund-backend/pkg/outbox"
	pkgpagination "github.com/angelmondragon/franchisefund-backend/pkg/pagination"
)

var one = decimal.NewFromInt(1)

func newTestService(t *testing.T, now time.Time) (Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(client.DB()),
		Rounds: rounds.NewRepository(client.DB()),
		Tx:     client,
		Outbox: outbox.NewService(outbox.NewRepository(client.DB()), nil),
		Now:    func() time.Time { return now },
	})
	require.NoError(t, err)
	return svc, client
}

func allocate(franchiseID uuid.UUID, n int64) AllocateInput {
	return AllocateInput{
		FranchiseID:     franchiseID,
		ShareholderID:   uuid.New(),
		SharesRequested: n,
		SharePrice:      one,
	}
}

func activeShareTotal(t *testing.T, client *db.Client, franchiseID uuid.UUID) int64 {
	t.Helper()
	var rows []models.Share
	require.NoError(t, client.DB().Where("franchise_id = ? AND status <> ?", franchiseID, enums.ShareStatusCancelled).Find(&rows).Error)
	var total int64
	for _, row := range rows {
		total += row.SharesAllocated
	}
	return total
}

func TestAllocateSharesIncrementsCounter(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t, time.Now())
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 1000)

	share, err := svc.AllocateShares(ctx, AllocateInput{
		FranchiseID:     round.ID,
		ShareholderID:   uuid.New(),
		SharesRequested: 250,
		SharePrice:      decimal.RequireFromString("1.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ShareStatusAllocated, share.Status)
	assert.Equal(t, enums.ShareTypeCommon, share.ShareType)
	assert.True(t, share.TotalValue.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, int64(250), dbtest.ReloadRound(t, client, round.ID).AllocatedShares)
}

func TestAllocateSharesIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t, time.Now())
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 100)

	_, err := svc.AllocateShares(ctx, allocate(round.ID, 60))
	require.NoError(t, err)

	_, err = svc.AllocateShares(ctx, allocate(round.ID, 41))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientShares), "got %v", err)
	assert.Equal(t, map[string]any{"requested": int64(41), "available": int64(40)}, pkgerrors.As(err).Details())

	stored := dbtest.ReloadRound(t, client, round.ID)
	assert.Equal(t, int64(60), stored.AllocatedShares)
	assert.Equal(t, int64(60), activeShareTotal(t, client, round.ID))
}

func TestAllocateSharesValidation(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t, time.Now())
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 100)

	_, err := svc.AllocateShares(ctx, allocate(round.ID, 0))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "zero shares: %v", err)

	bad := allocate(round.ID, 1)
	bad.SharePrice = decimal.Zero
	_, err = svc.AllocateShares(ctx, bad)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "zero price: %v", err)

	_, err = svc.AllocateShares(ctx, allocate(uuid.New(), 1))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "missing round: %v", err)
}

func TestConcurrentAllocationsNeverOversell(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t, time.Now())
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 100)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
		others    []error
	)
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.AllocateShares(ctx, allocate(round.ID, 60))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientShares):
				rejected++
			default:
				others = append(others, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Empty(t, others)
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, int64(60), dbtest.ReloadRound(t, client, round.ID).AllocatedShares)
	assert.LessOrEqual(t, activeShareTotal(t, client, round.ID), round.TotalShares)
}

func TestManyConcurrentAllocationsFillExactly(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t, time.Now())
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 50)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.AllocateShares(ctx, allocate(round.ID, 7))
		}()
	}
	wg.Wait()

	stored := dbtest.ReloadRound(t, client, round.ID)
	assert.Equal(t, int64(49), stored.AllocatedShares)
	assert.Equal(t, stored.AllocatedShares, activeShareTotal(t, client, round.ID))
}

func TestUpdateShareStatusTransitions(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t, time.Now())
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 100)
	owner := auth.Actor{ID: round.BrandID, Roles: []enums.ActorRole{enums.ActorRoleBrand}}

	share, err := svc.AllocateShares(ctx, allocate(round.ID, 10))
	require.NoError(t, err)

	vested, err := svc.UpdateShareStatus(ctx, owner, share.ID, enums.ShareStatusVested, nil)
	require.NoError(t, err)
	assert.True(t, vested.IsVested)
	require.NotNil(t, vested.VestedAt)

	_, err = svc.UpdateShareStatus(ctx, owner, share.ID, enums.ShareStatusCancelled, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "vested->cancelled: %v", err)

	_, err = svc.UpdateShareStatus(ctx, owner, share.ID, enums.ShareStatusTransferred, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "missing recipient: %v", err)

	recipient := uuid.New()
	holder := auth.Actor{ID: share.ShareholderID, Roles: []enums.ActorRole{enums.ActorRoleInvestor}}
	moved, err := svc.UpdateShareStatus(ctx, holder, share.ID, enums.ShareStatusTransferred, &recipient)
	require.NoError(t, err)
	assert.Equal(t, enums.ShareStatusTransferred, moved.Status)

	_, err = svc.UpdateShareStatus(ctx, owner, share.ID, enums.ShareStatusAllocated, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "transferred->allocated: %v", err)
}

func TestUpdateShareStatusRequiresAuthority(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t, time.Now())
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 100)
	share, err := svc.AllocateShares(ctx, allocate(round.ID, 10))
	require.NoError(t, err)

	stranger := auth.Actor{ID: uuid.New(), Roles: []enums.ActorRole{enums.ActorRoleInvestor}}
	_, err = svc.UpdateShareStatus(ctx, stranger, share.ID, enums.ShareStatusCancelled, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	_, err = svc.UpdateShareStatus(ctx, stranger, uuid.New(), enums.ShareStatusCancelled, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestCancelReturnsCapacity(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t, time.Now())
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 100)
	admin := auth.Actor{ID: uuid.New(), Roles: []enums.ActorRole{enums.ActorRoleAdmin}}

	share, err := svc.AllocateShares(ctx, allocate(round.ID, 100))
	require.NoError(t, err)

	_, err = svc.AllocateShares(ctx, allocate(round.ID, 1))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientShares))

	_, err = svc.UpdateShareStatus(ctx, admin, share.ID, enums.ShareStatusCancelled, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), dbtest.ReloadRound(t, client, round.ID).AllocatedShares)

	again, err := svc.UpdateShareStatus(ctx, admin, share.ID, enums.ShareStatusCancelled, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.ShareStatusCancelled, again.Status)
	assert.Equal(t, int64(0), dbtest.ReloadRound(t, client, round.ID).AllocatedShares)

	_, err = svc.AllocateShares(ctx, allocate(round.ID, 100))
	require.NoError(t, err)
}

func TestRefundCancelReversesVestedShare(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t, time.Now())
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 100)
	admin := auth.Actor{ID: uuid.New(), Roles: []enums.ActorRole{enums.ActorRoleAdmin}}

	share, err := svc.AllocateShares(ctx, allocate(round.ID, 40))
	require.NoError(t, err)
	_, err = svc.UpdateShareStatus(ctx, admin, share.ID, enums.ShareStatusVested, nil)
	require.NoError(t, err)

	_, err = svc.UpdateShareStatus(ctx, admin, share.ID, enums.ShareStatusCancelled, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "public path keeps the lifecycle: %v", err)

	for i := 0; i < 2; i++ {
		require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
			return svc.CancelShareTx(ctx, tx, share.ID)
		}))
	}

	var stored models.Share
	require.NoError(t, client.DB().Where("id = ?", share.ID).First(&stored).Error)
	assert.Equal(t, enums.ShareStatusCancelled, stored.Status)
	assert.Equal(t, int64(0), dbtest.ReloadRound(t, client, round.ID).AllocatedShares)
	assert.Equal(t, int64(0), activeShareTotal(t, client, round.ID))
}

func TestProcessVestingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	allocatedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc, client := newTestService(t, allocatedAt)
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 100)

	thirty, ninety := 30, 90
	short := allocate(round.ID, 10)
	short.VestingPeriodDays = &thirty
	long := allocate(round.ID, 10)
	long.VestingPeriodDays = &ninety
	unscheduled := allocate(round.ID, 10)

	for _, in := range []AllocateInput{short, long, unscheduled} {
		_, err := svc.AllocateShares(ctx, in)
		require.NoError(t, err)
	}

	at := allocatedAt.Add(31 * 24 * time.Hour)
	count, err := svc.ProcessVesting(ctx, &round.ID, at)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = svc.ProcessVesting(ctx, nil, at)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = svc.ProcessVesting(ctx, nil, allocatedAt.Add(90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stats, err := svc.ShareStats(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), stats.TotalAllocated)
	assert.Equal(t, int64(20), stats.VestedShares)
	assert.Equal(t, int64(10), stats.UnvestedShares)

	var events int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventSharesVested).Count(&events).Error)
	assert.Equal(t, int64(2), events)
}

func TestShareStatsDerivesFromRows(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t, time.Now())
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 1000)
	holder := uuid.New()

	for _, in := range []AllocateInput{
		{FranchiseID: round.ID, ShareholderID: holder, SharesRequested: 100, SharePrice: one},
		{FranchiseID: round.ID, ShareholderID: holder, SharesRequested: 50, SharePrice: decimal.RequireFromString("2.00")},
		{FranchiseID: round.ID, ShareholderID: uuid.New(), SharesRequested: 50, SharePrice: one},
	} {
		_, err := svc.AllocateShares(ctx, in)
		require.NoError(t, err)
	}
	cancelled, err := svc.AllocateShares(ctx, allocate(round.ID, 300))
	require.NoError(t, err)
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.CancelShareTx(ctx, tx, cancelled.ID)
	}))

	stats, err := svc.ShareStats(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), stats.TotalAllocated)
	assert.Equal(t, int64(0), stats.VestedShares)
	assert.Equal(t, 2, stats.UniqueShareholders)
	assert.Equal(t, "1.25", stats.AveragePrice.StringFixed(2))

	_, err = svc.ShareStats(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListSharesPaginates(t *testing.T) {
	ctx := context.Background()
	svc, client := newTestService(t, time.Now())
	round := dbtest.SeedRound(t, client, enums.RoundStageFund, 100)
	for i := 0; i < 3; i++ {
		_, err := svc.AllocateShares(ctx, allocate(round.ID, 1))
		require.NoError(t, err)
	}

	page, err := svc.ListShares(ctx, ListParams{FranchiseID: round.ID, Params: pkgpagination.Params{Limit: 2}})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.Cursor)

	rest, err := svc.ListShares(ctx, ListParams{FranchiseID: round.ID, Params: pkgpagination.Params{Limit: 2, Cursor: page.Cursor}})
	require.NoError(t, err)
	assert.Len(t, rest.Items, 1)
}
