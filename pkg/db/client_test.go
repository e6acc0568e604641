package db

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/franchisefund-backend/pkg/config"
	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
)

type ledgerRow struct {
	ID   int
	Memo string
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), config.DBConfig{
		Driver: config.DBDriverSQLite,
		DSN:    "file:" + t.Name() + "?mode=memory&cache=shared",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(&ledgerRow{}))
	return client
}

func countRows(t *testing.T, client *Client) int64 {
	t.Helper()
	var n int64
	require.NoError(t, client.DB().Model(&ledgerRow{}).Count(&n).Error)
	return n
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{Driver: config.DBDriverSQLite}, nil)
	require.Error(t, err)
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&ledgerRow{Memo: "committed"}).Error
	}))
	require.EqualValues(t, 1, countRows(t, client))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&ledgerRow{Memo: "rolled back"}).Error)
		return errors.New("boom")
	})
	require.EqualError(t, err, "boom")
	require.EqualValues(t, 1, countRows(t, client))
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	client := newTestClient(t)

	require.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			tx.Create(&ledgerRow{Memo: "panicked"})
			panic("mid-transaction")
		})
	})
	require.Zero(t, countRows(t, client))
}

func TestWithTxRetriesSerializationFailures(t *testing.T) {
	client := newTestClient(t)
	calls := 0

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return tx.Create(&ledgerRow{Memo: "third time"}).Error
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.EqualValues(t, 1, countRows(t, client))
}

func TestWithTxGivesUpAfterConfiguredAttempts(t *testing.T) {
	client := newTestClient(t)
	client.txAttempts = 2
	calls := 0

	err := client.WithTx(context.Background(), func(*gorm.DB) error {
		calls++
		return &pgconn.PgError{Code: "40P01"}
	})
	require.Error(t, err)
	require.True(t, IsRetryableTxError(err))
	require.Equal(t, 2, calls)

	calls = 0
	err = client.WithTx(context.Background(), func(*gorm.DB) error {
		calls++
		return &pgconn.PgError{Code: "23505"}
	})
	require.Error(t, err)
	require.Equal(t, 1, calls, "constraint failures are not retried")
}

func TestPing(t *testing.T) {
	require.NoError(t, newTestClient(t).Ping(context.Background()))
}

func TestRegisterMetricsIsIdempotent(t *testing.T) {
	client := newTestClient(t)
	reg := prometheus.NewRegistry()

	require.NoError(t, client.RegisterMetrics(reg, "ledger"))
	require.NoError(t, client.RegisterMetrics(reg, "ledger"))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "go_sql_max_open_connections" {
			found = true
		}
	}
	require.True(t, found)
}

func TestGormLoggerReportsErrorsAndSlowStatements(t *testing.T) {
	var out bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "db-test", Output: &out})
	gl := newGormLogger(logg, 10*time.Millisecond)
	ctx := context.Background()
	stmt := func() (string, int64) { return "SELECT 1", 1 }

	gl.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	gl.Trace(ctx, time.Now(), stmt, nil)
	require.Empty(t, out.String())

	gl.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	require.Contains(t, out.String(), "sql.slow")

	out.Reset()
	gl.Trace(ctx, time.Now(), stmt, errors.New("relation missing"))
	require.Contains(t, out.String(), "sql.error")
	require.Contains(t, out.String(), "SELECT 1")

	out.Reset()
	gl.LogMode(gormlogger.Silent).Trace(ctx, time.Now().Add(-time.Second), stmt, errors.New("silenced"))
	require.Empty(t, strings.TrimSpace(out.String()))
}

func TestIsUniqueViolation(t *testing.T) {
	require.False(t, IsUniqueViolation(nil, ""))
	require.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: approvals.franchise_id"), ""))
	require.True(t, IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "ux_approvals_outstanding"`), "ux_approvals_outstanding"))
	require.False(t, IsUniqueViolation(errors.New("connection reset"), ""))

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_shares_number"}
	require.True(t, IsUniqueViolation(pgErr, "ux_shares_number"))
	require.False(t, IsUniqueViolation(pgErr, "ux_other"))
}
