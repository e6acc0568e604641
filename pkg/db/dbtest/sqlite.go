// Package dbtest opens throwaway sqlite databases carrying the ledger schema.
package dbtest

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/franchisefund-backend/pkg/db"
	"github.com/angelmondragon/franchisefund-backend/pkg/migrate"
)

// Open returns a client over a private in-memory database. The pool is
// pinned to one connection so transactions serialize the way row locks do
// in postgres.
func Open(t testing.TB) *db.Client {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := "file:" + name + "_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.AutoMigrateModels(conn); err != nil {
		t.Fatalf("migrate ledger schema: %v", err)
	}
	return db.NewWithConn(conn)
}

// MustTx runs fn in a transaction and fails the test on error.
func MustTx(t testing.TB, client *db.Client, fn func(tx *gorm.DB) error) {
	t.Helper()
	if err := client.WithTx(context.Background(), fn); err != nil {
		t.Fatalf("tx: %v", err)
	}
}
