package testutil

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	dbpkg "github.com/yungbote/fitcoach-backend/internal/data/db"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

// Logger writes warnings and errors through tb.Log, so they show up next to
// the failing test.
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.NewWithCore(zaptest.NewLogger(tb, zaptest.Level(zapcore.WarnLevel)).Core())
}

// DB opens a fresh migrated sqlite database under tb.TempDir(). The pool is
// pinned to one connection, so code under test must route every statement
// of a transaction through that transaction.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	return open(tb, "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(0)", 1)
}

// SharedDB opens a WAL-mode sqlite database with several pooled connections,
// so transactions on different goroutines really interleave. A transaction
// whose read snapshot went stale fails its first write with "database is
// locked" instead of waiting.
func SharedDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	return open(tb, "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(0)&_pragma=journal_mode(WAL)", 4)
}

func open(tb testing.TB, pragmas string, conns int) *gorm.DB {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "fitcoach.db")
	db, err := gorm.Open(sqlite.Open(path+pragmas), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(conns)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := dbpkg.AutoMigrateAll(db); err != nil {
		tb.Fatalf("automigrate: %v", err)
	}
	if err := dbpkg.EnsureImmutableTriggers(db); err != nil {
		tb.Fatalf("immutable triggers: %v", err)
	}
	if err := dbpkg.RegisterImmutableGuards(db); err != nil {
		tb.Fatalf("immutable guards: %v", err)
	}
	return db
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}
