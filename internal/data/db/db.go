package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured driver and migrates the schema.
func Open(logg *logger.Logger, driver, sqlitePath string) (*gorm.DB, error) {
	var (
		gdb *gorm.DB
		err error
	)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverPostgres:
		var svc *PostgresService
		svc, err = NewPostgresService(logg)
		if svc != nil {
			gdb = svc.DB()
		}
	case DriverSQLite:
		var svc *SQLiteService
		svc, err = NewSQLiteService(logg, sqlitePath)
		if svc != nil {
			gdb = svc.DB()
		}
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := AutoMigrateAll(gdb); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	if err := EnsureIndexes(gdb); err != nil {
		return nil, err
	}
	if err := EnsureImmutableTriggers(gdb); err != nil {
		return nil, err
	}
	if err := RegisterImmutableGuards(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

func gormConfig() *gorm.Config {
	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	return &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}
}
