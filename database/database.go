// Package database opens the configured store and brings its schema up to date
package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/amirphl/qrtrack/config"
	"github.com/amirphl/qrtrack/migrations"
	"github.com/amirphl/qrtrack/models"
	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured database with connection pooling
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	case DriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory %s: %w", dir, err)
			}
		}
		dialector = gormsqlite.Open(cfg.SQLitePath + "?_pragma=busy_timeout(5000)")
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(cfg),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite allows one writer; a single connection turns lock contention into queueing
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established (driver=%s, max open connections=%d)", cfg.Driver, cfg.MaxOpenConns)
	return db, nil
}

// Migrate applies the embedded SQL migrations on postgres and AutoMigrate on sqlite.
// It returns the number of migrations applied.
func Migrate(ctx context.Context, db *gorm.DB, cfg config.DatabaseConfig) (int, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return migrations.Apply(ctx, cfg.DSN())
	case DriverSQLite:
		if err := db.WithContext(ctx).AutoMigrate(&models.QRCode{}, &models.Scan{}); err != nil {
			return 0, fmt.Errorf("failed to auto-migrate: %w", err)
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Close releases the pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newGormLogger(cfg config.DatabaseConfig) logger.Interface {
	level := logger.Error
	threshold := 200 * time.Millisecond
	if cfg.SlowQueryLog {
		level = logger.Warn
		if cfg.SlowQueryTime > 0 {
			threshold = cfg.SlowQueryTime
		}
	}
	return logger.New(log.New(log.Writer(), "", log.LstdFlags), logger.Config{
		SlowThreshold:             threshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}
