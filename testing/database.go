// Package testing provides test utilities and database setup for testing the scan tracker
package testing

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/amirphl/qrtrack/models"
	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB represents a test database instance backed by a throwaway SQLite file
type TestDB struct {
	DB   *gorm.DB
	Name string
	dir  string
}

// SetupTestDB creates a new SQLite database in a temporary directory and migrates the schema
func SetupTestDB() (*TestDB, error) {
	dir, err := os.MkdirTemp("", "qrtrack_test_*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	path := filepath.Join(dir, "qrtrack.db")

	db, err := gorm.Open(gormsqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to open test database %s: %w", path, err)
	}

	// One connection keeps SQLite writers serialized; every repository call inside a
	// transaction goes through the transaction handle.
	sqlDB, err := db.DB()
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.QRCode{}, &models.Scan{}); err != nil {
		sqlDB.Close()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}

	return &TestDB{DB: db, Name: path, dir: dir}, nil
}

// TeardownTestDB closes the connection and removes the database file
func (tdb *TestDB) TeardownTestDB() error {
	if tdb.DB != nil {
		if sqlDB, err := tdb.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return os.RemoveAll(tdb.dir)
}

// ClearAllTables removes all rows while preserving structure
func (tdb *TestDB) ClearAllTables() error {
	for _, table := range []string{"scans", "qr_codes"} {
		if err := tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}
	return nil
}

// TestWithDB sets up a test database, runs the test function and cleans up
func TestWithDB(testFunc func(*TestDB) error) error {
	testDB, err := SetupTestDB()
	if err != nil {
		return fmt.Errorf("failed to setup test database: %w", err)
	}
	defer func() {
		if cleanupErr := testDB.TeardownTestDB(); cleanupErr != nil {
			log.Printf("Warning: failed to cleanup test database: %v", cleanupErr)
		}
	}()

	return testFunc(testDB)
}

// CreateTestContext creates a context for testing
func CreateTestContext() context.Context {
	return context.Background()
}
