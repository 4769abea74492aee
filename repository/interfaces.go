// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amirphl/qrtrack/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

// ErrDuplicateKey is returned when an insert hits a unique constraint
var ErrDuplicateKey = errors.New("duplicate key")

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// QRCodeRepository defines operations for QR codes and their cached scan counter
type QRCodeRepository interface {
	Repository[models.QRCode, models.QRCodeFilter]
	ByShortCode(ctx context.Context, shortCode string) (*models.QRCode, error)
	// UpdateDestination rewrites url, title and description. Returns false when no row matched.
	UpdateDestination(ctx context.Context, id uint, originalURL, title, description string) (bool, error)
	DeleteByID(ctx context.Context, id uint) (bool, error)
	// IncrementTotalScans adds one to the counter inside the store. Returns false when no row matched.
	IncrementTotalScans(ctx context.Context, id uint) (bool, error)
	// SetTotalScans overwrites the counter with an absolute value. Returns false when no row matched.
	SetTotalScans(ctx context.Context, id uint, value int64) (bool, error)
	// DriftRecords joins every code (or the one named by shortCode) with its scan count.
	DriftRecords(ctx context.Context, shortCode *string) ([]*models.DriftRecord, error)
}

// ScanRepository defines operations for the append-only scans log
type ScanRepository interface {
	Repository[models.Scan, models.ScanFilter]
	DeleteByQRCodeID(ctx context.Context, qrCodeID uint) (int64, error)
	Breakdown(ctx context.Context, qrCodeID uint, column string) ([]models.BreakdownRow, error)
	ScanTimes(ctx context.Context, qrCodeID uint) ([]time.Time, error)
	CountOrphans(ctx context.Context) (int64, error)
}
