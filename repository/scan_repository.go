package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/qrtrack/models"
	"gorm.io/gorm"
)

// ScanRepositoryImpl implements ScanRepository
type ScanRepositoryImpl struct {
	*BaseRepository[models.Scan, models.ScanFilter]
}

func NewScanRepository(db *gorm.DB) ScanRepository {
	return &ScanRepositoryImpl{BaseRepository: NewBaseRepository[models.Scan, models.ScanFilter](db)}
}

var breakdownColumns = map[string]struct{}{
	models.BreakdownBrowser:    {},
	models.BreakdownOS:         {},
	models.BreakdownDeviceType: {},
	models.BreakdownCountry:    {},
	models.BreakdownCity:       {},
}

func (r *ScanRepositoryImpl) applyFilter(db *gorm.DB, f models.ScanFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.QRCodeID != nil {
		db = db.Where("qr_code_id = ?", *f.QRCodeID)
	}
	if f.ScannedAfter != nil {
		db = db.Where("scan_time >= ?", *f.ScannedAfter)
	}
	if f.ScannedBefore != nil {
		db = db.Where("scan_time < ?", *f.ScannedBefore)
	}
	return db
}

func (r *ScanRepositoryImpl) ByFilter(ctx context.Context, filter models.ScanFilter, orderBy string, limit, offset int) ([]*models.Scan, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Scan{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Scan
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScanRepositoryImpl) Count(ctx context.Context, filter models.ScanFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Scan{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ScanRepositoryImpl) Exists(ctx context.Context, filter models.ScanFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func (r *ScanRepositoryImpl) DeleteByQRCodeID(ctx context.Context, qrCodeID uint) (int64, error) {
	db := r.getDB(ctx)
	res := db.Where("qr_code_id = ?", qrCodeID).Delete(&models.Scan{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// Breakdown groups the scans of one code by a whitelisted column, skipping empty values
func (r *ScanRepositoryImpl) Breakdown(ctx context.Context, qrCodeID uint, column string) ([]models.BreakdownRow, error) {
	if _, ok := breakdownColumns[column]; !ok {
		return nil, fmt.Errorf("unsupported breakdown column %q", column)
	}
	db := r.getDB(ctx)
	var rows []models.BreakdownRow
	err := db.Model(&models.Scan{}).
		Select(column+" AS label, COUNT(*) AS count").
		Where("qr_code_id = ?", qrCodeID).
		Where(column + " <> ''").
		Group(column).
		Order("count DESC, label ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScanRepositoryImpl) ScanTimes(ctx context.Context, qrCodeID uint) ([]time.Time, error) {
	db := r.getDB(ctx)
	var times []time.Time
	err := db.Model(&models.Scan{}).
		Where("qr_code_id = ?", qrCodeID).
		Order("scan_time ASC").
		Pluck("scan_time", &times).Error
	if err != nil {
		return nil, err
	}
	return times, nil
}

// CountOrphans counts scans whose QR code no longer exists
func (r *ScanRepositoryImpl) CountOrphans(ctx context.Context) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Table("scans AS s").
		Joins("LEFT JOIN qr_codes AS q ON q.id = s.qr_code_id").
		Where("q.id IS NULL").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
