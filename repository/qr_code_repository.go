package repository

import (
	"context"
	"errors"

	"github.com/amirphl/qrtrack/models"
	"gorm.io/gorm"
)

// QRCodeRepositoryImpl implements QRCodeRepository
type QRCodeRepositoryImpl struct {
	*BaseRepository[models.QRCode, models.QRCodeFilter]
}

func NewQRCodeRepository(db *gorm.DB) QRCodeRepository {
	return &QRCodeRepositoryImpl{BaseRepository: NewBaseRepository[models.QRCode, models.QRCodeFilter](db)}
}

func (r *QRCodeRepositoryImpl) ByShortCode(ctx context.Context, shortCode string) (*models.QRCode, error) {
	db := r.getDB(ctx)
	var row models.QRCode
	if err := db.Where("short_code = ?", shortCode).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *QRCodeRepositoryImpl) applyFilter(db *gorm.DB, f models.QRCodeFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.ShortCode != nil {
		db = db.Where("short_code = ?", *f.ShortCode)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *QRCodeRepositoryImpl) ByFilter(ctx context.Context, filter models.QRCodeFilter, orderBy string, limit, offset int) ([]*models.QRCode, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.QRCode{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.QRCode
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *QRCodeRepositoryImpl) Count(ctx context.Context, filter models.QRCodeFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.QRCode{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *QRCodeRepositoryImpl) Exists(ctx context.Context, filter models.QRCodeFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func (r *QRCodeRepositoryImpl) UpdateDestination(ctx context.Context, id uint, originalURL, title, description string) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.QRCode{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"original_url": originalURL,
			"title":        title,
			"description":  description,
			"updated_at":   gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *QRCodeRepositoryImpl) DeleteByID(ctx context.Context, id uint) (bool, error) {
	db := r.getDB(ctx)
	res := db.Where("id = ?", id).Delete(&models.QRCode{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *QRCodeRepositoryImpl) IncrementTotalScans(ctx context.Context, id uint) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.QRCode{}).
		Where("id = ?", id).
		UpdateColumn("total_scans", gorm.Expr("total_scans + ?", 1))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *QRCodeRepositoryImpl) SetTotalScans(ctx context.Context, id uint, value int64) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.QRCode{}).
		Where("id = ?", id).
		UpdateColumn("total_scans", value)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DriftRecords uses a LEFT JOIN so codes without scans still appear with a zero count
func (r *QRCodeRepositoryImpl) DriftRecords(ctx context.Context, shortCode *string) ([]*models.DriftRecord, error) {
	db := r.getDB(ctx)
	query := db.Table("qr_codes AS q").
		Select("q.id AS qr_code_id, q.short_code AS short_code, q.total_scans AS cached_count, COUNT(s.id) AS authoritative_count").
		Joins("LEFT JOIN scans AS s ON s.qr_code_id = q.id")
	if shortCode != nil {
		query = query.Where("q.short_code = ?", *shortCode)
	}
	var rows []*models.DriftRecord
	if err := query.Group("q.id, q.short_code, q.total_scans").Order("q.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		row.ComputeDifference()
	}
	return rows, nil
}
