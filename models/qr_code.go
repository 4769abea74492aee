// Package models contains the persistence entities and derived records of the scan tracker
package models

import "time"

// QRCode is one shortened link. TotalScans is a cached counter of its scans;
// the scans table stays the source of truth.
type QRCode struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ShortCode   string    `gorm:"size:32;not null;uniqueIndex:uk_qr_codes_short_code" json:"short_code"`
	OriginalURL string    `gorm:"type:text;not null" json:"original_url"`
	Title       string    `gorm:"size:255;not null;default:''" json:"title"`
	Description string    `gorm:"type:text;not null;default:''" json:"description"`
	TotalScans  int64     `gorm:"not null;default:0" json:"total_scans"`
	CreatedAt   time.Time `gorm:"index:idx_qr_codes_created_at" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the table name for QRCode
func (QRCode) TableName() string { return "qr_codes" }

// QRCodeFilter provides filter fields for repository queries
type QRCodeFilter struct {
	ID            *uint
	ShortCode     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
