package models

import "time"

// Scan is a single redirect event. Rows are append-only.
type Scan struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	QRCodeID       uint      `gorm:"column:qr_code_id;not null;index:idx_scans_qr_code_id" json:"qr_code_id"`
	ScanTime       time.Time `gorm:"not null;index:idx_scans_scan_time" json:"scan_time"`
	IPAddress      string    `gorm:"size:64;not null;default:''" json:"ip_address"`
	UserAgent      string    `gorm:"type:text;not null;default:''" json:"user_agent"`
	Browser        string    `gorm:"size:64;not null;default:''" json:"browser"`
	BrowserVersion string    `gorm:"size:64;not null;default:''" json:"browser_version"`
	OS             string    `gorm:"column:os;size:64;not null;default:''" json:"os"`
	OSVersion      string    `gorm:"column:os_version;size:64;not null;default:''" json:"os_version"`
	DeviceType     string    `gorm:"size:32;not null;default:'desktop'" json:"device_type"`
	DeviceVendor   string    `gorm:"size:64;not null;default:''" json:"device_vendor"`
	DeviceModel    string    `gorm:"size:64;not null;default:''" json:"device_model"`
	Country        string    `gorm:"size:8;not null;default:''" json:"country"`
	Region         string    `gorm:"size:64;not null;default:''" json:"region"`
	City           string    `gorm:"size:128;not null;default:''" json:"city"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	Timezone       string    `gorm:"size:64;not null;default:''" json:"timezone"`
	Referrer       string    `gorm:"type:text;not null;default:''" json:"referrer"`
	Language       string    `gorm:"size:32;not null;default:''" json:"language"`
}

// TableName returns the table name for Scan
func (Scan) TableName() string { return "scans" }

// ScanFilter provides filter fields for repository queries
type ScanFilter struct {
	ID            *uint
	QRCodeID      *uint
	ScannedAfter  *time.Time
	ScannedBefore *time.Time
}

// Device types stored in scans.device_type
const (
	DeviceTypeDesktop = "desktop"
	DeviceTypeMobile  = "mobile"
	DeviceTypeTablet  = "tablet"
	DeviceTypeBot     = "bot"
)

// Breakdown columns accepted by the scan repository
const (
	BreakdownBrowser    = "browser"
	BreakdownOS         = "os"
	BreakdownDeviceType = "device_type"
	BreakdownCountry    = "country"
	BreakdownCity       = "city"
)

// BreakdownRow is one GROUP BY bucket over scans
type BreakdownRow struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}
