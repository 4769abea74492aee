package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/amirphl/qrtrack/models"
	"github.com/amirphl/qrtrack/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestQRCode inserts a QR code with a zero counter
func (tf *TestFixtures) CreateTestQRCode(shortCode string) (*models.QRCode, error) {
	if shortCode == "" {
		shortCode = fmt.Sprintf("fx%06d", rand.Intn(1000000))
	}
	now := utils.UTCNow()
	qr := &models.QRCode{
		ShortCode:   shortCode,
		OriginalURL: "https://example.com/" + shortCode,
		Title:       "Fixture " + shortCode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tf.DB.DB.Create(qr).Error; err != nil {
		return nil, fmt.Errorf("failed to insert qr code %s: %w", shortCode, err)
	}
	return qr, nil
}

// CreateTestScans inserts n scans for the code without touching its counter
func (tf *TestFixtures) CreateTestScans(qrCodeID uint, n int, at time.Time) error {
	for i := 0; i < n; i++ {
		scan := &models.Scan{
			QRCodeID:   qrCodeID,
			ScanTime:   at.Add(time.Duration(i) * time.Second),
			IPAddress:  "203.0.113.10",
			Browser:    "Chrome",
			OS:         "Windows",
			DeviceType: models.DeviceTypeDesktop,
			Country:    "DE",
			City:       "Berlin",
		}
		if err := tf.DB.DB.Create(scan).Error; err != nil {
			return fmt.Errorf("failed to insert scan %d for qr code %d: %w", i, qrCodeID, err)
		}
	}
	return nil
}

// SetTotalScans forces the cached counter, simulating drift
func (tf *TestFixtures) SetTotalScans(qrCodeID uint, value int64) error {
	return tf.DB.DB.Model(&models.QRCode{}).Where("id = ?", qrCodeID).UpdateColumn("total_scans", value).Error
}

// TotalScans reads the cached counter
func (tf *TestFixtures) TotalScans(qrCodeID uint) (int64, error) {
	var qr models.QRCode
	if err := tf.DB.DB.First(&qr, qrCodeID).Error; err != nil {
		return 0, err
	}
	return qr.TotalScans, nil
}

// CountScans counts scan rows for a code
func (tf *TestFixtures) CountScans(qrCodeID uint) (int64, error) {
	var count int64
	err := tf.DB.DB.Model(&models.Scan{}).Where("qr_code_id = ?", qrCodeID).Count(&count).Error
	return count, err
}
