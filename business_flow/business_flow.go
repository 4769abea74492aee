// Package businessflow contains the business logic for the application.
package businessflow

import (
	"strings"
	"time"

	"github.com/amirphl/qrtrack/app/dto"
	"github.com/amirphl/qrtrack/models"
	"github.com/amirphl/qrtrack/utils"
)

// ClientMetadata holds what the redirect request tells about the scanner
type ClientMetadata struct {
	IPAddress      string `json:"ip_address"`
	UserAgent      string `json:"user_agent"`
	Referrer       string `json:"referrer,omitempty"`
	AcceptLanguage string `json:"accept_language,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToQRCodeResponse converts a QR code model to its API shape. baseURL prefixes the short URL.
func ToQRCodeResponse(qr models.QRCode, baseURL string) dto.QRCodeResponse {
	return dto.QRCodeResponse{
		ID:          qr.ID,
		ShortCode:   qr.ShortCode,
		ShortURL:    ShortURL(baseURL, qr.ShortCode),
		OriginalURL: qr.OriginalURL,
		Title:       qr.Title,
		Description: qr.Description,
		TotalScans:  qr.TotalScans,
		CreatedAt:   qr.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   qr.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// ShortURL joins the public base and the redirect path of a code
func ShortURL(baseURL, shortCode string) string {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return baseURL + utils.RedirectPathPrefix + shortCode
}

// parseTimeRange reads optional RFC3339 or YYYY-MM-DD bounds. Dates are midnight UTC.
func parseTimeRange(from, to string) (*time.Time, *time.Time, error) {
	start, err := parseTimeBound(from)
	if err != nil {
		return nil, nil, err
	}
	end, err := parseTimeBound(to)
	if err != nil {
		return nil, nil, err
	}
	if start != nil && end != nil && !start.Before(*end) {
		return nil, nil, ErrInvalidTimeRange
	}
	return start, end, nil
}

func parseTimeBound(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, ErrInvalidTimeRange
}

func ToScanResponse(scan models.Scan) dto.ScanResponse {
	return dto.ScanResponse{
		ID:             scan.ID,
		ScanTime:       scan.ScanTime.UTC().Format(time.RFC3339),
		IPAddress:      scan.IPAddress,
		UserAgent:      scan.UserAgent,
		Browser:        scan.Browser,
		BrowserVersion: scan.BrowserVersion,
		OS:             scan.OS,
		OSVersion:      scan.OSVersion,
		DeviceType:     scan.DeviceType,
		DeviceVendor:   scan.DeviceVendor,
		DeviceModel:    scan.DeviceModel,
		Country:        scan.Country,
		Region:         scan.Region,
		City:           scan.City,
		Latitude:       scan.Latitude,
		Longitude:      scan.Longitude,
		Timezone:       scan.Timezone,
		Referrer:       scan.Referrer,
		Language:       scan.Language,
	}
}

func ToDriftRecordResponse(r models.DriftRecord) dto.DriftRecordResponse {
	return dto.DriftRecordResponse{
		QRCodeID:           r.QRCodeID,
		ShortCode:          r.ShortCode,
		CachedCount:        r.CachedCount,
		AuthoritativeCount: r.AuthoritativeCount,
		Difference:         r.Difference,
	}
}
