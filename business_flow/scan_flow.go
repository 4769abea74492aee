package businessflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/amirphl/qrtrack/app/services"
	"github.com/amirphl/qrtrack/logging"
	"github.com/amirphl/qrtrack/models"
	"github.com/amirphl/qrtrack/repository"
	"github.com/amirphl/qrtrack/utils"
	"gorm.io/gorm"
)

// ScanFlow resolves a short code, records the scan and keeps the cached counter in step.
// Returns the destination to redirect to.
// Public flow, no authentication required.
type ScanFlow interface {
	Scan(ctx context.Context, shortCode string, metadata *ClientMetadata) (string, error)
}

type ScanFlowImpl struct {
	qrRepo     repository.QRCodeRepository
	scanRepo   repository.ScanRepository
	db         *gorm.DB
	cache      DestinationCache
	clientInfo services.ClientInfoService
}

func NewScanFlow(
	qrRepo repository.QRCodeRepository,
	scanRepo repository.ScanRepository,
	db *gorm.DB,
	cache DestinationCache,
	clientInfo services.ClientInfoService,
) ScanFlow {
	return &ScanFlowImpl{
		qrRepo:     qrRepo,
		scanRepo:   scanRepo,
		db:         db,
		cache:      cache,
		clientInfo: clientInfo,
	}
}

func (f *ScanFlowImpl) Scan(ctx context.Context, shortCode string, metadata *ClientMetadata) (string, error) {
	shortCode = strings.TrimSpace(shortCode)
	if shortCode == "" {
		return "", ErrShortCodeRequired
	}

	dest, err := f.cache.Resolve(ctx, shortCode)
	if err != nil {
		return "", newStoreError("QR_CODE_LOOKUP_FAILED", "Failed to lookup QR code", err)
	}
	if dest == nil {
		return "", ErrQRCodeNotFound
	}

	scan := f.buildScan(ctx, dest.QRCodeID, metadata)

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		// Counter first: a code deleted since the lookup matches no row and nothing is written
		ok, err := f.qrRepo.IncrementTotalScans(txCtx, dest.QRCodeID)
		if err != nil {
			return fmt.Errorf("increment total scans: %w", err)
		}
		if !ok {
			return ErrQRCodeNotFound
		}
		if err := f.scanRepo.Save(txCtx, scan); err != nil {
			return fmt.Errorf("insert scan: %w", err)
		}
		return nil
	})

	switch {
	case err == nil:
		scansRecordedTotal.WithLabelValues("recorded").Inc()
	case IsQRCodeNotFound(err):
		scansRecordedTotal.WithLabelValues("not_found").Inc()
		f.cache.Invalidate(ctx, shortCode)
		return "", ErrQRCodeNotFound
	default:
		// Both writes rolled back together; the redirect still proceeds
		scansRecordedTotal.WithLabelValues("failed").Inc()
		logging.Error(ctx, "failed to record scan",
			slog.String("short_code", shortCode),
			slog.Uint64("qr_code_id", uint64(dest.QRCodeID)),
			logging.Err(err),
		)
	}

	return dest.URL, nil
}

// buildScan derives scan attributes. Parser failures leave fields empty.
func (f *ScanFlowImpl) buildScan(ctx context.Context, qrCodeID uint, metadata *ClientMetadata) (scan *models.Scan) {
	scan = &models.Scan{
		QRCodeID:   qrCodeID,
		ScanTime:   utils.UTCNow(),
		DeviceType: models.DeviceTypeDesktop,
	}
	if metadata == nil {
		return scan
	}

	scan.IPAddress = metadata.IPAddress
	scan.UserAgent = metadata.UserAgent
	scan.Referrer = metadata.Referrer
	scan.Language = utils.FirstHeaderValue(metadata.AcceptLanguage)

	if f.clientInfo == nil {
		return scan
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Warn(ctx, "client metadata derivation panicked",
				slog.Any("panic", r),
				slog.String("user_agent", metadata.UserAgent),
			)
		}
	}()

	details := f.clientInfo.ParseUserAgent(metadata.UserAgent)
	scan.Browser = details.Browser
	scan.BrowserVersion = details.BrowserVersion
	scan.OS = details.OS
	scan.OSVersion = details.OSVersion
	if details.DeviceType != "" {
		scan.DeviceType = details.DeviceType
	}
	scan.DeviceVendor = details.DeviceVendor
	scan.DeviceModel = details.DeviceModel

	loc := f.clientInfo.Locate(metadata.IPAddress)
	scan.Country = loc.Country
	scan.Region = loc.Region
	scan.City = loc.City
	scan.Timezone = loc.Timezone
	scan.Latitude = loc.Latitude
	scan.Longitude = loc.Longitude

	return scan
}
