package businessflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/amirphl/qrtrack/app/dto"
	"github.com/amirphl/qrtrack/logging"
	"github.com/amirphl/qrtrack/models"
	"github.com/amirphl/qrtrack/repository"
	"github.com/amirphl/qrtrack/utils"
)

// DriftQuery selects what the detector compares. A nil ShortCode means every code.
type DriftQuery struct {
	ShortCode *string
}

// DriftFlow compares cached counters with the scans table. It never writes.
type DriftFlow interface {
	Detect(ctx context.Context, query DriftQuery) (*dto.DriftReportResponse, error)
}

type DriftFlowImpl struct {
	qrRepo   repository.QRCodeRepository
	scanRepo repository.ScanRepository
}

func NewDriftFlow(qrRepo repository.QRCodeRepository, scanRepo repository.ScanRepository) DriftFlow {
	return &DriftFlowImpl{qrRepo: qrRepo, scanRepo: scanRepo}
}

// driftSnapshot is one detection pass before conversion to the API shape
type driftSnapshot struct {
	records  []*models.DriftRecord
	totals   dto.DriftTotals
	warnings []dto.IntegrityWarning
}

func (f *DriftFlowImpl) Detect(ctx context.Context, query DriftQuery) (*dto.DriftReportResponse, error) {
	snap, err := f.snapshot(ctx, query)
	if err != nil {
		return nil, err
	}

	records := make([]dto.DriftRecordResponse, 0, len(snap.records))
	for _, r := range snap.records {
		records = append(records, ToDriftRecordResponse(*r))
	}

	return &dto.DriftReportResponse{
		GeneratedAt: utils.UTCNowRFC3339(),
		Records:     records,
		Totals:      snap.totals,
		Warnings:    snap.warnings,
	}, nil
}

func (f *DriftFlowImpl) snapshot(ctx context.Context, query DriftQuery) (*driftSnapshot, error) {
	var shortCode *string
	if query.ShortCode != nil {
		code := strings.TrimSpace(*query.ShortCode)
		if code == "" {
			return nil, ErrShortCodeRequired
		}
		row, err := f.qrRepo.ByShortCode(ctx, code)
		if err != nil {
			return nil, newStoreError("DRIFT_DETECTION_FAILED", "Failed to lookup QR code", err)
		}
		if row == nil {
			return nil, ErrQRCodeNotFound
		}
		shortCode = &code
	}

	records, err := f.qrRepo.DriftRecords(ctx, shortCode)
	if err != nil {
		return nil, newStoreError("DRIFT_DETECTION_FAILED", "Failed to compare scan counters", err)
	}

	// Orphans belong to no code, so they only make sense for a full pass
	var orphans int64
	if shortCode == nil {
		orphans, err = f.scanRepo.CountOrphans(ctx)
		if err != nil {
			return nil, newStoreError("DRIFT_DETECTION_FAILED", "Failed to count orphan scans", err)
		}
	}

	sortDriftRecords(records)
	snap := &driftSnapshot{
		records: records,
		totals:  summarizeDrift(records, orphans),
	}

	for _, r := range records {
		if !r.Drifted() {
			continue
		}
		snap.warnings = append(snap.warnings, dto.IntegrityWarning{
			Kind:      WarningDriftDetected,
			ShortCode: r.ShortCode,
			Message:   fmt.Sprintf("cached %d, recorded %d, difference %+d", r.CachedCount, r.AuthoritativeCount, r.Difference),
		})
	}
	if orphans > 0 {
		snap.warnings = append(snap.warnings, dto.IntegrityWarning{
			Kind:    WarningOrphanScans,
			Message: fmt.Sprintf("%d scans reference QR codes that no longer exist", orphans),
		})
	}

	if shortCode == nil {
		driftCodes.Set(float64(snap.totals.DriftedCodes))
	}
	if snap.totals.DriftedCodes > 0 {
		logging.Warn(ctx, "scan counter drift detected",
			slog.Int64("drifted_codes", snap.totals.DriftedCodes),
			slog.Int64("under_counted_scans", snap.totals.UnderCountedScans),
			slog.Int64("over_counted_scans", snap.totals.OverCountedScans),
		)
	}

	return snap, nil
}

// sortDriftRecords orders by |difference| descending, then id ascending
func sortDriftRecords(records []*models.DriftRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		ai, aj := records[i].AbsDifference(), records[j].AbsDifference()
		if ai != aj {
			return ai > aj
		}
		return records[i].QRCodeID < records[j].QRCodeID
	})
}

func summarizeDrift(records []*models.DriftRecord, orphans int64) dto.DriftTotals {
	totals := dto.DriftTotals{
		Codes:       int64(len(records)),
		OrphanScans: orphans,
	}
	for _, r := range records {
		totals.CachedScans += r.CachedCount
		totals.AuthoritativeScans += r.AuthoritativeCount
		if r.AuthoritativeCount == 0 {
			totals.ZeroScanCodes++
		}
		switch {
		case r.Difference > 0:
			totals.DriftedCodes++
			totals.UnderCountedCodes++
			totals.UnderCountedScans += r.Difference
		case r.Difference < 0:
			totals.DriftedCodes++
			totals.OverCountedCodes++
			totals.OverCountedScans += -r.Difference
		}
	}
	if totals.CachedScans > 0 {
		pct := float64(totals.AuthoritativeScans-totals.CachedScans) / float64(totals.CachedScans) * 100
		totals.DiscrepancyPercent = &pct
	}
	return totals
}
