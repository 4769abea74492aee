package businessflow

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/qrtrack/app/dto"
	"github.com/amirphl/qrtrack/models"
	"github.com/amirphl/qrtrack/repository"
	"github.com/amirphl/qrtrack/utils"
	"github.com/xuri/excelize/v2"
)

// Timeline periods
const (
	PeriodHours = "hours"
	PeriodDays  = "days"
	PeriodWeeks = "weeks"
)

const (
	maxScanLimit     = 1000
	maxTimelineLimit = 1000
	exportSheetName  = "scans"
)

// AnalyticsFlow aggregates the scans of one code
type AnalyticsFlow interface {
	Stats(ctx context.Context, shortCode string, req *dto.StatsRequest, baseURL string) (*dto.StatsResponse, error)
	Timeline(ctx context.Context, shortCode string, req *dto.TimelineRequest) (*dto.TimelineResponse, error)
	ExportScans(ctx context.Context, shortCode string, req *dto.ExportScansRequest) (filename string, data []byte, err error)
}

type AnalyticsFlowImpl struct {
	qrRepo           repository.QRCodeRepository
	scanRepo         repository.ScanRepository
	defaultScanLimit int
	defaultTimeline  int
}

func NewAnalyticsFlow(qrRepo repository.QRCodeRepository, scanRepo repository.ScanRepository, defaultScanLimit, defaultTimeline int) AnalyticsFlow {
	if defaultScanLimit <= 0 || defaultScanLimit > maxScanLimit {
		defaultScanLimit = 100
	}
	if defaultTimeline <= 0 || defaultTimeline > maxTimelineLimit {
		defaultTimeline = 30
	}
	return &AnalyticsFlowImpl{
		qrRepo:           qrRepo,
		scanRepo:         scanRepo,
		defaultScanLimit: defaultScanLimit,
		defaultTimeline:  defaultTimeline,
	}
}

func (f *AnalyticsFlowImpl) lookup(ctx context.Context, shortCode string) (*models.QRCode, error) {
	shortCode = strings.TrimSpace(shortCode)
	if shortCode == "" {
		return nil, ErrShortCodeRequired
	}
	row, err := f.qrRepo.ByShortCode(ctx, shortCode)
	if err != nil {
		return nil, newStoreError("QR_CODE_LOOKUP_FAILED", "Failed to lookup QR code", err)
	}
	if row == nil {
		return nil, ErrQRCodeNotFound
	}
	return row, nil
}

func (f *AnalyticsFlowImpl) Stats(ctx context.Context, shortCode string, req *dto.StatsRequest, baseURL string) (*dto.StatsResponse, error) {
	limit := f.defaultScanLimit
	if req != nil && req.ScanLimit != 0 {
		limit = req.ScanLimit
	}
	if limit < 1 || limit > maxScanLimit {
		return nil, ErrInvalidScanLimit
	}

	qr, err := f.lookup(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	summary := dto.AnalyticsSummary{TotalScans: qr.TotalScans}
	breakdowns := []struct {
		column string
		dst    *[]dto.CountBucket
	}{
		{models.BreakdownBrowser, &summary.Browsers},
		{models.BreakdownOS, &summary.OS},
		{models.BreakdownDeviceType, &summary.Devices},
		{models.BreakdownCountry, &summary.Countries},
		{models.BreakdownCity, &summary.Cities},
	}
	for _, b := range breakdowns {
		rows, err := f.scanRepo.Breakdown(ctx, qr.ID, b.column)
		if err != nil {
			return nil, newStoreError("STATS_FAILED", "Failed to aggregate scans", err)
		}
		*b.dst = toCountBuckets(rows)
	}

	times, err := f.scanRepo.ScanTimes(ctx, qr.ID)
	if err != nil {
		return nil, newStoreError("STATS_FAILED", "Failed to read scan times", err)
	}
	summary.RecordedScans = int64(len(times))
	summary.Hourly = make([]int64, 24)
	daily := make(map[string]int64)
	for _, t := range times {
		t = t.UTC()
		summary.Hourly[t.Hour()]++
		daily[t.Format(time.DateOnly)]++
	}
	summary.Daily = sortedBuckets(daily)

	recent, err := f.scanRepo.ByFilter(ctx, models.ScanFilter{QRCodeID: &qr.ID}, "scan_time DESC, id DESC", limit, 0)
	if err != nil {
		return nil, newStoreError("STATS_FAILED", "Failed to list scans", err)
	}
	scans := make([]dto.ScanResponse, 0, len(recent))
	for _, s := range recent {
		scans = append(scans, ToScanResponse(*s))
	}

	resp := &dto.StatsResponse{
		QRCode:    ToQRCodeResponse(*qr, baseURL),
		Analytics: summary,
		Scans:     scans,
	}
	if summary.TotalScans != summary.RecordedScans {
		resp.Warnings = append(resp.Warnings, dto.IntegrityWarning{
			Kind:      WarningDriftDetected,
			ShortCode: qr.ShortCode,
			Message:   fmt.Sprintf("cached total_scans %d differs from %d recorded scans", summary.TotalScans, summary.RecordedScans),
		})
	}
	return resp, nil
}

func (f *AnalyticsFlowImpl) Timeline(ctx context.Context, shortCode string, req *dto.TimelineRequest) (*dto.TimelineResponse, error) {
	period := PeriodDays
	limit := f.defaultTimeline
	if req != nil {
		if p := strings.ToLower(strings.TrimSpace(req.Period)); p != "" {
			period = p
		}
		if req.Limit != 0 {
			limit = req.Limit
		}
	}
	bucket, err := timelineBucket(period)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > maxTimelineLimit {
		return nil, ErrInvalidTimelineLimit
	}

	qr, err := f.lookup(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	times, err := f.scanRepo.ScanTimes(ctx, qr.ID)
	if err != nil {
		return nil, newStoreError("TIMELINE_FAILED", "Failed to read scan times", err)
	}

	counts := make(map[string]int64)
	for _, t := range times {
		counts[bucket(t.UTC())]++
	}
	all := sortedBuckets(counts)

	points := make([]dto.TimelinePoint, 0, limit)
	start := 0
	if len(all) > limit {
		start = len(all) - limit
	}
	for _, b := range all[start:] {
		points = append(points, dto.TimelinePoint{Period: b.Label, Count: b.Count})
	}

	return &dto.TimelineResponse{
		ShortCode:   qr.ShortCode,
		Period:      period,
		Timeline:    points,
		TotalPoints: len(all),
	}, nil
}

// timelineBucket returns the key function of a period. Keys sort chronologically as strings.
func timelineBucket(period string) (func(time.Time) string, error) {
	switch period {
	case PeriodHours:
		return func(t time.Time) string { return t.Truncate(time.Hour).Format("2006-01-02T15:00:00Z") }, nil
	case PeriodDays:
		return func(t time.Time) string { return t.Format(time.DateOnly) }, nil
	case PeriodWeeks:
		return func(t time.Time) string { return utils.StartOfWeek(t).Format(time.DateOnly) }, nil
	default:
		return nil, ErrInvalidTimelinePeriod
	}
}

func (f *AnalyticsFlowImpl) ExportScans(ctx context.Context, shortCode string, req *dto.ExportScansRequest) (string, []byte, error) {
	if req == nil {
		req = &dto.ExportScansRequest{}
	}
	from, to, err := parseTimeRange(req.From, req.To)
	if err != nil {
		return "", nil, err
	}
	qr, err := f.lookup(ctx, shortCode)
	if err != nil {
		return "", nil, err
	}
	filter := models.ScanFilter{QRCodeID: &qr.ID, ScannedAfter: from, ScannedBefore: to}
	rows, err := f.scanRepo.ByFilter(ctx, filter, "scan_time ASC, id ASC", 0, 0)
	if err != nil {
		return "", nil, newStoreError("EXPORT_FAILED", "Failed to list scans", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), exportSheetName); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to prepare Excel sheet", err)
	}

	header := []any{"id", "scan_time", "ip_address", "browser", "browser_version", "os", "os_version", "device_type", "device_vendor", "device_model", "country", "region", "city", "latitude", "longitude", "timezone", "referrer", "language", "user_agent"}
	if err := xl.SetSheetRow(exportSheetName, "A1", &header); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel header", err)
	}

	for i, s := range rows {
		record := []any{
			s.ID,
			s.ScanTime.UTC().Format(time.RFC3339),
			s.IPAddress,
			s.Browser,
			s.BrowserVersion,
			s.OS,
			s.OSVersion,
			s.DeviceType,
			s.DeviceVendor,
			s.DeviceModel,
			s.Country,
			s.Region,
			s.City,
			formatCoordinate(s.Latitude),
			formatCoordinate(s.Longitude),
			s.Timezone,
			s.Referrer,
			s.Language,
			s.UserAgent,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(exportSheetName, cellRef, &record); err != nil {
			return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel row", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	return fmt.Sprintf("scans_%s.xlsx", qr.ShortCode), buf.Bytes(), nil
}

func formatCoordinate(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 6, 64)
}

func toCountBuckets(rows []models.BreakdownRow) []dto.CountBucket {
	out := make([]dto.CountBucket, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.CountBucket{Label: r.Label, Count: r.Count})
	}
	return out
}

func sortedBuckets(counts map[string]int64) []dto.CountBucket {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]dto.CountBucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, dto.CountBucket{Label: k, Count: counts[k]})
	}
	return out
}
