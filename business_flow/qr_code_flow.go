package businessflow

import (
	"context"
	"log/slog"
	"math"
	"net/url"
	"strings"

	"github.com/amirphl/qrtrack/app/dto"
	"github.com/amirphl/qrtrack/app/services"
	"github.com/amirphl/qrtrack/logging"
	"github.com/amirphl/qrtrack/models"
	"github.com/amirphl/qrtrack/repository"
	"github.com/amirphl/qrtrack/utils"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// QRCodeFlow manages QR codes: create, list, get, update and delete.
// baseURL is the public origin used to build short URLs.
type QRCodeFlow interface {
	Create(ctx context.Context, req *dto.CreateQRCodeRequest, baseURL string) (*dto.CreateQRCodeResponse, error)
	List(ctx context.Context, req *dto.ListQRCodesRequest, baseURL string) (*dto.ListQRCodesResponse, error)
	Get(ctx context.Context, shortCode string, baseURL string) (*dto.QRCodeResponse, error)
	Update(ctx context.Context, shortCode string, req *dto.UpdateQRCodeRequest, baseURL string) (*dto.QRCodeResponse, error)
	Delete(ctx context.Context, shortCode string) (*dto.DeleteQRCodeResponse, error)
}

type QRCodeFlowImpl struct {
	qrRepo    repository.QRCodeRepository
	scanRepo  repository.ScanRepository
	db        *gorm.DB
	cache     DestinationCache
	generator services.ShortCodeGenerator
	renderer  services.QRRenderer
	retries   int
}

func NewQRCodeFlow(
	qrRepo repository.QRCodeRepository,
	scanRepo repository.ScanRepository,
	db *gorm.DB,
	cache DestinationCache,
	generator services.ShortCodeGenerator,
	renderer services.QRRenderer,
	retries int,
) QRCodeFlow {
	if retries < 0 {
		retries = 0
	}
	return &QRCodeFlowImpl{
		qrRepo:    qrRepo,
		scanRepo:  scanRepo,
		db:        db,
		cache:     cache,
		generator: generator,
		renderer:  renderer,
		retries:   retries,
	}
}

// validateDestinationURL accepts absolute http and https URLs only
func validateDestinationURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrDestinationURLRequired
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", ErrInvalidDestinationURL
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return raw, nil
	default:
		return "", ErrInvalidDestinationURL
	}
}

func (f *QRCodeFlowImpl) Create(ctx context.Context, req *dto.CreateQRCodeRequest, baseURL string) (*dto.CreateQRCodeResponse, error) {
	destination, err := validateDestinationURL(req.URL)
	if err != nil {
		return nil, err
	}

	var created *models.QRCode
	for attempt := 0; attempt <= f.retries; attempt++ {
		code, err := f.generator.Generate()
		if err != nil {
			return nil, NewBusinessError("SHORT_CODE_GENERATION_FAILED", "Failed to generate short code", err)
		}

		now := utils.UTCNow()
		qr := &models.QRCode{
			ShortCode:   code,
			OriginalURL: destination,
			Title:       strings.TrimSpace(req.Title),
			Description: strings.TrimSpace(req.Description),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		err = f.qrRepo.Save(ctx, qr)
		if err == nil {
			created = qr
			break
		}
		if repository.IsUniqueViolation(err) {
			logging.Warn(ctx, "short code collision", slog.String("short_code", code), slog.Int("attempt", attempt+1))
			continue
		}
		return nil, newStoreError("QR_CODE_CREATE_FAILED", "Failed to create QR code", err)
	}
	if created == nil {
		return nil, ErrShortCodeConflict
	}

	resp := ToQRCodeResponse(*created, baseURL)
	image, err := f.renderer.RenderDataURL(resp.ShortURL)
	if err != nil {
		return nil, NewBusinessError("QR_RENDER_FAILED", "Failed to render QR code image", err)
	}

	logging.Info(ctx, "qr code created", slog.String("short_code", created.ShortCode))
	return &dto.CreateQRCodeResponse{QRCodeResponse: resp, QRCodeImage: image}, nil
}

func (f *QRCodeFlowImpl) List(ctx context.Context, req *dto.ListQRCodesRequest, baseURL string) (*dto.ListQRCodesResponse, error) {
	page, pageSize := req.Page, req.PageSize
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = defaultPageSize
	}
	if page < 1 {
		return nil, ErrInvalidPage
	}
	if pageSize < 1 || pageSize > maxPageSize {
		return nil, ErrInvalidPageSize
	}

	after, before, err := parseTimeRange(req.CreatedAfter, req.CreatedBefore)
	if err != nil {
		return nil, err
	}
	filter := models.QRCodeFilter{CreatedAfter: after, CreatedBefore: before}

	total, err := f.qrRepo.Count(ctx, filter)
	if err != nil {
		return nil, newStoreError("QR_CODE_LIST_FAILED", "Failed to count QR codes", err)
	}
	rows, err := f.qrRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, newStoreError("QR_CODE_LIST_FAILED", "Failed to list QR codes", err)
	}

	items := make([]dto.QRCodeResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, ToQRCodeResponse(*row, baseURL))
	}

	return &dto.ListQRCodesResponse{
		Items: items,
		Pagination: dto.PaginationInfo{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: total,
			TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
		},
	}, nil
}

func (f *QRCodeFlowImpl) lookup(ctx context.Context, shortCode string) (*models.QRCode, error) {
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

func (f *QRCodeFlowImpl) Get(ctx context.Context, shortCode string, baseURL string) (*dto.QRCodeResponse, error) {
	row, err := f.lookup(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	resp := ToQRCodeResponse(*row, baseURL)
	return &resp, nil
}

// Update rewrites destination, title and description. The short code never changes.
func (f *QRCodeFlowImpl) Update(ctx context.Context, shortCode string, req *dto.UpdateQRCodeRequest, baseURL string) (*dto.QRCodeResponse, error) {
	destination, err := validateDestinationURL(req.URL)
	if err != nil {
		return nil, err
	}
	row, err := f.lookup(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	ok, err := f.qrRepo.UpdateDestination(ctx, row.ID, destination, strings.TrimSpace(req.Title), strings.TrimSpace(req.Description))
	if err != nil {
		return nil, newStoreError("QR_CODE_UPDATE_FAILED", "Failed to update QR code", err)
	}
	if !ok {
		return nil, ErrQRCodeNotFound
	}
	f.cache.Invalidate(ctx, row.ShortCode)

	updated, err := f.lookup(ctx, row.ShortCode)
	if err != nil {
		return nil, err
	}
	resp := ToQRCodeResponse(*updated, baseURL)
	return &resp, nil
}

// Delete removes the scans of a code and then the code, in one transaction
func (f *QRCodeFlowImpl) Delete(ctx context.Context, shortCode string) (*dto.DeleteQRCodeResponse, error) {
	row, err := f.lookup(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	var deletedScans int64
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		n, err := f.scanRepo.DeleteByQRCodeID(txCtx, row.ID)
		if err != nil {
			return err
		}
		ok, err := f.qrRepo.DeleteByID(txCtx, row.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrQRCodeNotFound
		}
		deletedScans = n
		return nil
	})
	if err != nil {
		if IsQRCodeNotFound(err) {
			return nil, err
		}
		return nil, newStoreError("QR_CODE_DELETE_FAILED", "Failed to delete QR code", err)
	}
	f.cache.Invalidate(ctx, row.ShortCode)

	logging.Info(ctx, "qr code deleted", slog.String("short_code", row.ShortCode), slog.Int64("deleted_scans", deletedScans))
	return &dto.DeleteQRCodeResponse{ShortCode: row.ShortCode, DeletedScans: deletedScans}, nil
}
