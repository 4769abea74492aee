package businessflow_test

import (
	"strings"
	"testing"
	"time"

	"github.com/amirphl/qrtrack/app/dto"
	"github.com/amirphl/qrtrack/app/services"
	businessflow "github.com/amirphl/qrtrack/business_flow"
	"github.com/amirphl/qrtrack/models"
	"github.com/amirphl/qrtrack/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://qr.example.com/"

func (e *flowEnv) newQRCodeFlow(gen services.ShortCodeGenerator) businessflow.QRCodeFlow {
	if gen == nil {
		gen = services.NewShortCodeGenerator()
	}
	return businessflow.NewQRCodeFlow(e.qrRepo, e.scanRepo, e.db.DB, e.cache, gen, services.NewQRRenderer(utils.QRImageSize), 3)
}

func TestCreateQRCodeValidation(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.newQRCodeFlow(nil)

	tests := []struct {
		name string
		url  string
	}{
		{name: "empty", url: ""},
		{name: "blank", url: "   "},
		{name: "relative", url: "/just/a/path"},
		{name: "no scheme", url: "example.com"},
		{name: "javascript", url: "javascript:alert(1)"},
		{name: "ftp", url: "ftp://files.example.com/a"},
		{name: "missing host", url: "https://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := flow.Create(env.ctx, &dto.CreateQRCodeRequest{URL: tt.url}, testBaseURL)
			assert.True(t, businessflow.IsValidationError(err), "got %v", err)
			assert.Nil(t, resp)
		})
	}

	count, err := env.qrRepo.Count(env.ctx, models.QRCodeFilter{})
	require.NoError(t, err)
	assert.Zero(t, count, "invalid input must not reach the store")
}

func TestCreateQRCode(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.newQRCodeFlow(nil)

	resp, err := flow.Create(env.ctx, &dto.CreateQRCodeRequest{
		URL:   "https://shop.example.com/spring?utm=qr",
		Title: "  Spring sale ",
	}, testBaseURL)
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ShortCode)
	assert.Equal(t, "https://qr.example.com/r/"+resp.ShortCode, resp.ShortURL)
	assert.Equal(t, "Spring sale", resp.Title)
	assert.Equal(t, "", resp.Description)
	assert.Equal(t, int64(0), resp.TotalScans)
	assert.True(t, strings.HasPrefix(resp.QRCodeImage, "data:image/png;base64,"))

	stored, err := env.qrRepo.ByShortCode(env.ctx, resp.ShortCode)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "https://shop.example.com/spring?utm=qr", stored.OriginalURL)
}

func TestCreateQRCodeRetriesOnCollision(t *testing.T) {
	env := newFlowEnv(t)
	env.seedCode(t, "taken1", 0, 0)

	gen := &fixedGenerator{codes: []string{"taken1", "taken1", "fresh1"}}
	resp, err := env.newQRCodeFlow(gen).Create(env.ctx, &dto.CreateQRCodeRequest{URL: "https://example.com"}, testBaseURL)
	require.NoError(t, err)
	assert.Equal(t, "fresh1", resp.ShortCode)
	assert.Equal(t, 3, gen.calls)
}

func TestCreateQRCodeGivesUpAfterRetries(t *testing.T) {
	env := newFlowEnv(t)
	env.seedCode(t, "taken1", 0, 0)

	gen := &fixedGenerator{codes: []string{"taken1"}}
	resp, err := env.newQRCodeFlow(gen).Create(env.ctx, &dto.CreateQRCodeRequest{URL: "https://example.com"}, testBaseURL)
	assert.True(t, businessflow.IsShortCodeConflict(err))
	assert.Nil(t, resp)
	assert.Equal(t, 4, gen.calls, "one attempt plus three retries")
}

func TestListQRCodes(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.newQRCodeFlow(nil)

	base := utils.UTCNow().Add(-time.Hour)
	for i, code := range []string{"list01", "list02", "list03"} {
		require.NoError(t, env.qrRepo.Save(env.ctx, &models.QRCode{
			ShortCode:   code,
			OriginalURL: "https://example.com/" + code,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	resp, err := flow.List(env.ctx, &dto.ListQRCodesRequest{Page: 1, PageSize: 2}, testBaseURL)
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "list03", resp.Items[0].ShortCode)
	assert.Equal(t, "list02", resp.Items[1].ShortCode)
	assert.Equal(t, int64(3), resp.Pagination.TotalItems)
	assert.Equal(t, 2, resp.Pagination.TotalPages)

	resp, err = flow.List(env.ctx, &dto.ListQRCodesRequest{Page: 2, PageSize: 2}, testBaseURL)
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "list01", resp.Items[0].ShortCode)

	resp, err = flow.List(env.ctx, &dto.ListQRCodesRequest{}, testBaseURL)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Pagination.Page)
	assert.Equal(t, 20, resp.Pagination.PageSize)

	_, err = flow.List(env.ctx, &dto.ListQRCodesRequest{Page: -1}, testBaseURL)
	assert.ErrorIs(t, err, businessflow.ErrInvalidPage)
	_, err = flow.List(env.ctx, &dto.ListQRCodesRequest{PageSize: 101}, testBaseURL)
	assert.ErrorIs(t, err, businessflow.ErrInvalidPageSize)
}

func TestListQRCodesCreatedWindow(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.newQRCodeFlow(nil)

	created := map[string]time.Time{
		"win01": time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC),
		"win02": time.Date(2026, 10, 13, 8, 0, 0, 0, time.UTC),
		"win03": time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC),
	}
	for code, at := range created {
		require.NoError(t, env.qrRepo.Save(env.ctx, &models.QRCode{
			ShortCode:   code,
			OriginalURL: "https://example.com/" + code,
			CreatedAt:   at,
		}))
	}

	resp, err := flow.List(env.ctx, &dto.ListQRCodesRequest{CreatedAfter: "2026-10-13", CreatedBefore: "2026-10-14"}, testBaseURL)
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "win02", resp.Items[0].ShortCode)
	assert.Equal(t, int64(1), resp.Pagination.TotalItems)

	resp, err = flow.List(env.ctx, &dto.ListQRCodesRequest{CreatedAfter: "2026-10-13T08:00:00Z"}, testBaseURL)
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "win03", resp.Items[0].ShortCode)
	assert.Equal(t, "win02", resp.Items[1].ShortCode)

	resp, err = flow.List(env.ctx, &dto.ListQRCodesRequest{CreatedBefore: "2026-10-13"}, testBaseURL)
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "win01", resp.Items[0].ShortCode)

	_, err = flow.List(env.ctx, &dto.ListQRCodesRequest{CreatedAfter: "last week"}, testBaseURL)
	assert.ErrorIs(t, err, businessflow.ErrInvalidTimeRange)
	_, err = flow.List(env.ctx, &dto.ListQRCodesRequest{CreatedAfter: "2026-10-14", CreatedBefore: "2026-10-13"}, testBaseURL)
	assert.ErrorIs(t, err, businessflow.ErrInvalidTimeRange)
}

func TestGetAndUpdateQRCode(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.newQRCodeFlow(nil)
	qr := env.seedCode(t, "upd001", 2, 2)

	got, err := flow.Get(env.ctx, "upd001", testBaseURL)
	require.NoError(t, err)
	assert.Equal(t, qr.ID, got.ID)
	assert.Equal(t, int64(2), got.TotalScans)

	_, err = flow.Get(env.ctx, "nope", testBaseURL)
	assert.True(t, businessflow.IsQRCodeNotFound(err))

	_, err = flow.Update(env.ctx, "upd001", &dto.UpdateQRCodeRequest{URL: "not a url"}, testBaseURL)
	assert.True(t, businessflow.IsValidationError(err))

	updated, err := flow.Update(env.ctx, "upd001", &dto.UpdateQRCodeRequest{URL: "https://new.example.com", Title: "New"}, testBaseURL)
	require.NoError(t, err)
	assert.Equal(t, "upd001", updated.ShortCode)
	assert.Equal(t, "https://new.example.com", updated.OriginalURL)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, "", updated.Description)
	assert.Equal(t, int64(2), updated.TotalScans, "update never touches the counter")

	_, err = flow.Update(env.ctx, "nope", &dto.UpdateQRCodeRequest{URL: "https://new.example.com"}, testBaseURL)
	assert.True(t, businessflow.IsQRCodeNotFound(err))
}

func TestUpdateRedirectsToNewDestination(t *testing.T) {
	env := newFlowEnv(t)
	qrFlow := env.newQRCodeFlow(nil)
	scanFlow := env.newScanFlow(t)
	env.seedCode(t, "move01", 0, 0)

	_, err := scanFlow.Scan(env.ctx, "move01", nil)
	require.NoError(t, err)

	_, err = qrFlow.Update(env.ctx, "move01", &dto.UpdateQRCodeRequest{URL: "https://moved.example.com"}, testBaseURL)
	require.NoError(t, err)

	dest, err := scanFlow.Scan(env.ctx, "move01", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://moved.example.com", dest)
}

func TestDeleteQRCodeRemovesScansFirst(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.newQRCodeFlow(nil)
	doomed := env.seedCode(t, "del001", 4, 4)
	kept := env.seedCode(t, "keep01", 3, 3)

	resp, err := flow.Delete(env.ctx, "del001")
	require.NoError(t, err)
	assert.Equal(t, int64(4), resp.DeletedScans)

	row, err := env.qrRepo.ByID(env.ctx, doomed.ID)
	require.NoError(t, err)
	assert.Nil(t, row)
	assert.Equal(t, int64(0), env.countScans(t, doomed.ID))
	assert.Equal(t, int64(3), env.countScans(t, kept.ID))

	orphans, err := env.scanRepo.CountOrphans(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, orphans)

	_, err = flow.Delete(env.ctx, "del001")
	assert.True(t, businessflow.IsQRCodeNotFound(err))

	// A redirect to the deleted code is a miss, not a write
	_, err = env.newScanFlow(t).Scan(env.ctx, "del001", nil)
	assert.True(t, businessflow.IsQRCodeNotFound(err))
}
