package handlers

import (
	"time"

	"github.com/amirphl/qrtrack/app/dto"
	businessflow "github.com/amirphl/qrtrack/business_flow"
	"github.com/gofiber/fiber/v3"
)

// AnalyticsHandlerInterface defines the per-code analytics endpoints
type AnalyticsHandlerInterface interface {
	Stats(c fiber.Ctx) error
	Timeline(c fiber.Ctx) error
	ExportScans(c fiber.Ctx) error
}

type AnalyticsHandler struct {
	flow    businessflow.AnalyticsFlow
	baseURL string
}

func NewAnalyticsHandler(flow businessflow.AnalyticsFlow, baseURL string) AnalyticsHandlerInterface {
	return &AnalyticsHandler{flow: flow, baseURL: baseURL}
}

// Stats returns counters, breakdowns and recent scans of a code
// @Summary QR Code Stats
// @Tags Analytics
// @Produce json
// @Param code path string true "Short code"
// @Param scan_limit query int false "Recent scans to include (default 100, max 1000)"
// @Success 200 {object} dto.APIResponse{data=dto.StatsResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/qr/{code}/stats [get]
func (h *AnalyticsHandler) Stats(c fiber.Ctx) error {
	var req dto.StatsRequest
	if err := c.Bind().Query(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	code := c.Params("code")
	ctx, cancel := createRequestContext(c, "/api/v1/qr/"+code+"/stats")
	defer cancel()

	res, err := h.flow.Stats(ctx, code, &req, publicBaseURL(c, h.baseURL))
	if err != nil {
		return flowErrorResponse(c, err, "Get stats", "GET_STATS_FAILED")
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Stats retrieved", Data: res})
}

// Timeline returns scan counts bucketed by hour, day or week
// @Summary QR Code Timeline
// @Tags Analytics
// @Produce json
// @Param code path string true "Short code"
// @Param period query string false "hours, days or weeks (default days)"
// @Param limit query int false "Number of most recent buckets (default 30, max 1000)"
// @Success 200 {object} dto.APIResponse{data=dto.TimelineResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/qr/{code}/timeline [get]
func (h *AnalyticsHandler) Timeline(c fiber.Ctx) error {
	var req dto.TimelineRequest
	if err := c.Bind().Query(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	code := c.Params("code")
	ctx, cancel := createRequestContext(c, "/api/v1/qr/"+code+"/timeline")
	defer cancel()

	res, err := h.flow.Timeline(ctx, code, &req)
	if err != nil {
		return flowErrorResponse(c, err, "Get timeline", "GET_TIMELINE_FAILED")
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Timeline retrieved", Data: res})
}

// ExportScans streams every scan of a code as an Excel sheet
// @Summary Export Scans
// @Tags Analytics
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param code path string true "Short code"
// @Param from query string false "Earliest scan time, RFC3339 or YYYY-MM-DD"
// @Param to query string false "Scan time upper bound (exclusive), RFC3339 or YYYY-MM-DD"
// @Success 200 {file} file "Excel file"
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/qr/{code}/scans/export [get]
func (h *AnalyticsHandler) ExportScans(c fiber.Ctx) error {
	code := c.Params("code")
	var req dto.ExportScansRequest
	if err := c.Bind().Query(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := createRequestContextWithTimeout(c, "/api/v1/qr/"+code+"/scans/export", time.Minute)
	defer cancel()

	filename, data, err := h.flow.ExportScans(ctx, code, &req)
	if err != nil {
		return flowErrorResponse(c, err, "Export scans", "EXPORT_SCANS_FAILED")
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+filename)
	return c.Send(data)
}
