package handlers

import (
	"strings"
	"time"

	"github.com/amirphl/qrtrack/app/dto"
	businessflow "github.com/amirphl/qrtrack/business_flow"
	"github.com/gofiber/fiber/v3"
)

// MaintenanceHandlerInterface exposes the counter consistency tools to admins
type MaintenanceHandlerInterface interface {
	Drift(c fiber.Ctx) error
	Reconcile(c fiber.Ctx) error
}

type MaintenanceHandler struct {
	driftFlow        businessflow.DriftFlow
	reconcileFlow    businessflow.ReconcileFlow
	reconcileTimeout time.Duration
}

func NewMaintenanceHandler(driftFlow businessflow.DriftFlow, reconcileFlow businessflow.ReconcileFlow, reconcileTimeout time.Duration) MaintenanceHandlerInterface {
	if reconcileTimeout <= 0 {
		reconcileTimeout = 5 * time.Minute
	}
	return &MaintenanceHandler{
		driftFlow:        driftFlow,
		reconcileFlow:    reconcileFlow,
		reconcileTimeout: reconcileTimeout,
	}
}

// Drift compares cached scan counters with recorded scans without changing anything
// @Summary Detect Scan Counter Drift
// @Tags Admin Maintenance
// @Produce json
// @Security BearerAuth
// @Param short_code query string false "Limit the report to one code"
// @Success 200 {object} dto.APIResponse{data=dto.DriftReportResponse}
// @Failure 401 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 503 {object} dto.APIResponse
// @Router /api/v1/admin/maintenance/drift [get]
func (h *MaintenanceHandler) Drift(c fiber.Ctx) error {
	var query businessflow.DriftQuery
	if raw, ok := c.Queries()["short_code"]; ok {
		code := strings.TrimSpace(raw)
		query.ShortCode = &code
	}

	ctx, cancel := createRequestContextWithTimeout(c, "/api/v1/admin/maintenance/drift", h.reconcileTimeout)
	defer cancel()

	res, err := h.driftFlow.Detect(ctx, query)
	if err != nil {
		return flowErrorResponse(c, err, "Detect drift", "DRIFT_DETECTION_FAILED")
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Drift report generated", Data: res})
}

// Reconcile rewrites drifted counters from recorded scans in one transaction
// @Summary Reconcile Scan Counters
// @Tags Admin Maintenance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ReconcileRequest false "Set dry_run to only plan the changes"
// @Success 200 {object} dto.APIResponse{data=dto.ReconcileResponse}
// @Failure 401 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Failure 503 {object} dto.APIResponse
// @Router /api/v1/admin/maintenance/reconcile [post]
func (h *MaintenanceHandler) Reconcile(c fiber.Ctx) error {
	var req dto.ReconcileRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}

	ctx, cancel := createRequestContextWithTimeout(c, "/api/v1/admin/maintenance/reconcile", h.reconcileTimeout)
	defer cancel()

	res, err := h.reconcileFlow.Reconcile(ctx, businessflow.ReconcileOptions{DryRun: req.DryRun})
	if err != nil {
		return flowErrorResponse(c, err, "Reconcile", "RECONCILE_FAILED")
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Reconcile " + res.Outcome, Data: res})
}
