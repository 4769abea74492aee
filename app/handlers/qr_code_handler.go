package handlers

import (
	"github.com/amirphl/qrtrack/app/dto"
	businessflow "github.com/amirphl/qrtrack/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// QRCodeHandlerInterface defines the QR code management endpoints
type QRCodeHandlerInterface interface {
	Create(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
}

type QRCodeHandler struct {
	flow      businessflow.QRCodeFlow
	baseURL   string
	validator *validator.Validate
}

func NewQRCodeHandler(flow businessflow.QRCodeFlow, baseURL string) QRCodeHandlerInterface {
	return &QRCodeHandler{
		flow:      flow,
		baseURL:   baseURL,
		validator: validator.New(),
	}
}

// Create registers a destination and returns its short URL and QR image
// @Summary Create QR Code
// @Tags QR Codes
// @Accept json
// @Produce json
// @Param request body dto.CreateQRCodeRequest true "Destination"
// @Success 201 {object} dto.APIResponse{data=dto.CreateQRCodeResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Failure 503 {object} dto.APIResponse
// @Router /api/v1/qr [post]
func (h *QRCodeHandler) Create(c fiber.Ctx) error {
	var req dto.CreateQRCodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/qr")
	defer cancel()

	res, err := h.flow.Create(ctx, &req, publicBaseURL(c, h.baseURL))
	if err != nil {
		return flowErrorResponse(c, err, "Create QR code", "CREATE_QR_CODE_FAILED")
	}
	return c.Status(fiber.StatusCreated).JSON(dto.APIResponse{Success: true, Message: "QR code created", Data: res})
}

// List returns QR codes, newest first
// @Summary List QR Codes
// @Tags QR Codes
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Param created_after query string false "Created at or after, RFC3339 or YYYY-MM-DD"
// @Param created_before query string false "Created before, RFC3339 or YYYY-MM-DD"
// @Success 200 {object} dto.APIResponse{data=dto.ListQRCodesResponse}
// @Failure 400 {object} dto.APIResponse
// @Router /api/v1/qr [get]
func (h *QRCodeHandler) List(c fiber.Ctx) error {
	var req dto.ListQRCodesRequest
	if err := c.Bind().Query(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := createRequestContext(c, "/api/v1/qr")
	defer cancel()

	res, err := h.flow.List(ctx, &req, publicBaseURL(c, h.baseURL))
	if err != nil {
		return flowErrorResponse(c, err, "List QR codes", "LIST_QR_CODES_FAILED")
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "QR codes retrieved", Data: res})
}

// Get returns one QR code
// @Summary Get QR Code
// @Tags QR Codes
// @Produce json
// @Param code path string true "Short code"
// @Success 200 {object} dto.APIResponse{data=dto.QRCodeResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/qr/{code} [get]
func (h *QRCodeHandler) Get(c fiber.Ctx) error {
	code := c.Params("code")
	ctx, cancel := createRequestContext(c, "/api/v1/qr/"+code)
	defer cancel()

	res, err := h.flow.Get(ctx, code, publicBaseURL(c, h.baseURL))
	if err != nil {
		return flowErrorResponse(c, err, "Get QR code", "GET_QR_CODE_FAILED")
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "QR code retrieved", Data: res})
}

// Update changes the destination, title and description. The short code never changes.
// @Summary Update QR Code
// @Tags QR Codes
// @Accept json
// @Produce json
// @Param code path string true "Short code"
// @Param request body dto.UpdateQRCodeRequest true "New destination"
// @Success 200 {object} dto.APIResponse{data=dto.QRCodeResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/qr/{code} [put]
func (h *QRCodeHandler) Update(c fiber.Ctx) error {
	var req dto.UpdateQRCodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	code := c.Params("code")
	ctx, cancel := createRequestContext(c, "/api/v1/qr/"+code)
	defer cancel()

	res, err := h.flow.Update(ctx, code, &req, publicBaseURL(c, h.baseURL))
	if err != nil {
		return flowErrorResponse(c, err, "Update QR code", "UPDATE_QR_CODE_FAILED")
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "QR code updated", Data: res})
}

// Delete removes a QR code together with its scans
// @Summary Delete QR Code
// @Tags QR Codes
// @Produce json
// @Param code path string true "Short code"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteQRCodeResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/qr/{code} [delete]
func (h *QRCodeHandler) Delete(c fiber.Ctx) error {
	code := c.Params("code")
	ctx, cancel := createRequestContext(c, "/api/v1/qr/"+code)
	defer cancel()

	res, err := h.flow.Delete(ctx, code)
	if err != nil {
		return flowErrorResponse(c, err, "Delete QR code", "DELETE_QR_CODE_FAILED")
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "QR code deleted", Data: res})
}
