// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/amirphl/qrtrack/app/dto"
	businessflow "github.com/amirphl/qrtrack/business_flow"
	"github.com/amirphl/qrtrack/logging"
	"github.com/amirphl/qrtrack/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

func validationMessages(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{err.Error()}
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, getValidationErrorMessage(fe))
	}
	return messages
}

func errorResponse(c fiber.Ctx, statusCode int, message, code string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{Success: false, Message: message, Error: dto.ErrorDetail{Code: code, Details: details}})
}

// flowErrorResponse maps business errors onto HTTP statuses. Anything unrecognised is a 500
// carrying the BusinessError code when there is one.
func flowErrorResponse(c fiber.Ctx, err error, action, fallbackCode string) error {
	code := fallbackCode
	var bizErr *businessflow.BusinessError
	if errors.As(err, &bizErr) && bizErr.Code != "" {
		code = bizErr.Code
	}

	switch {
	case businessflow.IsValidationError(err):
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", strings.TrimPrefix(err.Error(), businessflow.ErrValidation.Error()+": "))
	case businessflow.IsQRCodeNotFound(err):
		return errorResponse(c, fiber.StatusNotFound, "QR code not found", "QR_CODE_NOT_FOUND", nil)
	case businessflow.IsShortCodeConflict(err):
		return errorResponse(c, fiber.StatusConflict, "Could not allocate a unique short code", "SHORT_CODE_CONFLICT", nil)
	case businessflow.IsMaintenanceInProgress(err):
		return errorResponse(c, fiber.StatusConflict, "Another maintenance run is in progress", "MAINTENANCE_IN_PROGRESS", nil)
	case businessflow.IsTransientStore(err):
		log.Println(action+" failed:", err)
		return errorResponse(c, fiber.StatusServiceUnavailable, "Storage is temporarily unavailable", code, nil)
	}

	log.Println(action+" failed:", err)
	return errorResponse(c, fiber.StatusInternalServerError, action+" failed", code, nil)
}

// createRequestContext detaches the flow from fasthttp's pooled ctx and bounds it with a timeout
func createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	return createRequestContextWithTimeout(c, endpoint, utils.DefaultRequestTimeout)
}

func createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	reqID := requestid.FromContext(c)
	if reqID == "" {
		reqID = c.Get("X-Request-ID")
	}
	ctx = context.WithValue(ctx, utils.RequestIDKey, reqID)
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = logging.WithAttrs(ctx, slog.String("request_id", reqID), slog.String("endpoint", endpoint))
	return ctx, cancel
}

// publicBaseURL prefers the configured base and falls back to the request's scheme and host
func publicBaseURL(c fiber.Ctx, configured string) string {
	if configured != "" {
		return configured
	}
	return c.BaseURL()
}

// clientIP takes the first X-Forwarded-For entry, else the peer address
func clientIP(c fiber.Ctx) string {
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return c.IP()
}
