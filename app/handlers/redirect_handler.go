package handlers

import (
	"log"

	businessflow "github.com/amirphl/qrtrack/business_flow"
	"github.com/amirphl/qrtrack/utils"
	"github.com/gofiber/fiber/v3"
)

// RedirectHandlerInterface serves the scan endpoint encoded in every QR code
type RedirectHandlerInterface interface {
	Redirect(c fiber.Ctx) error
}

type RedirectHandler struct {
	flow businessflow.ScanFlow
}

func NewRedirectHandler(flow businessflow.ScanFlow) RedirectHandlerInterface {
	return &RedirectHandler{flow: flow}
}

// Redirect records a scan and sends the client to the destination
// @Summary Scan QR Code
// @Tags Redirect
// @Param code path string true "Short code"
// @Success 302 {string} string "Redirect"
// @Failure 404 {string} string "not found"
// @Failure 503 {string} string "unavailable"
// @Router /r/{code} [get]
func (h *RedirectHandler) Redirect(c fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).SendString("invalid short code")
	}

	metadata := businessflow.NewClientMetadata(clientIP(c), c.Get(fiber.HeaderUserAgent))
	metadata.Referrer = c.Get(fiber.HeaderReferer)
	metadata.AcceptLanguage = c.Get(fiber.HeaderAcceptLanguage)

	ctx, cancel := createRequestContextWithTimeout(c, utils.RedirectPathPrefix+code, utils.RedirectRequestTimeout)
	defer cancel()

	destination, err := h.flow.Scan(ctx, code, metadata)
	if err != nil {
		switch {
		case businessflow.IsQRCodeNotFound(err):
			return c.Status(fiber.StatusNotFound).SendString("not found")
		case businessflow.IsValidationError(err):
			return c.Status(fiber.StatusBadRequest).SendString("invalid short code")
		case businessflow.IsTransientStore(err):
			log.Println("Redirect lookup failed", err)
			return c.Status(fiber.StatusServiceUnavailable).SendString("temporarily unavailable")
		}
		log.Println("Redirect failed", err)
		return c.Status(fiber.StatusInternalServerError).SendString("internal error")
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Redirect().Status(fiber.StatusFound).To(destination)
}
