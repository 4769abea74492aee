package handlers

import (
	"context"
	"time"

	"github.com/amirphl/qrtrack/app/dto"
	"github.com/amirphl/qrtrack/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthHandlerInterface reports store connectivity
type HealthHandlerInterface interface {
	Health(c fiber.Ctx) error
}

type HealthHandler struct {
	db      *gorm.DB
	rdb     *redis.Client
	version string
}

// NewHealthHandler builds the health endpoint. rdb may be nil when redis is disabled.
func NewHealthHandler(db *gorm.DB, rdb *redis.Client, version string) HealthHandlerInterface {
	return &HealthHandler{db: db, rdb: rdb, version: version}
}

// Health pings the database and redis
// @Summary Health Check
// @Tags Health
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Failure 503 {object} dto.APIResponse
// @Router /api/v1/health [get]
func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	checks := fiber.Map{}
	healthy := true

	if sqlDB, err := h.db.DB(); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else if err := sqlDB.PingContext(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	// Redis only accelerates lookups, so an outage degrades but does not fail the check
	switch {
	case h.rdb == nil:
		checks["redis"] = "disabled"
	case h.rdb.Ping(ctx).Err() != nil:
		checks["redis"] = "unreachable"
	default:
		checks["redis"] = "ok"
	}

	data := fiber.Map{
		"status":    "ok",
		"timestamp": utils.UTCNow().Unix(),
		"version":   h.version,
		"service":   "qrtrack",
		"checks":    checks,
	}
	if !healthy {
		data["status"] = "unavailable"
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.APIResponse{
			Success: false,
			Message: "Service is unhealthy",
			Data:    data,
			Error:   dto.ErrorDetail{Code: "STORE_UNAVAILABLE"},
		})
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Service is healthy", Data: data})
}
