package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/database"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/dto"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/plans"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db       *gorm.DB
	registry *plans.Registry
}

func NewHealthHandler(db *gorm.DB, registry *plans.Registry) *HealthHandler {
	return &HealthHandler{db: db, registry: registry}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := database.Ping(h.db); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		PlanCount: h.registry.Len(),
	})
}
