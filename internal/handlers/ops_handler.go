package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/config"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/dto"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/services"
	"github.com/gofiber/fiber/v2"
)

// OpsHandler exposes the manual sweep trigger used by operators and tests.
type OpsHandler struct {
	scheduler *services.RenewalScheduler
	cfg       *config.Config
}

func NewOpsHandler(scheduler *services.RenewalScheduler, cfg *config.Config) *OpsHandler {
	return &OpsHandler{scheduler: scheduler, cfg: cfg}
}

// Sweep runs one scheduler pass. now is RFC 3339 and defaults to the current
// time; hour and minute default to the configured delivery hour and 0.
func (h *OpsHandler) Sweep(c *fiber.Ctx) error {
	var req dto.SweepRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
		}
	}

	opts := services.SweepOptions{Now: time.Now(), DeliveryHour: h.cfg.DeliveryHour}
	if req.Now != "" {
		now, err := time.Parse(time.RFC3339, req.Now)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "now must be an RFC 3339 timestamp")
		}
		opts.Now = now
	}
	if req.Hour != nil {
		if *req.Hour < 0 || *req.Hour > 23 {
			return errorJSON(c, fiber.StatusBadRequest, "hour must be between 0 and 23")
		}
		opts.DeliveryHour = *req.Hour
	}
	if req.Minute != nil {
		if *req.Minute < 0 || *req.Minute > 59 {
			return errorJSON(c, fiber.StatusBadRequest, "minute must be between 0 and 59")
		}
		opts.DeliveryMinute = *req.Minute
	}

	report, err := h.scheduler.Sweep(c.UserContext(), opts)
	if err != nil {
		return serviceError(c, err, "Renewal sweep failed")
	}
	return c.JSON(report)
}
