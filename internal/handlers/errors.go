package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/dto"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/services"
	"github.com/gofiber/fiber/v2"
)

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

// serviceError maps service sentinels to HTTP statuses. Anything unknown is
// logged and reported as fallback without details.
func serviceError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrSubscriptionNotFound), errors.Is(err, services.ErrTransactionNotFound):
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrQuotaExceeded):
		return errorJSON(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNameRequired),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidBillingCycle),
		errors.Is(err, services.ErrInvalidDate),
		errors.Is(err, services.ErrInvalidAlertDays),
		errors.Is(err, services.ErrNoIDs):
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrSweepInProgress):
		return errorJSON(c, fiber.StatusConflict, err.Error())
	}

	slog.Error(fallback,
		"request_id", requestID(c),
		"method", c.Method(),
		"path", c.Path(),
		"error", err,
	)
	return errorJSON(c, fiber.StatusInternalServerError, fallback)
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}
