package handlers

import (
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/dto"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/identity"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SubscriptionHandler struct {
	subscriptions *services.SubscriptionService
	breakdown     *services.BreakdownService
}

func NewSubscriptionHandler(subscriptions *services.SubscriptionService, breakdown *services.BreakdownService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, breakdown: breakdown}
}

func (h *SubscriptionHandler) Create(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.CreateSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	sub, err := h.subscriptions.Create(c.UserContext(), userID, req)
	if err != nil {
		return serviceError(c, err, "Failed to create subscription")
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

func (h *SubscriptionHandler) List(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	subs, err := h.subscriptions.ListActive(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, err, "Failed to fetch subscriptions")
	}
	return c.JSON(fiber.Map{"subscriptions": subs})
}

func (h *SubscriptionHandler) Breakdown(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	resp, err := h.breakdown.Breakdown(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, err, "Failed to compute breakdown")
	}
	return c.JSON(resp)
}

func (h *SubscriptionHandler) Get(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid subscription ID")
	}

	sub, err := h.subscriptions.Get(c.UserContext(), userID, id)
	if err != nil {
		return serviceError(c, err, "Failed to fetch subscription")
	}
	return c.JSON(sub)
}

func (h *SubscriptionHandler) Update(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid subscription ID")
	}

	var req dto.UpdateSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	sub, err := h.subscriptions.Update(c.UserContext(), userID, id, req)
	if err != nil {
		return serviceError(c, err, "Failed to update subscription")
	}
	return c.JSON(sub)
}

func (h *SubscriptionHandler) Remove(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid subscription ID")
	}

	resp, err := h.subscriptions.Remove(c.UserContext(), userID, id)
	if err != nil {
		return serviceError(c, err, "Failed to remove subscription")
	}
	return c.JSON(resp)
}

// Cancel accepts subscription ids, or transaction ids of their projections.
func (h *SubscriptionHandler) Cancel(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.IDsRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	result, err := h.subscriptions.Cancel(c.UserContext(), userID, req.IDs)
	if err != nil {
		return serviceError(c, err, "Failed to cancel subscriptions")
	}
	return c.JSON(result)
}

func (h *SubscriptionHandler) Confirm(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	result, err := h.subscriptions.Confirm(c.UserContext(), userID, req.TransactionIDs)
	if err != nil {
		return serviceError(c, err, "Failed to confirm renewals")
	}
	return c.JSON(result)
}
