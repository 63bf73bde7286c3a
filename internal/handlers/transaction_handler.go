package handlers

import (
	"strconv"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/dto"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/identity"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/services"
	"github.com/gofiber/fiber/v2"
)

type TransactionHandler struct {
	transactions *services.TransactionService
}

func NewTransactionHandler(transactions *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

func (h *TransactionHandler) Details(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.IDsRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	details, err := h.transactions.Details(c.UserContext(), userID, req.IDs)
	if err != nil {
		return serviceError(c, err, "Failed to fetch transactions")
	}
	return c.JSON(fiber.Map{"transactions": details})
}

func (h *TransactionHandler) Create(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.CreateTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	txn, err := h.transactions.Create(c.UserContext(), userID, req)
	if err != nil {
		return serviceError(c, err, "Failed to create transaction")
	}
	return c.Status(fiber.StatusCreated).JSON(txn)
}

// List supports ?projected=true|false, ?limit (max 100) and ?offset.
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var projected *bool
	if raw := c.Query("projected"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "projected must be true or false")
		}
		projected = &v
	}

	txns, total, err := h.transactions.List(c.UserContext(), userID, projected, limit, offset)
	if err != nil {
		return serviceError(c, err, "Failed to fetch transactions")
	}
	return c.JSON(dto.TransactionListResponse{
		Transactions: txns,
		Total:        total,
		Limit:        limit,
		Offset:       offset,
	})
}
