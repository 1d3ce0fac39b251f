package wallets

import (
	"strconv"

	penaltysvc "sunvolt-backend/internal/application/penalty"
	walletsvc "sunvolt-backend/internal/application/wallet"
	"sunvolt-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service   *walletsvc.Service
	Penalties *penaltysvc.Service
}

// GET /api/v1/wallets/:contractor_id/balance
func (h *Handlers) GetBalance(c *fiber.Ctx) error {
	contractorID, err := uuid.Parse(c.Params("contractor_id"))
	if err != nil {
		return response.Error(c, "Invalid contractor_id format", fiber.StatusBadRequest, nil)
	}
	wallet, err := h.Service.GetBalance(c.Context(), contractorID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Wallet balance fetched", wallet, nil)
}

// GET /api/v1/wallets/:contractor_id/transactions?page=&page_size=
func (h *Handlers) GetTransactions(c *fiber.Ctx) error {
	contractorID, err := uuid.Parse(c.Params("contractor_id"))
	if err != nil {
		return response.Error(c, "Invalid contractor_id format", fiber.StatusBadRequest, nil)
	}
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))

	txs, total, err := h.Service.GetHistory(c.Context(), contractorID, page, pageSize)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Transactions fetched", txs, fiber.Map{
		"page":      page,
		"page_size": pageSize,
		"total":     total,
	})
}

// GET /api/v1/wallets/:contractor_id/penalties — pending penalty debt
func (h *Handlers) GetPendingPenalties(c *fiber.Ctx) error {
	contractorID, err := uuid.Parse(c.Params("contractor_id"))
	if err != nil {
		return response.Error(c, "Invalid contractor_id format", fiber.StatusBadRequest, nil)
	}
	instances, err := h.Penalties.GetPendingPenalties(c.Context(), contractorID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Pending penalties fetched", instances, nil)
}

// PATCH /api/v1/wallets/:contractor_id/suspend
func (h *Handlers) Suspend(c *fiber.Ctx) error {
	contractorID, err := uuid.Parse(c.Params("contractor_id"))
	if err != nil {
		return response.Error(c, "Invalid contractor_id format", fiber.StatusBadRequest, nil)
	}
	var body struct {
		Suspended *bool `json:"suspended"`
	}
	if err := c.BodyParser(&body); err != nil || body.Suspended == nil {
		return response.Error(c, "suspended is required", fiber.StatusBadRequest, nil)
	}
	wallet, err := h.Service.Suspend(c.Context(), contractorID, *body.Suspended)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Wallet suspension updated", wallet, nil)
}
