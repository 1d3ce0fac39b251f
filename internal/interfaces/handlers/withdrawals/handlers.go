package withdrawals

import (
	withdrawalsvc "sunvolt-backend/internal/application/withdrawal"
	"sunvolt-backend/internal/domain"
	"sunvolt-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *withdrawalsvc.Service
}

// POST /api/v1/withdrawals — 201 with the reserved request
func (h *Handlers) Create(c *fiber.Ctx) error {
	var body struct {
		ContractorID string `json:"contractor_id"`
		Amount       string `json:"amount"`
	}
	if err := c.BodyParser(&body); err != nil || body.ContractorID == "" || body.Amount == "" {
		return response.Error(c, "contractor_id and amount are required", fiber.StatusBadRequest, nil)
	}
	contractorID, err := uuid.Parse(body.ContractorID)
	if err != nil {
		return response.Error(c, "Invalid contractor_id format", fiber.StatusBadRequest, nil)
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		return response.Error(c, "Invalid amount format", fiber.StatusBadRequest, nil)
	}

	request, err := h.Service.Request(c.Context(), contractorID, amount)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Withdrawal requested", request, nil)
}

// PATCH /api/v1/withdrawals/:request_id/finalize
func (h *Handlers) Finalize(c *fiber.Ctx) error {
	requestID, err := uuid.Parse(c.Params("request_id"))
	if err != nil {
		return response.Error(c, "Invalid request_id format", fiber.StatusBadRequest, nil)
	}
	var body struct {
		Outcome string `json:"outcome"`
	}
	if err := c.BodyParser(&body); err != nil || body.Outcome == "" {
		return response.Error(c, "outcome is required", fiber.StatusBadRequest, nil)
	}

	request, err := h.Service.Finalize(c.Context(), requestID, domain.WithdrawalStatus(body.Outcome))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Withdrawal finalized", request, nil)
}

// GET /api/v1/withdrawals/:request_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	requestID, err := uuid.Parse(c.Params("request_id"))
	if err != nil {
		return response.Error(c, "Invalid request_id format", fiber.StatusBadRequest, nil)
	}
	request, err := h.Service.Get(c.Context(), requestID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Withdrawal fetched", request, nil)
}
