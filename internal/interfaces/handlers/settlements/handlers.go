package settlements

import (
	settlementsvc "sunvolt-backend/internal/application/settlement"
	"sunvolt-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *settlementsvc.Service
}

// POST /api/v1/settlements/quotes/:quote_id — credit the contractor for an
// accepted quote. Safe to retry; replays return the original transaction.
func (h *Handlers) SettleQuote(c *fiber.Ctx) error {
	quoteID, err := uuid.Parse(c.Params("quote_id"))
	if err != nil {
		return response.Error(c, "Invalid quote_id format", fiber.StatusBadRequest, nil)
	}
	result, err := h.Service.SettleAcceptedQuote(c.Context(), quoteID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Quote settled", result, nil)
}
