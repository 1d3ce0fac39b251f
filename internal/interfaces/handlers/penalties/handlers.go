package penalties

import (
	penaltysvc "sunvolt-backend/internal/application/penalty"
	"sunvolt-backend/internal/domain"
	"sunvolt-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *penaltysvc.Service
}

// POST /api/v1/penalties/:instance_id/dispute
func (h *Handlers) Dispute(c *fiber.Ctx) error {
	instanceID, err := uuid.Parse(c.Params("instance_id"))
	if err != nil {
		return response.Error(c, "Invalid instance_id format", fiber.StatusBadRequest, nil)
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil || body.Reason == "" {
		return response.Error(c, "reason is required", fiber.StatusBadRequest, nil)
	}

	instance, err := h.Service.Dispute(c.Context(), instanceID, body.Reason)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Penalty disputed", instance, nil)
}

// PATCH /api/v1/penalties/:instance_id/resolve — outcome "waived" or "reversed"
func (h *Handlers) Resolve(c *fiber.Ctx) error {
	instanceID, err := uuid.Parse(c.Params("instance_id"))
	if err != nil {
		return response.Error(c, "Invalid instance_id format", fiber.StatusBadRequest, nil)
	}
	var body struct {
		Outcome string `json:"outcome"`
	}
	if err := c.BodyParser(&body); err != nil || body.Outcome == "" {
		return response.Error(c, "outcome is required", fiber.StatusBadRequest, nil)
	}

	instance, err := h.Service.Resolve(c.Context(), instanceID, domain.PenaltyStatus(body.Outcome))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Penalty resolved", instance, nil)
}

// POST /api/v1/penalties/:instance_id/collect — retry a pending penalty debit
func (h *Handlers) Collect(c *fiber.Ctx) error {
	instanceID, err := uuid.Parse(c.Params("instance_id"))
	if err != nil {
		return response.Error(c, "Invalid instance_id format", fiber.StatusBadRequest, nil)
	}
	instance, err := h.Service.Collect(c.Context(), instanceID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Penalty collection attempted", instance, nil)
}
