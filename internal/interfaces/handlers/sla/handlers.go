package sla

import (
	"time"

	slasvc "sunvolt-backend/internal/application/sla"
	"sunvolt-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Detector *slasvc.Detector
}

// POST /api/v1/sla/scan — run a violation scan now. The cron runner uses the
// same detector; the distributed lock keeps concurrent scans single-flight.
func (h *Handlers) Scan(c *fiber.Ctx) error {
	report, err := h.Detector.Scan(c.Context(), time.Now().UTC())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Scan complete", report, nil)
}
