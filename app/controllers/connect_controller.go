package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/varweave/varweave/app/repository"
)

type connectRequest struct {
	Providers []string `json:"providers"`
}

// HandleConnect finalizes the respondent's set of exchanged provider tokens.
// The dedup ledger claims every identity atomically; a resume must offer the
// exact previously finalized set or is rejected wholesale.
func HandleConnect(c *fiber.Ctx) error {
	respondent, err := authenticatedRespondent(c)
	if err != nil {
		return unauthorized(c)
	}

	var req connectRequest
	if err := c.BodyParser(&req); err != nil || len(req.Providers) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "providers is required"})
	}

	if err := manager.Connect(c.Context(), respondent, req.Providers); err != nil {
		return jsonError(c, err)
	}

	if err := repository.GetGlobalFactory().GetRespondentRepository().Update(respondent); err != nil {
		return jsonError(c, err)
	}

	return c.JSON(fiber.Map{"status": respondent.Status, "providers": req.Providers})
}
