package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/varweave/varweave/app/models"
	"github.com/varweave/varweave/app/repository"
	"github.com/varweave/varweave/internal/pkg/catalog"
)

// providerEntries builds the per-provider listing. A failed authorize-URL
// mint (misconfigured connection, unsealable secret) is surfaced on the
// entry instead of silently dropping the field.
func providerEntries(connections []models.DataConnection, authorize func(*models.DataConnection) (string, error)) []fiber.Map {
	providers := make([]fiber.Map, 0, len(connections))
	for i := range connections {
		dc := &connections[i]
		entry := fiber.Map{"provider": dc.Provider}
		if cat, ok := catalog.Get(dc.Provider); ok {
			entry["kind"] = cat.Kind
			entry["scopes"] = cat.Scopes
		}
		if url, err := authorize(dc); err != nil {
			entry["error"] = err.Error()
		} else {
			entry["authorize_url"] = url
		}
		providers = append(providers, entry)
	}
	return providers
}

// HandleListProviders returns the providers configured for the respondent's
// project together with fresh authorize URLs.
func HandleListProviders(c *fiber.Ctx) error {
	respondent, err := authenticatedRespondent(c)
	if err != nil {
		return unauthorized(c)
	}

	connRepo := repository.GetGlobalFactory().GetConnectionRepository()
	connections, err := connRepo.GetByProject(respondent.ProjectID)
	if err != nil {
		return jsonError(c, err)
	}

	providers := providerEntries(connections, func(dc *models.DataConnection) (string, error) {
		return manager.AuthorizeURL(respondent, dc)
	})

	return c.JSON(fiber.Map{"providers": providers})
}

type exchangeRequest struct {
	Provider string   `json:"provider"`
	Code     string   `json:"code"`
	State    string   `json:"state"`
	Scopes   []string `json:"scopes"`
}

// HandleExchangeCode trades the provider's authorization code for a sealed
// token. Scope shortfalls come back as a scope_mismatch payload carrying the
// required and accepted sets verbatim.
func HandleExchangeCode(c *fiber.Ctx) error {
	respondent, err := authenticatedRespondent(c)
	if err != nil {
		return unauthorized(c)
	}

	var req exchangeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed request body"})
	}
	if req.Provider == "" || req.Code == "" || req.State == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "provider, code and state are required"})
	}

	connRepo := repository.GetGlobalFactory().GetConnectionRepository()
	dc, err := connRepo.GetByProjectAndProvider(respondent.ProjectID, req.Provider)
	if err != nil {
		return jsonError(c, err)
	}

	token, err := manager.ExchangeCode(c.Context(), respondent, dc, req.Code, req.State, req.Scopes)
	if err != nil {
		return jsonError(c, err)
	}

	used, err := manager.WasUsed(respondent.ProjectID, token.Provider, token.ExternalUserID)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(fiber.Map{
		"provider":         token.Provider,
		"external_user_id": token.ExternalUserID,
		"identity_used":    used,
	})
}

// HandleIdentityUsed answers whether a (provider, external user id) pair was
// already finalized by anyone in this project.
func HandleIdentityUsed(c *fiber.Ctx) error {
	respondent, err := authenticatedRespondent(c)
	if err != nil {
		return unauthorized(c)
	}

	providerName := c.Query("provider")
	userID := c.Query("user_id")
	if providerName == "" || userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "provider and user_id are required"})
	}

	used, err := manager.WasUsed(respondent.ProjectID, providerName, userID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(fiber.Map{"used": used})
}

type disconnectRequest struct {
	Provider string `json:"provider"`
}

// HandleDisconnect discards the respondent's token for one provider. The
// identity stays burned in the dedup ledger.
func HandleDisconnect(c *fiber.Ctx) error {
	respondent, err := authenticatedRespondent(c)
	if err != nil {
		return unauthorized(c)
	}

	var req disconnectRequest
	if err := c.BodyParser(&req); err != nil || req.Provider == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "provider is required"})
	}

	connRepo := repository.GetGlobalFactory().GetConnectionRepository()
	dc, err := connRepo.GetByProjectAndProvider(respondent.ProjectID, req.Provider)
	if err != nil {
		return jsonError(c, err)
	}

	if err := manager.Disconnect(c.Context(), respondent, dc); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(fiber.Map{"provider": req.Provider, "disconnected": true})
}
