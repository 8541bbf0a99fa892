package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to the controllers to keep behavior consistent.
	"github.com/varweave/varweave/app/controllers"
)

// APIServer carries the v1 handler set.
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ping": "pong"})
}

// GetCatalog serves the static provider/category/attribute registry.
func (s *APIServer) GetCatalog(c *fiber.Ctx) error {
	return controllers.HandleGetCatalog(c)
}

// GetCatalogProvider serves one provider's catalog entry.
func (s *APIServer) GetCatalogProvider(c *fiber.Ctx) error {
	return controllers.HandleGetCatalogProvider(c)
}

// Respondent-facing endpoints; all of them authenticate the bearer
// respondent token against the :id route param.

func (s *APIServer) GetRespondentProviders(c *fiber.Ctx) error {
	return controllers.HandleListProviders(c)
}

func (s *APIServer) PostRespondentExchange(c *fiber.Ctx) error {
	return controllers.HandleExchangeCode(c)
}

func (s *APIServer) GetRespondentIdentityUsed(c *fiber.Ctx) error {
	return controllers.HandleIdentityUsed(c)
}

func (s *APIServer) PostRespondentConnect(c *fiber.Ctx) error {
	return controllers.HandleConnect(c)
}

func (s *APIServer) PostRespondentPrepare(c *fiber.Ctx) error {
	return controllers.HandlePrepareSurvey(c)
}

func (s *APIServer) PostRespondentDisconnect(c *fiber.Ctx) error {
	return controllers.HandleDisconnect(c)
}

// Researcher-facing endpoints; the router attaches the API key guard.

func (s *APIServer) PostProjectVariablesSync(c *fiber.Ctx) error {
	return controllers.HandleSyncVariables(c)
}

func (s *APIServer) GetProjectPlatformStatus(c *fiber.Ctx) error {
	return controllers.HandlePlatformStatus(c)
}

func (s *APIServer) PostProjectRespondents(c *fiber.Ctx) error {
	return controllers.HandleCreateRespondent(c)
}

// RegisterHandlers attaches the v1 routes to the router group.
func RegisterHandlers(r fiber.Router, s *APIServer, researcherGuard fiber.Handler) {
	r.Get("/ping", s.GetPing)
	r.Get("/catalog", s.GetCatalog)
	r.Get("/catalog/:provider", s.GetCatalogProvider)

	respondents := r.Group("/respondents/:id")
	respondents.Get("/providers", s.GetRespondentProviders)
	respondents.Post("/exchange", s.PostRespondentExchange)
	respondents.Get("/identity-used", s.GetRespondentIdentityUsed)
	respondents.Post("/connect", s.PostRespondentConnect)
	respondents.Post("/prepare", s.PostRespondentPrepare)
	respondents.Post("/disconnect", s.PostRespondentDisconnect)

	projects := r.Group("/projects/:id", researcherGuard)
	projects.Post("/variables/sync", s.PostProjectVariablesSync)
	projects.Get("/platform/status", s.GetProjectPlatformStatus)
	projects.Post("/respondents", s.PostProjectRespondents)
}
