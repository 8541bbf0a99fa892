package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/varweave/varweave/app/models"
	"github.com/varweave/varweave/app/repository"
	"github.com/varweave/varweave/internal/pkg/database"
	"github.com/varweave/varweave/internal/pkg/env"
	"github.com/varweave/varweave/internal/pkg/oauthflow"
	"github.com/varweave/varweave/internal/pkg/orchestrator"
	"github.com/varweave/varweave/internal/pkg/provider"
	"github.com/varweave/varweave/internal/pkg/security"
	"github.com/varweave/varweave/internal/pkg/surveyplatform"
)

var (
	manager *oauthflow.Manager
	orch    *orchestrator.Orchestrator
)

// Initialize wires the OAuth session manager and the orchestrator. Called
// once from main after database and cache setup.
func Initialize() error {
	secret := appSecret()
	if secret == "" {
		return errors.New("APP_SECRET is not set")
	}
	sealer, err := security.NewSealer(secret)
	if err != nil {
		return err
	}
	manager = oauthflow.NewManager(oauthflow.NewStore(database.GetDB()), oauthflow.NewStateStore(), sealer)
	orch = orchestrator.New(manager)
	return nil
}

func appSecret() string {
	return env.GetEnv("APP_SECRET", "")
}

// authenticatedRespondent checks the bearer token against the :id route
// param and loads the respondent. Respondent tokens are minted by the
// researcher-facing create-respondent endpoint.
func authenticatedRespondent(c *fiber.Ctx) (*models.Respondent, error) {
	raw := c.Get(fiber.HeaderAuthorization)
	raw = strings.TrimPrefix(raw, "Bearer ")
	if raw == "" {
		raw = c.Query("token")
	}
	claims, err := security.VerifyRespondentToken(raw, appSecret())
	if err != nil {
		return nil, err
	}
	if claims.RespondentID != c.Params("id") {
		return nil, errors.New("token does not match respondent")
	}

	repo := repository.GetGlobalFactory().GetRespondentRepository()
	respondent, err := repo.GetByID(claims.RespondentID)
	if err != nil {
		return nil, err
	}
	if respondent.ProjectID != claims.ProjectID {
		return nil, errors.New("token does not match project")
	}
	return respondent, nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid respondent token"})
}

// jsonError maps the engine's error taxonomy onto the API's JSON shape.
func jsonError(c *fiber.Ctx, err error) error {
	var dup *oauthflow.DuplicateIdentityError
	if errors.As(err, &dup) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":    "duplicate_identity",
			"message":  dup.Error(),
			"provider": dup.Provider,
			"resume":   dup.Resume,
		})
	}

	var badState *oauthflow.ErrInvalidState
	if errors.As(err, &badState) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_state", "message": badState.Error()})
	}

	var pe *provider.Error
	if errors.As(err, &pe) {
		switch pe.Kind {
		case provider.ErrScopeMismatch:
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":    "scope_mismatch",
				"message":  pe.Error(),
				"provider": pe.Provider,
				"required": pe.Required,
				"accepted": pe.Accepted,
			})
		case provider.ErrTransient:
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "provider_unavailable", "message": pe.Error(), "provider": pe.Provider})
		default:
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "provider_error", "message": pe.Error(), "provider": pe.Provider})
		}
	}

	var spe *surveyplatform.Error
	if errors.As(err, &spe) {
		status := fiber.StatusBadGateway
		code := "platform_connection_failed"
		if spe.Kind == surveyplatform.ErrInactiveSurvey {
			status = fiber.StatusConflict
			code = "inactive_survey"
		}
		// The platform's own message passes through unmodified.
		return c.Status(status).JSON(fiber.Map{"error": code, "message": spe.Message, "platform": spe.Platform})
	}

	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": ve.Error(), "field": ve.Field})
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Record not found"})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": err.Error()})
}
