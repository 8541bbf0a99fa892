package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/varweave/varweave/app/models"
	"github.com/varweave/varweave/app/repository"
	"github.com/varweave/varweave/internal/pkg/orchestrator"
	"github.com/varweave/varweave/internal/pkg/rules"
	"github.com/varweave/varweave/internal/pkg/security"
	"github.com/varweave/varweave/internal/pkg/surveyplatform"
)

// respondentTokenTTL bounds how long a minted respondent link stays valid.
const respondentTokenTTL = 7 * 24 * time.Hour

type prepareRequest struct {
	Frontend map[string]string `json:"frontend"`
}

// HandlePrepareSurvey resolves all variables for the respondent, publishes
// them to the survey platform and returns the distribution URL. The call is
// all-or-nothing; on any mandatory failure no URL is issued.
func HandlePrepareSurvey(c *fiber.Ctx) error {
	respondent, err := authenticatedRespondent(c)
	if err != nil {
		return unauthorized(c)
	}

	var req prepareRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed request body"})
		}
	}

	factory := repository.GetGlobalFactory()
	project, err := factory.GetProjectRepository().GetByID(respondent.ProjectID)
	if err != nil {
		return jsonError(c, err)
	}
	connections, err := factory.GetConnectionRepository().GetByProject(project.ID)
	if err != nil {
		return jsonError(c, err)
	}
	connByProvider := map[string]*models.DataConnection{}
	for i := range connections {
		connByProvider[connections[i].Provider] = &connections[i]
	}
	tokens, err := factory.GetTokenRepository().FinalizedByRespondent(respondent.ID)
	if err != nil {
		return jsonError(c, err)
	}
	builtins, err := factory.GetVariableRepository().BuiltinsByProject(project.ID)
	if err != nil {
		return jsonError(c, err)
	}
	customs, err := factory.GetVariableRepository().CustomsByProject(project.ID)
	if err != nil {
		return jsonError(c, err)
	}

	link, err := orch.PrepareSurvey(c.Context(), orchestrator.PrepareInput{
		Project:     project,
		Respondent:  respondent,
		Connections: connByProvider,
		Tokens:      tokens,
		Builtins:    builtins,
		Customs:     customs,
		Frontend:    req.Frontend,
	})
	if err != nil {
		return jsonError(c, err)
	}

	if err := factory.GetRespondentRepository().Update(respondent); err != nil {
		return jsonError(c, err)
	}

	return c.JSON(fiber.Map{"distribution_url": link})
}

// HandleSyncVariables pushes the project's variable definitions to the
// survey platform on the researcher's request and stamps the project.
func HandleSyncVariables(c *fiber.Ctx) error {
	project, err := projectFromParams(c)
	if err != nil {
		return jsonError(c, err)
	}

	factory := repository.GetGlobalFactory()
	builtins, err := factory.GetVariableRepository().BuiltinsByProject(project.ID)
	if err != nil {
		return jsonError(c, err)
	}
	customs, err := factory.GetVariableRepository().CustomsByProject(project.ID)
	if err != nil {
		return jsonError(c, err)
	}

	// Builtins without a test value get a type-shaped placeholder so the
	// platform's preview mode has something to show.
	for i := range builtins {
		if builtins[i].TestValue != "" || !builtins[i].Enabled {
			continue
		}
		builtins[i].TestValue = placeholderFor(builtins[i].DataType)
		if err := factory.GetVariableRepository().UpdateBuiltinTestValue(builtins[i].ID, builtins[i].TestValue); err != nil {
			return jsonError(c, err)
		}
	}

	defs, err := orchestrator.VariableDefs(builtins, customs)
	if err != nil {
		return jsonError(c, err)
	}

	platform, err := surveyplatform.Lookup(project.SurveyPlatformName)
	if err != nil {
		return jsonError(c, err)
	}
	creds, err := project.PlatformFields()
	if err != nil {
		return jsonError(c, err)
	}
	if err := platform.SyncVariables(c.Context(), creds, creds["survey_id"], defs); err != nil {
		return jsonError(c, err)
	}

	now := time.Now()
	if err := factory.GetProjectRepository().TouchLastSynced(project.ID, now); err != nil {
		return jsonError(c, err)
	}

	return c.JSON(fiber.Map{"synced": len(defs), "last_synced_at": now.UTC().Format(time.RFC3339)})
}

// HandlePlatformStatus passes the platform's connection check through.
func HandlePlatformStatus(c *fiber.Ctx) error {
	project, err := projectFromParams(c)
	if err != nil {
		return jsonError(c, err)
	}

	platform, err := surveyplatform.Lookup(project.SurveyPlatformName)
	if err != nil {
		return jsonError(c, err)
	}
	creds, err := project.PlatformFields()
	if err != nil {
		return jsonError(c, err)
	}
	status, err := platform.CheckConnection(c.Context(), creds)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(status)
}

// HandleCreateRespondent mints a respondent for the project plus the bearer
// token the respondent-facing client presents on every call.
func HandleCreateRespondent(c *fiber.Ctx) error {
	project, err := projectFromParams(c)
	if err != nil {
		return jsonError(c, err)
	}

	respondent := models.NewRespondent(project.ID)
	if err := repository.GetGlobalFactory().GetRespondentRepository().Create(respondent); err != nil {
		return jsonError(c, err)
	}

	token, err := security.GenerateRespondentToken(respondent.ID, project.ID, respondentTokenTTL, appSecret())
	if err != nil {
		return jsonError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    respondent.ID,
		"token": token,
	})
}

func projectFromParams(c *fiber.Ctx) (*models.Project, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return nil, &models.ValidationError{Field: "id", Message: "project id must be numeric"}
	}
	return repository.GetGlobalFactory().GetProjectRepository().GetByID(uint(id))
}

func placeholderFor(dataType string) string {
	switch dataType {
	case string(rules.TypeNumber):
		return "0"
	case string(rules.TypeDate):
		return time.Now().UTC().Format("2006-01-02")
	default:
		return "example"
	}
}
