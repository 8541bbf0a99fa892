package repository

import (
	"time"

	"github.com/varweave/varweave/app/models"
)

// ProjectRepository defines the interface for project-related database operations
type ProjectRepository interface {
	GetByID(id uint) (*models.Project, error)
	Update(project *models.Project) error
	TouchLastSynced(id uint, at time.Time) error
}

// ConnectionRepository defines the interface for provider connection operations
type ConnectionRepository interface {
	Create(conn *models.DataConnection) error
	GetByProject(projectID uint) ([]models.DataConnection, error)
	GetByProjectAndProvider(projectID uint, provider string) (*models.DataConnection, error)
	Update(conn *models.DataConnection) error
	Delete(id uint) error
}

// VariableRepository defines the interface for builtin and custom variable operations
type VariableRepository interface {
	BuiltinsByProject(projectID uint) ([]models.BuiltinVariable, error)
	EnabledBuiltinsByProject(projectID uint) ([]models.BuiltinVariable, error)
	CreateBuiltin(v *models.BuiltinVariable) error
	UpdateBuiltinTestValue(id uint, testValue string) error
	CustomsByProject(projectID uint) ([]models.CustomVariable, error)
	CreateCustom(cv *models.CustomVariable) error
	UpdateCustom(cv *models.CustomVariable) error
	DeleteCustom(id uint) error
}

// RespondentRepository defines the interface for respondent operations
type RespondentRepository interface {
	Create(r *models.Respondent) error
	GetByID(id string) (*models.Respondent, error)
	Update(r *models.Respondent) error
	CountByProject(projectID uint) (int64, error)
}

// TokenRepository defines the interface for respondent OAuth token operations
type TokenRepository interface {
	Save(token *models.OAuthToken) error
	GetByRespondent(respondentID string) ([]models.OAuthToken, error)
	GetByRespondentAndProvider(respondentID, provider string) (*models.OAuthToken, error)
	FinalizedByRespondent(respondentID string) ([]models.OAuthToken, error)
	Delete(respondentID, provider string) error
}

// IdentityRepository reads the permanent identity dedup ledger. Writes go
// through the oauth flow's finalize transaction, never through here.
type IdentityRepository interface {
	WasUsed(projectID uint, provider, externalUserID string) (bool, error)
	Owner(projectID uint, provider, externalUserID string) (string, error)
}
