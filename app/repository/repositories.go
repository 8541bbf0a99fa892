package repository

import "gorm.io/gorm"

// Repositories bundles all repository instances
type Repositories struct {
	Project    ProjectRepository
	Connection ConnectionRepository
	Variable   VariableRepository
	Respondent RespondentRepository
	Token      TokenRepository
	Identity   IdentityRepository
}

// NewRepositories creates all repositories backed by the given database
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Project:    NewProjectRepository(db),
		Connection: NewConnectionRepository(db),
		Variable:   NewVariableRepository(db),
		Respondent: NewRespondentRepository(db),
		Token:      NewTokenRepository(db),
		Identity:   NewIdentityRepository(db),
	}
}
