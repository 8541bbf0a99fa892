package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/varweave/varweave/app/models"
)

// identityRepository implements the IdentityRepository interface
type identityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository creates a new identity ledger repository instance
func NewIdentityRepository(db *gorm.DB) IdentityRepository {
	return &identityRepository{db: db}
}

// WasUsed reports whether the (project, provider, external user) triple was
// ever finalized. Ledger rows are never deleted, so this stays true after a
// disconnect.
func (r *identityRepository) WasUsed(projectID uint, provider, externalUserID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.UsedIdentity{}).
		Where("project_id = ? AND provider = ? AND external_user_id = ?", projectID, provider, externalUserID).
		Count(&count).Error
	return count > 0, err
}

// Owner returns the respondent that finalized the triple, or "" when unused
func (r *identityRepository) Owner(projectID uint, provider, externalUserID string) (string, error) {
	var claim models.UsedIdentity
	err := r.db.Where("project_id = ? AND provider = ? AND external_user_id = ?", projectID, provider, externalUserID).
		First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return claim.RespondentID, nil
}
