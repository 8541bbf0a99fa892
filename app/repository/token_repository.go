package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/varweave/varweave/app/models"
)

// tokenRepository implements the TokenRepository interface
type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new token repository instance
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

// Save upserts a respondent's token for one provider. A re-exchange before
// finalize simply replaces the earlier token.
func (r *tokenRepository) Save(token *models.OAuthToken) error {
	var existing models.OAuthToken
	err := r.db.Where("respondent_id = ? AND provider = ?", token.RespondentID, token.Provider).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(token).Error
	}
	if err != nil {
		return err
	}
	token.ID = existing.ID
	token.CreatedAt = existing.CreatedAt
	return r.db.Save(token).Error
}

// GetByRespondent retrieves all tokens of a respondent
func (r *tokenRepository) GetByRespondent(respondentID string) ([]models.OAuthToken, error) {
	var tokens []models.OAuthToken
	err := r.db.Where("respondent_id = ?", respondentID).Order("provider ASC").Find(&tokens).Error
	return tokens, err
}

// GetByRespondentAndProvider retrieves one provider token of a respondent
func (r *tokenRepository) GetByRespondentAndProvider(respondentID, provider string) (*models.OAuthToken, error) {
	var token models.OAuthToken
	err := r.db.Where("respondent_id = ? AND provider = ?", respondentID, provider).First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// FinalizedByRespondent retrieves the finalized tokens of a respondent
func (r *tokenRepository) FinalizedByRespondent(respondentID string) ([]models.OAuthToken, error) {
	var tokens []models.OAuthToken
	err := r.db.Where("respondent_id = ? AND finalized = ?", respondentID, true).Order("provider ASC").Find(&tokens).Error
	return tokens, err
}

// Delete removes a respondent's token for one provider
func (r *tokenRepository) Delete(respondentID, provider string) error {
	return r.db.Where("respondent_id = ? AND provider = ?", respondentID, provider).Delete(&models.OAuthToken{}).Error
}
