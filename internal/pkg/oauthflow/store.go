package oauthflow

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/varweave/varweave/app/models"
)

// Store is the persistence the session manager needs. The gorm
// implementation below is the production one; tests use an in-memory fake.
type Store interface {
	TokensByRespondent(respondentID string) ([]models.OAuthToken, error)
	FinalizedTokensByRespondent(respondentID string) ([]models.OAuthToken, error)
	SaveToken(token *models.OAuthToken) error
	DeleteToken(respondentID, provider string) error
	IdentityOwner(projectID uint, provider, externalUserID string) (string, error)
	// Finalize atomically claims each token's identity in the dedup ledger,
	// marks the tokens finalized and the respondent connected. A claim
	// already owned by another respondent aborts the whole transaction with
	// a DuplicateIdentityError.
	Finalize(respondent *models.Respondent, tokens []models.OAuthToken) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore returns the database-backed session store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) TokensByRespondent(respondentID string) ([]models.OAuthToken, error) {
	var tokens []models.OAuthToken
	err := s.db.Where("respondent_id = ?", respondentID).Order("provider ASC").Find(&tokens).Error
	return tokens, err
}

func (s *gormStore) FinalizedTokensByRespondent(respondentID string) ([]models.OAuthToken, error) {
	var tokens []models.OAuthToken
	err := s.db.Where("respondent_id = ? AND finalized = ?", respondentID, true).Order("provider ASC").Find(&tokens).Error
	return tokens, err
}

func (s *gormStore) SaveToken(token *models.OAuthToken) error {
	var existing models.OAuthToken
	err := s.db.Where("respondent_id = ? AND provider = ?", token.RespondentID, token.Provider).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(token).Error
	}
	if err != nil {
		return err
	}
	token.ID = existing.ID
	token.CreatedAt = existing.CreatedAt
	return s.db.Save(token).Error
}

func (s *gormStore) DeleteToken(respondentID, provider string) error {
	return s.db.Where("respondent_id = ? AND provider = ?", respondentID, provider).Delete(&models.OAuthToken{}).Error
}

func (s *gormStore) IdentityOwner(projectID uint, provider, externalUserID string) (string, error) {
	var claim models.UsedIdentity
	err := s.db.Where("project_id = ? AND provider = ? AND external_user_id = ?", projectID, provider, externalUserID).
		First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return claim.RespondentID, nil
}

func (s *gormStore) Finalize(respondent *models.Respondent, tokens []models.OAuthToken) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for i := range tokens {
			t := &tokens[i]

			var claim models.UsedIdentity
			err := tx.Where("project_id = ? AND provider = ? AND external_user_id = ?",
				t.ProjectID, t.Provider, t.ExternalUserID).First(&claim).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				claim = models.UsedIdentity{
					ProjectID:      t.ProjectID,
					Provider:       t.Provider,
					ExternalUserID: t.ExternalUserID,
					RespondentID:   respondent.ID,
				}
				if err := tx.Create(&claim).Error; err != nil {
					// The unique index is the backstop for two respondents
					// finalizing the same identity at once.
					if isDuplicateKey(err) {
						return &DuplicateIdentityError{Provider: t.Provider}
					}
					return err
				}
			case err != nil:
				return err
			case claim.RespondentID != respondent.ID:
				return &DuplicateIdentityError{Provider: t.Provider}
			}

			if err := tx.Model(&models.OAuthToken{}).
				Where("respondent_id = ? AND provider = ?", respondent.ID, t.Provider).
				UpdateColumn("finalized", true).Error; err != nil {
				return err
			}
		}

		respondent.Status = models.RESPONDENT_CONNECTED
		return tx.Model(&models.Respondent{}).
			Where("id = ?", respondent.ID).
			UpdateColumn("status", models.RESPONDENT_CONNECTED).Error
	})
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "Duplicate entry")
}
