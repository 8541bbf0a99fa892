package repository

import (
	"gorm.io/gorm"

	"github.com/varweave/varweave/app/models"
)

// respondentRepository implements the RespondentRepository interface
type respondentRepository struct {
	db *gorm.DB
}

// NewRespondentRepository creates a new respondent repository instance
func NewRespondentRepository(db *gorm.DB) RespondentRepository {
	return &respondentRepository{db: db}
}

// Create stores a new respondent
func (r *respondentRepository) Create(respondent *models.Respondent) error {
	return r.db.Create(respondent).Error
}

// GetByID retrieves a respondent by its UUID
func (r *respondentRepository) GetByID(id string) (*models.Respondent, error) {
	var respondent models.Respondent
	err := r.db.First(&respondent, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &respondent, nil
}

// Update updates an existing respondent
func (r *respondentRepository) Update(respondent *models.Respondent) error {
	return r.db.Save(respondent).Error
}

// CountByProject returns the number of respondents in a project
func (r *respondentRepository) CountByProject(projectID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Respondent{}).Where("project_id = ?", projectID).Count(&count).Error
	return count, err
}
