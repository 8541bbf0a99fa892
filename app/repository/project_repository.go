package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/varweave/varweave/app/models"
)

// projectRepository implements the ProjectRepository interface
type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new project repository instance
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

// GetByID retrieves a project by its ID
func (r *projectRepository) GetByID(id uint) (*models.Project, error) {
	var project models.Project
	err := r.db.First(&project, id).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// Update updates an existing project
func (r *projectRepository) Update(project *models.Project) error {
	return r.db.Save(project).Error
}

// TouchLastSynced records when the project's variables were last pushed to
// its survey platform
func (r *projectRepository) TouchLastSynced(id uint, at time.Time) error {
	return r.db.Model(&models.Project{}).Where("id = ?", id).UpdateColumn("last_synced_at", at).Error
}
