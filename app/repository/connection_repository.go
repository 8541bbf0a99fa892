package repository

import (
	"gorm.io/gorm"

	"github.com/varweave/varweave/app/models"
)

// connectionRepository implements the ConnectionRepository interface
type connectionRepository struct {
	db *gorm.DB
}

// NewConnectionRepository creates a new connection repository instance
func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

// Create stores a new provider connection for a project
func (r *connectionRepository) Create(conn *models.DataConnection) error {
	return r.db.Create(conn).Error
}

// GetByProject retrieves all provider connections of a project
func (r *connectionRepository) GetByProject(projectID uint) ([]models.DataConnection, error) {
	var conns []models.DataConnection
	err := r.db.Where("project_id = ?", projectID).Order("provider ASC").Find(&conns).Error
	return conns, err
}

// GetByProjectAndProvider retrieves one provider connection of a project
func (r *connectionRepository) GetByProjectAndProvider(projectID uint, provider string) (*models.DataConnection, error) {
	var conn models.DataConnection
	err := r.db.Where("project_id = ? AND provider = ?", projectID, provider).First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// Update updates an existing provider connection
func (r *connectionRepository) Update(conn *models.DataConnection) error {
	return r.db.Save(conn).Error
}

// Delete removes a provider connection
func (r *connectionRepository) Delete(id uint) error {
	return r.db.Delete(&models.DataConnection{}, id).Error
}
