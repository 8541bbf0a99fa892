package repository

import (
	"gorm.io/gorm"

	"github.com/varweave/varweave/app/models"
)

// variableRepository implements the VariableRepository interface
type variableRepository struct {
	db *gorm.DB
}

// NewVariableRepository creates a new variable repository instance
func NewVariableRepository(db *gorm.DB) VariableRepository {
	return &variableRepository{db: db}
}

// BuiltinsByProject retrieves all builtin variables of a project
func (r *variableRepository) BuiltinsByProject(projectID uint) ([]models.BuiltinVariable, error) {
	var vars []models.BuiltinVariable
	err := r.db.Where("project_id = ?", projectID).Order("qualified_name ASC").Find(&vars).Error
	return vars, err
}

// EnabledBuiltinsByProject retrieves the enabled builtin variables of a project
func (r *variableRepository) EnabledBuiltinsByProject(projectID uint) ([]models.BuiltinVariable, error) {
	var vars []models.BuiltinVariable
	err := r.db.Where("project_id = ? AND enabled = ?", projectID, true).Order("qualified_name ASC").Find(&vars).Error
	return vars, err
}

// CreateBuiltin stores a builtin variable after validating it
func (r *variableRepository) CreateBuiltin(v *models.BuiltinVariable) error {
	if err := v.Validate(); err != nil {
		return err
	}
	return r.db.Create(v).Error
}

// UpdateBuiltinTestValue refreshes the stored test value of a builtin variable
func (r *variableRepository) UpdateBuiltinTestValue(id uint, testValue string) error {
	return r.db.Model(&models.BuiltinVariable{}).Where("id = ?", id).UpdateColumn("test_value", testValue).Error
}

// CustomsByProject retrieves all custom variables of a project
func (r *variableRepository) CustomsByProject(projectID uint) ([]models.CustomVariable, error) {
	var vars []models.CustomVariable
	err := r.db.Where("project_id = ?", projectID).Order("variable_name ASC").Find(&vars).Error
	return vars, err
}

// CreateCustom stores a custom variable. The definition-time completeness
// check runs before anything is persisted.
func (r *variableRepository) CreateCustom(cv *models.CustomVariable) error {
	if err := cv.Validate(); err != nil {
		return err
	}
	return r.db.Create(cv).Error
}

// UpdateCustom updates a custom variable after re-validating the definition
func (r *variableRepository) UpdateCustom(cv *models.CustomVariable) error {
	if err := cv.Validate(); err != nil {
		return err
	}
	return r.db.Save(cv).Error
}

// DeleteCustom removes a custom variable
func (r *variableRepository) DeleteCustom(id uint) error {
	return r.db.Delete(&models.CustomVariable{}, id).Error
}
