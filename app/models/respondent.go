package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RESPONDENT_CREATED   = "created"
	RESPONDENT_CONNECTED = "connected"
	RESPONDENT_READY     = "ready"
)

// Respondent is one survey participant of a project. DistributionID and
// DistributionURL are set once the survey has been prepared for them.
type Respondent struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ProjectID       uint      `gorm:"index" json:"project_id"`
	Status          string    `gorm:"type:varchar(20);default:'created'" json:"status" validate:"oneof=created connected ready"`
	DistributionID  string    `gorm:"type:varchar(191);default:null" json:"distribution_id,omitempty"`
	DistributionURL string    `gorm:"type:varchar(512);default:null" json:"distribution_url,omitempty"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewRespondent mints a respondent with a fresh UUID for the project.
func NewRespondent(projectID uint) *Respondent {
	return &Respondent{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Status:    RESPONDENT_CREATED,
	}
}
