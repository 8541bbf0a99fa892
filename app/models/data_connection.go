package models

import "time"

// DataConnection stores a project's credentials for one data provider
// (the researcher-registered external app). Secrets are sealed at rest via
// internal/pkg/security and only opened when a provider client needs them.
type DataConnection struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	ProjectID          uint      `gorm:"index:project_provider,unique" json:"project_id"`
	Provider           string    `gorm:"index:project_provider,unique;type:varchar(50)" json:"provider" validate:"required"`
	ClientID           string    `gorm:"type:varchar(191)" json:"client_id"`
	ClientSecretSealed string    `gorm:"type:text" json:"-"`
	CallbackURL        string    `gorm:"type:varchar(255)" json:"callback_url"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
