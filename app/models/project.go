package models

import (
	"encoding/json"
	"time"
)

// Project mirrors the record owned by the external project store. The
// engine reads the survey platform wiring from it and writes back the
// last-synced timestamp and refreshed builtin test values.
type Project struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	Name                 string     `gorm:"type:varchar(200)" json:"name" validate:"required,min=3,max=200"`
	SurveyPlatformName   string     `gorm:"type:varchar(50)" json:"survey_platform_name" validate:"required"`
	SurveyPlatformFields string     `gorm:"type:text" json:"-"`
	LastSyncedAt         *time.Time `gorm:"type:timestamp;default:null" json:"last_synced_at,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// PlatformFields decodes the platform credential blob (api token,
// datacenter, survey id, oauth client fields — whatever the platform
// adapter needs).
func (p *Project) PlatformFields() (map[string]string, error) {
	fields := map[string]string{}
	if p.SurveyPlatformFields == "" {
		return fields, nil
	}
	err := json.Unmarshal([]byte(p.SurveyPlatformFields), &fields)
	return fields, err
}

// SetPlatformFields encodes and stores the platform credential blob.
func (p *Project) SetPlatformFields(fields map[string]string) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	p.SurveyPlatformFields = string(raw)
	return nil
}
