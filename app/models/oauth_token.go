package models

import (
	"strings"
	"time"
)

// OAuthToken stores a respondent's exchanged token for one provider.
// Tokens are sealed at rest. A row exists from the moment the code exchange
// succeeds; Finalized flips when the respondent's whole provider set is
// accepted by the connect step.
type OAuthToken struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	RespondentID       string    `gorm:"index:respondent_provider,unique;type:varchar(36)" json:"respondent_id"`
	Provider           string    `gorm:"index:respondent_provider,unique;type:varchar(50)" json:"provider"`
	ProjectID          uint      `gorm:"index" json:"project_id"`
	ExternalUserID     string    `gorm:"type:varchar(191)" json:"external_user_id"`
	AccessTokenSealed  string    `gorm:"type:text" json:"-"`
	RefreshTokenSealed string    `gorm:"type:text" json:"-"`
	Scopes             string    `gorm:"type:varchar(512)" json:"-"`
	IssuedAt           time.Time `gorm:"type:timestamp" json:"issued_at"`
	Finalized          bool      `gorm:"default:false" json:"finalized"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ScopeList splits the stored space-separated scope string.
func (t *OAuthToken) ScopeList() []string {
	if t.Scopes == "" {
		return nil
	}
	return strings.Fields(t.Scopes)
}

// UsedIdentity is the permanent dedup ledger: one row per finalized
// (project, provider, external user) triple. The composite unique index
// makes concurrent finalize attempts race safely at the database; rows are
// never deleted, so an identity stays burned even after a disconnect.
type UsedIdentity struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ProjectID      uint      `gorm:"index:identity_claim,unique" json:"project_id"`
	Provider       string    `gorm:"index:identity_claim,unique;type:varchar(50)" json:"provider"`
	ExternalUserID string    `gorm:"index:identity_claim,unique;type:varchar(191)" json:"external_user_id"`
	RespondentID   string    `gorm:"index;type:varchar(36)" json:"respondent_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
