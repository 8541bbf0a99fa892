package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// BuiltinVariable is a pre-programmed provider variable of a project.
// Index 0 means the resolver yields a scalar; 1-based indices point into a
// list-valued resolver shared by all variables with the same base name.
type BuiltinVariable struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ProjectID     uint      `gorm:"index" json:"project_id"`
	QualifiedName string    `gorm:"uniqueIndex;type:varchar(191)" json:"qualified_name" validate:"required"`
	DataType      string    `gorm:"type:varchar(20)" json:"data_type" validate:"oneof=Number Date Text"`
	Enabled       bool      `gorm:"default:true" json:"enabled"`
	Optional      bool      `gorm:"default:false" json:"optional"`
	Index         int       `gorm:"default:0" json:"index" validate:"min=0"`
	TestValue     string    `gorm:"type:varchar(255)" json:"test_value"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *BuiltinVariable) Validate() error {
	v := validator.New()
	return v.Struct(b)
}

// Provider extracts the provider segment of the qualified name
// (qn.<provider>....).
func (b *BuiltinVariable) Provider() string {
	parts := strings.Split(b.QualifiedName, ".")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// ResolverName is the registry key of the backing resolver: the qualified
// name itself for scalars, the name minus its trailing index segment for
// indexed list variables.
func (b *BuiltinVariable) ResolverName() string {
	if b.Index < 1 {
		return b.QualifiedName
	}
	if i := strings.LastIndex(b.QualifiedName, "."); i > 0 {
		return b.QualifiedName[:i]
	}
	return b.QualifiedName
}
