package models

import "fmt"

// ValidationError is a definition-time rejection. Anything raising it never
// reaches resolution or the database.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
