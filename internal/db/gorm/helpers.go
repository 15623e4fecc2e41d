// Package gorm provides GORM-based PostgreSQL storage for idea-tracker.
package gorm

import "database/sql"

// nullString converts a string to sql.NullString.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
