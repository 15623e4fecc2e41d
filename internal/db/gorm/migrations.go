// Package gorm provides GORM-based PostgreSQL storage for idea-tracker.
package gorm

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: ideas table with status check and indexes from struct tags
		{
			ID: "001_ideas",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Idea{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("ideas")
			},
		},

		// Migration 002: research log
		{
			ID: "002_research_log",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&ResearchLog{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("research_log")
			},
		},
	})

	return m.Migrate()
}
