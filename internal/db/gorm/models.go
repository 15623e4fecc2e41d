// Package gorm provides GORM-based PostgreSQL storage for idea-tracker.
package gorm

import (
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/hanno79/idea-tracker/pkg/models"
)

// Idea is the GORM model of the ideas table.
type Idea struct {
	ID                int64          `gorm:"primaryKey;autoIncrement"`
	Title             string         `gorm:"type:text;not null"`
	Problem           string         `gorm:"type:text;not null"`
	Description       sql.NullString `gorm:"type:text"`
	ExistingSolutions sql.NullString `gorm:"type:text"`
	Source            sql.NullString `gorm:"type:text"`
	Category          sql.NullString `gorm:"type:text;index"`
	Status            string         `gorm:"type:text;not null;default:'new';check:chk_ideas_status,status IN ('new', 'interesting', 'validated', 'reject');index"`
	CreatedAt         string         `gorm:"not null"`
	CreatedAtEpoch    int64          `gorm:"index:idx_ideas_created,sort:desc;not null"`
	UpdatedAt         string         `gorm:"not null"`
	UpdatedAtEpoch    int64          `gorm:"not null"`
	ResearchNotes     sql.NullString `gorm:"type:text"`
}

func (Idea) TableName() string { return "ideas" }

// BeforeCreate hook to ensure timestamps are set.
func (i *Idea) BeforeCreate(tx *gorm.DB) error {
	if i.CreatedAtEpoch == 0 {
		now := time.Now()
		i.CreatedAtEpoch = now.UnixMilli()
		i.CreatedAt = now.Format(time.RFC3339Nano)
	}
	if i.UpdatedAtEpoch == 0 {
		i.UpdatedAtEpoch = i.CreatedAtEpoch
		i.UpdatedAt = i.CreatedAt
	}
	if i.Status == "" {
		i.Status = string(models.StatusNew)
	}
	return nil
}

// toModel converts the row into the domain model.
func (i *Idea) toModel() *models.Idea {
	return &models.Idea{
		ID:                i.ID,
		Title:             i.Title,
		Problem:           i.Problem,
		Description:       i.Description.String,
		ExistingSolutions: i.ExistingSolutions.String,
		Source:            i.Source.String,
		Category:          i.Category.String,
		Status:            models.IdeaStatus(i.Status),
		CreatedAt:         i.CreatedAt,
		CreatedAtEpoch:    i.CreatedAtEpoch,
		UpdatedAt:         i.UpdatedAt,
		UpdatedAtEpoch:    i.UpdatedAtEpoch,
		ResearchNotes:     i.ResearchNotes.String,
	}
}

// ResearchLog is the GORM model of the research_log table.
type ResearchLog struct {
	ID                int64                  `gorm:"primaryKey;autoIncrement"`
	SearchTerm        sql.NullString         `gorm:"type:text"`
	Source            sql.NullString         `gorm:"type:text"`
	Findings          models.JSONStringArray `gorm:"type:text"` // JSON array
	ResearchedAt      string                 `gorm:"not null"`
	ResearchedAtEpoch int64                  `gorm:"index:idx_research_log_at,sort:desc;not null"`
}

func (ResearchLog) TableName() string { return "research_log" }

// BeforeCreate hook to ensure timestamps are set.
func (r *ResearchLog) BeforeCreate(tx *gorm.DB) error {
	if r.ResearchedAtEpoch == 0 {
		now := time.Now()
		r.ResearchedAtEpoch = now.UnixMilli()
		r.ResearchedAt = now.Format(time.RFC3339)
	}
	return nil
}

func (r *ResearchLog) toModel() *models.ResearchLogEntry {
	return &models.ResearchLogEntry{
		ID:                r.ID,
		SearchTerm:        r.SearchTerm.String,
		Source:            r.Source.String,
		Findings:          r.Findings,
		ResearchedAt:      r.ResearchedAt,
		ResearchedAtEpoch: r.ResearchedAtEpoch,
	}
}
