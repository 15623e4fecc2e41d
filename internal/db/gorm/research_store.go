// Package gorm provides GORM-based PostgreSQL storage for idea-tracker.
package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/hanno79/idea-tracker/pkg/models"
)

// ResearchStore provides research log operations using GORM.
type ResearchStore struct {
	db *gorm.DB
}

// NewResearchStore creates a new research log store.
func NewResearchStore(store *Store) *ResearchStore {
	return &ResearchStore{db: store.DB}
}

// Append adds an entry to the research log and returns its ID.
func (s *ResearchStore) Append(ctx context.Context, entry *models.ResearchLogEntry) (int64, error) {
	row := &ResearchLog{
		SearchTerm:        nullString(entry.SearchTerm),
		Source:            nullString(entry.Source),
		Findings:          entry.Findings,
		ResearchedAt:      entry.ResearchedAt,
		ResearchedAtEpoch: entry.ResearchedAtEpoch,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return 0, fmt.Errorf("insert research log: %w", err)
	}
	entry.ID = row.ID
	return row.ID, nil
}

// Recent returns the newest research log entries, at most limit of them.
func (s *ResearchStore) Recent(ctx context.Context, limit int) ([]*models.ResearchLogEntry, error) {
	if limit <= 0 {
		limit = models.DefaultResearchLogLimit
	}

	var rows []ResearchLog
	err := s.db.WithContext(ctx).
		Order("researched_at_epoch DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*models.ResearchLogEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].toModel())
	}
	return entries, nil
}
