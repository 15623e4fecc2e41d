// Package gorm provides GORM-based PostgreSQL storage for idea-tracker.
package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hanno79/idea-tracker/pkg/models"
)

// IdeaStore provides idea-related database operations using GORM.
type IdeaStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewIdeaStore creates a new idea store.
func NewIdeaStore(store *Store) *IdeaStore {
	return &IdeaStore{db: store.DB, now: time.Now}
}

// Create inserts a new idea and returns its ID.
func (s *IdeaStore) Create(ctx context.Context, idea *models.Idea) (int64, error) {
	idea.Normalize()
	if err := idea.Validate(); err != nil {
		return 0, err
	}

	now := s.now()
	stamp := now.Format(time.RFC3339Nano)
	epoch := now.UnixMilli()

	row := &Idea{
		Title:             idea.Title,
		Problem:           idea.Problem,
		Description:       nullString(idea.Description),
		ExistingSolutions: nullString(idea.ExistingSolutions),
		Source:            nullString(idea.Source),
		Category:          nullString(idea.Category),
		Status:            string(models.StatusNew),
		CreatedAt:         stamp,
		CreatedAtEpoch:    epoch,
		UpdatedAt:         stamp,
		UpdatedAtEpoch:    epoch,
		ResearchNotes:     nullString(idea.ResearchNotes),
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return 0, fmt.Errorf("insert idea: %w", err)
	}

	*idea = *row.toModel()
	return row.ID, nil
}

// GetByID retrieves an idea by ID. Returns nil, nil when no such idea exists.
func (s *IdeaStore) GetByID(ctx context.Context, id int64) (*models.Idea, error) {
	var row Idea
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// List returns all ideas, most recently created first.
func (s *IdeaStore) List(ctx context.Context) ([]*models.Idea, error) {
	var rows []Idea
	err := s.db.WithContext(ctx).
		Order("created_at_epoch DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toModels(rows), nil
}

// ListByStatus returns ideas with exactly the given status, most recent first.
func (s *IdeaStore) ListByStatus(ctx context.Context, status models.IdeaStatus) ([]*models.Idea, error) {
	var rows []Idea
	err := s.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("created_at_epoch DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toModels(rows), nil
}

// UpdateStatus sets the status of an idea and refreshes its update timestamp.
// Reports false without error when the idea does not exist.
func (s *IdeaStore) UpdateStatus(ctx context.Context, id int64, status models.IdeaStatus) (bool, error) {
	if !status.IsValid() {
		return false, models.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	now := s.now()
	epoch := now.UnixMilli()

	result := s.db.WithContext(ctx).
		Model(&Idea{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           string(status),
			"updated_at":       gorm.Expr("CASE WHEN ? >= updated_at_epoch THEN ? ELSE updated_at END", epoch, now.Format(time.RFC3339Nano)),
			"updated_at_epoch": gorm.Expr("GREATEST(updated_at_epoch, ?)", epoch),
		})
	if result.Error != nil {
		return false, fmt.Errorf("update idea status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Stats returns the total number of ideas and the count per status.
func (s *IdeaStore) Stats(ctx context.Context) (*models.Stats, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&Idea{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &models.Stats{}
	for _, r := range rows {
		stats.Add(models.IdeaStatus(r.Status), r.Count)
	}
	return stats, nil
}

// Count returns the total number of ideas.
func (s *IdeaStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Idea{}).Count(&count).Error
	return count, err
}

// Categories returns all distinct non-empty categories in alphabetical order.
func (s *IdeaStore) Categories(ctx context.Context) ([]string, error) {
	categories := make([]string, 0)
	err := s.db.WithContext(ctx).
		Model(&Idea{}).
		Where("category IS NOT NULL AND category <> ''").
		Distinct().
		Order("category ASC").
		Pluck("category", &categories).Error
	return categories, err
}

func toModels(rows []Idea) []*models.Idea {
	ideas := make([]*models.Idea, 0, len(rows))
	for i := range rows {
		ideas = append(ideas, rows[i].toModel())
	}
	return ideas
}
