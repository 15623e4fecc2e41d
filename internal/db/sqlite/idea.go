// Package sqlite provides SQLite database operations for idea-tracker.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hanno79/idea-tracker/pkg/models"
)

// IdeaStore provides idea-related database operations.
type IdeaStore struct {
	store *Store
	now   func() time.Time
}

// NewIdeaStore creates a new idea store.
func NewIdeaStore(store *Store) *IdeaStore {
	return &IdeaStore{store: store, now: time.Now}
}

// Create inserts a new idea and returns its ID.
// Title and problem are required; status always starts as new.
func (s *IdeaStore) Create(ctx context.Context, idea *models.Idea) (int64, error) {
	idea.Normalize()
	if err := idea.Validate(); err != nil {
		return 0, err
	}

	now := s.now()
	stamp := now.Format(time.RFC3339Nano)
	epoch := now.UnixMilli()

	const query = `
		INSERT INTO ideas
		(title, problem, description, existing_solutions, source, category, status,
		 created_at, created_at_epoch, updated_at, updated_at_epoch, research_notes)
		VALUES (?, ?, ?, ?, ?, ?, 'new', ?, ?, ?, ?, ?)
	`

	result, err := s.store.ExecContext(ctx, query,
		idea.Title, idea.Problem,
		nullString(idea.Description), nullString(idea.ExistingSolutions),
		nullString(idea.Source), nullString(idea.Category),
		stamp, epoch, stamp, epoch,
		nullString(idea.ResearchNotes),
	)
	if err != nil {
		return 0, fmt.Errorf("insert idea: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert idea: last id: %w", err)
	}

	idea.ID = id
	idea.Status = models.StatusNew
	idea.CreatedAt, idea.UpdatedAt = stamp, stamp
	idea.CreatedAtEpoch, idea.UpdatedAtEpoch = epoch, epoch
	return id, nil
}

// GetByID retrieves an idea by ID. Returns nil, nil when no such idea exists.
func (s *IdeaStore) GetByID(ctx context.Context, id int64) (*models.Idea, error) {
	const query = `SELECT ` + ideaColumns + ` FROM ideas WHERE id = ? LIMIT 1`

	idea, err := scanIdea(s.store.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return idea, nil
}

// List returns all ideas, most recently created first.
func (s *IdeaStore) List(ctx context.Context) ([]*models.Idea, error) {
	const query = `SELECT ` + ideaColumns + ` FROM ideas ORDER BY created_at_epoch DESC, id DESC`

	rows, err := s.store.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanIdeaRows(rows)
}

// ListByStatus returns ideas with exactly the given status, most recent first.
// Unknown statuses simply match nothing.
func (s *IdeaStore) ListByStatus(ctx context.Context, status models.IdeaStatus) ([]*models.Idea, error) {
	const query = `SELECT ` + ideaColumns + ` FROM ideas
		WHERE status = ?
		ORDER BY created_at_epoch DESC, id DESC`

	rows, err := s.store.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanIdeaRows(rows)
}

// UpdateStatus sets the status of an idea and refreshes its update timestamp.
// Reports false without error when the idea does not exist.
func (s *IdeaStore) UpdateStatus(ctx context.Context, id int64, status models.IdeaStatus) (bool, error) {
	if !status.IsValid() {
		return false, models.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	now := s.now()
	epoch := now.UnixMilli()

	// updated_at never moves backwards, even if the wall clock does.
	const query = `
		UPDATE ideas
		SET status = ?,
		    updated_at = CASE WHEN ? >= updated_at_epoch THEN ? ELSE updated_at END,
		    updated_at_epoch = MAX(updated_at_epoch, ?)
		WHERE id = ?
	`

	result, err := s.store.ExecContext(ctx, query,
		string(status), epoch, now.Format(time.RFC3339Nano), epoch, id,
	)
	if err != nil {
		return false, fmt.Errorf("update idea status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Stats returns the total number of ideas and the count per status.
// A single grouped query keeps the counts consistent with each other.
func (s *IdeaStore) Stats(ctx context.Context) (*models.Stats, error) {
	const query = `SELECT status, COUNT(*) FROM ideas GROUP BY status`

	rows, err := s.store.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &models.Stats{}
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.Add(models.IdeaStatus(status), count)
	}
	return stats, rows.Err()
}

// Count returns the total number of ideas.
func (s *IdeaStore) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM ideas`

	var count int64
	err := s.store.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}

// Categories returns all distinct non-empty categories in alphabetical order.
func (s *IdeaStore) Categories(ctx context.Context) ([]string, error) {
	const query = `
		SELECT DISTINCT category
		FROM ideas
		WHERE category IS NOT NULL AND category != ''
		ORDER BY category ASC
	`

	rows, err := s.store.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]string, 0)
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}
