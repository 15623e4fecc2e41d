// Package sqlite provides SQLite database operations for idea-tracker.
package sqlite

import (
	"context"
	"fmt"

	"github.com/hanno79/idea-tracker/pkg/models"
)

// ResearchStore provides research log operations.
type ResearchStore struct {
	store *Store
}

// NewResearchStore creates a new research log store.
func NewResearchStore(store *Store) *ResearchStore {
	return &ResearchStore{store: store}
}

// Append adds an entry to the research log and returns its ID.
func (s *ResearchStore) Append(ctx context.Context, entry *models.ResearchLogEntry) (int64, error) {
	const query = `
		INSERT INTO research_log (search_term, source, findings, researched_at, researched_at_epoch)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.store.ExecContext(ctx, query,
		nullString(entry.SearchTerm), nullString(entry.Source), entry.Findings,
		entry.ResearchedAt, entry.ResearchedAtEpoch,
	)
	if err != nil {
		return 0, fmt.Errorf("insert research log: %w", err)
	}

	id, _ := result.LastInsertId()
	entry.ID = id
	return id, nil
}

// Recent returns the newest research log entries, at most limit of them.
func (s *ResearchStore) Recent(ctx context.Context, limit int) ([]*models.ResearchLogEntry, error) {
	if limit <= 0 {
		limit = models.DefaultResearchLogLimit
	}

	const query = `
		SELECT id, search_term, source, findings, researched_at, researched_at_epoch
		FROM research_log
		ORDER BY researched_at_epoch DESC, id DESC
		LIMIT ?
	`

	rows, err := s.store.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.ResearchLogEntry, 0)
	for rows.Next() {
		entry, err := scanResearchEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
