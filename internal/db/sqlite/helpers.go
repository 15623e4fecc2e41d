// Package sqlite provides SQLite database operations for idea-tracker.
package sqlite

import (
	"database/sql"

	"github.com/hanno79/idea-tracker/pkg/models"
)

// ideaColumns is the column list shared by every idea SELECT.
const ideaColumns = `id, title, problem, description, existing_solutions, source, category,
	status, created_at, created_at_epoch, updated_at, updated_at_epoch, research_notes`

// nullString converts a string to sql.NullString.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// scanIdea scans a single idea from a row scanner.
func scanIdea(scanner interface{ Scan(...interface{}) error }) (*models.Idea, error) {
	var idea models.Idea
	var description, existing, source, category, researchNotes, status sql.NullString
	if err := scanner.Scan(
		&idea.ID, &idea.Title, &idea.Problem, &description, &existing, &source, &category,
		&status, &idea.CreatedAt, &idea.CreatedAtEpoch, &idea.UpdatedAt, &idea.UpdatedAtEpoch,
		&researchNotes,
	); err != nil {
		return nil, err
	}
	idea.Description = description.String
	idea.ExistingSolutions = existing.String
	idea.Source = source.String
	idea.Category = category.String
	idea.ResearchNotes = researchNotes.String
	idea.Status = models.IdeaStatus(status.String)
	return &idea, nil
}

// scanIdeaRows scans multiple ideas from rows.
func scanIdeaRows(rows *sql.Rows) ([]*models.Idea, error) {
	ideas := make([]*models.Idea, 0)
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, err
		}
		ideas = append(ideas, idea)
	}
	return ideas, rows.Err()
}

// scanResearchEntry scans a single research log entry from a row scanner.
func scanResearchEntry(scanner interface{ Scan(...interface{}) error }) (*models.ResearchLogEntry, error) {
	var entry models.ResearchLogEntry
	var searchTerm, source sql.NullString
	if err := scanner.Scan(
		&entry.ID, &searchTerm, &source, &entry.Findings,
		&entry.ResearchedAt, &entry.ResearchedAtEpoch,
	); err != nil {
		return nil, err
	}
	entry.SearchTerm = searchTerm.String
	entry.Source = source.String
	return &entry, nil
}
