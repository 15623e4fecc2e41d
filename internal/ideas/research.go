package ideas

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hanno79/idea-tracker/pkg/models"
	"github.com/hanno79/idea-tracker/pkg/similarity"
)

// ResearchBatch is a set of researched ideas imported in one run.
type ResearchBatch struct {
	SearchTerm string     `yaml:"search_term" json:"search_term"`
	Source     string     `yaml:"source" json:"source"`
	Ideas      []AddInput `yaml:"ideas" json:"ideas"`
}

// ImportResult summarizes a research import.
type ImportResult struct {
	Added      []*models.Idea
	Skipped    int
	Duplicates int
	LogEntryID int64
}

// Titles returns the titles of the added ideas in import order.
func (r *ImportResult) Titles() []string {
	titles := make([]string, 0, len(r.Added))
	for _, idea := range r.Added {
		titles = append(titles, idea.Title)
	}
	return titles
}

// Categories returns the distinct non-empty categories of the added ideas in first-seen order.
func (r *ImportResult) Categories() []string {
	seen := make(map[string]bool)
	var categories []string
	for _, idea := range r.Added {
		if idea.Category == "" || seen[idea.Category] {
			continue
		}
		seen[idea.Category] = true
		categories = append(categories, idea.Category)
	}
	return categories
}

// ImportResearch inserts every valid idea of the batch and appends one research log entry.
// Ideas failing validation are skipped and counted before any duplicate check.
// Valid ideas resembling a stored idea or an earlier idea of the same batch are
// counted as duplicates and not stored.
func (s *Service) ImportResearch(ctx context.Context, batch ResearchBatch) (*ImportResult, error) {
	result := &ImportResult{Added: make([]*models.Idea, 0, len(batch.Ideas))}

	var known []*models.Idea
	if s.duplicateThreshold > 0 {
		existing, err := s.repo.List(ctx)
		if err != nil {
			return result, fmt.Errorf("list ideas: %w", err)
		}
		known = existing
	}

	for i, in := range batch.Ideas {
		if in.Source == "" {
			in.Source = batch.Source
		}
		candidate := in.idea()
		if err := candidate.Validate(); err != nil {
			log.Warn().Err(err).Int("index", i).Msg("Skipping invalid research idea")
			result.Skipped++
			continue
		}
		if s.duplicateThreshold > 0 && similarity.IsSimilarToAny(candidate, known, s.duplicateThreshold) {
			log.Debug().Int("index", i).Str("title", candidate.Title).Msg("Skipping duplicate research idea")
			result.Duplicates++
			continue
		}
		idea, err := s.Add(ctx, in)
		if err != nil {
			return result, fmt.Errorf("import idea %d: %w", i, err)
		}
		result.Added = append(result.Added, idea)
		known = append(known, idea)
	}

	entry := models.NewResearchLogEntry(batch.SearchTerm, batch.Source, result.Titles())
	id, err := s.research.Append(ctx, entry)
	if err != nil {
		return result, fmt.Errorf("append research log: %w", err)
	}
	result.LogEntryID = id

	s.publish(Event{Type: EventResearchImported, ID: id, Count: len(result.Added)})

	log.Info().
		Str("searchTerm", batch.SearchTerm).
		Int("added", len(result.Added)).
		Int("skipped", result.Skipped).
		Int("duplicates", result.Duplicates).
		Msg("Research batch imported")

	return result, nil
}
