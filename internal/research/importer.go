// Package research imports batches of researched ideas from YAML files.
package research

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/hanno79/idea-tracker/internal/ideas"
	"github.com/hanno79/idea-tracker/internal/notify"
)

// Defaults applied to batches that leave the header empty.
const (
	DefaultSearchTerm = "web_research"
	DefaultSource     = "research"
)

// ErrEmptyBatch is returned when a batch file holds no ideas.
var ErrEmptyBatch = errors.New("research: batch has no ideas")

// Store is the part of the idea service the importer needs.
type Store interface {
	Count(ctx context.Context) (int64, error)
	ImportResearch(ctx context.Context, batch ideas.ResearchBatch) (*ideas.ImportResult, error)
}

// Load reads a research batch from a YAML file.
func Load(path string) (*ideas.ResearchBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a research batch. Unknown keys are rejected.
func Parse(data []byte) (*ideas.ResearchBatch, error) {
	var batch ideas.ResearchBatch
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&batch); err != nil {
		return nil, fmt.Errorf("research: decode batch: %w", err)
	}

	if len(batch.Ideas) == 0 {
		return nil, ErrEmptyBatch
	}
	if strings.TrimSpace(batch.SearchTerm) == "" {
		batch.SearchTerm = DefaultSearchTerm
	}
	if strings.TrimSpace(batch.Source) == "" {
		batch.Source = DefaultSource
	}
	return &batch, nil
}

// Options control an import run.
type Options struct {
	// IfEmpty imports only when the store holds no ideas.
	IfEmpty bool
}

// Importer loads batches into the store and notifies the operator.
type Importer struct {
	store    Store
	notifier notify.Notifier
}

// NewImporter creates an importer. A nil notifier disables notifications.
func NewImporter(store Store, notifier notify.Notifier) *Importer {
	return &Importer{store: store, notifier: notifier}
}

// Import stores the batch. It returns nil, nil when IfEmpty is set and ideas already exist.
func (i *Importer) Import(ctx context.Context, batch *ideas.ResearchBatch, opts Options) (*ideas.ImportResult, error) {
	if opts.IfEmpty {
		count, err := i.store.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count ideas: %w", err)
		}
		if count > 0 {
			log.Info().Int64("existing", count).Msg("Store already has ideas, skipping import")
			return nil, nil
		}
	}

	result, err := i.store.ImportResearch(ctx, *batch)
	if err != nil {
		return result, err
	}

	notify.BestEffort(ctx, i.notifier, Summary(result))
	return result, nil
}

// Summary renders a short operator message for an import.
func Summary(result *ideas.ImportResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research complete: %d new ideas", len(result.Added))
	switch {
	case result.Skipped > 0 && result.Duplicates > 0:
		fmt.Fprintf(&b, " (%d skipped, %d duplicates)", result.Skipped, result.Duplicates)
	case result.Skipped > 0:
		fmt.Fprintf(&b, " (%d skipped)", result.Skipped)
	case result.Duplicates > 0:
		fmt.Fprintf(&b, " (%d duplicates)", result.Duplicates)
	}
	b.WriteString("\n")
	for _, title := range result.Titles() {
		fmt.Fprintf(&b, "- %s\n", title)
	}
	if categories := result.Categories(); len(categories) > 0 {
		fmt.Fprintf(&b, "Categories: %s", strings.Join(categories, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
