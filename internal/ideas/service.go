// Package ideas provides the query and filter layer over the idea record store.
package ideas

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hanno79/idea-tracker/pkg/models"
	"github.com/hanno79/idea-tracker/pkg/similarity"
)

// Event types published to dashboard clients.
const (
	EventIdeaCreated       = "idea.created"
	EventIdeaStatusChanged = "idea.status_changed"
	EventResearchImported  = "research.imported"
)

// Repository is the persistent idea table.
type Repository interface {
	Create(ctx context.Context, idea *models.Idea) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Idea, error)
	List(ctx context.Context) ([]*models.Idea, error)
	ListByStatus(ctx context.Context, status models.IdeaStatus) ([]*models.Idea, error)
	UpdateStatus(ctx context.Context, id int64, status models.IdeaStatus) (bool, error)
	Stats(ctx context.Context) (*models.Stats, error)
	Count(ctx context.Context) (int64, error)
	Categories(ctx context.Context) ([]string, error)
}

// ResearchLog is the append-only research audit trail.
type ResearchLog interface {
	Append(ctx context.Context, entry *models.ResearchLogEntry) (int64, error)
	Recent(ctx context.Context, limit int) ([]*models.ResearchLogEntry, error)
}

// EventPublisher receives idea change events.
type EventPublisher interface {
	Broadcast(data interface{})
}

// Event is the payload published for idea changes.
type Event struct {
	Type   string       `json:"type"`
	Idea   *models.Idea `json:"idea,omitempty"`
	ID     int64        `json:"id,omitempty"`
	Status string       `json:"status,omitempty"`
	Count  int          `json:"count,omitempty"`
}

// AddInput carries the fields of a new idea as submitted by a client.
type AddInput struct {
	Title             string `json:"title" yaml:"title"`
	Problem           string `json:"problem" yaml:"problem"`
	Description       string `json:"description" yaml:"description"`
	ExistingSolutions string `json:"existing_solutions" yaml:"existing_solutions"`
	Source            string `json:"source" yaml:"source"`
	Category          string `json:"category" yaml:"category"`
	ResearchNotes     string `json:"research_notes" yaml:"research_notes"`
}

func (in AddInput) idea() *models.Idea {
	idea := models.NewIdea(in.Title, in.Problem)
	idea.Description = in.Description
	idea.ExistingSolutions = in.ExistingSolutions
	idea.Source = in.Source
	idea.Category = in.Category
	idea.ResearchNotes = in.ResearchNotes
	idea.Normalize()
	return idea
}

// Filter selects a subset of ideas. An empty Status selects all ideas.
type Filter struct {
	Status string
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the event publisher.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithMeter sets the meter used for service counters.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) { s.meter = m }
}

// WithDuplicateThreshold sets the similarity at which imported ideas count as duplicates.
// A threshold of zero or less disables duplicate detection.
func WithDuplicateThreshold(t float64) Option {
	return func(s *Service) { s.duplicateThreshold = t }
}

// Service composes the record store with status filtering, events and metrics.
type Service struct {
	repo     Repository
	research ResearchLog
	events   EventPublisher
	meter    metric.Meter

	duplicateThreshold float64

	created       metric.Int64Counter
	statusChanges metric.Int64Counter
}

// NewService creates a new idea service.
func NewService(repo Repository, research ResearchLog, opts ...Option) (*Service, error) {
	s := &Service{
		repo:     repo,
		research: research,
		meter:    otel.Meter("github.com/hanno79/idea-tracker/internal/ideas"),

		duplicateThreshold: similarity.DefaultThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	s.created, err = s.meter.Int64Counter("ideas.created",
		metric.WithDescription("Number of ideas added"))
	if err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}
	s.statusChanges, err = s.meter.Int64Counter("ideas.status_changes",
		metric.WithDescription("Number of idea status changes"))
	if err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}

	return s, nil
}

// Add validates and stores a new idea.
func (s *Service) Add(ctx context.Context, in AddInput) (*models.Idea, error) {
	idea := in.idea()
	if err := idea.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.Create(ctx, idea); err != nil {
		return nil, err
	}

	s.created.Add(ctx, 1, metric.WithAttributes(attribute.String("source", sourceLabel(idea.Source))))
	s.publish(Event{Type: EventIdeaCreated, Idea: idea, ID: idea.ID})

	log.Info().
		Int64("id", idea.ID).
		Str("title", idea.Title).
		Msg("Idea added")

	return idea, nil
}

// Get returns a single idea or models.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*models.Idea, error) {
	idea, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if idea == nil {
		return nil, models.ErrNotFound
	}
	return idea, nil
}

// List returns ideas matching the filter, newest first. Every call reads the store.
func (s *Service) List(ctx context.Context, f Filter) ([]*models.Idea, error) {
	status := strings.TrimSpace(f.Status)
	if status == "" {
		return s.repo.List(ctx)
	}
	// Unknown values match nothing.
	return s.repo.ListByStatus(ctx, models.IdeaStatus(status))
}

// UpdateStatus changes the status of an idea. Unknown ids are a silent no-op.
func (s *Service) UpdateStatus(ctx context.Context, id int64, raw string) error {
	status, err := models.ParseIdeaStatus(raw)
	if err != nil {
		return err
	}

	ok, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return err
	}
	if !ok {
		log.Debug().Int64("id", id).Str("status", status.String()).Msg("Status update for unknown idea ignored")
		return nil
	}

	s.statusChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status.String())))
	s.publish(Event{Type: EventIdeaStatusChanged, ID: id, Status: status.String()})
	return nil
}

// Stats returns per-status counts.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	return s.repo.Stats(ctx)
}

// Categories returns the distinct categories in use.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.repo.Categories(ctx)
}

// Count returns the number of stored ideas.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// RecentResearch returns the newest research log entries.
func (s *Service) RecentResearch(ctx context.Context, limit int) ([]*models.ResearchLogEntry, error) {
	return s.research.Recent(ctx, limit)
}

func (s *Service) publish(ev Event) {
	if s.events == nil {
		return
	}
	s.events.Broadcast(ev)
}

func sourceLabel(source string) string {
	if source == "" {
		return "manual"
	}
	return strings.ToLower(source)
}

// EventType names the event on the SSE stream.
func (e Event) EventType() string { return e.Type }
