package ideas

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/hanno79/idea-tracker/internal/db/sqlite"
	"github.com/hanno79/idea-tracker/pkg/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Broadcast(data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := data.(Event); ok {
		p.events = append(p.events, ev)
	}
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		types = append(types, ev.Type)
	}
	return types
}

// ServiceSuite exercises the service against a real SQLite store.
type ServiceSuite struct {
	suite.Suite
	store  *sqlite.Store
	events *recordingPublisher
	svc    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	store, err := sqlite.NewStore(sqlite.StoreConfig{
		Path:     filepath.Join(s.T().TempDir(), "ideas.db"),
		MaxConns: 1,
	})
	s.Require().NoError(err)
	s.store = store
	s.events = &recordingPublisher{}

	svc, err := NewService(sqlite.NewIdeaStore(store), sqlite.NewResearchStore(store), WithPublisher(s.events))
	s.Require().NoError(err)
	s.svc = svc
}

func (s *ServiceSuite) TearDownTest() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

func (s *ServiceSuite) TestAdd_TrimsAndStores() {
	ctx := context.Background()

	idea, err := s.svc.Add(ctx, AddInput{
		Title:    "  Invoice bot  ",
		Problem:  "Manual invoicing",
		Source:   "Reddit",
		Category: "finance",
	})
	s.Require().NoError(err)
	s.Equal("Invoice bot", idea.Title)
	s.Equal(models.StatusNew, idea.Status)
	s.Positive(idea.ID)

	got, err := s.svc.Get(ctx, idea.ID)
	s.Require().NoError(err)
	s.Equal("Reddit", got.Source)
	s.Equal([]string{EventIdeaCreated}, s.events.types())
}

func (s *ServiceSuite) TestAdd_Validation() {
	ctx := context.Background()

	tests := []struct {
		name  string
		input AddInput
		field string
	}{
		{name: "empty title", input: AddInput{Problem: "P"}, field: "title"},
		{name: "blank problem", input: AddInput{Title: "T", Problem: "   "}, field: "problem"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.svc.Add(ctx, tt.input)
			s.Require().Error(err)
			s.True(errors.Is(err, models.ErrValidation))

			var verr *models.ValidationError
			s.Require().True(errors.As(err, &verr))
			s.Equal(tt.field, verr.Errors[0].Field)
		})
	}

	count, err := s.svc.Count(ctx)
	s.NoError(err)
	s.Zero(count)
	s.Empty(s.events.types())
}

func (s *ServiceSuite) TestGet_NotFound() {
	_, err := s.svc.Get(context.Background(), 42)
	s.True(errors.Is(err, models.ErrNotFound))
}

func (s *ServiceSuite) TestList_Filter() {
	ctx := context.Background()

	a, err := s.svc.Add(ctx, AddInput{Title: "A", Problem: "P"})
	s.Require().NoError(err)
	b, err := s.svc.Add(ctx, AddInput{Title: "B", Problem: "P"})
	s.Require().NoError(err)
	s.Require().NoError(s.svc.UpdateStatus(ctx, a.ID, "interesting"))

	all, err := s.svc.List(ctx, Filter{})
	s.Require().NoError(err)
	s.Len(all, 2)

	interesting, err := s.svc.List(ctx, Filter{Status: "interesting"})
	s.Require().NoError(err)
	s.Require().Len(interesting, 1)
	s.Equal(a.ID, interesting[0].ID)

	fresh, err := s.svc.List(ctx, Filter{Status: "new"})
	s.Require().NoError(err)
	s.Require().Len(fresh, 1)
	s.Equal(b.ID, fresh[0].ID)

	unknown, err := s.svc.List(ctx, Filter{Status: "archived"})
	s.Require().NoError(err)
	s.Empty(unknown)
}

func (s *ServiceSuite) TestUpdateStatus() {
	ctx := context.Background()

	idea, err := s.svc.Add(ctx, AddInput{Title: "X", Problem: "Y"})
	s.Require().NoError(err)

	s.Run("valid status", func() {
		s.NoError(s.svc.UpdateStatus(ctx, idea.ID, "Validated"))
		got, err := s.svc.Get(ctx, idea.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusValidated, got.Status)
	})

	s.Run("unknown status rejected", func() {
		err := s.svc.UpdateStatus(ctx, idea.ID, "maybe")
		s.True(errors.Is(err, models.ErrValidation))
		got, err := s.svc.Get(ctx, idea.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusValidated, got.Status)
	})

	s.Run("unknown id is a no-op", func() {
		s.NoError(s.svc.UpdateStatus(ctx, 9999, "reject"))
	})

	s.Equal([]string{EventIdeaCreated, EventIdeaStatusChanged}, s.events.types())
}

func (s *ServiceSuite) TestStatsAndCategories() {
	ctx := context.Background()

	for _, in := range []AddInput{
		{Title: "A", Problem: "P", Category: "tech"},
		{Title: "B", Problem: "P", Category: "finance"},
		{Title: "C", Problem: "P"},
	} {
		_, err := s.svc.Add(ctx, in)
		s.Require().NoError(err)
	}

	stats, err := s.svc.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(int64(3), stats.Total)
	s.Equal(stats.Total, stats.New+stats.Interesting+stats.Validated+stats.Rejected)

	categories, err := s.svc.Categories(ctx)
	s.Require().NoError(err)
	s.Equal([]string{"finance", "tech"}, categories)
}

func (s *ServiceSuite) TestImportResearch() {
	ctx := context.Background()

	result, err := s.svc.ImportResearch(ctx, ResearchBatch{
		SearchTerm: "web_research",
		Source:     "Research",
		Ideas: []AddInput{
			{Title: "Meal planner", Problem: "No time", Category: "food"},
			{Title: "", Problem: "missing title"},
			{Title: "Tax helper", Problem: "Confusing forms", Category: "finance", Source: "Forum"},
		},
	})
	s.Require().NoError(err)
	s.Len(result.Added, 2)
	s.Equal(1, result.Skipped)
	s.Positive(result.LogEntryID)
	s.Equal([]string{"food", "finance"}, result.Categories())
	s.Equal("Research", result.Added[0].Source)
	s.Equal("Forum", result.Added[1].Source)

	entries, err := s.svc.RecentResearch(ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("web_research", entries[0].SearchTerm)
	s.Equal(models.JSONStringArray{"Meal planner", "Tax helper"}, entries[0].Findings)

	types := s.events.types()
	s.Equal(EventResearchImported, types[len(types)-1])
}

func (s *ServiceSuite) TestImportResearch_SkipsDuplicates() {
	ctx := context.Background()

	_, err := s.svc.Add(ctx, AddInput{Title: "Invoice reminder bot", Problem: "Freelancers forget unpaid invoices"})
	s.Require().NoError(err)

	result, err := s.svc.ImportResearch(ctx, ResearchBatch{
		SearchTerm: "web_research",
		Ideas: []AddInput{
			{Title: "Invoice Reminder Bot!", Problem: "freelancers forget unpaid invoices"},
			{Title: "Plant watering app", Problem: "Houseplants die while travelling"},
			{Title: "Plant watering app", Problem: "Houseplants die while travelling"},
		},
	})
	s.Require().NoError(err)
	s.Equal(2, result.Duplicates)
	s.Equal([]string{"Plant watering app"}, result.Titles())

	count, err := s.svc.Count(ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), count)
}

func (s *ServiceSuite) TestImportResearch_InvalidCountsAsSkippedNotDuplicate() {
	ctx := context.Background()

	_, err := s.svc.Add(ctx, AddInput{Title: "Invoice reminder bot", Problem: "Freelancers forget unpaid invoices"})
	s.Require().NoError(err)

	result, err := s.svc.ImportResearch(ctx, ResearchBatch{
		Ideas: []AddInput{
			{Title: "  ", Problem: "Invoice reminder bot: freelancers forget unpaid invoices"},
		},
	})
	s.Require().NoError(err)
	s.Equal(1, result.Skipped)
	s.Zero(result.Duplicates)
	s.Empty(result.Added)
}

func (s *ServiceSuite) TestImportResearch_DuplicateDetectionDisabled() {
	ctx := context.Background()
	svc, err := NewService(sqlite.NewIdeaStore(s.store), sqlite.NewResearchStore(s.store), WithDuplicateThreshold(0))
	s.Require().NoError(err)

	in := AddInput{Title: "Plant watering app", Problem: "Houseplants die while travelling"}
	result, err := svc.ImportResearch(ctx, ResearchBatch{Ideas: []AddInput{in, in}})
	s.Require().NoError(err)
	s.Len(result.Added, 2)
	s.Zero(result.Duplicates)
}

func TestImportResult_EmptyTitles(t *testing.T) {
	r := &ImportResult{}
	require.NotNil(t, r.Titles())
	assert.Empty(t, r.Titles())
	assert.Empty(t, r.Categories())
}
