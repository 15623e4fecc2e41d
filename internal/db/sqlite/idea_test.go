package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hanno79/idea-tracker/pkg/models"
	"github.com/stretchr/testify/suite"
)

// IdeaStoreSuite is a test suite for IdeaStore operations.
type IdeaStoreSuite struct {
	suite.Suite
	ideaStore *IdeaStore
	store     *Store
	cleanup   func()
	clock     time.Time
}

func (s *IdeaStoreSuite) SetupTest() {
	s.store, s.cleanup = testStore(s.T())
	s.ideaStore = NewIdeaStore(s.store)

	// Deterministic clock advancing one second per call.
	s.clock = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.ideaStore.now = func() time.Time {
		s.clock = s.clock.Add(time.Second)
		return s.clock
	}
}

func (s *IdeaStoreSuite) TearDownTest() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

func TestIdeaStoreSuite(t *testing.T) {
	suite.Run(t, new(IdeaStoreSuite))
}

func (s *IdeaStoreSuite) create(title, problem string) int64 {
	id, err := s.ideaStore.Create(context.Background(), newTestIdea(title, problem))
	s.Require().NoError(err)
	return id
}

// TestCreate_AssignsIncreasingIDs tests that IDs are unique and strictly increasing.
func (s *IdeaStoreSuite) TestCreate_AssignsIncreasingIDs() {
	var last int64
	for i := 0; i < 5; i++ {
		id := s.create("Idea", "Problem")
		s.Greater(id, last)
		last = id
	}
}

// TestCreate_DefaultsAndTimestamps tests the state of a freshly inserted idea.
func (s *IdeaStoreSuite) TestCreate_DefaultsAndTimestamps() {
	ctx := context.Background()

	idea := &models.Idea{
		Title:             "Weiterbildungs-Tracker",
		Problem:           "Keine Übersicht über Zertifizierungen",
		Description:       "Tool mit Erinnerungen",
		ExistingSolutions: "LinkedIn Learning",
		Source:            "Web Research",
		Category:          "education",
		ResearchNotes:     "seen twice",
		Status:            models.StatusValidated, // ignored on insert
	}
	id, err := s.ideaStore.Create(ctx, idea)
	s.Require().NoError(err)

	got, err := s.ideaStore.GetByID(ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(got)

	s.Equal(models.StatusNew, got.Status)
	s.Equal(got.CreatedAt, got.UpdatedAt)
	s.Equal(got.CreatedAtEpoch, got.UpdatedAtEpoch)
	s.Equal("Weiterbildungs-Tracker", got.Title)
	s.Equal("Tool mit Erinnerungen", got.Description)
	s.Equal("LinkedIn Learning", got.ExistingSolutions)
	s.Equal("Web Research", got.Source)
	s.Equal("education", got.Category)
	s.Equal("seen twice", got.ResearchNotes)

	// The passed-in idea reflects the stored state.
	s.Equal(id, idea.ID)
	s.Equal(models.StatusNew, idea.Status)
}

// TestCreate_Validation_TableDriven tests that invalid ideas never create rows.
func (s *IdeaStoreSuite) TestCreate_Validation_TableDriven() {
	ctx := context.Background()

	tests := []struct {
		name    string
		title   string
		problem string
	}{
		{name: "empty title", title: "", problem: "Y"},
		{name: "empty problem", title: "X", problem: ""},
		{name: "whitespace title", title: "   ", problem: "Y"},
		{name: "both empty", title: "", problem: ""},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.ideaStore.Create(ctx, newTestIdea(tt.title, tt.problem))
			s.Error(err)
			s.True(errors.Is(err, models.ErrValidation))

			count, err := s.ideaStore.Count(ctx)
			s.NoError(err)
			s.Equal(int64(0), count)
		})
	}
}

// TestGetByID_NotFound tests lookup of a missing idea.
func (s *IdeaStoreSuite) TestGetByID_NotFound() {
	got, err := s.ideaStore.GetByID(context.Background(), 9999)
	s.NoError(err)
	s.Nil(got)
}

// TestList_OrderNewestFirst tests list ordering.
func (s *IdeaStoreSuite) TestList_OrderNewestFirst() {
	first := s.create("First", "P")
	second := s.create("Second", "P")
	third := s.create("Third", "P")

	ideas, err := s.ideaStore.List(context.Background())
	s.Require().NoError(err)
	s.Require().Len(ideas, 3)
	s.Equal([]int64{third, second, first}, []int64{ideas[0].ID, ideas[1].ID, ideas[2].ID})
}

// TestList_Empty tests that an empty table yields an empty, non-nil slice.
func (s *IdeaStoreSuite) TestList_Empty() {
	ideas, err := s.ideaStore.List(context.Background())
	s.NoError(err)
	s.NotNil(ideas)
	s.Empty(ideas)
}

// TestListByStatus_SubsetOfList tests that filtering preserves the relative order.
func (s *IdeaStoreSuite) TestListByStatus_SubsetOfList() {
	ctx := context.Background()

	ids := make([]int64, 0, 6)
	for i := 0; i < 6; i++ {
		ids = append(ids, s.create("Idea", "P"))
	}
	for _, id := range []int64{ids[0], ids[2], ids[5]} {
		ok, err := s.ideaStore.UpdateStatus(ctx, id, models.StatusInteresting)
		s.Require().NoError(err)
		s.Require().True(ok)
	}

	all, err := s.ideaStore.List(ctx)
	s.Require().NoError(err)

	for _, status := range models.AllStatuses() {
		filtered, err := s.ideaStore.ListByStatus(ctx, status)
		s.Require().NoError(err)

		var expected []int64
		for _, idea := range all {
			if idea.Status == status {
				expected = append(expected, idea.ID)
			}
		}
		var got []int64
		for _, idea := range filtered {
			got = append(got, idea.ID)
		}
		s.Equal(expected, got, "status %s", status)
	}
}

// TestListByStatus_Unknown tests that unknown statuses yield an empty result.
func (s *IdeaStoreSuite) TestListByStatus_Unknown() {
	s.create("Idea", "P")

	ideas, err := s.ideaStore.ListByStatus(context.Background(), models.IdeaStatus("archived"))
	s.NoError(err)
	s.Empty(ideas)
}

// TestUpdateStatus_Sequence tests repeated status changes on one idea.
func (s *IdeaStoreSuite) TestUpdateStatus_Sequence() {
	ctx := context.Background()
	id := s.create("Idea", "P")

	before, err := s.ideaStore.GetByID(ctx, id)
	s.Require().NoError(err)

	sequence := []models.IdeaStatus{
		models.StatusInteresting, models.StatusReject, models.StatusNew, models.StatusValidated,
	}
	lastUpdated := before.UpdatedAtEpoch
	for _, status := range sequence {
		ok, err := s.ideaStore.UpdateStatus(ctx, id, status)
		s.Require().NoError(err)
		s.True(ok)

		got, err := s.ideaStore.GetByID(ctx, id)
		s.Require().NoError(err)
		s.Equal(status, got.Status)
		s.Greater(got.UpdatedAtEpoch, lastUpdated)
		s.Equal(before.CreatedAt, got.CreatedAt)
		s.Equal(before.CreatedAtEpoch, got.CreatedAtEpoch)
		lastUpdated = got.UpdatedAtEpoch
	}
}

// TestUpdateStatus_ClockGoesBackwards tests that updated_at never decreases.
func (s *IdeaStoreSuite) TestUpdateStatus_ClockGoesBackwards() {
	ctx := context.Background()
	id := s.create("Idea", "P")

	created, err := s.ideaStore.GetByID(ctx, id)
	s.Require().NoError(err)

	s.ideaStore.now = func() time.Time { return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC) }
	ok, err := s.ideaStore.UpdateStatus(ctx, id, models.StatusReject)
	s.Require().NoError(err)
	s.True(ok)

	got, err := s.ideaStore.GetByID(ctx, id)
	s.Require().NoError(err)
	s.Equal(models.StatusReject, got.Status)
	s.Equal(created.UpdatedAtEpoch, got.UpdatedAtEpoch)
	s.Equal(created.UpdatedAt, got.UpdatedAt)
	s.GreaterOrEqual(got.UpdatedAtEpoch, got.CreatedAtEpoch)
}

// TestUpdateStatus_UnknownID tests the silent no-op on missing ideas.
func (s *IdeaStoreSuite) TestUpdateStatus_UnknownID() {
	ok, err := s.ideaStore.UpdateStatus(context.Background(), 424242, models.StatusValidated)
	s.NoError(err)
	s.False(ok)
}

// TestUpdateStatus_InvalidStatus tests that arbitrary text is never persisted.
func (s *IdeaStoreSuite) TestUpdateStatus_InvalidStatus() {
	ctx := context.Background()
	id := s.create("Idea", "P")

	ok, err := s.ideaStore.UpdateStatus(ctx, id, models.IdeaStatus("maybe"))
	s.Error(err)
	s.True(errors.Is(err, models.ErrValidation))
	s.False(ok)

	got, err := s.ideaStore.GetByID(ctx, id)
	s.Require().NoError(err)
	s.Equal(models.StatusNew, got.Status)
}

// TestStats tests aggregate counts.
func (s *IdeaStoreSuite) TestStats() {
	ctx := context.Background()

	stats, err := s.ideaStore.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(models.Stats{}, *stats)

	ids := make([]int64, 0, 7)
	for i := 0; i < 7; i++ {
		ids = append(ids, s.create("Idea", "P"))
	}
	updates := map[int]models.IdeaStatus{
		0: models.StatusInteresting,
		1: models.StatusInteresting,
		2: models.StatusValidated,
		3: models.StatusReject,
	}
	for i, status := range updates {
		_, err := s.ideaStore.UpdateStatus(ctx, ids[i], status)
		s.Require().NoError(err)
	}

	stats, err = s.ideaStore.Stats(ctx)
	s.Require().NoError(err)

	all, err := s.ideaStore.List(ctx)
	s.Require().NoError(err)

	s.Equal(int64(len(all)), stats.Total)
	s.Equal(int64(3), stats.New)
	s.Equal(int64(2), stats.Interesting)
	s.Equal(int64(1), stats.Validated)
	s.Equal(int64(1), stats.Rejected)
	s.Equal(stats.Total, stats.New+stats.Interesting+stats.Validated+stats.Rejected)
}

// TestCategories tests distinct category listing.
func (s *IdeaStoreSuite) TestCategories() {
	ctx := context.Background()

	for _, category := range []string{"tech", "finance", "", "tech", "health"} {
		idea := newTestIdea("Idea", "P")
		idea.Category = category
		_, err := s.ideaStore.Create(ctx, idea)
		s.Require().NoError(err)
	}

	categories, err := s.ideaStore.Categories(ctx)
	s.Require().NoError(err)
	s.Equal([]string{"finance", "health", "tech"}, categories)
}

// TestEndToEnd_StatusLifecycle follows one idea from insert to validation.
func (s *IdeaStoreSuite) TestEndToEnd_StatusLifecycle() {
	ctx := context.Background()

	idea := newTestIdea("X", "Y")
	idea.Source = "Reddit"
	id, err := s.ideaStore.Create(ctx, idea)
	s.Require().NoError(err)

	all, err := s.ideaStore.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(models.StatusNew, all[0].Status)
	s.Equal("Reddit", all[0].Source)

	ok, err := s.ideaStore.UpdateStatus(ctx, id, models.StatusValidated)
	s.Require().NoError(err)
	s.True(ok)

	validated, err := s.ideaStore.ListByStatus(ctx, models.StatusValidated)
	s.Require().NoError(err)
	s.Require().Len(validated, 1)
	s.Equal(id, validated[0].ID)

	fresh, err := s.ideaStore.ListByStatus(ctx, models.StatusNew)
	s.Require().NoError(err)
	s.Empty(fresh)
}
