// Package gorm provides GORM-based PostgreSQL storage for idea-tracker.
package gorm

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm/logger"

	"github.com/hanno79/idea-tracker/pkg/models"
)

// testDSNEnv names the variable holding a disposable PostgreSQL database for tests.
const testDSNEnv = "IDEA_TRACKER_TEST_POSTGRES_DSN"

// PostgresSuite runs the store operations against a real PostgreSQL database.
type PostgresSuite struct {
	suite.Suite
	store     *Store
	ideas     *IdeaStore
	research  *ResearchStore
}

func TestPostgresSuite(t *testing.T) {
	if os.Getenv(testDSNEnv) == "" {
		t.Skipf("%s not set, skipping PostgreSQL tests", testDSNEnv)
	}
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	store, err := NewStore(Config{DSN: os.Getenv(testDSNEnv), MaxConns: 4, LogLevel: logger.Silent})
	s.Require().NoError(err)
	s.store = store
	s.ideas = NewIdeaStore(store)
	s.research = NewResearchStore(store)
}

func (s *PostgresSuite) SetupTest() {
	s.Require().NoError(s.store.DB.Exec("TRUNCATE ideas, research_log RESTART IDENTITY").Error)
}

func (s *PostgresSuite) TearDownSuite() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

// TestMigrationIdempotency tests that migrations can run repeatedly.
func (s *PostgresSuite) TestMigrationIdempotency() {
	s.NoError(runMigrations(s.store.DB))
	s.True(s.store.DB.Migrator().HasTable("ideas"))
	s.True(s.store.DB.Migrator().HasTable("research_log"))
}

// TestIdeaLifecycle tests insert, filter and status update.
func (s *PostgresSuite) TestIdeaLifecycle() {
	ctx := context.Background()

	idea := models.NewIdea("X", "Y")
	idea.Source = "Reddit"
	id, err := s.ideas.Create(ctx, idea)
	s.Require().NoError(err)
	s.Equal(id, idea.ID)
	s.Equal(idea.CreatedAtEpoch, idea.UpdatedAtEpoch)

	got, err := s.ideas.GetByID(ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(models.StatusNew, got.Status)
	s.Equal("Reddit", got.Source)

	ok, err := s.ideas.UpdateStatus(ctx, id, models.StatusValidated)
	s.Require().NoError(err)
	s.True(ok)

	validated, err := s.ideas.ListByStatus(ctx, models.StatusValidated)
	s.Require().NoError(err)
	s.Len(validated, 1)

	fresh, err := s.ideas.ListByStatus(ctx, models.StatusNew)
	s.Require().NoError(err)
	s.Empty(fresh)

	ok, err = s.ideas.UpdateStatus(ctx, 99999, models.StatusReject)
	s.NoError(err)
	s.False(ok)

	_, err = s.ideas.UpdateStatus(ctx, id, models.IdeaStatus("bogus"))
	s.True(errors.Is(err, models.ErrValidation))
}

// TestCreate_Validation tests that invalid ideas are rejected before insert.
func (s *PostgresSuite) TestCreate_Validation() {
	ctx := context.Background()

	_, err := s.ideas.Create(ctx, models.NewIdea("", "Y"))
	s.True(errors.Is(err, models.ErrValidation))

	count, err := s.ideas.Count(ctx)
	s.NoError(err)
	s.Zero(count)
}

// TestStatsAndCategories tests aggregates.
func (s *PostgresSuite) TestStatsAndCategories() {
	ctx := context.Background()

	for _, category := range []string{"tech", "finance", "tech", ""} {
		idea := models.NewIdea("Idea", "P")
		idea.Category = category
		_, err := s.ideas.Create(ctx, idea)
		s.Require().NoError(err)
	}

	stats, err := s.ideas.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(int64(4), stats.Total)
	s.Equal(int64(4), stats.New)

	categories, err := s.ideas.Categories(ctx)
	s.Require().NoError(err)
	s.Equal([]string{"finance", "tech"}, categories)
}

// TestResearchLog tests append and newest-first retrieval.
func (s *PostgresSuite) TestResearchLog() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		entry := models.NewResearchLogEntry("web_research", "research", []string{"A", "B"})
		entry.ResearchedAtEpoch += int64(i)
		_, err := s.research.Append(ctx, entry)
		s.Require().NoError(err)
	}

	recent, err := s.research.Recent(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.GreaterOrEqual(recent[0].ResearchedAtEpoch, recent[1].ResearchedAtEpoch)
	s.Equal(models.JSONStringArray{"A", "B"}, recent[0].Findings)
}

func TestNewStore_EmptyDSN(t *testing.T) {
	_, err := NewStore(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty dsn")
}

func TestIdeaModel_BeforeCreateDefaults(t *testing.T) {
	row := &Idea{Title: "X", Problem: "Y"}
	require.NoError(t, row.BeforeCreate(nil))

	assert.Equal(t, string(models.StatusNew), row.Status)
	assert.NotZero(t, row.CreatedAtEpoch)
	assert.Equal(t, row.CreatedAtEpoch, row.UpdatedAtEpoch)
	assert.Equal(t, row.CreatedAt, row.UpdatedAt)

	m := row.toModel()
	assert.Equal(t, models.StatusNew, m.Status)
	assert.Equal(t, "", m.Description)
}
