package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/hanno79/idea-tracker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResearchStore_AppendAndRecent(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	rs := NewResearchStore(store)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		entry := &models.ResearchLogEntry{
			SearchTerm:        "web_research",
			Source:            "research",
			Findings:          models.JSONStringArray{"Idea A", "Idea B"},
			ResearchedAt:      at.Format(time.RFC3339),
			ResearchedAtEpoch: at.UnixMilli(),
		}
		id, err := rs.Append(ctx, entry)
		require.NoError(t, err)
		assert.Equal(t, id, entry.ID)
	}

	recent, err := rs.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, models.DefaultResearchLogLimit)

	// Newest first.
	for i := 1; i < len(recent); i++ {
		assert.Greater(t, recent[i-1].ResearchedAtEpoch, recent[i].ResearchedAtEpoch)
	}
	assert.Equal(t, base.Add(24*time.Minute).UnixMilli(), recent[0].ResearchedAtEpoch)
	assert.Equal(t, models.JSONStringArray{"Idea A", "Idea B"}, recent[0].Findings)
	assert.Equal(t, "web_research", recent[0].SearchTerm)

	limited, err := rs.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, limited, 3)
}

func TestResearchStore_EmptyFindings(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	rs := NewResearchStore(store)
	ctx := context.Background()

	_, err := rs.Append(ctx, models.NewResearchLogEntry("", "", nil))
	require.NoError(t, err)

	recent, err := rs.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Empty(t, recent[0].Findings)
	assert.Equal(t, "", recent[0].SearchTerm)
}
