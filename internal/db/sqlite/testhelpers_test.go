package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/hanno79/idea-tracker/pkg/models"
	"github.com/stretchr/testify/require"
)

// testStore returns a fresh, migrated Store backed by a temp database.
func testStore(t *testing.T) (*Store, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewStore(StoreConfig{Path: dbPath, MaxConns: 2, WALMode: true})
	require.NoError(t, err)

	cleanup := func() {
		_ = store.Close()
	}
	return store, cleanup
}

func newTestIdea(title, problem string) *models.Idea {
	return models.NewIdea(title, problem)
}
