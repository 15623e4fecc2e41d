package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanno79/idea-tracker/internal/config"
	"github.com/hanno79/idea-tracker/pkg/models"
)

func TestOpen_SQLite(t *testing.T) {
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "nested", "ideas.db")

	stores, err := Open(cfg)
	require.NoError(t, err)
	defer stores.Close()

	id, err := stores.Ideas.Create(context.Background(), models.NewIdea("X", "Y"))
	require.NoError(t, err)
	assert.Positive(t, id)

	entries, err := stores.Research.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{name: "unknown driver", cfg: &config.Config{DBDriver: "mysql"}},
		{name: "postgres without dsn", cfg: &config.Config{DBDriver: config.DriverPostgres}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestStores_CloseNil(t *testing.T) {
	assert.NoError(t, (&Stores{}).Close())
}
