// Package db selects and opens the configured record store backend.
package db

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"

	"github.com/hanno79/idea-tracker/internal/config"
	gormdb "github.com/hanno79/idea-tracker/internal/db/gorm"
	"github.com/hanno79/idea-tracker/internal/db/sqlite"
	"github.com/hanno79/idea-tracker/internal/ideas"
)

// Stores bundles the repositories of one backend.
type Stores struct {
	Ideas    ideas.Repository
	Research ideas.ResearchLog
	close    func() error
}

// Close releases the underlying connection pool.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open connects to the backend named by cfg.DBDriver and runs its migrations.
func Open(cfg *config.Config) (*Stores, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite, "":
		store, err := sqlite.NewStore(sqlite.StoreConfig{
			Path:     cfg.DBPath,
			MaxConns: cfg.MaxConns,
			WALMode:  true,
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Info().Str("driver", config.DriverSQLite).Str("path", cfg.DBPath).Msg("Record store opened")
		return &Stores{
			Ideas:    sqlite.NewIdeaStore(store),
			Research: sqlite.NewResearchStore(store),
			close:    store.Close,
		}, nil

	case config.DriverPostgres:
		level := logger.Silent
		if cfg.Level() <= zerolog.DebugLevel {
			level = logger.Info
		}
		store, err := gormdb.NewStore(gormdb.Config{
			DSN:      cfg.DBDSN,
			MaxConns: cfg.MaxConns,
			LogLevel: level,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		log.Info().Str("driver", config.DriverPostgres).Msg("Record store opened")
		return &Stores{
			Ideas:    gormdb.NewIdeaStore(store),
			Research: gormdb.NewResearchStore(store),
			close:    store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
	}
}
