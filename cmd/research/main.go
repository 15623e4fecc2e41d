// Package main imports researched idea batches into the idea-tracker store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hanno79/idea-tracker/internal/config"
	"github.com/hanno79/idea-tracker/internal/db"
	"github.com/hanno79/idea-tracker/internal/ideas"
	"github.com/hanno79/idea-tracker/internal/notify"
	"github.com/hanno79/idea-tracker/internal/research"
)

func main() {
	file := flag.String("file", "", "YAML batch file to import (required)")
	ifEmpty := flag.Bool("if-empty", false, "Import only when the store has no ideas")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if *file == "" {
		log.Fatal().Msg("--file is required")
	}

	if err := config.EnsureDataDir(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directory")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	added, err := run(ctx, cfg, *file, *ifEmpty)
	if err != nil {
		log.Fatal().Err(err).Msg("Research import failed")
	}
	fmt.Printf("Added %d ideas\n", added)
}

func run(ctx context.Context, cfg *config.Config, path string, ifEmpty bool) (int, error) {
	batch, err := research.Load(path)
	if err != nil {
		return 0, err
	}

	stores, err := db.Open(cfg)
	if err != nil {
		return 0, err
	}
	defer stores.Close()

	svc, err := ideas.NewService(stores.Ideas, stores.Research, ideas.WithDuplicateThreshold(cfg.DuplicateThreshold))
	if err != nil {
		return 0, err
	}

	importer := research.NewImporter(svc, notify.MultiNotifier{notify.NewLogNotifier()})
	result, err := importer.Import(ctx, batch, research.Options{IfEmpty: ifEmpty})
	if err != nil {
		return 0, err
	}
	if result == nil {
		return 0, nil
	}
	return len(result.Added), nil
}
