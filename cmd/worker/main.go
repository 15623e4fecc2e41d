// Package main provides the HTTP server entry point for idea-tracker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hanno79/idea-tracker/internal/config"
	"github.com/hanno79/idea-tracker/internal/db"
	"github.com/hanno79/idea-tracker/internal/ideas"
	"github.com/hanno79/idea-tracker/internal/watcher"
	"github.com/hanno79/idea-tracker/internal/worker"
	"github.com/hanno79/idea-tracker/internal/worker/session"
	"github.com/hanno79/idea-tracker/internal/worker/sse"
)

// Version is set at build time via ldflags.
var Version = "dev"

// errSettingsChanged ends a run so the server restarts with reloaded settings.
var errSettingsChanged = errors.New("settings changed")

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directory")
	}

	load := func() (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		setupLogging(cfg, *debug)
		return cfg, nil
	}

	if err := serve(load, run); err != nil {
		log.Fatal().Err(err).Msg("Worker stopped with error")
	}
}

// serve loads the configuration and runs the server, starting over with a
// fresh configuration each time a run ends because the settings file changed.
func serve(load func() (*config.Config, error), run func(*config.Config) error) error {
	for {
		cfg, err := load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		err = run(cfg)
		if !errors.Is(err, errSettingsChanged) {
			return err
		}
		log.Info().Msg("Restarting with reloaded settings")
	}
}

func setupLogging(cfg *config.Config, debug bool) {
	level := cfg.Level()
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	broadcaster := sse.NewBroadcaster()
	ideaSvc, err := ideas.NewService(stores.Ideas, stores.Research,
		ideas.WithPublisher(broadcaster),
		ideas.WithDuplicateThreshold(cfg.DuplicateThreshold),
	)
	if err != nil {
		return err
	}

	sessions := session.NewManager(session.WithTimeout(cfg.SessionTimeout))
	svc, err := worker.NewService(Version, cfg, ideaSvc, sessions, broadcaster)
	if err != nil {
		return err
	}
	defer svc.Close()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.WatchSettings {
		restart := make(chan struct{})
		w := startSettingsWatcher(restart)
		if w != nil {
			defer w.Stop()
			g.Go(func() error {
				select {
				case <-restart:
					log.Warn().Msg("Settings changed, shutting down for restart")
					return errSettingsChanged
				case <-gctx.Done():
					return nil
				}
			})
		}
	}

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Str("version", Version).Msg("Starting idea tracker")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		// Open event streams would otherwise hold Shutdown until the deadline.
		svc.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("Shutting down HTTP server")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// startSettingsWatcher closes restart once when the settings file changes.
func startSettingsWatcher(restart chan struct{}) *watcher.Watcher {
	path := config.SettingsPath()

	var once sync.Once
	w, err := watcher.New(path, func() {
		once.Do(func() { close(restart) })
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create settings watcher")
		return nil
	}
	if err := w.Start(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to start settings watcher")
		return nil
	}
	log.Info().Str("path", path).Msg("Settings file watcher started")
	return w
}
