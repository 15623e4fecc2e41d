// Package worker provides the HTTP service for idea-tracker.
package worker

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/hanno79/idea-tracker/internal/config"
	"github.com/hanno79/idea-tracker/internal/ideas"
	"github.com/hanno79/idea-tracker/internal/worker/session"
	"github.com/hanno79/idea-tracker/internal/worker/sse"
)

// SessionCookieName is the cookie holding the login session token.
const SessionCookieName = "idea_tracker_session"

// Service serves the dashboard, the form routes and the JSON API.
type Service struct {
	version        string
	config         *config.Config
	ideas          *ideas.Service
	sessionManager *session.Manager
	passwords      *session.PasswordChecker
	sseBroadcaster *sse.Broadcaster
	templates      *template.Template
	router         chi.Router
	startTime      time.Time
	ready          atomic.Bool

	logins         metric.Int64Counter
	activeSessions metric.Int64ObservableGauge
	gaugeReg       metric.Registration
	closeOnce      sync.Once
}

// NewService wires the HTTP routes around the idea service and session manager.
func NewService(version string, cfg *config.Config, ideaSvc *ideas.Service, sessions *session.Manager, broadcaster *sse.Broadcaster) (*Service, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	if cfg.Password == "" {
		log.Warn().Msg("No password configured, mutating routes are unreachable")
	}

	svc := &Service{
		version:        version,
		config:         cfg,
		ideas:          ideaSvc,
		sessionManager: sessions,
		passwords:      session.NewPasswordChecker(cfg.Password),
		sseBroadcaster: broadcaster,
		templates:      tmpl,
		router:         chi.NewRouter(),
		startTime:      time.Now(),
	}

	if err := svc.setupMetrics(otel.Meter("github.com/hanno79/idea-tracker/internal/worker")); err != nil {
		return nil, err
	}

	svc.setupRoutes()
	svc.ready.Store(true)
	return svc, nil
}

func (s *Service) setupMetrics(meter metric.Meter) error {
	var err error
	s.logins, err = meter.Int64Counter("auth.logins",
		metric.WithDescription("Login attempts by outcome"))
	if err != nil {
		return fmt.Errorf("create counter: %w", err)
	}

	s.activeSessions, err = meter.Int64ObservableGauge("auth.sessions.active",
		metric.WithDescription("Session tokens held in memory"))
	if err != nil {
		return fmt.Errorf("create gauge: %w", err)
	}

	s.gaugeReg, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(s.activeSessions, int64(s.sessionManager.Count()))
		return nil
	}, s.activeSessions)
	if err != nil {
		return fmt.Errorf("register gauge callback: %w", err)
	}
	return nil
}

func (s *Service) setupRoutes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(accessLog)
	r.Use(recovery)
	r.Use(middleware.RequestSize(maxFormBytes))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/assets/*", serveAssets)

	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireReady)

		r.With(s.optionalAuth).Get("/", s.handleIndex)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/add", s.handleAdd)
			r.Post("/update/{id}", s.handleUpdate)
			r.Get("/status/{id}/{status}", s.handleStatusLink)
		})

		r.Route("/api", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.optionalAuth)
				r.Get("/ideas", s.handleAPIListIdeas)
				r.Get("/ideas/{id}", s.handleAPIGetIdea)
				r.Get("/stats", s.handleAPIStats)
				r.Get("/categories", s.handleAPICategories)
				r.Get("/research", s.handleAPIResearch)
				r.Get("/events", s.sseBroadcaster.HandleSSE)
			})
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/ideas", s.handleAPICreateIdea)
				r.Post("/ideas/{id}/status", s.handleAPIUpdateStatus)
			})
		})
	})
}

// Handler returns the root HTTP handler.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Close releases metric callbacks, disconnects event streams and drops sessions.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		s.ready.Store(false)
		if s.gaugeReg != nil {
			_ = s.gaugeReg.Unregister()
		}
		s.sseBroadcaster.Close()
		s.sessionManager.Close()
	})
}
