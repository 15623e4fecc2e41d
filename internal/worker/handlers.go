package worker

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hanno79/idea-tracker/internal/ideas"
	"github.com/hanno79/idea-tracker/pkg/models"
)

type filterChip struct {
	Status models.IdeaStatus
	Label  string
	Count  int64
	Active bool
}

type indexPage struct {
	Title         string
	Authenticated bool
	Stats         *models.Stats
	Filters       []filterChip
	AllActive     bool
	Statuses      []models.IdeaStatus
	Ideas         []*models.Idea
	Categories    []string
	Research      []*models.ResearchLogEntry
}

type loginPage struct {
	Title string
	Error bool
}

// handleIndex renders the dashboard, optionally filtered by ?status=.
func (s *Service) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := r.URL.Query().Get("status")

	list, err := s.ideas.List(ctx, ideas.Filter{Status: status})
	if err != nil {
		s.serverError(w, r, err, "Failed to list ideas")
		return
	}
	stats, err := s.ideas.Stats(ctx)
	if err != nil {
		s.serverError(w, r, err, "Failed to load stats")
		return
	}
	categories, err := s.ideas.Categories(ctx)
	if err != nil {
		s.serverError(w, r, err, "Failed to load categories")
		return
	}
	research, err := s.ideas.RecentResearch(ctx, s.config.ResearchLogLimit)
	if err != nil {
		s.serverError(w, r, err, "Failed to load research log")
		return
	}

	page := indexPage{
		Title:         "Idea Tracker",
		Authenticated: s.authenticated(r),
		Stats:         stats,
		AllActive:     status == "",
		Statuses:      models.AllStatuses(),
		Ideas:         list,
		Categories:    categories,
		Research:      research,
	}
	for _, st := range models.AllStatuses() {
		page.Filters = append(page.Filters, filterChip{
			Status: st,
			Label:  st.Label(),
			Count:  stats.Count(st),
			Active: status == string(st),
		})
	}

	s.render(w, r, http.StatusOK, "index.html", page)
}

// handleAdd creates an idea from the add form.
func (s *Service) handleAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Invalid add form")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	_, err := s.ideas.Add(r.Context(), ideas.AddInput{
		Title:             r.PostForm.Get("title"),
		Problem:           r.PostForm.Get("problem"),
		Description:       r.PostForm.Get("description"),
		ExistingSolutions: r.PostForm.Get("existing_solutions"),
		Source:            r.PostForm.Get("source"),
		Category:          r.PostForm.Get("category"),
	})
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Failed to add idea")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleUpdate changes an idea's status from the status form.
func (s *Service) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Invalid update form")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.updateAndRedirect(w, r, chi.URLParam(r, "id"), r.PostForm.Get("status"))
}

// handleStatusLink changes an idea's status from a plain link.
func (s *Service) handleStatusLink(w http.ResponseWriter, r *http.Request) {
	s.updateAndRedirect(w, r, chi.URLParam(r, "id"), chi.URLParam(r, "status"))
}

func (s *Service) updateAndRedirect(w http.ResponseWriter, r *http.Request, rawID, status string) {
	logger := zerolog.Ctx(r.Context())

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		logger.Warn().Str("id", rawID).Msg("Invalid idea id")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err := s.ideas.UpdateStatus(r.Context(), id, status); err != nil {
		logger.Warn().Err(err).Int64("id", id).Str("status", status).Msg("Failed to update status")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLoginPage renders the login form.
func (s *Service) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.authenticated(r) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.renderLogin(w, r, http.StatusOK, false)
}

// handleLogin checks the password and issues a session cookie.
func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	if err := r.ParseForm(); err != nil || !s.passwords.Check(r.PostForm.Get("password")) {
		s.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "rejected")))
		logger.Info().Str("remote", r.RemoteAddr).Msg("Login rejected")
		s.renderLogin(w, r, http.StatusUnauthorized, true)
		return
	}

	token, err := s.sessionManager.Create()
	if err != nil {
		s.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		logger.Error().Err(err).Msg("Failed to issue session")
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}

	s.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "accepted")))
	http.SetCookie(w, s.sessionCookie(r, token, int(s.sessionManager.Timeout()/time.Second)))
	logger.Info().Msg("Login accepted")
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLogout destroys the session and expires the cookie.
func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		s.sessionManager.Destroy(c.Value)
	}
	http.SetCookie(w, s.sessionCookie(r, "", -1))
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Service) sessionCookie(r *http.Request, token string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
}

// authenticated reports whether the request carries a live session. Validation refreshes it.
func (s *Service) authenticated(r *http.Request) bool {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return false
	}
	return s.sessionManager.Validate(c.Value)
}

// handleAPIListIdeas returns ideas as JSON, optionally filtered by ?status=.
func (s *Service) handleAPIListIdeas(w http.ResponseWriter, r *http.Request) {
	list, err := s.ideas.List(r.Context(), ideas.Filter{Status: r.URL.Query().Get("status")})
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleAPIGetIdea returns a single idea.
func (s *Service) handleAPIGetIdea(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	idea, err := s.ideas.Get(r.Context(), id)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idea)
}

// handleAPICreateIdea creates an idea from a JSON body.
func (s *Service) handleAPICreateIdea(w http.ResponseWriter, r *http.Request) {
	var in ideas.AddInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	idea, err := s.ideas.Add(r.Context(), in)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idea)
}

type statusRequest struct {
	Status string `json:"status"`
}

// handleAPIUpdateStatus changes an idea's status. Unlike the form route it reports unknown ids.
func (s *Service) handleAPIUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx := r.Context()
	if _, err := s.ideas.Get(ctx, id); err != nil {
		s.apiError(w, r, err)
		return
	}
	if err := s.ideas.UpdateStatus(ctx, id, req.Status); err != nil {
		s.apiError(w, r, err)
		return
	}

	idea, err := s.ideas.Get(ctx, id)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idea)
}

// handleAPIStats returns per-status counts.
func (s *Service) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ideas.Stats(r.Context())
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleAPICategories returns the categories in use.
func (s *Service) handleAPICategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.ideas.Categories(r.Context())
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// handleAPIResearch returns recent research log entries, ?limit= capped by the store default.
func (s *Service) handleAPIResearch(w http.ResponseWriter, r *http.Request) {
	limit := s.config.ResearchLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.ideas.RecentResearch(r.Context(), limit)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleHealth reports liveness.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	if !s.ready.Load() {
		status = "starting"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   status,
		"version":  s.version,
		"uptime":   time.Since(s.startTime).Round(time.Second).String(),
		"sessions": s.sessionManager.Count(),
		"clients":  s.sseBroadcaster.ClientCount(),
	})
}

// handleReady reports readiness.
func (s *Service) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Service) renderLogin(w http.ResponseWriter, r *http.Request, status int, failed bool) {
	s.render(w, r, status, "login.html", loginPage{Title: "Login", Error: failed})
}

func (s *Service) render(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	noStore(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("template", name).Msg("Failed to render template")
	}
}

// serverError logs err and answers 500.
func (s *Service) serverError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg(msg)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

type errorResponse struct {
	Error  string              `json:"error"`
	Fields []models.FieldError `json:"fields,omitempty"`
}

// apiError maps domain errors onto HTTP status codes.
func (s *Service) apiError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Errors})
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("API request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
