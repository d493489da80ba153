package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"sharecal/internal/calendar"
	"sharecal/internal/clock"
	"sharecal/internal/config"
	"sharecal/internal/ics"
	appLog "sharecal/internal/log"
	"sharecal/internal/metrics"
	"sharecal/internal/model"
	"sharecal/internal/store"
	"sharecal/internal/validate"
)

// Deps are the collaborators a Server needs. Syncer and Metrics are
// optional.
type Deps struct {
	Store   store.Store
	Clock   clock.Clock
	Syncer  *ics.Syncer
	Metrics *metrics.Metrics
}

// Server provides the HTTP API for events and calendar views.
type Server struct {
	cfg       *config.Config
	loc       *time.Location
	store     store.Store
	clock     clock.Clock
	validator *validate.Validator
	projector *calendar.Projector
	syncer    *ics.Syncer
	metrics   *metrics.Metrics
	mux       *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, deps Deps) *Server {
	loc := cfg.Location()
	c := deps.Clock
	if c == nil {
		c = clock.NewSystem(loc)
	}
	s := &Server{
		cfg:       cfg,
		loc:       loc,
		store:     deps.Store,
		clock:     c,
		validator: validate.New(loc),
		projector: calendar.NewProjector(c, cfg.MaxPerCell),
		syncer:    deps.Syncer,
		metrics:   deps.Metrics,
		mux:       http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the routed handler wrapped in the middleware chain:
// request ID, access log, metrics, then basic auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "user", s.cfg.BasicAuth.Username)
		h = s.basicAuthMiddleware(h)
	}
	if s.metrics != nil {
		h = s.metrics.Middleware(h)
	}
	h = accessLog(h)
	return requestID(h)
}

// ListenAndServe serves on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.mux.HandleFunc("GET /api/categories", s.handleCategories)

	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	s.mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	s.mux.HandleFunc("PUT /api/events/{id}", s.handleReplaceEvent)
	s.mux.HandleFunc("PATCH /api/events/{id}", s.handlePatchEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)
	s.mux.HandleFunc("POST /api/validate", s.handleValidate)

	s.mux.HandleFunc("GET /api/calendar", s.handleCalendar)

	s.mux.HandleFunc("GET /api/events.ics", s.handleExport)
	s.mux.HandleFunc("POST /api/import", s.handleImport)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		appLog.Error("health check: store ping failed", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type categoryDTO struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color"`
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	out := make([]categoryDTO, 0)
	for _, c := range model.Categories() {
		out = append(out, categoryDTO{Value: c.Value(), Label: c.Label(), Color: string(c.Color())})
	}
	writeJSON(w, http.StatusOK, out)
}
