// Package dashboard serves a read-only JSON and HTML view over Jira,
// Confluence and Compass.
package dashboard

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dt-pm-tools/atlsync/internal/model"
	"github.com/dt-pm-tools/atlsync/internal/report"
)

//go:embed index.html
var indexHTML []byte

// JiraSource reads issues.
type JiraSource interface {
	Query(ctx context.Context, q model.IssueQuery) ([]model.Issue, error)
	SearchIssues(ctx context.Context, jql string, limit int) ([]model.Issue, error)
}

// ConfluenceSource reads spaces and pages.
type ConfluenceSource interface {
	ListSpaces(ctx context.Context, limit int) ([]model.Space, error)
	ListPages(ctx context.Context, spaceKey string, limit int) ([]model.Page, error)
}

// CompassSource reads components.
type CompassSource interface {
	ListComponents(ctx context.Context) ([]model.Component, error)
}

// Clients holds the backends. A nil source is reported as not initialized
// with its matching error as the reason.
type Clients struct {
	Jira          JiraSource
	JiraErr       error
	Confluence    ConfluenceSource
	ConfluenceErr error
	Compass       CompassSource
	CompassErr    error
}

// Options configures the dashboard.
type Options struct {
	Project string // default project for /api/jira/*
	Space   string // default space for /api/confluence/pages
	Rules   report.Rules
	Timeout time.Duration // per-request timeout, default 2m
	Now     func() time.Time
}

// Server handles HTTP requests
type Server struct {
	Router  *chi.Mux
	clients Clients
	opts    Options
	log     *slog.Logger
}

// NewServer creates a new dashboard server.
func NewServer(clients Clients, opts Options, log *slog.Logger) *Server {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{clients: clients, opts: opts, log: log}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.Timeout))

	r.Get("/", s.index)
	r.Get("/health", s.healthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/jira/health", s.jiraHealth)
		r.Get("/jira/issues", s.jiraIssues)
		r.Get("/confluence/spaces", s.confluenceSpaces)
		r.Get("/confluence/pages", s.confluencePages)
		r.Get("/compass/components", s.compassComponents)
	})

	s.Router = r
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("dashboard server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down dashboard: %w", err)
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// healthCheck reports which backends initialized.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"jira":       s.clients.Jira != nil,
		"confluence": s.clients.Confluence != nil,
		"compass":    s.clients.Compass != nil,
		"timestamp":  s.opts.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// unavailable answers 503 for a backend that failed to initialize.
func unavailable(w http.ResponseWriter, name string, reason error) {
	msg := name + " client not initialized"
	if reason != nil {
		msg += ": " + reason.Error()
	}
	writeError(w, http.StatusServiceUnavailable, msg)
}

// upstream answers 502 for a failed call to Atlassian.
func (s *Server) upstream(w http.ResponseWriter, r *http.Request, what string, err error) {
	s.log.Error("upstream request failed", "what", what, "path", r.URL.Path, "err", err)
	writeError(w, http.StatusBadGateway, fmt.Sprintf("%s: %v", what, err))
}
