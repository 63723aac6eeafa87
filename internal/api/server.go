// Package api exposes the read-only review query API over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reviewkart/reviewkart/internal/config"
	"github.com/reviewkart/reviewkart/internal/query"
)

// Server serves the query API. It is the one place where "no dataset
// loaded yet" turns into a 404; the query layer itself serves empty
// results.
type Server struct {
	router   chi.Router
	svc      *query.Service
	port     int
	logger   *slog.Logger
	registry *prometheus.Registry
	httpSrv  *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsRegistry mounts a Prometheus scrape endpoint at /metrics.
func WithMetricsRegistry(r *prometheus.Registry) Option {
	return func(s *Server) { s.registry = r }
}

// NewServer creates the API server around a query service.
func NewServer(svc *query.Service, port int, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router: chi.NewRouter(),
		svc:    svc,
		port:   port,
		logger: logger.With("component", "api_server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start runs the server until Shutdown or a listener error.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	s.logger.Info("api server starting", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	s.logger.Info("api server shutting down")
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)

	// Data routes 404 until a dataset has been loaded.
	s.router.Group(func(r chi.Router) {
		r.Use(s.requireDataset)
		r.Get("/reviews", s.handleReviews)
		r.Get("/reviews/{id}", s.handleReviewByID)
		r.Get("/search", s.handleSearch)
		r.Get("/stats", s.handleStats)
		r.Get("/categories", s.handleCategories)
		r.Get("/products", s.handleProducts)
	})

	if s.registry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
}

// requireDataset translates an unloaded dataset into a 404 for every
// data route.
func (s *Server) requireDataset(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.svc.Dataset(); err != nil {
			s.errorResponse(w, http.StatusNotFound, "no dataset loaded, run a merge first")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"service": "reviewkart",
		"version": config.Version,
		"endpoints": []string{
			"/health", "/reviews", "/reviews/{id}", "/search",
			"/stats", "/categories", "/products",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	loaded := true
	if _, err := s.svc.Dataset(); err != nil {
		loaded = false
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        config.Version,
		"dataset_loaded": loaded,
	})
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := query.ReviewFilter{
		Category:  q.Get("category"),
		Product:   q.Get("product"),
		MinRating: intParam(q.Get("min_rating")),
		MaxRating: intParam(q.Get("max_rating")),
		Page:      intParam(q.Get("page")),
		Limit:     intParam(q.Get("limit")),
	}
	// rating= is shorthand for an exact match.
	if exact := intParam(q.Get("rating")); exact > 0 {
		filter.MinRating = exact
		filter.MaxRating = exact
	}
	if raw := q.Get("verified"); raw != "" {
		v := parseBoolish(raw)
		filter.Verified = &v
	}

	s.jsonResponse(w, http.StatusOK, s.svc.Reviews(filter))
}

func (s *Server) handleReviewByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "review id must be an integer")
		return
	}
	rec, found := s.svc.ReviewByID(id)
	if !found {
		s.errorResponse(w, http.StatusNotFound, "review not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hits := s.svc.Search(q.Get("q"), intParam(q.Get("limit")))
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"query":   q.Get("q"),
		"count":   len(hits),
		"results": hits,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.svc.Stats())
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"categories": s.svc.Categories()})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"products": s.svc.Products()})
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, msg string) {
	s.jsonResponse(w, status, map[string]string{"error": msg})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func intParam(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func parseBoolish(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "true", "1", "verified":
		return true
	}
	return false
}
