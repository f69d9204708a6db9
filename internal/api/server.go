// Package api provides the HTTP REST surface of the orchestration engine.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/davidrioja/reelforge/internal/compile"
	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/events"
	"github.com/davidrioja/reelforge/internal/logging"
	"github.com/davidrioja/reelforge/internal/service"
)

// Server provides HTTP endpoints for scene orchestration.
type Server struct {
	router      chi.Router
	coordinator *service.Coordinator
	compiler    *compile.Compiler
	store       core.SceneStore
	bus         *events.Bus
	logger      *logging.Logger

	extractor      core.BrandExtractor
	metricsHandler http.Handler
	corsOrigins    []string
	requestTimeout time.Duration
	export         string
}

// exportDir returns where timeline manifests are written.
func (s *Server) exportDir() string {
	if s.export == "" {
		return ".reelforge/export"
	}
	return s.export
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithBrandExtractor enables URL-derived brand context on requests.
func WithBrandExtractor(e core.BrandExtractor) ServerOption {
	return func(s *Server) { s.extractor = e }
}

// WithMetricsHandler mounts a handler at /metrics.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) { s.metricsHandler = h }
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) ServerOption {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// WithExportDir sets where timeline manifests are written.
func WithExportDir(dir string) ServerOption {
	return func(s *Server) { s.export = dir }
}

// WithRequestTimeout bounds how long one orchestration request may run.
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// NewServer creates the API server.
func NewServer(
	coordinator *service.Coordinator,
	compiler *compile.Compiler,
	store core.SceneStore,
	bus *events.Bus,
	logger *logging.Logger,
	opts ...ServerOption,
) *Server {
	s := &Server{
		coordinator:    coordinator,
		compiler:       compiler,
		store:          store,
		bus:            bus,
		logger:         logger,
		corsOrigins:    []string{"*"},
		requestTimeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/health", s.handleHealth)
	if s.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/projects/{projectID}", func(r chi.Router) {
			r.Post("/requests", s.handleRequest)
			r.Post("/repair", s.handleRepair)
			r.Get("/scenes", s.handleListScenes)
			r.Post("/scenes/reorder", s.handleReorder)
			r.Get("/timeline", s.handleTimeline)
		})

		// SSE endpoint for real-time updates.
		r.Get("/events", s.handleSSE)
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error("encoding response failed", "error", err)
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when
// the context ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting API server", "addr", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
