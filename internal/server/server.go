package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	v1 "github.com/gosuda/taskboard/internal/api/v1"
	"github.com/gosuda/taskboard/internal/api/ws"
	"github.com/gosuda/taskboard/internal/config"
	"github.com/gosuda/taskboard/internal/server/middleware"
)

// Services are the application services exposed by the API server.
type Services struct {
	Projects v1.ProjectService
	Sprints  v1.SprintService
	Tasks    v1.TaskService
	// Ready reports whether backing stores are reachable. Nil disables /readyz.
	Ready func(ctx context.Context) error
}

// Server is an HTTP server with its routes and middleware wired.
type Server struct {
	router     chi.Router
	httpServer *http.Server
}

// New creates the API server. ctx bounds the lifetime of the rate limiter's
// background cleanup.
func New(ctx context.Context, cfg *config.Config, svc Services) *Server {
	router := newRouter(cfg.Server.CORSOrigins)

	if svc.Ready != nil {
		router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := svc.Ready(r.Context()); err != nil {
				log.Warn().Err(err).Msg("readiness check failed")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT.Secret))
		r.Use(middleware.RateLimit(ctx, 100, 200))

		apiConfig := huma.DefaultConfig("Taskboard API", "1.0.0")
		apiConfig.Servers = []*huma.Server{
			{URL: "/api/v1"},
		}
		api := humachi.New(r, apiConfig)
		registerAPIRoutes(api, svc)
	})

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// NewHub creates the broadcast hub server. Websocket connections are long
// lived, so only header reads are bounded.
func NewHub(ctx context.Context, cfg *config.Config, hub *ws.Hub) *Server {
	router := newRouter(cfg.Server.CORSOrigins)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ctx, 5, 20))
		r.Get("/ws", hub.ServeWS)
	})
	registerHubRoutes(router, hub)

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              cfg.Hub.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func newRouter(origins []string) chi.Router {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return router
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
