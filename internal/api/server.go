// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/chapterhub/internal/core/chapter"
	"github.com/taibuivan/chapterhub/internal/core/ingest"
	"github.com/taibuivan/chapterhub/internal/platform/config"
	"github.com/taibuivan/chapterhub/internal/platform/constants"
	"github.com/taibuivan/chapterhub/internal/platform/middleware"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler; always 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler; 200 when all dependencies are healthy.
	Readiness http.HandlerFunc

	// Metrics exposes Prometheus collectors.
	Metrics http.Handler

	// Assets serves normalised page images under AssetPrefix.
	Assets      http.Handler
	AssetPrefix string

	// Chapter handles chapter metadata, ordered page reads and deletion.
	Chapter *chapter.Handler

	// Ingest handles page batch uploads.
	Ingest *ingest.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution. The request timeout is
	// applied per group below because uploads run longer than any JSON call.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(middleware.RateLimit(context, cfg.RateLimitRPS, cfg.RateLimitBurst))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(verifier))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	timeout := chimw.Timeout(constants.GlobalRequestTimeout)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.With(timeout).Get("/health", h.Liveness)
	r.With(timeout).Get("/ready", h.Readiness)
	if h.Metrics != nil {
		r.With(timeout).Handle("/metrics", h.Metrics)
	}

	// # Static Assets
	if h.Assets != nil {
		r.With(timeout).Handle(h.AssetPrefix+"/*", h.Assets)
	}

	// # Application API
	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(bounded chi.Router) {
			bounded.Use(timeout)
			h.Chapter.RegisterRoutes(bounded)
		})

		// Streaming uploads: bounded by the server read/write timeouts only
		h.Ingest.RegisterRoutes(api)
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
