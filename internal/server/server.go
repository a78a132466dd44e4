package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/mwsanalytics/posts-backend/internal/api"
	"github.com/mwsanalytics/posts-backend/internal/config"
	"github.com/mwsanalytics/posts-backend/internal/handlers"
	"github.com/mwsanalytics/posts-backend/internal/middleware"
	"github.com/mwsanalytics/posts-backend/internal/ratelimit"
)

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	logger     logrus.FieldLogger
}

// New creates a new HTTP server with all routes and middleware. A nil
// limiter disables rate limiting.
func New(
	logger logrus.FieldLogger,
	cfg *config.Config,
	service api.Service,
	limiter ratelimit.Limiter,
) *Server {
	logger = logger.WithField("component", "server")

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           Handler(logger, cfg, service, limiter),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// Handler builds the routed handler wrapped in the middleware chain.
func Handler(
	logger logrus.FieldLogger,
	cfg *config.Config,
	service api.Service,
	limiter ratelimit.Limiter,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handlers.Health(func() int { return len(service.Tables()) }))
	mux.HandleFunc("GET /version", handlers.Version())
	mux.Handle("GET /metrics", promhttp.Handler())

	routes := api.Register(mux, service, logger)

	for _, route := range append([]string{"GET /health", "GET /version", "GET /metrics"}, routes...) {
		logger.WithField("route", route).Debug("Registered route")
	}

	logger.WithField("routes", len(routes)+3).Info("Registered routes")

	// Metrics sits directly on the mux so it sees the matched route pattern.
	handler := middleware.Metrics()(mux)

	if limiter != nil && cfg.RateLimiting.Enabled {
		handler = middleware.RateLimit(logger, cfg.RateLimiting, limiter)(handler)
		logger.WithField("rules", len(cfg.RateLimiting.Rules)).Info("Rate limiting enabled")
	}

	handler = middleware.Logging(logger)(handler)
	handler = middleware.CORS()(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}

// Start starts the HTTP server (blocking call).
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting HTTP server")

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	return s.httpServer.Shutdown(ctx)
}
