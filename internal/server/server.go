// Package server exposes the CrUX pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/huangsam/cruxreport/internal/contract"
	"golang.org/x/sync/errgroup"
)

// Server timeouts.
const (
	serverTimeout   = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// APIServer serves the CrUX endpoints on top of a CruxRunner.
type APIServer struct {
	cfg     *contract.Config
	runner  contract.CruxRunner
	logger  *slog.Logger
	limiter *clientLimiter
	now     func() time.Time
}

// NewAPIServer builds the API server. A nil logger discards log output.
func NewAPIServer(cfg *contract.Config, runner contract.CruxRunner, logger *slog.Logger) *APIServer {
	if logger == nil {
		logger = contract.DiscardLogger()
	}
	return &APIServer{
		cfg:     cfg,
		runner:  runner,
		logger:  logger,
		limiter: newClientLimiter(cfg.RateLimit, cfg.RateWindow),
		now:     time.Now,
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (api *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", api.healthHandler)

	// API endpoints are rate limited and body limited
	mux.Handle("POST /api/crux", api.apiMiddleware(http.HandlerFunc(api.cruxHandler)))
	mux.Handle("POST /api/crux/summary", api.apiMiddleware(http.HandlerFunc(api.summaryHandler)))
	mux.Handle("GET /api/metrics", api.apiMiddleware(http.HandlerFunc(api.metricsHandler)))

	var handler http.Handler = mux
	handler = api.corsMiddleware(handler)
	handler = securityHeaders(handler)
	handler = api.accessLog(handler)
	handler = requestID(handler)
	handler = api.recoverer(handler)
	return handler
}

// apiMiddleware applies the per-client rate limit and the request body limit.
func (api *APIServer) apiMiddleware(next http.Handler) http.Handler {
	return api.rateLimit(api.bodyLimit(next))
}

// Run serves on cfg.Addr until ctx is canceled, then shuts down gracefully.
func (api *APIServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         api.cfg.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  serverTimeout,
		WriteTimeout: serverTimeout,
		IdleTimeout:  serverTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		api.logger.Info("APIServer starting", "addr", api.cfg.Addr, "environment", api.cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		api.logger.Info("APIServer shutting down")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	})
	return g.Wait()
}
