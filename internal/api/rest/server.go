// Package rest serves the marketplace HTTP API: auctions, bids, payments and
// the event stream upgrade.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/auctionhouse/auction-marketplace-backend/internal/infrastructure/cache"
	"github.com/auctionhouse/auction-marketplace-backend/internal/infrastructure/config"
)

// Server wraps the HTTP server with the full middleware chain
type Server struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// NewServer assembles the middleware chain around the handler. The chain is
// recovery -> logging -> auth -> rate limit, with auth applied only to
// routes that mutate state. Rate limiting sits inside auth so authenticated
// callers are keyed by user ID rather than by IP.
func NewServer(cfg *config.Config, handler *Handler, wsHandler http.HandlerFunc, limiter cache.RateLimiter, metrics APIMetrics, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	handler.Routes(mux)
	if wsHandler != nil {
		mux.HandleFunc("GET /api/v1/ws", wsHandler)
	}

	var root http.Handler = mux
	if limiter != nil {
		root = rateLimitMiddleware(limiter, cache.NewLocalRateLimiter(),
			cfg.Security.RateLimit.RequestsPerSecond,
			time.Second,
			logger, root)
	}
	root = authRoutes(cfg.Security.JWTSecret, logger, root)
	root = loggingMiddleware(logger, metrics, root)
	root = recoveryMiddleware(logger, root)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      root,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		logger:          logger,
	}
}

// authRoutes wraps mutating endpoints in token validation while leaving
// reads and the health probe open.
func authRoutes(secret string, logger *zap.Logger, next http.Handler) http.Handler {
	authed := authMiddleware(secret, logger, next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		authed.ServeHTTP(w, r)
	})
}

// Run serves until the context is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	return s.server.Shutdown(shutdownCtx)
}
