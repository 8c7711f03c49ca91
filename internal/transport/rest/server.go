// Package rest serves the catalog API over HTTP.
package rest

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/transport/httpx"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const APIPrefix = "/api/v1"

type Config struct {
	Addr            string
	AllowedOrigins  []string
	RequestTimeout  time.Duration
	RateLimit       float64
	RateLimitBurst  int
	ShutdownTimeout time.Duration
}

// Routes is implemented by every domain handler.
type Routes interface {
	RegisterRoutes(r *httprouter.Router, prefix string)
}

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

type Server struct {
	cfg        Config
	limiter    *rate.Limiter
	checks     map[string]ReadyCheck
	ready      atomic.Bool
	handler    http.Handler
	httpServer *http.Server
	logger     logger.ZapLogger
}

func NewServer(cfg Config, log logger.ZapLogger, checks map[string]ReadyCheck, routes ...Routes) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	s := &Server{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		checks:  checks,
		logger:  log,
	}

	router := httprouter.New()
	router.GET("/health", s.handleHealth)
	router.GET("/ready", s.handleReady)
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())
	for _, rt := range routes {
		rt.RegisterRoutes(router, APIPrefix)
	}
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, r, s.logger, apperror.NotFound("no route for %s %s", r.Method, r.URL.Path))
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, r, s.logger, apperror.InvalidRequest("method %s not allowed on %s", r.Method, r.URL.Path))
	})

	s.handler = s.withMiddleware(router)
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.ready.Store(true)
	s.logger.Info("Starting HTTP server", zap.String("addr", s.cfg.Addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.ready.Store(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(shutdownCtx)
}
