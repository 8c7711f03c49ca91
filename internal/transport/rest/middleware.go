package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/transport/httpx"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-Id"
	codeRateLimited = apperror.Code("RATE_LIMITED")
)

// withMiddleware wraps the router, outermost first.
func (s *Server) withMiddleware(h http.Handler) http.Handler {
	h = s.timeoutMiddleware(h)
	h = s.rateLimitMiddleware(h)
	h = s.panicRecoveryMiddleware(h)
	h = handlers.CustomLoggingHandler(io.Discard, h, s.logRequest)
	h = s.metricsMiddleware(h)
	h = s.requestIDMiddleware(h)
	return handlers.CORS(
		handlers.AllowedOrigins(s.cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", requestIDHeader}),
		handlers.ExposedHeaders([]string{requestIDHeader}),
	)(h)
}

// requestIDMiddleware keeps a caller supplied UUID or generates one.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(httpx.WithRequestID(r.Context(), requestID)))
	})
}

func (s *Server) logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	s.logger.Info("request completed",
		zap.String("request_id", httpx.RequestID(p.Request.Context())),
		zap.String("method", p.Request.Method),
		zap.String("path", p.URL.Path),
		zap.Int("status", p.StatusCode),
		zap.Int("size", p.Size),
		zap.Duration("duration", time.Since(p.TimeStamp)),
	)
}

func (s *Server) panicRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				panicRecoveries.Inc()
				err, ok := v.(error)
				if !ok {
					err = fmt.Errorf("%v", v)
				}
				httpx.Error(w, r, s.logger, apperror.Wrap(apperror.CodeInternal, "panic recovered", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware throttles the API routes. Probes and metrics are exempt.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, APIPrefix+"/") || s.limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}

		rateLimitRejects.Inc()
		w.Header().Set("Retry-After", "1")
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(int(s.cfg.RateLimit)))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(httpx.ErrorBody{
			Code:      codeRateLimited,
			Message:   "rate limit exceeded",
			RequestID: httpx.RequestID(r.Context()),
			Details: map[string]any{
				"limit": s.cfg.RateLimit,
				"burst": s.cfg.RateLimitBurst,
			},
		})
	})
}

// timeoutMiddleware bounds the request context; handlers see the deadline
// through their database and cache calls.
func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	if s.cfg.RequestTimeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
