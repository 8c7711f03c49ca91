package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/platform/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/transport/httpx"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRoutes struct{}

func (testRoutes) RegisterRoutes(r *httprouter.Router, prefix string) {
	r.GET(prefix+"/echo", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		_, hasDeadline := r.Context().Deadline()
		httpx.JSON(w, http.StatusOK, "echo", map[string]any{
			"request_id":   httpx.RequestID(r.Context()),
			"has_deadline": hasDeadline,
		})
	})
	r.GET(prefix+"/panic", func(http.ResponseWriter, *http.Request, httprouter.Params) {
		panic("boom")
	})
}

func newServer(t *testing.T, cfg Config, checks map[string]ReadyCheck) *Server {
	t.Helper()
	if cfg.RateLimit == 0 {
		cfg.RateLimit, cfg.RateLimitBurst = 1000, 1000
	}
	cfg.AllowedOrigins = []string{"http://localhost:3000"}
	return NewServer(cfg, logger.NewNop(), checks, testRoutes{})
}

func get(s *Server, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newServer(t, Config{}, nil)

	w := get(s, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

func TestReady(t *testing.T) {
	failing := errors.New("connection refused")
	s := newServer(t, Config{}, map[string]ReadyCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return failing },
	})

	w := get(s, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "not ready before Start")

	s.ready.Store(true)
	w = get(s, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Data HealthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Data.Checks["postgres"])
	assert.Equal(t, "connection refused", body.Data.Checks["redis"])

	healthy := newServer(t, Config{}, map[string]ReadyCheck{"postgres": func(context.Context) error { return nil }})
	healthy.ready.Store(true)
	assert.Equal(t, http.StatusOK, get(healthy, "/ready", nil).Code)
}

func TestRequestID(t *testing.T) {
	s := newServer(t, Config{}, nil)

	w := get(s, APIPrefix+"/echo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	generated := w.Header().Get(requestIDHeader)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
	assert.Contains(t, w.Body.String(), generated)

	provided := uuid.NewString()
	w = get(s, APIPrefix+"/echo", http.Header{requestIDHeader: {provided}})
	assert.Equal(t, provided, w.Header().Get(requestIDHeader))

	w = get(s, APIPrefix+"/echo", http.Header{requestIDHeader: {"not-a-uuid"}})
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(requestIDHeader))
}

func TestPanicRecovery(t *testing.T) {
	s := newServer(t, Config{}, nil)

	w := get(s, APIPrefix+"/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body httpx.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL", string(body.Code))
	assert.Equal(t, "internal server error", body.Message)
	assert.NotEmpty(t, body.RequestID)
}

func TestRateLimitSkipsProbes(t *testing.T) {
	s := newServer(t, Config{RateLimit: 0.001, RateLimitBurst: 1}, nil)

	assert.Equal(t, http.StatusOK, get(s, APIPrefix+"/echo", nil).Code)
	w := get(s, APIPrefix+"/echo", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"RATE_LIMITED"`)

	assert.Equal(t, http.StatusOK, get(s, "/health", nil).Code)
}

func TestRequestTimeout(t *testing.T) {
	s := newServer(t, Config{RequestTimeout: time.Second}, nil)
	assert.Contains(t, get(s, APIPrefix+"/echo", nil).Body.String(), `"has_deadline":true`)

	s = newServer(t, Config{}, nil)
	assert.Contains(t, get(s, APIPrefix+"/echo", nil).Body.String(), `"has_deadline":false`)
}

func TestUnknownRoute(t *testing.T) {
	s := newServer(t, Config{}, nil)

	w := get(s, APIPrefix+"/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"NOT_FOUND"`)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t, Config{}, nil)
	get(s, APIPrefix+"/echo", nil)

	w := get(s, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "catalog_http_requests_total")
}

func TestCORS(t *testing.T) {
	s := newServer(t, Config{}, nil)

	w := get(s, APIPrefix+"/echo", http.Header{"Origin": {"http://localhost:3000"}})
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(s, APIPrefix+"/echo", http.Header{"Origin": {"http://evil.example"}})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
