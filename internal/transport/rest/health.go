package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/transport/httpx"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const readyCheckTimeout = 2 * time.Second

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	httpx.JSON(w, http.StatusOK, "ok", HealthResponse{Status: "healthy"})
}

// handleReady runs every dependency check. Any failure reports 503.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !s.ready.Load() {
		httpx.JSON(w, http.StatusServiceUnavailable, "not ready", HealthResponse{Status: "not_ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ready", Checks: map[string]string{}}
	status := http.StatusOK
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			resp.Checks[name] = err.Error()
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	httpx.JSON(w, status, resp.Status, resp)
}
