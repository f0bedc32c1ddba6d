package api

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const pingTimeout = 2 * time.Second

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps   Dependencies
	pinger Pinger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps Dependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type healthResponse struct {
	Status       string `json:"status"`
	ModelVersion string `json:"model_version"`
	QueueLength  int    `json:"queue_length"`
}

// HandleHealth answers GET /healthz. A failing store ping is a 503.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", fmt.Errorf("%w: %v", ErrUnhealthy, err))
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		ModelVersion: h.deps.ModelVersion(),
		QueueLength:  h.deps.QueueLen(r.Context()),
	})
}
