// Package api registers the operational HTTP surface: health and metrics.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/careerpulse/pkg/metrics"
)

// Dependencies are the runtime facts the health check reports.
type Dependencies interface {
	// ModelVersion names the risk model in use.
	ModelVersion() string
	// QueueLen is the number of offload jobs waiting.
	QueueLen(ctx context.Context) int
}

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the ops routes.
type Server struct {
	healthHandler *HealthHandler
	gatherer      prometheus.Gatherer
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithPinger adds a store check to /healthz.
func WithPinger(p Pinger) Option {
	return func(s *Server) {
		if p != nil {
			s.healthHandler.pinger = p
		}
	}
}

// WithGatherer serves metrics from g instead of the package registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// NewServer creates a Server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		healthHandler: NewHealthHandler(deps),
		gatherer:      metrics.GetRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches the routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
