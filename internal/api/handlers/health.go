package handlers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jrm-1535/exify/internal/config"
)

// HealthHandler serves /health/live and /metrics.
type HealthHandler struct {
	promHandler http.Handler
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{promHandler: promhttp.Handler()}
}

type healthLiveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

// HealthLive answers 200 as long as the process runs.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthLiveResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   "exify",
	})
}

// GetMetrics exposes the Prometheus metrics.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}
