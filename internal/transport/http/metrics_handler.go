package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// MetricsHandler exposes run and hub counters as JSON. Prometheus
// exposition is served separately on /metrics.
type MetricsHandler struct {
	runs StatsSource
	hub  HubMetrics
	now  func() time.Time
}

// NewMetricsHandler creates a new metrics handler. hub may be nil.
func NewMetricsHandler(runs StatsSource, hub HubMetrics) *MetricsHandler {
	return &MetricsHandler{runs: runs, hub: hub, now: time.Now}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetMetrics)
	return r
}

// GetMetrics handles GET /api/metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	runs := map[string]int{}
	total := 0
	if h.runs != nil {
		for status, n := range h.runs.Stats() {
			runs[string(status)] = n
			total += n
		}
	}

	response := map[string]interface{}{
		"timestamp":  h.now().UTC().Format(time.RFC3339),
		"runs":       runs,
		"runs_total": total,
	}
	if h.hub != nil {
		response["websocket"] = h.hub.GetHubMetrics()
	}
	render.JSON(w, r, response)
}
