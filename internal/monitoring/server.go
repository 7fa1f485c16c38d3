package monitoring

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes a collector over HTTP: Prometheus exposition on /metrics,
// a JSON summary on /summary and a liveness check on /health.
type Server struct {
	collector *MetricsCollector
	server    *http.Server
}

// NewMonitoringServer creates a new monitoring server listening on addr.
func NewMonitoringServer(collector *MetricsCollector, addr string) *Server {
	ms := &Server{collector: collector}
	ms.server = &http.Server{
		Addr:              addr,
		Handler:           ms.Handler(),
		ReadHeaderTimeout: 10 * time.Second, //nolint:mnd // Standard timeout value
	}
	return ms
}

// Handler returns the HTTP handler serving all monitoring endpoints.
func (ms *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(ms.collector.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/summary", ms.handleSummary)
	mux.HandleFunc("/health", ms.handleHealth)
	return mux
}

// Start starts the monitoring server. It blocks until the server stops.
func (ms *Server) Start() error {
	return ms.server.ListenAndServe()
}

// Stop stops the monitoring server.
func (ms *Server) Stop() error {
	return ms.server.Close()
}

func (ms *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ms.collector.GetSummary()); err != nil {
		http.Error(w, "Failed to encode summary", http.StatusInternalServerError)
	}
}

func (ms *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"enabled":   ms.collector.IsEnabled(),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode health status", http.StatusInternalServerError)
	}
}
