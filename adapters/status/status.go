// Package status exposes the bench monitoring HTTP surface: liveness,
// connected instrument state, and Prometheus metrics.
package status

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Instrument is one row of the /instruments report.
type Instrument struct {
	Name      string `json:"name"`
	Driver    string `json:"driver"`
	Transport string `json:"transport"`
	Address   string `json:"address,omitempty"`
	Status    string `json:"status"`
}

// Source reports the current bench composition. Implementations must be safe
// for concurrent use; the report is a point-in-time snapshot.
type Source interface {
	Instruments() []Instrument
}

// RouterConfig carries optional router collaborators.
type RouterConfig struct {
	// Gatherer serves /metrics. Nil falls back to the default registry.
	Gatherer prometheus.Gatherer
}

// NewRouter creates the status HTTP router.
func NewRouter(src Source, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	})

	r.Get("/instruments", func(w http.ResponseWriter, _ *http.Request) {
		list := src.Instruments()
		if list == nil {
			list = []Instrument{}
		}
		writeJSON(w, http.StatusOK, list, logger)
	})

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("write status response")
	}
}
