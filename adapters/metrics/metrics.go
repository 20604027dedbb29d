// Package metrics provides Prometheus metrics collection for pylab.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for pylab.
type Collector struct {
	// Command metrics
	CommandsTotal    *prometheus.CounterVec
	ValidationErrors *prometheus.CounterVec

	// Transport metrics
	QueryDuration   *prometheus.HistogramVec
	TransportErrors *prometheus.CounterVec

	// Recording metrics
	SamplesRecorded *prometheus.CounterVec
	RecorderErrors  prometheus.Counter

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
}

// New creates a new metrics collector registered on the default registry.
func New() *Collector {
	return newWith(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return newWith(promauto.With(reg))
}

func newWith(factory promauto.Factory) *Collector {
	return &Collector{
		CommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pylab",
				Name:      "commands_total",
				Help:      "Total commands sent per instrument and outcome",
			},
			[]string{"instrument", "result"},
		),
		ValidationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pylab",
				Name:      "validation_errors_total",
				Help:      "Command validation failures by error kind",
			},
			[]string{"kind"},
		),
		QueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pylab",
				Name:      "query_duration_seconds",
				Help:      "Instrument query round-trip duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"instrument"},
		),
		TransportErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pylab",
				Name:      "transport_errors_total",
				Help:      "Transport failures per instrument",
			},
			[]string{"instrument"},
		),
		SamplesRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pylab",
				Name:      "samples_recorded_total",
				Help:      "Measurement samples persisted per instrument and quantity",
			},
			[]string{"instrument", "quantity"},
		),
		RecorderErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pylab",
				Name:      "recorder_errors_total",
				Help:      "Failures writing samples to the recorder",
			},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pylab",
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pylab",
				Name:      "config_reload_errors_total",
				Help:      "Total number of failed config reloads",
			},
		),
	}
}
