// Package app contains the bench-level services built on devices and ports.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dfseltzer/pylab/adapters/metrics"
	"github.com/dfseltzer/pylab/devices"
	"github.com/dfseltzer/pylab/ports"
)

// Probe reads one quantity from one instrument.
type Probe struct {
	Instrument string
	Quantity   string
	Read       func(ctx context.Context) (float64, error)
}

// probeOrder keeps the probe sequence stable across runs.
var probeOrder = []string{"voltage", "current", "power"}

// ProbesFor derives one probe per quantity the driver can read back.
func ProbesFor(dev devices.Instrument) []Probe {
	readings := dev.Readings()
	var probes []Probe
	for _, q := range probeOrder {
		read, ok := readings[q]
		if !ok {
			continue
		}
		probes = append(probes, Probe{Instrument: dev.Name(), Quantity: q, Read: read})
	}
	return probes
}

// RecordService samples a set of probes on a fixed interval and persists
// the readings as one run.
type RecordService struct {
	bench    string
	interval time.Duration
	probes   []Probe
	recorder ports.Recorder
	clock    ports.Clock
	met      *metrics.Collector
	logger   zerolog.Logger
}

// NewRecordService creates a recording service. met may be nil.
func NewRecordService(
	bench string,
	interval time.Duration,
	probes []Probe,
	recorder ports.Recorder,
	clock ports.Clock,
	met *metrics.Collector,
	logger zerolog.Logger,
) *RecordService {
	return &RecordService{
		bench:    bench,
		interval: interval,
		probes:   probes,
		recorder: recorder,
		clock:    clock,
		met:      met,
		logger:   logger.With().Str("service", "record").Str("bench", bench).Logger(),
	}
}

// Run samples until ctx is cancelled, then finishes the run. A failing probe
// is logged and skipped for that tick; the run keeps going.
func (s *RecordService) Run(ctx context.Context) error {
	runID, err := s.recorder.StartRun(ctx, s.bench, s.clock.Now())
	if err != nil {
		return err
	}
	s.logger.Info().Str("run_id", runID).Dur("interval", s.interval).
		Int("probes", len(s.probes)).Msg("recording started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// The parent context is gone; finish the run on a fresh one.
			finishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.recorder.FinishRun(finishCtx, runID, s.clock.Now()); err != nil {
				s.logger.Error().Err(err).Str("run_id", runID).Msg("finish run")
				return err
			}
			s.logger.Info().Str("run_id", runID).Msg("recording finished")
			return ctx.Err()
		case <-ticker.C:
			s.sample(ctx, runID)
		}
	}
}

func (s *RecordService) sample(ctx context.Context, runID string) {
	for _, p := range s.probes {
		value, err := p.Read(ctx)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("instrument", p.Instrument).Str("quantity", p.Quantity).
				Msg("probe read failed")
			continue
		}
		sample := ports.Sample{
			RunID:      runID,
			Instrument: p.Instrument,
			Quantity:   p.Quantity,
			Value:      value,
			At:         s.clock.Now(),
		}
		if err := s.recorder.Record(ctx, sample); err != nil {
			if s.met != nil {
				s.met.RecorderErrors.Inc()
			}
			s.logger.Error().Err(err).
				Str("instrument", p.Instrument).Str("quantity", p.Quantity).
				Msg("record sample")
			continue
		}
		if s.met != nil {
			s.met.SamplesRecorded.WithLabelValues(p.Instrument, p.Quantity).Inc()
		}
	}
}
