// Package bootstrap wires all dependencies and starts the bench runtime:
// catalogs, instrument connections, the recorder and the status server.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dfseltzer/pylab/adapters/catalogfile"
	"github.com/dfseltzer/pylab/adapters/clock"
	"github.com/dfseltzer/pylab/adapters/lan"
	"github.com/dfseltzer/pylab/adapters/metrics"
	"github.com/dfseltzer/pylab/adapters/mock"
	"github.com/dfseltzer/pylab/adapters/sqlite"
	"github.com/dfseltzer/pylab/adapters/status"
	"github.com/dfseltzer/pylab/app"
	"github.com/dfseltzer/pylab/config"
	"github.com/dfseltzer/pylab/core/engine"
	"github.com/dfseltzer/pylab/devices"
	"github.com/dfseltzer/pylab/ports"
)

// App represents the running bench.
type App struct {
	Logger      zerolog.Logger
	Holder      *config.Holder
	Metrics     *metrics.Collector
	Registry    *prometheus.Registry
	Instruments []devices.Instrument
	DB          *sqlite.DB
	HTTPServer  *http.Server

	recordSvc    *app.RecordService
	recordCancel context.CancelFunc
	recordDone   chan struct{}
	auditCloser  io.Closer
}

// New loads configuration and wires the bench. Nothing touches the network
// until Run.
func New(configPath string) (*App, error) {
	bootLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	holder, err := config.NewHolder(configPath, bootLogger)
	if err != nil {
		return nil, err
	}
	cfg := holder.Get()

	a := &App{Holder: holder}
	a.Logger, a.auditCloser = newLogger(cfg.Logging)
	a.Logger.Info().Str("bench", cfg.Bench).Msg("initializing pylab")

	a.Registry = prometheus.NewRegistry()
	a.Metrics = metrics.NewWithRegistry(a.Registry)

	holder.OnChange(func(cfg *config.Config) {
		a.Metrics.ConfigReloads.Inc()
		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	})
	holder.OnReloadError(func(error) { a.Metrics.ConfigReloadErrors.Inc() })

	if err := a.buildInstruments(cfg); err != nil {
		return nil, err
	}

	if cfg.Recorder.Enabled {
		if err := a.initRecorder(cfg); err != nil {
			return nil, fmt.Errorf("init recorder: %w", err)
		}
	}

	if cfg.Server.Enabled {
		a.initStatusServer(cfg)
	}

	return a, nil
}

func (a *App) buildInstruments(cfg *config.Config) error {
	store := catalogfile.New(cfg.Catalogs.Dir)

	for _, inst := range cfg.Instruments {
		eng, err := engine.New(store, inst.Catalog, a.Logger)
		if err != nil {
			return fmt.Errorf("instrument %s: %w", inst.Name, err)
		}

		var conn ports.Connection
		switch inst.Transport {
		case "mock":
			conn = mock.New(inst.Responses, a.Logger)
		default:
			conn = lan.New(inst.Address, inst.Timeout, a.Logger)
		}

		dev, err := devices.New(inst.Driver, inst.Name, eng, conn, a.Metrics, a.Logger)
		if err != nil {
			return fmt.Errorf("instrument %s: %w", inst.Name, err)
		}
		a.Instruments = append(a.Instruments, dev)

		a.Logger.Info().
			Str("instrument", inst.Name).
			Str("driver", inst.Driver).
			Str("transport", inst.Transport).
			Str("catalog", inst.Catalog).
			Msg("instrument configured")
	}
	return nil
}

func (a *App) initRecorder(cfg *config.Config) error {
	db, err := sqlite.Open(cfg.Recorder.Path)
	if err != nil {
		return err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return err
	}
	a.DB = db

	var probes []app.Probe
	for _, dev := range a.Instruments {
		probes = append(probes, app.ProbesFor(dev)...)
	}

	a.recordSvc = app.NewRecordService(
		cfg.Bench,
		cfg.Recorder.Interval,
		probes,
		sqlite.NewRecorder(db),
		clock.Real{},
		a.Metrics,
		a.Logger,
	)
	return nil
}

func (a *App) initStatusServer(cfg *config.Config) {
	router := status.NewRouter(benchSource{a}, a.Logger, status.RouterConfig{
		Gatherer: a.Registry,
	})
	a.HTTPServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// Run opens the instruments, starts the recorder and status server, and
// blocks until a termination signal arrives.
func (a *App) Run() error {
	ctx := context.Background()

	for _, dev := range a.Instruments {
		if err := dev.Open(ctx); err != nil {
			// The bench stays up so the status surface can report the failure.
			a.Logger.Error().Err(err).Str("instrument", dev.Name()).Msg("open failed")
			continue
		}
		if idn, err := dev.Identify(ctx); err == nil {
			a.Logger.Info().Str("instrument", dev.Name()).Str("idn", idn).Msg("instrument identified")
		}
	}

	if a.recordSvc != nil {
		recordCtx, cancel := context.WithCancel(ctx)
		a.recordCancel = cancel
		a.recordDone = make(chan struct{})
		go func() {
			defer close(a.recordDone)
			if err := a.recordSvc.Run(recordCtx); err != nil && err != context.Canceled {
				a.Logger.Error().Err(err).Msg("record service stopped")
			}
		}()
	}

	a.Holder.WatchSignals()
	if err := a.Holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch unavailable")
	}

	errCh := make(chan error, 1)
	if a.HTTPServer != nil {
		go func() {
			a.Logger.Info().Str("addr", a.HTTPServer.Addr).Msg("starting status server")
			if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("status server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the bench.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.recordCancel != nil {
		a.recordCancel()
		select {
		case <-a.recordDone:
		case <-ctx.Done():
			a.Logger.Warn().Msg("record service did not stop in time")
		}
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("status server shutdown error")
		}
	}

	for _, dev := range a.Instruments {
		if err := dev.Close(); err != nil {
			a.Logger.Error().Err(err).Str("instrument", dev.Name()).Msg("close error")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Holder.Stop()

	a.Logger.Info().Msg("shutdown complete")
	if a.auditCloser != nil {
		a.auditCloser.Close()
	}
	return nil
}

// benchSource adapts the instrument list to the status server.
type benchSource struct{ app *App }

func (b benchSource) Instruments() []status.Instrument {
	cfg := b.app.Holder.Get()
	byName := make(map[string]config.InstrumentConfig, len(cfg.Instruments))
	for _, inst := range cfg.Instruments {
		byName[inst.Name] = inst
	}

	out := make([]status.Instrument, 0, len(b.app.Instruments))
	for _, dev := range b.app.Instruments {
		inst := byName[dev.Name()]
		out = append(out, status.Instrument{
			Name:      dev.Name(),
			Driver:    dev.Driver(),
			Transport: inst.Transport,
			Address:   inst.Address,
			Status:    dev.Status().String(),
		})
	}
	return out
}

// newLogger builds the bench logger from config. When an audit file is
// configured the stream is duplicated into a rotated file so clamping and
// substitution warnings survive restarts.
func newLogger(cfg config.LoggingConfig) (zerolog.Logger, io.Closer) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var console io.Writer = os.Stdout
	if cfg.Format == "console" {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	if cfg.AuditFile == "" {
		return zerolog.New(console).With().Timestamp().Logger(), nil
	}

	audit := &lumberjack.Logger{
		Filename:   cfg.AuditFile,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	logger := zerolog.New(zerolog.MultiLevelWriter(console, audit)).
		With().Timestamp().Logger()
	return logger, audit
}
