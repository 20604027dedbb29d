package devices

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dfseltzer/pylab/adapters/metrics"
	"github.com/dfseltzer/pylab/core/engine"
	"github.com/dfseltzer/pylab/ports"
)

// Instrument is the surface every driver exposes: connection lifecycle plus
// identification.
type Instrument interface {
	Name() string
	Driver() string
	Open(ctx context.Context) error
	Close() error
	Reset(ctx context.Context) error
	Status() ports.ConnectionStatus
	Identify(ctx context.Context) (string, error)
	Readings() map[string]func(context.Context) (float64, error)
}

// DCLoad is an electronic load: a switchable input with a selectable
// operating mode and programmable setpoints.
type DCLoad interface {
	Instrument
	Enabled(ctx context.Context) (bool, error)
	SetEnabled(ctx context.Context, on bool) error
	Mode(ctx context.Context) (string, error)
	SetMode(ctx context.Context, mode string) error
	Voltage(ctx context.Context) (float64, error)
	SetVoltage(ctx context.Context, volts float64) error
	Current(ctx context.Context) (float64, error)
	SetCurrent(ctx context.Context, amps float64) error
	Power(ctx context.Context) (float64, error)
	SetPower(ctx context.Context, watts float64) error
}

// DCSource is a programmable power supply.
type DCSource interface {
	Instrument
	Enabled(ctx context.Context) (bool, error)
	SetEnabled(ctx context.Context, on bool) error
	Voltage(ctx context.Context) (float64, error)
	SetVoltage(ctx context.Context, volts float64) error
	Current(ctx context.Context) (float64, error)
	SetCurrent(ctx context.Context, amps float64) error
}

// Drivers in the bench registry.
const (
	DriverBK8616  = "bk8616"
	DriverBK9129B = "bk9129b"
	DriverN5770A  = "n5770a"
)

// CatalogFor returns the builtin catalog name for a driver, or "" for an
// unknown driver.
func CatalogFor(driver string) string {
	switch driver {
	case DriverBK8616:
		return "SCPI_BK8616"
	case DriverBK9129B:
		return "SCPI_BK9129B"
	case DriverN5770A:
		return "SCPI_N5770A"
	default:
		return ""
	}
}

// New constructs the driver named by driver over an existing engine and
// connection.
func New(driver, name string, eng *engine.Engine, conn ports.Connection, met *metrics.Collector, logger zerolog.Logger) (Instrument, error) {
	switch driver {
	case DriverBK8616:
		return NewBK8616(name, eng, conn, met, logger), nil
	case DriverBK9129B:
		return NewBK9129B(name, eng, conn, met, logger), nil
	case DriverN5770A:
		return NewN5770A(name, eng, conn, met, logger), nil
	default:
		return nil, fmt.Errorf("unknown instrument driver %q", driver)
	}
}
