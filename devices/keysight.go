package devices

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dfseltzer/pylab/adapters/metrics"
	"github.com/dfseltzer/pylab/core/engine"
	"github.com/dfseltzer/pylab/ports"
)

// N5770A drives the Keysight N5770A system DC power supply.
type N5770A struct {
	Device
}

// NewN5770A wraps a connection in the N5770A driver.
func NewN5770A(name string, eng *engine.Engine, conn ports.Connection, met *metrics.Collector, logger zerolog.Logger) *N5770A {
	return &N5770A{Device: Device{
		Session: NewSession(name, eng, conn, met, logger),
		driver:  DriverN5770A,
		props: map[string]accessor{
			propEnabled: {set: "OUTP:STAT", query: "OUTP:STAT"},
			propVoltage: {set: "SOUR:VOLT:LEV:IMM:AMPL", query: "MEAS:VOLT"},
			propCurrent: {set: "SOUR:CURR:LEV:IMM:AMPL", query: "MEAS:CURR"},
		},
	}}
}

// SetProtectionVoltage programs the overvoltage protection level in volts.
func (d *N5770A) SetProtectionVoltage(ctx context.Context, volts float64) error {
	return d.Set(ctx, "SOUR:VOLT:PROT:LEV", volts)
}

// ClearProtection clears a latched protection condition.
func (d *N5770A) ClearProtection(ctx context.Context) error {
	return d.Set(ctx, "OUTP:PROT:CLE")
}

var _ DCSource = (*N5770A)(nil)
