package devices

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dfseltzer/pylab/adapters/metrics"
	"github.com/dfseltzer/pylab/core/engine"
	"github.com/dfseltzer/pylab/ports"
)

// BK8616 drives the B&K Precision 8616 electronic DC load. Setpoints are
// written to the mode registers (VOLT, CURR, POW); readbacks come from the
// MEAS subsystem.
type BK8616 struct {
	Device
}

// NewBK8616 wraps a connection in the 8616 driver.
func NewBK8616(name string, eng *engine.Engine, conn ports.Connection, met *metrics.Collector, logger zerolog.Logger) *BK8616 {
	return &BK8616{Device: Device{
		Session: NewSession(name, eng, conn, met, logger),
		driver:  DriverBK8616,
		props: map[string]accessor{
			propEnabled: {set: "INP", query: "INP"},
			propMode:    {set: "FUNC", query: "FUNC"},
			propVoltage: {set: "VOLT", query: "MEAS:VOLT"},
			propCurrent: {set: "CURR", query: "MEAS:CURR"},
			propPower:   {set: "POW", query: "MEAS:POW"},
		},
	}}
}

// Short switches the load's short circuit function.
func (d *BK8616) Short(ctx context.Context, on bool) error {
	return d.Set(ctx, "INP:SHOR", on)
}

// LoadSequence programs a dynamic test sequence of current levels.
func (d *BK8616) LoadSequence(ctx context.Context, levels ...float64) error {
	args := make([]any, len(levels))
	for i, l := range levels {
		args[i] = l
	}
	return d.Set(ctx, "DYN:SEQ", args...)
}

// BK9129B drives the B&K Precision 9129B triple-output DC source. Commands
// address the channel selected with SelectChannel.
type BK9129B struct {
	Device
}

// NewBK9129B wraps a connection in the 9129B driver.
func NewBK9129B(name string, eng *engine.Engine, conn ports.Connection, met *metrics.Collector, logger zerolog.Logger) *BK9129B {
	return &BK9129B{Device: Device{
		Session: NewSession(name, eng, conn, met, logger),
		driver:  DriverBK9129B,
		props: map[string]accessor{
			propEnabled: {set: "OUTP", query: "OUTP:STAT"},
			propVoltage: {set: "VOLT", query: "MEAS:VOLT"},
			propCurrent: {set: "CURR", query: "MEAS:CURR"},
			propPower:   {query: "MEAS:POW"},
		},
	}}
}

// SelectChannel makes subsequent commands address output channel n (1..3).
func (d *BK9129B) SelectChannel(ctx context.Context, n int) error {
	return d.Set(ctx, "INST:NSEL", n)
}

// SetAllVoltages programs every output channel in one command.
func (d *BK9129B) SetAllVoltages(ctx context.Context, volts ...float64) error {
	args := make([]any, len(volts))
	for i, v := range volts {
		args[i] = v
	}
	return d.Set(ctx, "APP:VOLT", args...)
}

var (
	_ DCLoad   = (*BK8616)(nil)
	_ DCSource = (*BK9129B)(nil)
)
