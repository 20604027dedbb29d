package devices

import (
	"context"
	"fmt"

	"github.com/dfseltzer/pylab/domain/scpi"
)

// Bench property names shared by all drivers. A driver exposes a property
// by mapping it to catalog commands in its accessor table.
const (
	propEnabled = "enabled"
	propMode    = "mode"
	propVoltage = "voltage"
	propCurrent = "current"
	propPower   = "power"
)

// accessor names the catalog commands behind one device property. An empty
// field means the direction is unsupported on this driver. The query command
// is usually a measurement command, not the setpoint readback.
type accessor struct {
	set   string
	query string
}

// Device is the common driver core: a validated session plus a property
// accessor table.
type Device struct {
	*Session
	driver string
	props  map[string]accessor
}

// Driver returns the driver identifier (e.g. "bk8616").
func (d *Device) Driver() string { return d.driver }

func (d *Device) setProp(ctx context.Context, prop string, args ...any) error {
	a, ok := d.props[prop]
	if !ok || a.set == "" {
		return scpi.Errorf(scpi.ErrUnsupportedForm, "", -1,
			"%s does not support setting %s", d.driver, prop)
	}
	return d.Set(ctx, a.set, args...)
}

func (d *Device) queryProp(ctx context.Context, prop string) (any, error) {
	a, ok := d.props[prop]
	if !ok || a.query == "" {
		return nil, scpi.Errorf(scpi.ErrUnsupportedForm, "", -1,
			"%s does not support querying %s", d.driver, prop)
	}
	return d.QueryParsed(ctx, a.query)
}

func (d *Device) queryFloat(ctx context.Context, prop string) (float64, error) {
	v, err := d.queryProp(ctx, prop)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%s: %s response %v is not numeric", d.Name(), prop, v)
	}
}

func (d *Device) queryBool(ctx context.Context, prop string) (bool, error) {
	v, err := d.queryProp(ctx, prop)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s: %s response %v is not a boolean", d.Name(), prop, v)
	}
	return b, nil
}

func (d *Device) queryString(ctx context.Context, prop string) (string, error) {
	v, err := d.queryProp(ctx, prop)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: %s response %v is not a string", d.Name(), prop, v)
	}
	return s, nil
}

// Enabled reports whether the instrument's input or output is on.
func (d *Device) Enabled(ctx context.Context) (bool, error) {
	return d.queryBool(ctx, propEnabled)
}

// SetEnabled switches the instrument's input or output.
func (d *Device) SetEnabled(ctx context.Context, on bool) error {
	return d.setProp(ctx, propEnabled, on)
}

// Voltage returns the measured voltage in volts.
func (d *Device) Voltage(ctx context.Context) (float64, error) {
	return d.queryFloat(ctx, propVoltage)
}

// SetVoltage programs the voltage setpoint in volts.
func (d *Device) SetVoltage(ctx context.Context, volts float64) error {
	return d.setProp(ctx, propVoltage, volts)
}

// Current returns the measured current in amps.
func (d *Device) Current(ctx context.Context) (float64, error) {
	return d.queryFloat(ctx, propCurrent)
}

// SetCurrent programs the current setpoint or limit in amps.
func (d *Device) SetCurrent(ctx context.Context, amps float64) error {
	return d.setProp(ctx, propCurrent, amps)
}

// Power returns the measured power in watts.
func (d *Device) Power(ctx context.Context) (float64, error) {
	return d.queryFloat(ctx, propPower)
}

// SetPower programs the power setpoint in watts.
func (d *Device) SetPower(ctx context.Context, watts float64) error {
	return d.setProp(ctx, propPower, watts)
}

// Readings returns a read function per measurable quantity on this driver,
// keyed by quantity name. Quantities without a query command are absent.
func (d *Device) Readings() map[string]func(context.Context) (float64, error) {
	out := make(map[string]func(context.Context) (float64, error))
	if a, ok := d.props[propVoltage]; ok && a.query != "" {
		out[propVoltage] = d.Voltage
	}
	if a, ok := d.props[propCurrent]; ok && a.query != "" {
		out[propCurrent] = d.Current
	}
	if a, ok := d.props[propPower]; ok && a.query != "" {
		out[propPower] = d.Power
	}
	return out
}

// Mode returns the instrument operating mode.
func (d *Device) Mode(ctx context.Context) (string, error) {
	return d.queryString(ctx, propMode)
}

// SetMode selects the instrument operating mode.
func (d *Device) SetMode(ctx context.Context, mode string) error {
	return d.setProp(ctx, propMode, mode)
}
