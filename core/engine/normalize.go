package engine

import (
	"strings"

	"github.com/dfseltzer/pylab/domain/scpi"
)

// Normalize applies the MIN/MAX token substitution and range clamping policy
// to a single set-form value. Values the engine has no knowledge of (unknown
// command, unmapped position) pass through unchanged.
func (e *Engine) Normalize(command string, value any) any {
	return e.NormalizeArgs(command, []any{value})[0]
}

// NormalizeArgs normalizes a positional value sequence against the command's
// set argument definitions. A variadic definition is reused for all trailing
// positions. The returned slice always has the same shape as the input.
//
// Every alteration (token substitution or clamp) is logged at warn level:
// this is an auditable side effect, never a silent rewrite.
func (e *Engine) NormalizeArgs(command string, values []any) []any {
	out := make([]any, len(values))
	copy(out, values)

	def, ok := e.catalog[scpi.BaseName(command)]
	if !ok || def.Set == nil {
		return out
	}
	defs := def.Set

	di := 0
	for i, v := range values {
		if di >= len(defs) {
			break
		}
		d := defs[di]
		if !d.Variadic {
			di++
		}
		out[i] = e.normalizeOne(def.Name, i, v, d)
	}
	return out
}

func (e *Engine) normalizeOne(base string, pos int, v any, d scpi.ArgumentDefinition) any {
	if !d.Type.Numeric() {
		return v
	}

	// MIN/MAX tokens substitute the declared bound when one exists.
	if s, ok := v.(string); ok {
		switch strings.ToUpper(strings.TrimSpace(s)) {
		case "MIN":
			if d.Range != nil && d.Range.Min != nil {
				return e.substituted(base, pos, s, *d.Range.Min, d.Type)
			}
			return v
		case "MAX":
			if d.Range != nil && d.Range.Max != nil {
				return e.substituted(base, pos, s, *d.Range.Max, d.Type)
			}
			return v
		}
	}

	if d.Range == nil {
		return v
	}

	// Clamp only values that actually carry the argument's numeric type; a
	// value the definition would reject anyway passes through for the
	// validator to report.
	var f float64
	if d.Type == scpi.TypeInt {
		n, ok := intValue(v)
		if !ok {
			return v
		}
		f = float64(n)
	} else {
		var ok bool
		f, ok = floatValue(v)
		if !ok {
			return v
		}
	}

	clamped := f
	if d.Range.Min != nil && clamped < *d.Range.Min {
		clamped = *d.Range.Min
	}
	if d.Range.Max != nil && clamped > *d.Range.Max {
		clamped = *d.Range.Max
	}
	if clamped == f {
		return v
	}

	e.log.Warn().
		Str("command", base).
		Int("argument", pos).
		Float64("from", f).
		Float64("to", clamped).
		Msg("clamped value into declared range")
	return numericAs(clamped, d.Type)
}

func (e *Engine) substituted(base string, pos int, token string, bound float64, t scpi.ArgumentType) any {
	e.log.Warn().
		Str("command", base).
		Int("argument", pos).
		Str("token", token).
		Float64("to", bound).
		Msg("substituted range bound for token")
	return numericAs(bound, t)
}

func numericAs(f float64, t scpi.ArgumentType) any {
	if t == scpi.TypeInt {
		return int64(f)
	}
	return f
}
