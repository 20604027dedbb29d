package engine

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dfseltzer/pylab/domain/scpi"
)

// ValidateCommand resolves the requested form, matches the provided values
// against the argument definitions, fills defaults, and returns the exact
// wire string. On failure it returns one of the scpi error kinds and the
// wire string is empty; no partial output is ever produced.
func (e *Engine) ValidateCommand(command string, args ...any) (string, error) {
	base := scpi.BaseName(command)
	isQuery := scpi.IsQuery(command)

	def, ok := e.catalog[base]
	if !ok {
		return "", scpi.Errorf(scpi.ErrUnknownCommand, base, -1, "not in catalog")
	}

	defs := def.Set
	form := "set"
	if isQuery {
		defs = def.Query
		form = "query"
	}
	if defs == nil {
		return "", scpi.Errorf(scpi.ErrUnsupportedForm, base, -1, "%s form not defined", form)
	}
	if isQuery && def.Response == nil {
		return "", scpi.Errorf(scpi.ErrDefinition, base, -1, "query form declared without response shape")
	}

	// The first required definition can never be satisfied by zero values;
	// reject explicitly instead of falling through the matching loop.
	if len(args) == 0 && len(defs) > 0 && defs[0].Required {
		return "", scpi.Errorf(scpi.ErrMissingArgument, base, 0, "command takes at least one argument")
	}

	matched, err := matchArguments(base, defs, args)
	if err != nil {
		return "", err
	}

	// Fill defaults for definitions that matched nothing. A variadic
	// definition legitimately absorbs zero values; everything else that is
	// required and unmatched is a caller error.
	for i, d := range defs {
		if len(matched[i]) > 0 {
			continue
		}
		if d.Required && !d.Variadic {
			return "", scpi.Errorf(scpi.ErrMissingArgument, base, i, "no value and no default")
		}
		if !d.Required && d.Default != nil {
			if verr := ValidateArgument(d.Default, d); verr != nil {
				return "", scpi.Errorf(scpi.ErrDefinition, base, i, "default value invalid: %v", verr)
			}
			matched[i] = append(matched[i], d.Default)
		}
	}

	var parts []string
	for i, d := range defs {
		for _, v := range matched[i] {
			parts = append(parts, renderValue(v, d.Type))
		}
	}

	out := base
	if len(parts) > 0 {
		out += " " + strings.Join(parts, ",")
	}
	if isQuery && !strings.HasSuffix(out, "?") {
		out += "?"
	}
	return out, nil
}

// matchArguments walks provided values left to right against the definition
// sequence, skipping optional definitions that reject the value and holding
// the cursor on a variadic definition so it can absorb the trailing values.
func matchArguments(base string, defs []scpi.ArgumentDefinition, args []any) ([][]any, error) {
	matched := make([][]any, len(defs))
	cursor := 0
	for ai, v := range args {
		if cursor >= len(defs) {
			return nil, scpi.Errorf(scpi.ErrTooManyArguments, base, ai,
				"command takes at most %d arguments", len(defs))
		}
		scan := cursor
		var lastErr error
		for {
			if scan >= len(defs) {
				return nil, atPosition(lastErr, base, ai)
			}
			d := defs[scan]
			err := ValidateArgument(v, d)
			if err == nil {
				matched[scan] = append(matched[scan], v)
				if d.Variadic {
					cursor = scan
				} else {
					cursor = scan + 1
				}
				break
			}
			if errors.Is(err, scpi.ErrDefinition) || d.Required {
				return nil, atPosition(err, base, ai)
			}
			lastErr = err
			scan++
		}
	}
	return matched, nil
}

// atPosition stamps the command name and argument position onto a validation
// error produced without that context.
func atPosition(err error, base string, arg int) error {
	var cerr *scpi.CommandError
	if errors.As(err, &cerr) {
		return scpi.Errorf(cerr.Kind, base, arg, "%s", cerr.Detail)
	}
	return scpi.Errorf(scpi.ErrArgumentType, base, arg, "%v", err)
}

// ValidateArgument checks a single value against one argument definition.
// Pure, no side effects. The returned error kind is ErrArgumentType when the
// representation is wrong, ErrArgumentValue when a well-typed value is
// outside the accepted set or range, and ErrDefinition when the definition
// itself is malformed.
func ValidateArgument(value any, def scpi.ArgumentDefinition) error {
	switch def.Type {
	case scpi.TypeBool:
		if _, ok := boolValue(value); !ok {
			return scpi.Errorf(scpi.ErrArgumentType, "", -1, "expected bool, got %v (%T)", value, value)
		}
		return nil

	case scpi.TypeInt:
		n, ok := intValue(value)
		if !ok {
			return scpi.Errorf(scpi.ErrArgumentType, "", -1, "expected int, got %v (%T)", value, value)
		}
		return checkNumeric(float64(n), def)

	case scpi.TypeFloat:
		f, ok := floatValue(value)
		if !ok {
			return scpi.Errorf(scpi.ErrArgumentType, "", -1, "expected float, got %v (%T)", value, value)
		}
		return checkNumeric(f, def)

	case scpi.TypeString:
		s, ok := value.(string)
		if !ok {
			return scpi.Errorf(scpi.ErrArgumentType, "", -1, "expected string, got %v (%T)", value, value)
		}
		if len(def.AllowedValues) > 0 && !stringAllowed(s, def.AllowedValues) {
			return scpi.Errorf(scpi.ErrArgumentValue, "", -1, "%q not in accepted set %v", s, def.AllowedValues)
		}
		return nil

	default:
		return scpi.Errorf(scpi.ErrDefinition, "", -1, "argument definition has no type")
	}
}

func checkNumeric(f float64, def scpi.ArgumentDefinition) error {
	if len(def.AllowedValues) > 0 && !numericAllowed(f, def.AllowedValues) {
		return scpi.Errorf(scpi.ErrArgumentValue, "", -1, "%v not in accepted set %v", f, def.AllowedValues)
	}
	if r := def.Range; r != nil {
		if r.Min != nil && f < *r.Min {
			return scpi.Errorf(scpi.ErrArgumentValue, "", -1, "%v below minimum %v", f, *r.Min)
		}
		if r.Max != nil && f > *r.Max {
			return scpi.Errorf(scpi.ErrArgumentValue, "", -1, "%v above maximum %v", f, *r.Max)
		}
	}
	return nil
}

func stringAllowed(s string, allowed []any) bool {
	for _, a := range allowed {
		if as, ok := a.(string); ok && strings.EqualFold(s, as) {
			return true
		}
	}
	return false
}

func numericAllowed(f float64, allowed []any) bool {
	for _, a := range allowed {
		if af, ok := floatValue(a); ok && af == f {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Value coercion
// -----------------------------------------------------------------------------

var boolTokens = map[string]bool{
	"ON": true, "TRUE": true, "1": true,
	"OFF": false, "FALSE": false, "0": false,
}

// boolValue accepts booleans, 0/1 numerics, and the ON/OFF/TRUE/FALSE/0/1
// tokens case-insensitively.
func boolValue(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, ok := boolTokens[strings.ToUpper(strings.TrimSpace(t))]
		return b, ok
	default:
		if f, ok := floatValue(v); ok && (f == 0 || f == 1) {
			return f == 1, true
		}
		return false, false
	}
}

// intValue accepts integer kinds, integral floats, and strings holding an
// integer. Booleans are rejected even though they are integer-like.
func intValue(v any) (int64, bool) {
	switch t := v.(type) {
	case bool:
		return 0, false
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return int64(t), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		return int64(t), true
	case float32:
		if float64(int64(t)) == float64(t) {
			return int64(t), true
		}
		return 0, false
	case float64:
		if math.Trunc(t) == t && !math.IsInf(t, 0) {
			return int64(t), true
		}
		return 0, false
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// floatValue accepts numeric kinds and strings holding a number. Booleans
// are rejected.
func floatValue(v any) (float64, bool) {
	switch t := v.(type) {
	case bool:
		return 0, false
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// -----------------------------------------------------------------------------
// Canonical rendering
// -----------------------------------------------------------------------------

// renderValue produces the wire form of a matched value. Strings pass
// through verbatim; booleans render as the SCPI 1/0 tokens; numerics render
// per the definition's type.
func renderValue(v any, t scpi.ArgumentType) string {
	if s, ok := v.(string); ok {
		return s
	}
	switch t {
	case scpi.TypeBool:
		if b, ok := boolValue(v); ok {
			if b {
				return "1"
			}
			return "0"
		}
	case scpi.TypeInt:
		if n, ok := intValue(v); ok {
			return strconv.FormatInt(n, 10)
		}
	case scpi.TypeFloat:
		if f, ok := floatValue(v); ok {
			return formatFloat(f)
		}
	}
	// Unreachable for validated values; fall back to a best-effort render.
	return fmt.Sprintf("%v", v)
}

// formatFloat keeps integral floats visibly floating point (1 -> "1.0") so
// the wire form is unambiguous to instruments that distinguish the two.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
