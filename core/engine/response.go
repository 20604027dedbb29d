package engine

import (
	"strconv"
	"strings"

	"github.com/dfseltzer/pylab/domain/scpi"
)

// ParseResponse turns the raw text an instrument returned for a query into
// typed values. The command may be the wire string that was sent; any
// arguments, a trailing query marker, and trailing numeric suffix digits are
// stripped before lookup.
//
// Zero declared response fields return the raw text unchanged. One field
// returns a single typed value. Multiple fields split the text on commas and
// return a []any; a part-count disagreement is ErrResponseShape.
func (e *Engine) ParseResponse(command, raw string) (any, error) {
	base := responseBase(command)
	def, ok := e.catalog[base]
	if !ok {
		return nil, scpi.Errorf(scpi.ErrUnknownCommand, base, -1, "not in catalog")
	}

	fields := def.Response
	if len(fields) == 0 {
		return raw, nil
	}
	if len(fields) == 1 {
		return parseField(base, 0, strings.TrimSpace(raw), fields[0])
	}

	parts := strings.Split(raw, ",")
	if len(parts) != len(fields) {
		return nil, scpi.Errorf(scpi.ErrResponseShape, base, -1,
			"expected %d fields, got %d", len(fields), len(parts))
	}
	out := make([]any, len(parts))
	for i, p := range parts {
		v, err := parseField(base, i, strings.TrimSpace(p), fields[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// responseBase reduces a sent command string to its catalog key: first token
// only, query marker stripped, trailing channel-suffix digits stripped.
func responseBase(command string) string {
	token, _, _ := strings.Cut(strings.TrimSpace(command), " ")
	base := scpi.BaseName(token)
	return strings.TrimRight(base, "0123456789")
}

func parseField(base string, pos int, part string, f scpi.ResponseField) (any, error) {
	switch f.Type {
	case scpi.TypeBool:
		b, ok := boolTokens[strings.ToUpper(part)]
		if !ok {
			return nil, scpi.Errorf(scpi.ErrArgumentType, base, pos, "cannot parse bool from %q", part)
		}
		return b, nil

	case scpi.TypeInt:
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, scpi.Errorf(scpi.ErrArgumentType, base, pos, "cannot parse int from %q", part)
		}
		return n, nil

	case scpi.TypeFloat:
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, scpi.Errorf(scpi.ErrArgumentType, base, pos, "cannot parse float from %q", part)
		}
		return v, nil

	case scpi.TypeString:
		if len(f.AllowedValues) > 0 && !stringAllowed(part, f.AllowedValues) {
			return nil, scpi.Errorf(scpi.ErrArgumentValue, base, pos,
				"%q not in accepted set %v", part, f.AllowedValues)
		}
		return part, nil

	default:
		return nil, scpi.Errorf(scpi.ErrDefinition, base, pos, "response field has no type")
	}
}
