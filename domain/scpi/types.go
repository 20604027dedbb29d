// Package scpi provides the SCPI command catalog data model and error
// taxonomy. This package has NO dependencies on I/O or external packages.
package scpi

import "fmt"

// ArgumentType is the closed set of types a command argument or response
// field can declare.
type ArgumentType int

const (
	TypeInvalid ArgumentType = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeString
)

// String returns the catalog token for the type.
func (t ArgumentType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "str"
	default:
		return "invalid"
	}
}

// ParseArgumentType maps a catalog token to an ArgumentType.
func ParseArgumentType(s string) (ArgumentType, error) {
	switch s {
	case "bool":
		return TypeBool, nil
	case "int":
		return TypeInt, nil
	case "float":
		return TypeFloat, nil
	case "str":
		return TypeString, nil
	default:
		return TypeInvalid, fmt.Errorf("%w: unknown argument type %q", ErrDefinition, s)
	}
}

// Numeric reports whether values of the type are numbers.
func (t ArgumentType) Numeric() bool {
	return t == TypeInt || t == TypeFloat
}

// Range bounds a numeric argument. Either end may be nil (open-ended).
type Range struct {
	Min *float64
	Max *float64
}

// ArgumentDefinition describes one positional parameter of a command.
type ArgumentDefinition struct {
	Type     ArgumentType
	Required bool

	// Default is only meaningful when Required is false. A non-nil default
	// must itself satisfy this definition's own validation rules.
	Default any

	// AllowedValues restricts the accepted set. Membership is
	// case-insensitive for string types and exact for numeric types.
	AllowedValues []any

	Range *Range

	// Variadic marks the last definition of an argument list; it may be
	// matched by zero or more trailing provided values.
	Variadic bool
}

// ResponseField describes one field of a query response. It mirrors the
// type/allowed-values shape of ArgumentDefinition but applies to parsing a
// returned value rather than validating a sent one.
type ResponseField struct {
	Type          ArgumentType
	AllowedValues []any
}

// CommandDefinition groups the set and query forms of one command.
//
// A nil Set or Query slice means that form is unsupported; an empty non-nil
// slice means the form is supported and takes no arguments.
type CommandDefinition struct {
	// Name is the base command token. It never includes a trailing query
	// marker.
	Name string

	Set   []ArgumentDefinition
	Query []ArgumentDefinition

	// Response describes the query response shape. It must be present when
	// Query is supported.
	Response []ResponseField

	Help string
}

// Validate checks the structural invariants of the definition. A failure is
// a catalog authoring defect, never caller input.
func (d CommandDefinition) Validate() error {
	if d.Set == nil && d.Query == nil {
		return fmt.Errorf("%w: %s: neither set nor query form defined", ErrDefinition, d.Name)
	}
	if d.Query != nil && d.Response == nil {
		return fmt.Errorf("%w: %s: query form declared without response shape", ErrDefinition, d.Name)
	}
	for form, args := range map[string][]ArgumentDefinition{"set": d.Set, "query": d.Query} {
		for i, a := range args {
			if a.Type == TypeInvalid {
				return fmt.Errorf("%w: %s: %s argument %d has no type", ErrDefinition, d.Name, form, i)
			}
			if a.Variadic && i != len(args)-1 {
				return fmt.Errorf("%w: %s: %s argument %d is variadic but not last", ErrDefinition, d.Name, form, i)
			}
		}
	}
	for i, f := range d.Response {
		if f.Type == TypeInvalid {
			return fmt.Errorf("%w: %s: response field %d has no type", ErrDefinition, d.Name, i)
		}
	}
	return nil
}
