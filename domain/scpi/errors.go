package scpi

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Each is matchable with errors.Is.
var (
	// ErrUnknownCommand means the base command is absent from the catalog.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUnsupportedForm means the command exists but the requested
	// set/query form is not defined.
	ErrUnsupportedForm = errors.New("unsupported command form")

	// ErrMissingArgument means a required positional definition received no
	// matching value and has no usable default.
	ErrMissingArgument = errors.New("missing required argument")

	// ErrTooManyArguments means more values were supplied than the
	// definitions can absorb.
	ErrTooManyArguments = errors.New("too many arguments")

	// ErrArgumentType means a value's representation does not satisfy the
	// declared type.
	ErrArgumentType = errors.New("argument type mismatch")

	// ErrArgumentValue means a well-typed value is outside the declared
	// enumeration or numeric range.
	ErrArgumentValue = errors.New("argument value out of range")

	// ErrResponseShape means a parsed response part count disagrees with the
	// declared response shape.
	ErrResponseShape = errors.New("response shape mismatch")

	// ErrDefinition means the catalog itself is malformed. Always a defect
	// in configuration, never caller input.
	ErrDefinition = errors.New("malformed command definition")

	// ErrCatalogNotFound means a catalog name could not be resolved by the
	// catalog store.
	ErrCatalogNotFound = errors.New("catalog not found")
)

// CommandError carries the command and argument position a validation
// failure refers to. It unwraps to one of the error kinds above.
type CommandError struct {
	Command string
	Arg     int // argument position, -1 when not argument-specific
	Kind    error
	Detail  string
}

// Errorf builds a CommandError of the given kind. Pass arg -1 for failures
// not tied to a specific argument position.
func Errorf(kind error, command string, arg int, format string, a ...any) *CommandError {
	return &CommandError{
		Command: command,
		Arg:     arg,
		Kind:    kind,
		Detail:  fmt.Sprintf(format, a...),
	}
}

func (e *CommandError) Error() string {
	switch {
	case e.Command == "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
	case e.Arg >= 0:
		return fmt.Sprintf("%s: argument %d: %v: %s", e.Command, e.Arg, e.Kind, e.Detail)
	default:
		return fmt.Sprintf("%s: %v: %s", e.Command, e.Kind, e.Detail)
	}
}

func (e *CommandError) Unwrap() error { return e.Kind }
