package scpi_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/dfseltzer/pylab/domain/scpi"
)

func TestCommandErrorUnwrap(t *testing.T) {
	err := scpi.Errorf(scpi.ErrArgumentValue, "VOLT", 1, "99 above maximum 60")

	if !errors.Is(err, scpi.ErrArgumentValue) {
		t.Errorf("errors.Is(err, ErrArgumentValue) = false")
	}
	if errors.Is(err, scpi.ErrArgumentType) {
		t.Errorf("error matches the wrong kind")
	}

	var cerr *scpi.CommandError
	if !errors.As(err, &cerr) {
		t.Fatalf("errors.As failed for %T", err)
	}
	if cerr.Command != "VOLT" || cerr.Arg != 1 {
		t.Errorf("context = (%q, %d), want (VOLT, 1)", cerr.Command, cerr.Arg)
	}
}

func TestCommandErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *scpi.CommandError
		want []string
	}{
		{
			name: "argument error includes position",
			err:  scpi.Errorf(scpi.ErrArgumentType, "INP:SHOR", 0, "expected bool"),
			want: []string{"INP:SHOR", "argument 0", "expected bool"},
		},
		{
			name: "command error without position",
			err:  scpi.Errorf(scpi.ErrUnknownCommand, "NOPE", -1, "not in catalog"),
			want: []string{"NOPE", "unknown command"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.want {
				if !strings.Contains(msg, want) {
					t.Errorf("message %q missing %q", msg, want)
				}
			}
		})
	}
}
