package engine_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dfseltzer/pylab/domain/scpi"
)

func TestParseResponse(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		name    string
		command string
		raw     string
		want    any
		wantErr error
	}{
		{"bool ON", "INP:SHOR?", "ON", true, nil},
		{"bool 0", "INP:SHOR?", "0", false, nil},
		{"bool FALSE", "INP:SHOR?", "FALSE", false, nil},
		{"bool junk", "INP:SHOR?", "maybe", nil, scpi.ErrArgumentType},
		{"float with padding", "MEAS:VOLT?", " 12.5 ", 12.5, nil},
		{"float junk", "MEAS:VOLT?", "abc", nil, scpi.ErrArgumentType},
		{"enum member", "SOUR:FUNC?", "VOLT", "VOLT", nil},
		{"enum non-member", "SOUR:FUNC?", "BAD", nil, scpi.ErrArgumentValue},
		{"multi field tuple", "MULTI?", "1,2.5,A", []any{int64(1), 2.5, "A"}, nil},
		{"multi field enum miss", "MULTI?", "1,2.5,X", nil, scpi.ErrArgumentValue},
		{"multi field short", "MULTI?", "1,2.5", nil, scpi.ErrResponseShape},
		{"multi field long", "MULTI?", "1,2.5,A,B", nil, scpi.ErrResponseShape},
		{"zero fields pass raw", "SYST:ERR?", `0,"No error"`, `0,"No error"`, nil},
		{"suffix digits stripped", "VOLT2?", "5.0", 5.0, nil},
		{"wire string with arguments", "VOLT 2?", "5.0", 5.0, nil},
		{"unknown command", "NOPE?", "1", nil, scpi.ErrUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ParseResponse(tt.command, tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseResponse(%q, %q) error = %v, want %v", tt.command, tt.raw, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseResponse(%q, %q) unexpected error: %v", tt.command, tt.raw, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseResponse(%q, %q) = %v (%T), want %v (%T)",
					tt.command, tt.raw, got, got, tt.want, tt.want)
			}
		})
	}
}

// A synthetic response assembled from known-good typed values must come back
// out of ParseResponse exactly.
func TestParseResponseRoundTrip(t *testing.T) {
	e := newTestEngine()

	want := []any{int64(7), 3.25, "B"}
	got, err := e.ParseResponse("MULTI?", "7,3.25,B")
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %v, want %v", got, want)
	}
}
