package mock_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dfseltzer/pylab/adapters/mock"
	"github.com/dfseltzer/pylab/ports"
)

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	conn := mock.New(nil, zerolog.Nop())

	if got := conn.Status(); got != ports.StatusClosed {
		t.Errorf("initial status = %v, want closed", got)
	}
	if err := conn.Write(ctx, "*RST"); err == nil {
		t.Error("write on closed connection should fail")
	}

	if err := conn.Open(ctx); err != nil {
		t.Fatal(err)
	}
	if got := conn.Status(); got != ports.StatusOpen {
		t.Errorf("status after open = %v, want open", got)
	}

	if err := conn.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if got := conn.Status(); got != ports.StatusOpen {
		t.Errorf("status after reset = %v, want open", got)
	}

	if err := conn.Close(); err != nil {
		t.Fatal(err)
	}
	if got := conn.Status(); got != ports.StatusClosed {
		t.Errorf("status after close = %v, want closed", got)
	}
}

func TestCannedResponses(t *testing.T) {
	ctx := context.Background()
	conn := mock.New(map[string]string{
		"MEAS:VOLT": "12.503",
		"*IDN?":     "B&K Precision,8616,0,1.0",
	}, zerolog.Nop())
	if err := conn.Open(ctx); err != nil {
		t.Fatal(err)
	}

	// Lookup strips the query marker and ignores arguments.
	got, err := conn.Query(ctx, "MEAS:VOLT? MAX")
	if err != nil {
		t.Fatal(err)
	}
	if got != "12.503" {
		t.Errorf("Query(MEAS:VOLT? MAX) = %q, want 12.503", got)
	}

	got, err = conn.Query(ctx, "*IDN?")
	if err != nil {
		t.Fatal(err)
	}
	if got != "B&K Precision,8616,0,1.0" {
		t.Errorf("Query(*IDN?) = %q", got)
	}
}

func TestQueueFallback(t *testing.T) {
	ctx := context.Background()
	conn := mock.New(nil, zerolog.Nop())
	if err := conn.Open(ctx); err != nil {
		t.Fatal(err)
	}
	conn.Push("first", "second")

	if got, err := conn.Query(ctx, "SYST:ERR?"); err != nil || got != "first" {
		t.Errorf("Query = %q, %v, want first", got, err)
	}
	if got, err := conn.Read(ctx); err != nil || got != "second" {
		t.Errorf("Read = %q, %v, want second", got, err)
	}
	if _, err := conn.Read(ctx); err == nil {
		t.Error("read on empty queue should fail")
	}
}

func TestWriteLog(t *testing.T) {
	ctx := context.Background()
	conn := mock.New(map[string]string{"VOLT": "5.0"}, zerolog.Nop())
	if err := conn.Open(ctx); err != nil {
		t.Fatal(err)
	}

	if err := conn.Write(ctx, "VOLT 5.0"); err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Query(ctx, "VOLT?"); err != nil {
		t.Fatal(err)
	}

	got := conn.Writes()
	want := []string{"VOLT 5.0", "VOLT?"}
	if len(got) != len(want) {
		t.Fatalf("Writes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Writes()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
