package lan_test

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dfseltzer/pylab/adapters/lan"
	"github.com/dfseltzer/pylab/ports"
)

// fakeInstrument accepts one connection and answers each received line from
// the responses table, echoing unknown queries back verbatim.
func fakeInstrument(t *testing.T, responses map[string]string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.TrimSpace(line)
			if !strings.HasSuffix(cmd, "?") && !strings.Contains(cmd, "? ") {
				continue // set command, no reply
			}
			reply, ok := responses[cmd]
			if !ok {
				reply = cmd
			}
			if _, err := conn.Write([]byte(reply + "\n")); err != nil {
				return
			}
		}
	}()
	return ln.Addr().String()
}

func TestOpenCloseStatus(t *testing.T) {
	addr := fakeInstrument(t, nil)
	conn := lan.New(addr, time.Second, zerolog.Nop())
	ctx := context.Background()

	if got := conn.Status(); got != ports.StatusClosed {
		t.Errorf("initial status = %v, want closed", got)
	}
	if err := conn.Open(ctx); err != nil {
		t.Fatal(err)
	}
	if got := conn.Status(); got != ports.StatusOpen {
		t.Errorf("status after open = %v, want open", got)
	}
	// Idempotent open.
	if err := conn.Open(ctx); err != nil {
		t.Fatal(err)
	}
	if err := conn.Close(); err != nil {
		t.Fatal(err)
	}
	if got := conn.Status(); got != ports.StatusClosed {
		t.Errorf("status after close = %v, want closed", got)
	}
	// Idempotent close.
	if err := conn.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOpenRefused(t *testing.T) {
	// Listener closed immediately so the port is dead.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	conn := lan.New(addr, 200*time.Millisecond, zerolog.Nop())
	if err := conn.Open(context.Background()); err == nil {
		conn.Close()
		t.Fatal("Open on dead port should fail")
	}
	if got := conn.Status(); got != ports.StatusClosed {
		t.Errorf("status after failed open = %v, want closed", got)
	}
}

func TestQuery(t *testing.T) {
	addr := fakeInstrument(t, map[string]string{
		"*IDN?":      "B&K Precision,8616,0,1.0",
		"MEAS:VOLT?": "  12.503  ",
	})
	conn := lan.New(addr, time.Second, zerolog.Nop())
	ctx := context.Background()
	if err := conn.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	got, err := conn.Query(ctx, "*IDN?")
	if err != nil {
		t.Fatal(err)
	}
	if got != "B&K Precision,8616,0,1.0" {
		t.Errorf("Query(*IDN?) = %q", got)
	}

	// Responses come back trimmed.
	got, err = conn.Query(ctx, "MEAS:VOLT?")
	if err != nil {
		t.Fatal(err)
	}
	if got != "12.503" {
		t.Errorf("Query(MEAS:VOLT?) = %q, want trimmed value", got)
	}
}

func TestWriteThenRead(t *testing.T) {
	addr := fakeInstrument(t, map[string]string{"SYST:ERR?": "0,\"No error\""})
	conn := lan.New(addr, time.Second, zerolog.Nop())
	ctx := context.Background()
	if err := conn.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := conn.Write(ctx, "VOLT 5.0"); err != nil {
		t.Fatal(err)
	}
	if err := conn.Write(ctx, "SYST:ERR?"); err != nil {
		t.Fatal(err)
	}
	got, err := conn.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != "0,\"No error\"" {
		t.Errorf("Read = %q", got)
	}
}

func TestReadTimeout(t *testing.T) {
	// Instrument that never answers.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(5 * time.Second)
	}()

	conn := lan.New(ln.Addr().String(), 100*time.Millisecond, zerolog.Nop())
	ctx := context.Background()
	if err := conn.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Query(ctx, "*IDN?"); err == nil {
		t.Fatal("query against silent instrument should time out")
	}
	// An I/O failure drops the session.
	if got := conn.Status(); got != ports.StatusClosed {
		t.Errorf("status after timeout = %v, want closed", got)
	}
}

func TestQueryOnClosedConnection(t *testing.T) {
	conn := lan.New("127.0.0.1:5025", time.Second, zerolog.Nop())
	if _, err := conn.Query(context.Background(), "*IDN?"); err == nil {
		t.Error("query on closed connection should fail")
	}
	if err := conn.Write(context.Background(), "*RST"); err == nil {
		t.Error("write on closed connection should fail")
	}
}
