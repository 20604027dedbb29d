package bootstrap_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dfseltzer/pylab/bootstrap"
	"github.com/dfseltzer/pylab/devices"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pylab.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewWiresMockBench(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
bench: test-bench
server:
  enabled: false
recorder:
  enabled: true
  path: `+filepath.Join(dir, "runs.db")+`
  interval: 100ms
instruments:
  - name: load1
    driver: bk8616
    transport: mock
    responses:
      "*IDN": "B&K Precision,8616,0,1.0"
      MEAS:VOLT: "12.5"
  - name: supply1
    driver: n5770a
    transport: mock
logging:
  level: error
`)

	a, err := bootstrap.New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Shutdown()

	if len(a.Instruments) != 2 {
		t.Fatalf("built %d instruments, want 2", len(a.Instruments))
	}
	if a.DB == nil {
		t.Error("recorder database was not opened")
	}
	if a.HTTPServer != nil {
		t.Error("status server built despite server.enabled: false")
	}

	load, ok := a.Instruments[0].(devices.DCLoad)
	if !ok {
		t.Fatalf("instrument 0 is %T, want DCLoad", a.Instruments[0])
	}
	ctx := context.Background()
	if err := load.Open(ctx); err != nil {
		t.Fatal(err)
	}
	v, err := load.Voltage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v != 12.5 {
		t.Errorf("Voltage over mock bench = %v", v)
	}
}

func TestNewBuildsStatusServer(t *testing.T) {
	path := writeConfig(t, `
bench: test-bench
server:
  enabled: true
  host: 127.0.0.1
  port: 0
logging:
  level: error
`)

	a, err := bootstrap.New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Shutdown()

	if a.HTTPServer == nil {
		t.Fatal("status server was not built")
	}
	if a.Registry == nil || a.Metrics == nil {
		t.Error("metrics were not wired")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	path := writeConfig(t, "instruments:\n  - {name: a, driver: nope, transport: mock}\n")
	if _, err := bootstrap.New(path); err == nil {
		t.Error("New should fail on unknown driver")
	}
}

func TestNewRejectsMissingCatalog(t *testing.T) {
	path := writeConfig(t, `
instruments:
  - name: load1
    driver: bk8616
    transport: mock
    catalog: SCPI_NOPE
logging:
  level: error
`)
	if _, err := bootstrap.New(path); err == nil {
		t.Error("New should fail when the catalog cannot be resolved")
	}
}
