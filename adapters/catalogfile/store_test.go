package catalogfile_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dfseltzer/pylab/adapters/catalogfile"
	"github.com/dfseltzer/pylab/domain/scpi"
)

func writeCatalog(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadBuiltinCatalogs(t *testing.T) {
	store := catalogfile.New("")
	for _, name := range []string{"SCPI_COMMON", "SCPI_BK8616", "SCPI_BK9129B", "SCPI_N5770A"} {
		cat, err := store.Load(name)
		if err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		if len(cat) == 0 {
			t.Errorf("Load(%s): empty catalog", name)
		}
		for cmd, def := range cat {
			if err := def.Validate(); err != nil {
				t.Errorf("Load(%s): %s: %v", name, cmd, err)
			}
		}
	}
}

func TestLoadBuiltinCommonShape(t *testing.T) {
	store := catalogfile.New("")
	cat, err := store.Load("SCPI_COMMON")
	if err != nil {
		t.Fatal(err)
	}

	idn, ok := cat["*IDN"]
	if !ok {
		t.Fatal("SCPI_COMMON missing *IDN")
	}
	if idn.Query == nil {
		t.Error("*IDN query form should be supported")
	}
	if idn.Set != nil {
		t.Error("*IDN set form should be unsupported")
	}
	if len(idn.Response) != 0 || idn.Response == nil {
		t.Errorf("*IDN response should be present and empty (raw), got %v", idn.Response)
	}

	rst, ok := cat["*RST"]
	if !ok {
		t.Fatal("SCPI_COMMON missing *RST")
	}
	if rst.Set == nil || len(rst.Set) != 0 {
		t.Errorf("*RST set form should take no arguments, got %v", rst.Set)
	}
	if rst.Query != nil {
		t.Error("*RST query form should be unsupported")
	}
}

func TestLoadNotFound(t *testing.T) {
	store := catalogfile.New(t.TempDir())
	if _, err := store.Load("SCPI_NOPE"); !errors.Is(err, scpi.ErrCatalogNotFound) {
		t.Errorf("Load(SCPI_NOPE) = %v, want ErrCatalogNotFound", err)
	}
}

func TestLoadDirectoryOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "SCPI_COMMON.json", `{
		"commands": {
			"*RST": {"set": [], "help": "site override"}
		}
	}`)

	cat, err := catalogfile.New(dir).Load("SCPI_COMMON")
	if err != nil {
		t.Fatal(err)
	}
	if len(cat) != 1 {
		t.Errorf("override catalog has %d commands, want 1", len(cat))
	}
	if cat["*RST"].Help != "site override" {
		t.Errorf("override not applied: help = %q", cat["*RST"].Help)
	}
}

func TestLoadJSONCatalog(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "BENCH.json", `{
		"commands": {
			"VOLT": {
				"set": [
					{"type": "int", "required": false, "default": 1, "range": [1, 4]},
					{"type": "float", "range": [0, 60]}
				],
				"query": [{"type": "int", "required": false, "default": 1, "range": [1, 4]}],
				"response": [{"type": "float"}],
				"help": "Set or query the voltage level"
			}
		}
	}`)

	cat, err := catalogfile.New(dir).Load("BENCH")
	if err != nil {
		t.Fatal(err)
	}
	def, ok := cat["VOLT"]
	if !ok {
		t.Fatal("catalog missing VOLT")
	}
	if len(def.Set) != 2 {
		t.Fatalf("VOLT set arguments = %d, want 2", len(def.Set))
	}
	ch := def.Set[0]
	if ch.Type != scpi.TypeInt || ch.Required || ch.Default == nil {
		t.Errorf("channel argument decoded wrong: %+v", ch)
	}
	if ch.Range == nil || *ch.Range.Min != 1 || *ch.Range.Max != 4 {
		t.Errorf("channel range decoded wrong: %+v", ch.Range)
	}
	lvl := def.Set[1]
	if lvl.Type != scpi.TypeFloat || !lvl.Required {
		t.Errorf("level argument decoded wrong: %+v", lvl)
	}
	if len(def.Response) != 1 || def.Response[0].Type != scpi.TypeFloat {
		t.Errorf("response decoded wrong: %+v", def.Response)
	}
}

func TestLoadYAMLCatalog(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "BENCH.yaml", `
commands:
  FUNC:
    set:
      - type: str
        values: [CURR, RES, VOLT]
    query: []
    response:
      - type: str
        values: [CURR, RES, VOLT]
    help: Set or query the operating mode
  DYN:SEQ:
    set:
      - type: float
        variadic: true
    help: Load a dynamic test sequence
`)

	cat, err := catalogfile.New(dir).Load("BENCH")
	if err != nil {
		t.Fatal(err)
	}
	fn, ok := cat["FUNC"]
	if !ok {
		t.Fatal("catalog missing FUNC")
	}
	if len(fn.Set) != 1 || len(fn.Set[0].AllowedValues) != 3 {
		t.Errorf("FUNC set decoded wrong: %+v", fn.Set)
	}
	seq, ok := cat["DYN:SEQ"]
	if !ok {
		t.Fatal("catalog missing DYN:SEQ")
	}
	if !seq.Set[0].Variadic || !seq.Set[0].Required {
		t.Errorf("DYN:SEQ argument decoded wrong: %+v", seq.Set[0])
	}
	if seq.Query != nil {
		t.Error("DYN:SEQ query form should be unsupported")
	}
}

func TestLoadPrefersJSONOverYAML(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "BENCH.json", `{"commands": {"OUTP": {"set": [{"type": "bool"}], "help": "json"}}}`)
	writeCatalog(t, dir, "BENCH.yaml", "commands:\n  OUTP:\n    set:\n      - type: bool\n    help: yaml\n")

	cat, err := catalogfile.New(dir).Load("BENCH")
	if err != nil {
		t.Fatal(err)
	}
	if cat["OUTP"].Help != "json" {
		t.Errorf("expected .json to win, got help %q", cat["OUTP"].Help)
	}
}

func TestLoadDefinitionDefects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"commands": {`},
		{"no commands map", `{}`},
		{"unknown type", `{"commands": {"X": {"set": [{"type": "complex"}]}}}`},
		{"neither form", `{"commands": {"X": {"help": "nothing"}}}`},
		{"query without response", `{"commands": {"X": {"query": []}}}`},
		{"variadic not last", `{"commands": {"X": {"set": [
			{"type": "float", "variadic": true},
			{"type": "int"}
		]}}}`},
		{"one-ended range list", `{"commands": {"X": {"set": [{"type": "float", "range": [0]}]}}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeCatalog(t, dir, "BAD.json", tc.content)
			if _, err := catalogfile.New(dir).Load("BAD"); !errors.Is(err, scpi.ErrDefinition) {
				t.Errorf("Load(BAD) = %v, want ErrDefinition", err)
			}
		})
	}
}

func TestLoadOpenEndedRange(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "BENCH.json", `{"commands": {
		"CURR": {"set": [{"type": "float", "range": [0, null]}], "help": "open top"}
	}}`)

	cat, err := catalogfile.New(dir).Load("BENCH")
	if err != nil {
		t.Fatal(err)
	}
	rng := cat["CURR"].Set[0].Range
	if rng == nil || rng.Min == nil || *rng.Min != 0 || rng.Max != nil {
		t.Errorf("open-ended range decoded wrong: %+v", rng)
	}
}
