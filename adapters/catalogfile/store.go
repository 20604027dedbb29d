// Package catalogfile resolves catalog names to JSON or YAML command-set
// documents. Catalogs shipped with the library are embedded in the binary;
// a configured directory overrides them and supplies site-specific sets.
package catalogfile

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dfseltzer/pylab/domain/scpi"
	"github.com/dfseltzer/pylab/ports"
)

//go:embed catalogs/*.json
var builtin embed.FS

// Store loads command catalogs by name. A zero directory serves only the
// embedded catalogs.
type Store struct {
	dir string
}

// New creates a store that searches dir before the embedded catalogs.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Load resolves a catalog name to its command definitions. The name is a
// bare catalog identifier (e.g. "SCPI_BK8616"), not a file path. Files in
// the store directory take precedence over embedded catalogs; .json, .yaml
// and .yml suffixes are tried in that order.
func (s *Store) Load(name string) (scpi.Catalog, error) {
	if s.dir != "" {
		for _, ext := range []string{".json", ".yaml", ".yml"} {
			path := filepath.Join(s.dir, name+ext)
			data, err := os.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("read catalog %s: %w", path, err)
			}
			return decode(name, ext, data)
		}
	}

	data, err := builtin.ReadFile("catalogs/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", scpi.ErrCatalogNotFound, name)
	}
	return decode(name, ".json", data)
}

// Ensure interface compliance.
var _ ports.CatalogStore = (*Store)(nil)

// -----------------------------------------------------------------------------
// Document decoding
// -----------------------------------------------------------------------------

// document is the on-disk catalog shape (spec'd representation): a commands
// map whose entries carry optional set/query argument lists, a response
// shape, and help text.
type document struct {
	Commands map[string]commandSpec `json:"commands" yaml:"commands"`
}

type commandSpec struct {
	// Pointers distinguish an absent form (unsupported) from a present empty
	// list (supported, no arguments).
	Set      *[]argumentSpec `json:"set" yaml:"set"`
	Query    *[]argumentSpec `json:"query" yaml:"query"`
	Response []responseSpec  `json:"response" yaml:"response"`
	Help     string          `json:"help" yaml:"help"`
}

type argumentSpec struct {
	Type     string     `json:"type" yaml:"type"`
	Required *bool      `json:"required" yaml:"required"` // default true
	Default  any        `json:"default" yaml:"default"`
	Values   []any      `json:"values" yaml:"values"`
	Range    []*float64 `json:"range" yaml:"range"`
	Variadic bool       `json:"variadic" yaml:"variadic"`
}

type responseSpec struct {
	Type   string `json:"type" yaml:"type"`
	Values []any  `json:"values" yaml:"values"`
}

func decode(name, ext string, data []byte) (scpi.Catalog, error) {
	var doc document
	var err error
	if ext == ".json" {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: catalog %s: %v", scpi.ErrDefinition, name, err)
	}
	if doc.Commands == nil {
		return nil, fmt.Errorf("%w: catalog %s: no commands map", scpi.ErrDefinition, name)
	}

	catalog := make(scpi.Catalog, len(doc.Commands))
	for cmdName, spec := range doc.Commands {
		def, err := spec.toDefinition(cmdName)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", name, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", name, err)
		}
		catalog[cmdName] = def
	}
	return catalog, nil
}

func (c commandSpec) toDefinition(name string) (scpi.CommandDefinition, error) {
	def := scpi.CommandDefinition{Name: name, Help: c.Help}

	if c.Set != nil {
		args, err := toArguments(name, "set", *c.Set)
		if err != nil {
			return def, err
		}
		def.Set = args
	}
	if c.Query != nil {
		args, err := toArguments(name, "query", *c.Query)
		if err != nil {
			return def, err
		}
		def.Query = args
	}
	if c.Response != nil {
		def.Response = make([]scpi.ResponseField, len(c.Response))
		for i, r := range c.Response {
			t, err := scpi.ParseArgumentType(r.Type)
			if err != nil {
				return def, fmt.Errorf("%s: response field %d: %w", name, i, err)
			}
			def.Response[i] = scpi.ResponseField{Type: t, AllowedValues: r.Values}
		}
	}
	return def, nil
}

func toArguments(name, form string, specs []argumentSpec) ([]scpi.ArgumentDefinition, error) {
	// Non-nil even when empty: an empty list means "supported, no arguments".
	args := make([]scpi.ArgumentDefinition, 0, len(specs))
	for i, a := range specs {
		t, err := scpi.ParseArgumentType(a.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: %s argument %d: %w", name, form, i, err)
		}

		required := true
		if a.Required != nil {
			required = *a.Required
		}

		var rng *scpi.Range
		if a.Range != nil {
			if len(a.Range) != 2 {
				return nil, fmt.Errorf("%w: %s: %s argument %d: range needs two bounds, got %d",
					scpi.ErrDefinition, name, form, i, len(a.Range))
			}
			rng = &scpi.Range{Min: a.Range[0], Max: a.Range[1]}
		}

		args = append(args, scpi.ArgumentDefinition{
			Type:          t,
			Required:      required,
			Default:       a.Default,
			AllowedValues: a.Values,
			Range:         rng,
			Variadic:      a.Variadic,
		})
	}
	return args, nil
}
