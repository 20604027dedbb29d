// Package engine implements the command definition and validation engine:
// catalog lookup, argument validation, value normalization, command
// formatting, and response parsing. The engine performs no I/O; it turns a
// command name plus raw argument values into the exact wire string to send,
// or a typed error.
package engine

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dfseltzer/pylab/domain/scpi"
	"github.com/dfseltzer/pylab/ports"
)

// CommonCatalog is the fixed name of the baseline catalog every engine loads
// before overlaying the device-specific one.
const CommonCatalog = "SCPI_COMMON"

// Engine validates and formats commands against an immutable catalog.
// A single Engine is safe for concurrent use; the catalog is never mutated
// after construction.
type Engine struct {
	catalog scpi.Catalog
	log     zerolog.Logger
}

// New builds an engine by loading the common catalog and overlaying the
// named device catalog. The store is consulted exactly twice; the merged
// catalog is owned by the returned engine.
func New(store ports.CatalogStore, device string, logger zerolog.Logger) (*Engine, error) {
	common, err := store.Load(CommonCatalog)
	if err != nil {
		return nil, fmt.Errorf("load common catalog: %w", err)
	}
	dev, err := store.Load(device)
	if err != nil {
		return nil, fmt.Errorf("load device catalog %q: %w", device, err)
	}
	return NewFromCatalog(scpi.Merge(common, dev), logger.With().Str("catalog", device).Logger()), nil
}

// NewFromCatalog wraps an already-merged catalog. The caller must not mutate
// the catalog afterwards.
func NewFromCatalog(catalog scpi.Catalog, logger zerolog.Logger) *Engine {
	return &Engine{catalog: catalog, log: logger}
}

// Get returns the definition for a command token. A trailing query marker is
// stripped before lookup. Device wrappers use this to read help text or
// bounds without sending anything.
func (e *Engine) Get(command string) (scpi.CommandDefinition, error) {
	base := scpi.BaseName(command)
	def, ok := e.catalog[base]
	if !ok {
		return scpi.CommandDefinition{}, scpi.Errorf(scpi.ErrUnknownCommand, base, -1, "not in catalog")
	}
	return def, nil
}

// Commands returns the number of commands in the merged catalog.
func (e *Engine) Commands() int { return len(e.catalog) }
