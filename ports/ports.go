// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/dfseltzer/pylab/domain/scpi"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// -----------------------------------------------------------------------------
// Catalog Port
// -----------------------------------------------------------------------------

// CatalogStore resolves a catalog name to a mapping from command name to
// command definition. Load fails with scpi.ErrCatalogNotFound when the name
// cannot be resolved.
type CatalogStore interface {
	Load(name string) (scpi.Catalog, error)
}

// -----------------------------------------------------------------------------
// Transport Port
// -----------------------------------------------------------------------------

// ConnectionStatus tracks the state of an instrument session.
type ConnectionStatus int

const (
	StatusUnknown ConnectionStatus = iota
	StatusOpen
	StatusClosed
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection is a byte-oriented text session with one instrument. The
// validation engine never touches a Connection; device wrappers hand it the
// engine's formatted strings.
type Connection interface {
	// Open establishes the session. Safe to call on an open connection.
	Open(ctx context.Context) error

	// Close terminates the session.
	Close() error

	// Reset closes and reopens the session.
	Reset(ctx context.Context) error

	// Status reports the current session state.
	Status() ConnectionStatus

	// Read returns the next response line, trimmed.
	Read(ctx context.Context) (string, error)

	// Write sends one command string.
	Write(ctx context.Context, command string) error

	// Query writes a command and reads the response atomically with respect
	// to other callers of the same connection.
	Query(ctx context.Context, command string) (string, error)
}

// -----------------------------------------------------------------------------
// Recorder Port
// -----------------------------------------------------------------------------

// Sample is one recorded instrument reading.
type Sample struct {
	RunID      string
	Instrument string
	Quantity   string
	Value      float64
	At         time.Time
}

// Recorder persists bench measurement runs.
type Recorder interface {
	// StartRun opens a new recording run and returns its ID.
	StartRun(ctx context.Context, bench string, at time.Time) (string, error)

	// Record persists one sample.
	Record(ctx context.Context, s Sample) error

	// FinishRun marks a run as complete.
	FinishRun(ctx context.Context, runID string, at time.Time) error
}
