// Package devices binds validated command catalogs to instrument
// connections. A Session validates and normalizes every command before it
// reaches the wire; device types layer property accessors on top so callers
// work with voltages and modes rather than raw command strings.
package devices

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/dfseltzer/pylab/adapters/metrics"
	"github.com/dfseltzer/pylab/core/engine"
	"github.com/dfseltzer/pylab/domain/scpi"
	"github.com/dfseltzer/pylab/ports"
)

// Session is one validated command channel to an instrument. Everything
// written passes through the catalog engine first; nothing reaches the
// connection unvalidated.
type Session struct {
	name string
	eng  *engine.Engine
	conn ports.Connection
	met  *metrics.Collector
	log  zerolog.Logger
}

// NewSession binds an engine to a connection. met may be nil when the caller
// does not collect metrics.
func NewSession(name string, eng *engine.Engine, conn ports.Connection, met *metrics.Collector, logger zerolog.Logger) *Session {
	return &Session{
		name: name,
		eng:  eng,
		conn: conn,
		met:  met,
		log:  logger.With().Str("instrument", name).Logger(),
	}
}

// Name returns the bench name of the instrument.
func (s *Session) Name() string { return s.name }

// Engine exposes the catalog engine, mainly for help rendering.
func (s *Session) Engine() *engine.Engine { return s.eng }

// Open establishes the underlying connection.
func (s *Session) Open(ctx context.Context) error { return s.conn.Open(ctx) }

// Close terminates the underlying connection.
func (s *Session) Close() error { return s.conn.Close() }

// Reset drops and re-establishes the underlying connection.
func (s *Session) Reset(ctx context.Context) error { return s.conn.Reset(ctx) }

// Status reports the connection state.
func (s *Session) Status() ports.ConnectionStatus { return s.conn.Status() }

// Set validates the set form of command against the catalog and writes the
// formatted string. Out-of-range numeric arguments are clamped into the
// declared range before validation, with an audit warning.
func (s *Session) Set(ctx context.Context, command string, args ...any) error {
	values := s.eng.NormalizeArgs(command, args)
	wire, err := s.eng.ValidateCommand(scpi.BaseName(command), values...)
	if err != nil {
		s.countValidation(err)
		return err
	}
	if err := s.conn.Write(ctx, wire); err != nil {
		s.countResult("error")
		s.countTransport()
		return err
	}
	s.countResult("ok")
	return nil
}

// Query validates the query form of command, performs the exchange and
// returns the raw response line. Query arguments are never normalized: a
// MIN or MAX token in a query asks the instrument for the bound and must
// reach the wire verbatim.
func (s *Session) Query(ctx context.Context, command string, args ...any) (string, error) {
	wire, err := s.eng.ValidateCommand(scpi.BaseName(command)+"?", args...)
	if err != nil {
		s.countValidation(err)
		return "", err
	}

	start := time.Now()
	raw, err := s.conn.Query(ctx, wire)
	if s.met != nil {
		s.met.QueryDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		s.countResult("error")
		s.countTransport()
		return "", err
	}
	s.countResult("ok")
	return raw, nil
}

// QueryParsed performs Query and decodes the response against the command's
// declared response shape. Commands with an empty response shape return the
// raw line; single-field shapes return the value, multi-field shapes a
// []any.
func (s *Session) QueryParsed(ctx context.Context, command string, args ...any) (any, error) {
	raw, err := s.Query(ctx, command, args...)
	if err != nil {
		return nil, err
	}
	return s.eng.ParseResponse(scpi.BaseName(command)+"?", raw)
}

// Identify returns the instrument identification string.
func (s *Session) Identify(ctx context.Context) (string, error) {
	return s.Query(ctx, "*IDN")
}

// Help writes catalog documentation for commands matching pattern.
func (s *Session) Help(w io.Writer, pattern string) {
	s.eng.Help(w, pattern)
}

func (s *Session) countResult(result string) {
	if s.met != nil {
		s.met.CommandsTotal.WithLabelValues(s.name, result).Inc()
	}
}

func (s *Session) countTransport() {
	if s.met != nil {
		s.met.TransportErrors.WithLabelValues(s.name).Inc()
	}
}

func (s *Session) countValidation(err error) {
	s.countResult("invalid")
	if s.met == nil {
		return
	}
	kind := "other"
	var cerr *scpi.CommandError
	if errors.As(err, &cerr) {
		kind = cerr.Kind.Error()
	}
	s.met.ValidationErrors.WithLabelValues(kind).Inc()
}
