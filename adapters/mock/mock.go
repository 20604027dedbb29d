// Package mock provides an in-memory instrument connection for bench
// simulation and tests. It answers queries from a canned response table and
// records every write for later inspection.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dfseltzer/pylab/domain/scpi"
	"github.com/dfseltzer/pylab/ports"
)

// Connection simulates an instrument session. Responses are looked up by the
// base command name (query marker stripped, arguments ignored), falling back
// to a FIFO queue loaded with Push.
type Connection struct {
	mu        sync.Mutex
	status    ports.ConnectionStatus
	responses map[string]string
	queue     []string
	writes    []string
	log       zerolog.Logger
}

// New creates a closed mock connection. responses maps base command names to
// canned reply lines; it may be nil.
func New(responses map[string]string, logger zerolog.Logger) *Connection {
	canned := make(map[string]string, len(responses))
	for cmd, r := range responses {
		canned[scpi.BaseName(cmd)] = r
	}
	return &Connection{
		status:    ports.StatusClosed,
		responses: canned,
		log:       logger.With().Str("transport", "mock").Logger(),
	}
}

// Push queues reply lines consumed in order by Read and by Query when no
// canned response matches.
func (c *Connection) Push(lines ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, lines...)
}

// Writes returns a copy of every command sent so far, in order. Queries are
// included.
func (c *Connection) Writes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.writes))
	copy(out, c.writes)
	return out
}

func (c *Connection) Open(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = ports.StatusOpen
	c.log.Debug().Msg("mock connection opened")
	return nil
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = ports.StatusClosed
	return nil
}

func (c *Connection) Reset(ctx context.Context) error {
	if err := c.Close(); err != nil {
		return err
	}
	return c.Open(ctx)
}

func (c *Connection) Status() ports.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Connection) Write(_ context.Context, command string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != ports.StatusOpen {
		return fmt.Errorf("mock: write on %s connection", c.status)
	}
	c.writes = append(c.writes, command)
	c.log.Debug().Str("command", command).Msg("mock write")
	return nil
}

func (c *Connection) Read(context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pop()
}

func (c *Connection) Query(ctx context.Context, command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != ports.StatusOpen {
		return "", fmt.Errorf("mock: query on %s connection", c.status)
	}
	c.writes = append(c.writes, command)

	base := scpi.BaseName(firstToken(command))
	if r, ok := c.responses[base]; ok {
		c.log.Debug().Str("command", command).Str("response", r).Msg("mock query")
		return r, nil
	}
	return c.pop()
}

// pop is called with c.mu held.
func (c *Connection) pop() (string, error) {
	if len(c.queue) == 0 {
		return "", fmt.Errorf("mock: no response queued")
	}
	r := c.queue[0]
	c.queue = c.queue[1:]
	return r, nil
}

func firstToken(command string) string {
	for i := 0; i < len(command); i++ {
		if command[i] == ' ' {
			return command[:i]
		}
	}
	return command
}

var _ ports.Connection = (*Connection)(nil)
