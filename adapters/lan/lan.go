// Package lan implements the instrument connection port over a raw TCP
// socket, the transport most bench supplies and loads expose on port 5025.
// Commands are newline-terminated; responses are newline-delimited lines.
package lan

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dfseltzer/pylab/ports"
)

// DefaultTimeout bounds dialing and each read or write when the caller's
// context carries no deadline of its own.
const DefaultTimeout = 5 * time.Second

// Connection is a TCP session with one instrument. All methods are safe for
// concurrent use; Query holds the session lock across its write and read so
// interleaved callers cannot steal each other's responses.
type Connection struct {
	addr    string
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	status ports.ConnectionStatus
}

// New creates a closed connection to addr (host:port). A zero timeout falls
// back to DefaultTimeout.
func New(addr string, timeout time.Duration, logger zerolog.Logger) *Connection {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Connection{
		addr:    addr,
		timeout: timeout,
		status:  ports.StatusClosed,
		log:     logger.With().Str("transport", "lan").Str("addr", addr).Logger(),
	}
}

// Open dials the instrument. Opening an already-open connection is a no-op.
func (c *Connection) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == ports.StatusOpen {
		return nil
	}

	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		c.status = ports.StatusClosed
		return fmt.Errorf("lan: dial %s: %w", c.addr, err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.status = ports.StatusOpen
	c.log.Info().Msg("instrument connection opened")
	return nil
}

// Close terminates the session. Closing a closed connection is a no-op.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Connection) closeLocked() error {
	if c.conn == nil {
		c.status = ports.StatusClosed
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	c.status = ports.StatusClosed
	c.log.Info().Msg("instrument connection closed")
	return err
}

// Reset drops and re-establishes the session.
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

// Write sends one command, appending the line terminator.
func (c *Connection) Write(ctx context.Context, command string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(ctx, command)
}

// Read returns the next response line with the terminator and surrounding
// whitespace trimmed.
func (c *Connection) Read(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readLocked(ctx)
}

// Query sends a command and reads its response as one locked exchange.
func (c *Connection) Query(ctx context.Context, command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writeLocked(ctx, command); err != nil {
		return "", err
	}
	return c.readLocked(ctx)
}

func (c *Connection) writeLocked(ctx context.Context, command string) error {
	if c.status != ports.StatusOpen {
		return fmt.Errorf("lan: write on %s connection", c.status)
	}
	if err := c.conn.SetWriteDeadline(c.deadline(ctx)); err != nil {
		return fmt.Errorf("lan: set write deadline: %w", err)
	}
	if _, err := c.conn.Write([]byte(command + "\n")); err != nil {
		c.failLocked()
		return fmt.Errorf("lan: write %q: %w", command, err)
	}
	c.log.Debug().Str("command", command).Msg("sent")
	return nil
}

func (c *Connection) readLocked(ctx context.Context) (string, error) {
	if c.status != ports.StatusOpen {
		return "", fmt.Errorf("lan: read on %s connection", c.status)
	}
	if err := c.conn.SetReadDeadline(c.deadline(ctx)); err != nil {
		return "", fmt.Errorf("lan: set read deadline: %w", err)
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.failLocked()
		return "", fmt.Errorf("lan: read: %w", err)
	}
	line = strings.TrimSpace(line)
	c.log.Debug().Str("response", line).Msg("received")
	return line, nil
}

// failLocked marks the session unusable after an I/O error. The caller sees
// the original error; the next Open starts clean.
func (c *Connection) failLocked() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = nil
	c.reader = nil
	c.status = ports.StatusClosed
}

// deadline picks the earlier of the context deadline and the configured
// per-operation timeout.
func (c *Connection) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.timeout)
	if ctxd, ok := ctx.Deadline(); ok && ctxd.Before(d) {
		return ctxd
	}
	return d
}

var _ ports.Connection = (*Connection)(nil)
