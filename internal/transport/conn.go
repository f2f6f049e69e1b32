package transport

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cory-johannsen/liarsdice/internal/protocol"
)

// ErrMalformedEnvelope is returned by ReadEnvelope when a line is not a
// valid JSON envelope. The connection itself is still usable; callers
// decide whether to drop the client.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// Conn wraps a TCP connection with newline-delimited JSON framing.
// Each message is one JSON envelope terminated by '\n'. Writes are
// serialized so concurrent broadcasts never interleave frames.
type Conn struct {
	raw    net.Conn
	reader *bufio.Reader
	mu     sync.Mutex

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConn wraps a raw TCP connection with JSON-line framing.
//
// Precondition: raw must be a valid, open network connection. A zero
// timeout disables the corresponding deadline.
// Postcondition: Returns a Conn ready for reading and writing.
func NewConn(raw net.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, 4096),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// ReadEnvelope reads the next newline-terminated JSON envelope.
//
// Postcondition: Returns the decoded envelope, ErrMalformedEnvelope for
// lines that are not valid envelopes, or the underlying read error
// (including io.EOF when the client disconnects).
func (c *Conn) ReadEnvelope() (protocol.Envelope, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return protocol.Envelope{}, err
	}

	var env protocol.Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return protocol.Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Type == "" {
		return protocol.Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}
	return env, nil
}

// WriteEnvelope marshals env and sends it as one newline-terminated frame.
//
// Postcondition: Exactly one complete frame is written, or an error is
// returned and the frame may be partial; callers should drop the
// connection on write errors.
func (c *Conn) WriteEnvelope(env protocol.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding %s envelope: %w", env.Type, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if _, err := c.raw.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

// Close closes the underlying TCP connection.
//
// Postcondition: The connection is closed and no longer usable.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// RemoteAddr returns the remote network address of the client.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}
