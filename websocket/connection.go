package websocket

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Transport is the byte-stream capability a Connection needs from its
// underlying socket: blocking reads and writes, plus a way to close it.
// Any net.Conn satisfies it; so does anything else a caller wires up
// (spec.md Design Notes: collapse the buffered/unbuffered duplication
// behind one small capability interface instead of per-transport
// generics).
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
}

// Option configures a Connection at construction time.
type Option func(*connBase)

// WithLogger attaches a structured logger to the Connection; handshake
// start and success, close, and read-timeout setup are logged at Debug,
// and failed handshakes, sends, receives and read-timeout setups at
// Error (ErrWouldBlock is not logged). The default is zerolog.Nop()
// (silent).
func WithLogger(l zerolog.Logger) Option {
	return func(c *connBase) { c.logger = l }
}

// connBase holds the state shared by Buffered and Unbuffered: the
// transport, the handshake-derived Client, a correlation ID for logging,
// and the logger itself. It is not exported; Buffered/Unbuffered embed
// it and add their own header storage / buffering policy on top.
type connBase struct {
	transport Transport
	client    *Client
	logger    zerolog.Logger
	id        string
}

func newConnBase(transport Transport, opts []Option) *connBase {
	c := &connBase{
		transport: transport,
		logger:    zerolog.Nop(),
		id:        uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("conn_id", c.id).Logger()
	return c
}

// Send emits a complete, unfragmented message. See Sender.Send.
func (c *connBase) Send(opcode Opcode, data []byte) error {
	if err := c.client.Sender.Send(opcode, data); err != nil {
		c.logger.Error().Err(err).Str("opcode", opcode.String()).Msg("failed to send WebSocket frame")
		return err
	}
	return nil
}

// Ping sends a ping control frame carrying data (at most 125 bytes).
func (c *connBase) Ping(data []byte) error {
	return c.Send(OpPing, data)
}

// Pong sends a pong control frame carrying data (at most 125 bytes).
func (c *connBase) Pong(data []byte) error {
	return c.Send(OpPong, data)
}

// Stream emits one fragment of a larger logical message. See Sender.Stream.
func (c *connBase) Stream(opcode Opcode, data []byte) error {
	return c.client.Sender.Stream(opcode, data)
}

// Close sends a close frame with code and reason, then closes the
// transport. Calling it twice is the caller's responsibility per
// spec.md Section 4.3; the second call's write will simply fail once
// the transport is gone.
func (c *connBase) Close(code StatusCode, reason string) error {
	c.logger.Debug().Str("close_status", code.String()).Msg("sending WebSocket close frame")
	sendErr := c.client.Sender.Close(code, reason)
	closeErr := c.transport.Close()
	if sendErr != nil {
		return fmt.Errorf("send close frame: %w", sendErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close transport: %w", closeErr)
	}
	return nil
}

// handshakeURL parses rawURL and validates its scheme. It logs nothing;
// doHandshake logs the handshake itself.
func (c *connBase) handshakeURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	if _, err := defaultPort(u.Scheme); err != nil {
		return nil, err
	}
	return u, nil
}

func (c *connBase) doHandshake(br lineReader, u *url.URL, userHeaders [][2]string, headers map[string]string) error {
	c.logger.Debug().Str("url", u.String()).Msg("starting WebSocket handshake")
	if err := c.client.Handshake(br, u, userHeaders, headers); err != nil {
		c.logger.Error().Err(err).Msg("WebSocket handshake failed")
		return err
	}
	c.logger.Debug().Msg("WebSocket handshake succeeded")
	return nil
}

// netTimeoutError is satisfied by net.Error (and the errors wrapping a
// raw socket timeout, e.g. from SO_RCVTIMEO expiring mid-read).
type netTimeoutError interface {
	Timeout() bool
}

// translateTimeout maps a transport-level read timeout (surfaced by the
// standard library as a net.Error with Timeout() == true, once
// SetReadTimeout or a per-call deadline has armed SO_RCVTIMEO) to
// ErrWouldBlock, the sentinel spec.md Section 7 calls the sole
// non-fatal error. Any other error passes through unchanged.
func translateTimeout(err error) error {
	if err == nil {
		return nil
	}
	var te netTimeoutError
	if errors.As(err, &te) && te.Timeout() {
		return ErrWouldBlock
	}
	return err
}

// logReadTimeout wraps a read-timeout setup attempt with logging;
// shared by Buffered.SetReadTimeout and Unbuffered.SetReadTimeout.
func (c *connBase) logReadTimeout(d time.Duration, err error) error {
	if err != nil {
		c.logger.Error().Err(err).Dur("timeout", d).Msg("failed to set WebSocket read timeout")
		return err
	}
	c.logger.Debug().Dur("timeout", d).Msg("set WebSocket read timeout")
	return nil
}
