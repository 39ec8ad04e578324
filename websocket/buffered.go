package websocket

import (
	"bufio"
	"errors"
	"time"
)

// bufferedReadSize is the read-side buffer Buffered inserts between the
// transport and the Receiver, amortizing read syscalls for the many
// small reads a frame header and control-frame payload involve (spec.md
// Section 4.6).
const bufferedReadSize = 4096

// Buffered is the Connection flavor that inserts a 4 KiB read buffer in
// front of its Receiver and retains every handshake response header in
// a map for the lifetime of the connection. Prefer it when the caller
// wants Headers() after connecting, or is sending/receiving many small
// control frames where syscall overhead would otherwise dominate.
type Buffered struct {
	*connBase
	br      *bufio.Reader
	headers map[string]string
}

// DialBuffered performs the client handshake over transport and returns
// a ready-to-use Buffered connection. rawURL must have scheme "ws" or
// "wss"; userHeaders are emitted after the fixed handshake headers, in
// order.
func DialBuffered(transport Transport, rawURL string, userHeaders [][2]string, opts ...Option) (*Buffered, error) {
	base := newConnBase(transport, opts)

	br := bufio.NewReaderSize(transport, bufferedReadSize)
	client, err := newClient(br, transport)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}
	base.client = client

	u, err := base.handshakeURL(rawURL)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}

	headers := make(map[string]string)
	if err := base.doHandshake(br, u, userHeaders, headers); err != nil {
		_ = transport.Close()
		return nil, err
	}

	return &Buffered{connBase: base, br: br, headers: headers}, nil
}

// Headers returns the handshake response headers, keyed by their
// case-exact name as sent by the server. The map is owned by the
// Connection and must not be mutated by the caller.
func (b *Buffered) Headers() map[string]string {
	return b.headers
}

// SetReadTimeout installs a receive-side timeout on the underlying
// transport (SO_RCVTIMEO on POSIX, best-effort equivalent on Windows). A
// subsequent Receive call that doesn't get a full frame header within d
// returns ErrWouldBlock.
func (b *Buffered) SetReadTimeout(d time.Duration) error {
	return b.logReadTimeout(d, setSocketReadTimeout(b.transport, d))
}

// Receive decodes and returns the next Message via sink, draining or
// bounding the payload according to which Sink variant the caller
// passed. maxLen, if non-zero, bounds the cumulative payload length of
// the (possibly fragmented) message.
func (b *Buffered) Receive(sink Sink, maxLen int64) (Message, error) {
	msg, err := b.client.Receiver.Receive(sink, maxLen)
	if err != nil {
		err = translateTimeout(err)
		if !errors.Is(err, ErrWouldBlock) {
			b.logger.Error().Err(err).Msg("failed to receive WebSocket message")
		}
		return msg, err
	}
	return msg, nil
}

// ReceiveBytes is the into-buffer convenience wrapper: it receives into a
// buffer sized to maxLen (or a default if maxLen == 0) and returns the
// payload as a byte slice.
func (b *Buffered) ReceiveBytes(maxLen int64) (Message, error) {
	if maxLen <= 0 {
		maxLen = bufferedReadSize
	}
	buf := make([]byte, maxLen)
	return b.Receive(BufferSink{Buf: buf}, maxLen)
}
