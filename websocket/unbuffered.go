package websocket

import (
	"errors"
	"strings"
	"time"
)

// byteLineReader adapts a plain io.Reader to the lineReader interface by
// reading exactly one byte at a time, so it never buffers ahead of the
// blank line that terminates the handshake response: every byte past
// that line belongs to the first inbound frame, and Unbuffered must not
// consume it during the handshake (spec.md Section 4.6: "holds only the
// one accept-key header during handshake ... no user-visible buffer").
type byteLineReader struct {
	r Transport
}

func (b *byteLineReader) ReadString(delim byte) (string, error) {
	var sb strings.Builder
	var buf [1]byte
	for {
		n, err := b.r.Read(buf[:])
		if n > 0 {
			sb.WriteByte(buf[0])
			if buf[0] == delim {
				return sb.String(), nil
			}
		}
		if err != nil {
			return sb.String(), err
		}
	}
}

// Unbuffered is the Connection flavor that reads frames directly off
// the transport with no intervening buffer, and keeps only the
// Sec-WebSocket-Accept header from the handshake (in a short-lived local
// variable, not a map). It additionally supports a per-call receive
// deadline distinct from the persistent socket-level read timeout.
type Unbuffered struct {
	*connBase
}

// DialUnbuffered performs the client handshake directly over transport
// (no read buffer) and returns a ready-to-use Unbuffered connection.
func DialUnbuffered(transport Transport, rawURL string, userHeaders [][2]string, opts ...Option) (*Unbuffered, error) {
	base := newConnBase(transport, opts)

	client, err := newClient(transport, transport)
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

	lr := &byteLineReader{r: transport}
	if err := base.doHandshake(lr, u, userHeaders, nil); err != nil {
		_ = transport.Close()
		return nil, err
	}

	return &Unbuffered{connBase: base}, nil
}

// SetReadTimeout installs a persistent receive-side timeout on the
// underlying socket (SO_RCVTIMEO on POSIX, best-effort equivalent on
// Windows). It applies to every subsequent blocking read until changed
// again; Receive's deadline parameter layers a per-call timeout on top.
func (u *Unbuffered) SetReadTimeout(d time.Duration) error {
	return u.logReadTimeout(d, setSocketReadTimeout(u.transport, d))
}

// BlockForever is the deadline sentinel that disables Receive's per-call
// arming entirely: it blocks until a frame header arrives, subject only
// to SetReadTimeout's persistent socket timeout (if any). Any other
// negative value behaves the same way.
const BlockForever time.Duration = -1

// minArmDeadline is the smallest duration Receive ever hands to
// armReadDeadline. A literal 0 can't be used for "do not wait": on
// POSIX, SO_RCVTIMEO({0, 0}) means "no timeout, block forever" rather
// than "return immediately" (the opposite of what a deadline of 0 is
// supposed to mean here), so a deadline of 0 is rounded up to this
// floor instead of passed through as-is.
const minArmDeadline = time.Microsecond

// Receive decodes and returns the next Message via sink. deadline bounds
// how long Receive waits for the first byte of the next frame header
// specifically, per spec.md Section 4.6: 0 means do not wait at all (an
// immediate, effectively non-blocking attempt), a positive value arms a
// per-call wait (SO_RCVTIMEO on POSIX, a select(2) readiness wait on
// Windows) of at most that long before the blocking read begins, and
// BlockForever (or any negative value) performs no per-call arming and
// simply blocks, subject only to SetReadTimeout if one is set. If the
// deadline elapses with no bytes available, Receive returns
// ErrWouldBlock without consuming any stream bytes.
func (u *Unbuffered) Receive(sink Sink, maxLen int64, deadline time.Duration) (Message, error) {
	if deadline >= 0 {
		arm := deadline
		if arm == 0 {
			arm = minArmDeadline
		}
		if err := armReadDeadline(u.transport, arm); err != nil {
			return Message{}, translateTimeout(err)
		}
	}

	msg, err := u.client.Receiver.Receive(sink, maxLen)
	if err != nil {
		err = translateTimeout(err)
		if !errors.Is(err, ErrWouldBlock) {
			u.logger.Error().Err(err).Msg("failed to receive WebSocket message")
		}
		return msg, err
	}
	return msg, nil
}

// ReceiveBytes is the into-buffer convenience wrapper: it receives into a
// buffer sized to maxLen (or a default if maxLen == 0) and returns the
// payload as a byte slice. See Receive for deadline's meaning.
func (u *Unbuffered) ReceiveBytes(maxLen int64, deadline time.Duration) (Message, error) {
	if maxLen <= 0 {
		maxLen = bufferedReadSize
	}
	buf := make([]byte, maxLen)
	return u.Receive(BufferSink{Buf: buf}, maxLen, deadline)
}
