package websocket

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// maxHTTPHeaderLength caps the bytes read while parsing the handshake
// response, so a misbehaving or malicious server can't force unbounded
// buffering (spec.md Section 4.4).
const maxHTTPHeaderLength = 16384

// fragmentState tracks an in-progress multi-frame message. It lives
// inside the Receiver, is written only by the Receiver, and must not be
// touched across concurrent Receive calls (spec.md Section 5).
type fragmentState struct {
	on      bool
	opcode  Opcode
	written int64 // payload bytes of the current message delivered so far
}

// Receiver parses the handshake response and, thereafter, decodes frames
// off r. It owns the fragmentation state for the connection.
type Receiver struct {
	r    *limitedByteReader
	frag fragmentState
}

// newReceiver wraps r (typically a *bufio.Reader, but any io.Reader that
// tolerates small reads works) for response and frame parsing.
func newReceiver(r io.Reader) *Receiver {
	return &Receiver{r: &limitedByteReader{r: r}}
}

// limitedByteReader is a thin io.Reader wrapper that passes Read calls
// straight through to the wrapped reader; it adds no buffering of its
// own. Response-line parsing does not go through it (see lineReader).
type limitedByteReader struct {
	r io.Reader
}

func (l *limitedByteReader) Read(p []byte) (int, error) { return l.r.Read(p) }

// readFull reads exactly len(buf) bytes, translating a partial read cut
// short by the transport closing (io.ErrUnexpectedEOF) into
// ErrEndOfStream: the frame was started but the connection didn't
// survive to deliver the rest of it. A clean io.EOF with zero bytes
// read passes through unchanged; that's the normal way a connection
// ends between frames, not a mid-frame failure. Used only where buf is
// the first bytes of a new frame header.
func readFull(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("%w: connection closed mid-frame", ErrEndOfStream)
	}
	return n, err
}

// readFullMidFrame is readFull's counterpart for reads that only ever
// happen after a frame header has already been parsed successfully: an
// extended length field, a control payload, or a data payload. Any EOF
// there, including one with zero bytes read, means the transport closed
// mid-frame, so it's always translated to ErrEndOfStream.
func readFullMidFrame(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("%w: connection closed mid-frame", ErrEndOfStream)
	}
	return n, err
}

// lineReader is the capability ReceiveResponse needs to read one
// CRLF-terminated line at a time. *bufio.Reader satisfies it directly
// (the Buffered Connection flavor); byteLineReader satisfies it without
// reading ahead of the blank line that terminates the header block (the
// Unbuffered flavor, which must not consume a single byte belonging to
// the first frame).
type lineReader interface {
	ReadString(delim byte) (string, error)
}

// ReceiveResponse reads and validates the HTTP/1.1 upgrade response:
// status line, then headers terminated by a blank line. If headers is
// non-nil, every header encountered is stored there (the buffered
// Connection flavor's behavior); regardless, the accept key is always
// extracted and checked. key is the Sec-WebSocket-Key this client sent,
// used to validate Sec-WebSocket-Accept.
func (rv *Receiver) ReceiveResponse(br lineReader, headers map[string]string, key string) error {
	budget := maxHTTPHeaderLength

	line, err := readCappedLine(br, &budget)
	if err != nil {
		return fmt.Errorf("read status line: %w", err)
	}
	if line != "HTTP/1.1 101 Switching Protocols" {
		return fmt.Errorf("%w: got %q", ErrFailedSwitchingProtocols, line)
	}

	var accept string
	var acceptFound bool
	for {
		line, err = readCappedLine(br, &budget)
		if err != nil {
			return fmt.Errorf("read header line: %w", err)
		}
		if line == "" {
			break // Blank line terminates the header block.
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return fmt.Errorf("%w: %q", ErrBadHTTPResponse, line)
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		if headers != nil {
			headers[name] = value
		}
		if strings.EqualFold(name, "Sec-WebSocket-Accept") {
			accept = value
			acceptFound = true
		}
	}

	if !acceptFound {
		return ErrAcceptKeyNotFound
	}
	if accept != computeAcceptKey(key) {
		return ErrKeyControlFailed
	}
	return nil
}

// readCappedLine reads one CRLF-terminated line (without the CRLF),
// decrementing budget by the bytes consumed and failing once it's
// exhausted. A line ending in bare LF (no CR) is malformed.
func readCappedLine(br lineReader, budget *int) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	*budget -= len(line)
	if *budget < 0 {
		return "", ErrHTTPHeaderTooLong
	}
	if !strings.HasSuffix(line, "\r\n") {
		return "", ErrBadHTTPResponse
	}
	return strings.TrimSuffix(line, "\r\n"), nil
}

// Sink selects the receive discipline for Receive: exactly one of
// WriterSink, BufferSink, or PartialSink.
type Sink interface {
	isSink()
}

// WriterSink drains each frame's payload into W; Receive returns
// Message.Data as WrittenData(total bytes written).
type WriterSink struct{ W io.Writer }

func (WriterSink) isSink() {}

// BufferSink writes payload into Buf (a fixed-capacity caller-owned
// region); Receive returns Message.Data as SliceData(the written prefix).
// len(Buf) implicitly caps the message length.
type BufferSink struct{ Buf []byte }

func (BufferSink) isSink() {}

// PartialSink does not drain the payload: Receive returns a PartialData
// bounding a reader over the current frame only. A fragmented message
// produces one Message per frame under this discipline.
type PartialSink struct{}

func (PartialSink) isSink() {}

// Receive decodes and returns the next Message. maxLen, if non-zero,
// bounds the cumulative payload of the (possibly fragmented) message:
// crossing it fails ErrPayloadTooBig before any more payload is read.
// Receive has no deadline of its own; Buffered and Unbuffered apply
// read timeouts on the transport before calling it.
func (rv *Receiver) Receive(sink Sink, maxLen int64) (Message, error) {
	for {
		h, err := readFrameHeader(rv.r)
		if err != nil {
			return Message{}, err
		}

		if !h.opcode.isValidInbound() {
			return Message{}, fmt.Errorf("%w: 0x%x", ErrUnknownOpcode, byte(h.opcode))
		}

		if h.opcode.isControl() {
			if h.len > maxControlPayload {
				return Message{}, ErrPayloadTooBig
			}
			return rv.receiveControl(h)
		}

		switch h.opcode {
		case OpText, OpBinary:
			if rv.frag.on {
				return Message{}, fmt.Errorf("%w: data frame while fragmentation in progress", ErrBadMessageOrder)
			}
			rv.frag.written = 0
			if !h.fin {
				rv.frag.on = true
				rv.frag.opcode = h.opcode
			}
		case OpContinuation:
			if !rv.frag.on {
				return Message{}, fmt.Errorf("%w: continuation with no fragmentation in progress", ErrBadMessageOrder)
			}
		}

		msgType := h.opcode
		if h.opcode == OpContinuation {
			msgType = rv.frag.opcode
		}
		if msgType == OpContinuation {
			// Only reachable if frag.opcode was never set to a real
			// data opcode; Message must never carry opcode=continuation.
			return Message{}, ErrFragmentedMessage
		}

		// Kept in rv.frag so the count survives a control frame returned
		// between two fragments of the same message.
		offset := rv.frag.written
		rv.frag.written += int64(h.len)
		if maxLen > 0 && rv.frag.written > maxLen {
			return Message{}, ErrPayloadTooBig
		}

		final := h.fin
		if final {
			rv.frag.on = false
		}

		data, err := rv.deliver(sink, h, final, offset)
		if err != nil {
			return Message{}, err
		}

		if !final {
			// Partial-sink discipline surfaces one Message per frame
			// even mid-fragmentation; the other disciplines loop to
			// accumulate until the final continuation arrives.
			if _, ok := sink.(PartialSink); ok {
				return Message{Type: msgType, Data: data}, nil
			}
			continue
		}

		return Message{Type: msgType, Data: data}, nil
	}
}

// receiveControl reads a complete control frame's payload (exactly
// h.len bytes; never maxControlPayload regardless of the declared
// length) and returns it as its own Message. Fragmentation state, if
// any, is left untouched: control frames may legally interleave inside
// a fragmented data message (RFC 6455 Section 5.5).
func (rv *Receiver) receiveControl(h frameHeader) (Message, error) {
	payload := make([]byte, h.len)
	if h.len > 0 {
		if _, err := readFullMidFrame(rv.r, payload); err != nil {
			return Message{}, fmt.Errorf("read control payload: %w", err)
		}
	}

	msg := Message{Type: h.opcode, Data: SliceData(payload)}
	if h.opcode == OpClose {
		msg.Code = parseCloseCode(payload)
	}
	return msg, nil
}

// deliver reads exactly h.len bytes of a data-frame payload into sink,
// except under PartialSink, where it hands back a bounded reader instead
// of draining the frame itself. offset is the cumulative number of
// payload bytes already delivered for this (possibly fragmented)
// message, so BufferSink can place each fragment after the last instead
// of overwriting from the start of Buf.
func (rv *Receiver) deliver(sink Sink, h frameHeader, fin bool, offset int64) (MessageData, error) {
	switch s := sink.(type) {
	case WriterSink:
		n, err := io.CopyN(s.W, rv.r, int64(h.len))
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				err = fmt.Errorf("%w: connection closed mid-frame", ErrEndOfStream)
			}
			return nil, fmt.Errorf("copy payload to writer: %w", err)
		}
		return WrittenData(offset + n), nil

	case BufferSink:
		end := offset + int64(h.len)
		if end > int64(len(s.Buf)) {
			return nil, ErrPayloadTooBig
		}
		if _, err := readFullMidFrame(rv.r, s.Buf[offset:end]); err != nil {
			return nil, fmt.Errorf("read payload into buffer: %w", err)
		}
		return SliceData(s.Buf[:end]), nil

	case PartialSink:
		return PartialData{Complete: fin, Reader: io.LimitReader(rv.r, int64(h.len))}, nil

	default:
		return nil, fmt.Errorf("websocket: unsupported sink type %T", sink)
	}
}

// deadlineExceeded reports whether now is past deadline; a zero deadline
// means no limit. Nothing in the package calls it.
func deadlineExceeded(deadline time.Time) bool {
	return !deadline.IsZero() && time.Now().After(deadline)
}
