package websocket

import (
	"encoding/binary"
	"fmt"
	"io"
	"net/url"
)

// Sender emits the opening HTTP upgrade request and, thereafter, client
// frames: it owns no fragmentation state (the caller orders Stream calls
// correctly) but does own the outbound masking key, generated once by the
// Client that constructs it and reused for the connection's lifetime.
type Sender struct {
	w    io.Writer
	mask [4]byte
}

// newSender wraps w, using mask for every frame this Sender emits.
func newSender(w io.Writer, mask [4]byte) *Sender {
	return &Sender{w: w, mask: mask}
}

// SendRequest emits an HTTP/1.1 upgrade request in one pass: the request
// line, the fixed handshake headers, Sec-WebSocket-Key, then the caller's
// extra headers in order, then the terminating blank line. The caller is
// responsible for including a Host header if the transport requires one.
func (s *Sender) SendRequest(u *url.URL, headers [][2]string, key string) error {
	path := u.RequestURI()
	if path == "" {
		path = "/"
	}

	if _, err := fmt.Fprintf(s.w, "GET %s HTTP/1.1\r\n", path); err != nil {
		return fmt.Errorf("write request line: %w", err)
	}

	fixed := [][2]string{
		{"Pragma", "no-cache"},
		{"Cache-Control", "no-cache"},
		{"Connection", "Upgrade"},
		{"Upgrade", "websocket"},
		{"Sec-WebSocket-Version", "13"},
		{"Sec-WebSocket-Key", key},
	}
	for _, h := range fixed {
		if _, err := fmt.Fprintf(s.w, "%s: %s\r\n", h[0], h[1]); err != nil {
			return fmt.Errorf("write header %s: %w", h[0], err)
		}
	}

	for _, h := range headers {
		if _, err := fmt.Fprintf(s.w, "%s: %s\r\n", h[0], h[1]); err != nil {
			return fmt.Errorf("write header %s: %w", h[0], err)
		}
	}

	if _, err := io.WriteString(s.w, "\r\n"); err != nil {
		return fmt.Errorf("write terminating blank line: %w", err)
	}
	return nil
}

// Send dispatches a complete, unfragmented message by opcode.
//
//   - OpText/OpBinary: one frame, FIN=1, masked body.
//   - OpPing/OpPong: one control frame, FIN=1; fails ErrPayloadTooBig if
//     len(data) > 125.
//   - OpClose: a close frame with no status code or reason. Use Close for
//     a close frame carrying a status code and reason.
//   - anything else (OpContinuation, the internal "end" opcode, or a
//     reserved value): fails.
func (s *Sender) Send(opcode Opcode, data []byte) error {
	switch opcode {
	case OpText, OpBinary:
		return s.writeFrame(true, opcode, data)
	case OpPing, OpPong:
		if len(data) > maxControlPayload {
			return ErrPayloadTooBig
		}
		return s.writeFrame(true, opcode, data)
	case OpClose:
		return s.writeFrame(true, opcode, nil)
	default:
		return fmt.Errorf("%w: opcode %s", ErrUseStreamInstead, opcode)
	}
}

// Close sends a close frame carrying code and reason, per RFC 6455
// Section 5.5.1. Calling Close (or Send with OpClose) a second time is the
// caller's responsibility; the Sender tracks no closed state.
func (s *Sender) Close(code StatusCode, reason string) error {
	if len(reason) > maxControlPayload-2 {
		reason = reason[:maxControlPayload-2]
	}

	payload := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(payload[:2], uint16(code))
	copy(payload[2:], reason)

	return s.writeFrame(true, OpClose, payload)
}

// Stream emits one fragment of a larger logical message. The Sender is
// stateless across calls: the caller orders them correctly.
//
//   - OpText/OpBinary: first fragment, FIN=0.
//   - OpContinuation: a middle fragment, FIN=0.
//   - the internal "end" signal (see StreamEnd): final fragment, frame
//     opcode continuation, FIN=1.
//
// A nil payload emits a header-only, zero-length fragment; useful to
// terminate a stream whose final data already fit an earlier fragment.
func (s *Sender) Stream(opcode Opcode, data []byte) error {
	switch opcode {
	case OpText, OpBinary:
		return s.writeFrame(false, opcode, data)
	case OpContinuation:
		return s.writeFrame(false, OpContinuation, data)
	case opEnd:
		return s.writeFrame(true, OpContinuation, data)
	default:
		return fmt.Errorf("%w: opcode %s", ErrUnknownOpcode, opcode)
	}
}

// StreamEnd is the opcode value to pass to Stream to emit the final
// continuation frame of a streamed message (spec's synthetic "end" value;
// never transmitted literally and never accepted inbound).
const StreamEnd = opEnd

func (s *Sender) writeFrame(fin bool, opcode Opcode, payload []byte) error {
	if err := writeFrameHeader(s.w, fin, opcode, uint64(len(payload)), s.mask); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	mw := newMaskedWriter(s.w, s.mask)
	if _, err := mw.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}
