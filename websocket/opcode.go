package websocket

import "strconv"

// Opcode identifies the type of a WebSocket frame, as defined in
// RFC 6455 Section 5.2 and the registry in Section 11.8.
type Opcode byte

const (
	// OpContinuation marks a continuation frame (Section 5.4): used for
	// fragments after the first one in a multi-frame message.
	OpContinuation Opcode = 0x0

	// OpText marks a text data frame; payload must be valid UTF-8
	// (Section 8.1).
	OpText Opcode = 0x1

	// OpBinary marks a binary data frame.
	OpBinary Opcode = 0x2

	// OpClose marks a connection-close control frame (Section 5.5.1).
	OpClose Opcode = 0x8

	// OpPing marks a ping control frame (Section 5.5.2).
	OpPing Opcode = 0x9

	// OpPong marks a pong control frame (Section 5.5.3).
	OpPong Opcode = 0xA

	// opEnd is a synthetic value, never put on the wire and never
	// accepted from one: it tells Sender.Stream to send the final
	// continuation frame (FIN=1, opcode=continuation) of a streamed
	// message. Opcodes 0x3-0x7 and 0xB-0xF are reserved by RFC 6455;
	// 0xF is repurposed internally for this one signal and must never
	// leak past the Sender's streaming API.
	opEnd Opcode = 0xF
)

// String returns the opcode's name, or its numeric value if unrecognized.
func (o Opcode) String() string {
	switch o {
	case OpContinuation:
		return "continuation"
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	case opEnd:
		return "end"
	default:
		return strconv.Itoa(int(o))
	}
}

// isControl reports whether o is a control-frame opcode (Section 5.5):
// must not be fragmented, payload capped at 125 bytes, may interleave
// inside a fragmented data message.
func (o Opcode) isControl() bool {
	return o == OpClose || o == OpPing || o == OpPong
}

// isData reports whether o is a data-frame opcode (continuation included).
func (o Opcode) isData() bool {
	return o == OpContinuation || o == OpText || o == OpBinary
}

// isValidInbound reports whether o is one RFC 6455 actually defines;
// opEnd and reserved values are never valid on the wire.
func (o Opcode) isValidInbound() bool {
	return o.isData() || o.isControl()
}
