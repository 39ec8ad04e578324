package websocket

import "errors"

// Handshake errors (RFC 6455 Section 4).
var (
	// ErrUnknownScheme is returned when a target URI's scheme is
	// neither "ws" nor "wss".
	ErrUnknownScheme = errors.New("websocket: unknown URI scheme")

	// ErrMissingHost is returned when a target URI has no host and
	// the caller supplied no Host header to use instead.
	ErrMissingHost = errors.New("websocket: missing host")

	// ErrFailedSwitchingProtocols is returned when the handshake
	// response status line isn't exactly "HTTP/1.1 101 Switching Protocols".
	ErrFailedSwitchingProtocols = errors.New("websocket: server did not switch protocols")

	// ErrBadHTTPResponse is returned when the handshake response is
	// malformed (bad line endings, unparsable header line).
	ErrBadHTTPResponse = errors.New("websocket: malformed HTTP response")

	// ErrHTTPHeaderTooLong is returned when the handshake response
	// header block exceeds maxHTTPHeaderLength.
	ErrHTTPHeaderTooLong = errors.New("websocket: HTTP header too long")

	// ErrAcceptKeyNotFound is returned when the handshake response
	// lacks a Sec-WebSocket-Accept header.
	ErrAcceptKeyNotFound = errors.New("websocket: Sec-WebSocket-Accept header not found")

	// ErrKeyControlFailed is returned when Sec-WebSocket-Accept doesn't
	// match the expected digest of the client's key.
	ErrKeyControlFailed = errors.New("websocket: Sec-WebSocket-Accept verification failed")
)

// Framing errors (RFC 6455 Section 5).
var (
	// ErrMaskedMessageFromServer is returned when an inbound frame has
	// the MASK bit set; RFC 6455 Section 5.1 forbids masked server frames.
	ErrMaskedMessageFromServer = errors.New("websocket: server sent a masked frame")

	// ErrUnknownOpcode is returned for an opcode RFC 6455 doesn't define.
	ErrUnknownOpcode = errors.New("websocket: unknown opcode")

	// ErrFragmentedMessage is returned by message construction paths
	// that would otherwise surface a Message with opcode=continuation,
	// which must never happen: fragmentation is always hidden.
	ErrFragmentedMessage = errors.New("websocket: message has continuation opcode")

	// ErrBadMessageOrder is returned when a continuation frame arrives
	// with no fragmentation in progress, or when a text/binary frame
	// arrives while fragmentation is in progress.
	ErrBadMessageOrder = errors.New("websocket: unexpected frame order")

	// ErrPayloadTooBig is returned when a control frame payload exceeds
	// 125 bytes, or a message's cumulative payload exceeds the caller's
	// max_len.
	ErrPayloadTooBig = errors.New("websocket: payload too big")

	// ErrEndOfStream is returned when the transport is closed mid-frame.
	ErrEndOfStream = errors.New("websocket: end of stream")
)

// API misuse.
var (
	// ErrUseStreamInstead is returned by Sender.Send when given
	// OpContinuation or the internal "end" opcode: those belong to
	// Sender.Stream.
	ErrUseStreamInstead = errors.New("websocket: use Stream for fragmented messages")
)

// Transport-level.
var (
	// ErrWouldBlock is returned when a read/receive deadline elapses
	// before data arrived. It is the sole non-fatal error: the stream
	// is left untouched and a retry with a longer deadline is valid.
	ErrWouldBlock = errors.New("websocket: would block")
)
