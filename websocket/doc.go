// Package websocket is a client-only implementation of the WebSocket
// protocol (RFC 6455) over a byte-oriented, bidirectional stream such
// as a TCP connection.
//
// It performs the opening HTTP handshake as the initiating side, then
// frames application messages on and off the wire until closed. The
// core is synchronous and blocking: every exported operation is a
// sequence of reads/writes on the caller's goroutine, with no internal
// scheduler or background goroutine; read timeouts are installed
// synchronously on the caller's goroutine as well.
//
// Out of scope: DNS resolution and TCP socket creation, TLS, extension
// negotiation (e.g. permessage-deflate), and any server-side behavior.
// RFC references throughout this package point at
// https://datatracker.ietf.org/doc/html/rfc6455.
package websocket
