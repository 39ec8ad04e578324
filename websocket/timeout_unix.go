//go:build !windows

package websocket

import (
	"fmt"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// setSocketReadTimeout installs a receive-side timeout on transport's
// raw file descriptor via SO_RCVTIMEO (setsockopt), per spec.md Section
// 4.6 / 6: a subsequent blocking read that doesn't complete within d
// surfaces as ErrWouldBlock (via the transport's own EAGAIN/EWOULDBLOCK,
// translated by Buffered.Receive / Unbuffered.Receive). d <= 0 clears the timeout.
//
// transport must implement syscall.Conn (true of every *net.TCPConn,
// *net.UnixConn, and *tls.Conn); anything else fails fast rather than
// pretending the timeout took effect.
func setSocketReadTimeout(transport Transport, d time.Duration) error {
	sc, ok := transport.(syscall.Conn)
	if !ok {
		return fmt.Errorf("websocket: transport %T does not support read timeouts (not a syscall.Conn)", transport)
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return fmt.Errorf("get raw connection: %w", err)
	}

	tv := unix.NsecToTimeval(d.Nanoseconds())

	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptTimeval(int(fd), unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
	}); err != nil {
		return fmt.Errorf("control raw connection: %w", err)
	}
	if sockErr != nil {
		return fmt.Errorf("setsockopt SO_RCVTIMEO: %w", sockErr)
	}
	return nil
}

// armReadDeadline arms a one-shot deadline for the next blocking read on
// POSIX by reusing SO_RCVTIMEO (reliable there, unlike on Windows): it is
// Unbuffered.Receive's per-call deadline mechanism, distinct from the
// persistent socket-level timeout SetReadTimeout installs.
func armReadDeadline(transport Transport, d time.Duration) error {
	return setSocketReadTimeout(transport, d)
}
