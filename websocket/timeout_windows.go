//go:build windows

package websocket

import (
	"encoding/binary"
	"fmt"
	"syscall"
	"time"

	"golang.org/x/sys/windows"
)

// setSocketReadTimeout installs SO_RCVTIMEO on transport's raw socket
// handle. Per spec.md Section 9's design note, SO_RCVTIMEO is unreliable
// on Windows; Buffered/Unbuffered SetReadTimeout still set it best-effort (it
// catches most cases), while Unbuffered's per-call deadline uses
// waitReadable's explicit select wait instead of relying on this alone.
func setSocketReadTimeout(transport Transport, d time.Duration) error {
	sc, ok := transport.(syscall.Conn)
	if !ok {
		return fmt.Errorf("websocket: transport %T does not support read timeouts (not a syscall.Conn)", transport)
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return fmt.Errorf("get raw connection: %w", err)
	}

	millis := uint32(d.Milliseconds())
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], millis)

	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = windows.Setsockopt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_RCVTIMEO, &buf[0], int32(len(buf)))
	}); err != nil {
		return fmt.Errorf("control raw connection: %w", err)
	}
	if sockErr != nil {
		return fmt.Errorf("setsockopt SO_RCVTIMEO: %w", sockErr)
	}
	return nil
}

// waitReadable blocks until transport's raw socket is readable or d
// elapses, using select(2) rather than SO_RCVTIMEO, per spec.md Section
// 9: "Windows builds must use an explicit select readiness wait before
// blocking reads." Returns ErrWouldBlock on timeout without consuming
// any stream bytes.
func waitReadable(transport Transport, d time.Duration) error {
	sc, ok := transport.(syscall.Conn)
	if !ok {
		return fmt.Errorf("websocket: transport %T does not support deadlined reads (not a syscall.Conn)", transport)
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return fmt.Errorf("get raw connection: %w", err)
	}

	var selErr error
	var n int32
	if err := raw.Control(func(fd uintptr) {
		var fds windows.FdSet
		fds.Count = 1
		fds.Array[0] = windows.Handle(fd)

		tv := windows.NsecToTimeval(d.Nanoseconds())
		n, selErr = windows.Select(0, &fds, nil, nil, &tv)
	}); err != nil {
		return fmt.Errorf("control raw connection: %w", err)
	}
	if selErr != nil {
		return fmt.Errorf("select: %w", selErr)
	}
	if n == 0 {
		return ErrWouldBlock
	}
	return nil
}

// armReadDeadline arms a one-shot deadline for the next blocking read on
// Windows via waitReadable's select wait, per spec.md Section 9's note
// that SO_RCVTIMEO is unreliable there.
func armReadDeadline(transport Transport, d time.Duration) error {
	return waitReadable(transport, d)
}
