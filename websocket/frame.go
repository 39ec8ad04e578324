package websocket

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Payload length encoding thresholds (RFC 6455 Section 5.2).
const (
	len7Bit  = 125
	len16Bit = 126
	len64Bit = 127
)

// maxControlPayload is the maximum payload length for control frames
// (RFC 6455 Section 5.5).
const maxControlPayload = 125

// frameHeader is the parsed form of one frame's 2-14 byte header,
// excluding the payload itself (RFC 6455 Section 5.2):
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-------+-+-------------+-------------------------------+
//	|F|R|R|R| opcode|M| Payload len |    Extended payload length    |
//	|I|S|S|S|  (4)  |A|     (7)     |             (16/64)           |
//	|N|V|V|V|       |S|             |   (if payload len==126/127)   |
//	| |1|2|3|       |K|             |                               |
//	+-+-+-+-+-------+-+-------------+ - - - - - - - - - - - - - - - +
//	|     Extended payload length continued, if payload len == 127  |
//	+ - - - - - - - - - - - - - - - +-------------------------------+
//	|                               |Masking-key, if MASK set to 1  |
//	+-------------------------------+-------------------------------+
type frameHeader struct {
	fin              bool
	rsv1, rsv2, rsv3 bool
	opcode           Opcode
	masked           bool
	len              uint64
	mask             [4]byte
}

// readFrameHeader reads one frame header from r, up to but excluding the
// payload. It blocks until the bytes are available.
func readFrameHeader(r io.Reader) (frameHeader, error) {
	var h frameHeader

	var b [2]byte
	if _, err := readFull(r, b[:]); err != nil {
		return h, fmt.Errorf("read frame header: %w", err)
	}

	h.fin = b[0]&0x80 != 0
	h.rsv1 = b[0]&0x40 != 0
	h.rsv2 = b[0]&0x20 != 0
	h.rsv3 = b[0]&0x10 != 0
	h.opcode = Opcode(b[0] & 0x0f)

	h.masked = b[1]&0x80 != 0
	if h.masked {
		// RFC 6455 Section 5.1: a client MUST close the connection
		// if it detects a server frame with the MASK bit set.
		return h, ErrMaskedMessageFromServer
	}

	length := uint64(b[1] & 0x7f)
	switch length {
	case len16Bit:
		var ext [2]byte
		if _, err := readFullMidFrame(r, ext[:]); err != nil {
			return h, fmt.Errorf("read 16-bit length: %w", err)
		}
		length = uint64(binary.BigEndian.Uint16(ext[:]))
	case len64Bit:
		var ext [8]byte
		if _, err := readFullMidFrame(r, ext[:]); err != nil {
			return h, fmt.Errorf("read 64-bit length: %w", err)
		}
		length = binary.BigEndian.Uint64(ext[:])
	}
	h.len = length

	return h, nil
}

// writeFrameHeader serializes a client-to-server frame header (always
// masked) in a single write of 6, 8, or 14 bytes, as defined by RFC 6455
// Section 5.2.
func writeFrameHeader(w io.Writer, fin bool, opcode Opcode, length uint64, mask [4]byte) error {
	var buf [14]byte
	n := 2

	buf[0] = opcode.flags(fin)

	switch {
	case length <= len7Bit:
		buf[1] = 0x80 | byte(length)
	case length <= 0xffff:
		buf[1] = 0x80 | len16Bit
		binary.BigEndian.PutUint16(buf[2:4], uint16(length))
		n = 4
	default:
		buf[1] = 0x80 | len64Bit
		binary.BigEndian.PutUint64(buf[2:10], length)
		n = 10
	}

	copy(buf[n:n+4], mask[:])
	n += 4

	_, err := w.Write(buf[:n])
	if err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	return nil
}

// flags packs the FIN bit and opcode into the first header byte. RSV1-3
// are always 0: this implementation never negotiates extensions.
func (o Opcode) flags(fin bool) byte {
	b := byte(o) & 0x0f
	if fin {
		b |= 0x80
	}
	return b
}
