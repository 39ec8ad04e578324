package websocket

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// parseHeaderIgnoringMask mirrors readFrameHeader's field layout but,
// unlike it, doesn't treat MASK=1 as fatal: client-serialized headers are
// always masked, so round-tripping writeFrameHeader's own output needs a
// parser that doesn't apply the inbound-only "server must not mask" rule
// (spec.md Section 8, property 2: "modulo the inbound MASK bit").
func parseHeaderIgnoringMask(t *testing.T, data []byte) frameHeader {
	t.Helper()
	var h frameHeader
	h.fin = data[0]&0x80 != 0
	h.rsv1 = data[0]&0x40 != 0
	h.rsv2 = data[0]&0x20 != 0
	h.rsv3 = data[0]&0x10 != 0
	h.opcode = Opcode(data[0] & 0x0f)
	h.masked = data[1]&0x80 != 0

	length := uint64(data[1] & 0x7f)
	i := 2
	switch length {
	case len16Bit:
		length = uint64(binary.BigEndian.Uint16(data[i : i+2]))
		i += 2
	case len64Bit:
		length = binary.BigEndian.Uint64(data[i : i+8])
		i += 8
	}
	h.len = length
	copy(h.mask[:], data[i:i+4])
	return h
}

func TestWriteReadFrameHeaderRoundTrip(t *testing.T) {
	lengths := []uint64{0, 1, 125, 126, 127, 65535, 65536, 1 << 32, 1<<63 - 1}
	opcodes := []Opcode{OpContinuation, OpText, OpBinary, OpClose, OpPing, OpPong}
	mask := [4]byte{0x11, 0x22, 0x33, 0x44}

	for _, length := range lengths {
		for _, opcode := range opcodes {
			for _, fin := range []bool{true, false} {
				var buf bytes.Buffer
				if err := writeFrameHeader(&buf, fin, opcode, length, mask); err != nil {
					t.Fatalf("writeFrameHeader(%v, %v, %d) error = %v", fin, opcode, length, err)
				}

				h := parseHeaderIgnoringMask(t, buf.Bytes())

				if h.fin != fin {
					t.Errorf("fin = %v, want %v", h.fin, fin)
				}
				if h.opcode != opcode {
					t.Errorf("opcode = %v, want %v", h.opcode, opcode)
				}
				if h.len != length {
					t.Errorf("len = %d, want %d", h.len, length)
				}
				if h.rsv1 || h.rsv2 || h.rsv3 {
					t.Errorf("rsv bits set, want all clear")
				}
				if !h.masked {
					t.Errorf("masked = false, want true (outbound frames are always masked)")
				}
				if h.mask != mask {
					t.Errorf("mask = %v, want %v", h.mask, mask)
				}
			}
		}
	}
}

func TestWriteFrameHeaderLengthWidths(t *testing.T) {
	tests := []struct {
		name   string
		length uint64
		want   int // total header bytes including 4-byte mask
	}{
		{"7-bit", 125, 6},
		{"16-bit", 126, 8},
		{"16-bit max", 65535, 8},
		{"64-bit", 65536, 14},
	}

	mask := [4]byte{0x01, 0x02, 0x03, 0x04}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeFrameHeader(&buf, true, OpText, tt.length, mask); err != nil {
				t.Fatalf("writeFrameHeader() error = %v", err)
			}
			if buf.Len() != tt.want {
				t.Errorf("header length = %d, want %d", buf.Len(), tt.want)
			}
		})
	}
}

func TestReadFrameHeaderMaskedFromServer(t *testing.T) {
	// FIN=1, opcode=text, MASK=1, len=0.
	data := []byte{0x81, 0x80}
	_, err := readFrameHeader(bytes.NewReader(data))
	if !errors.Is(err, ErrMaskedMessageFromServer) {
		t.Fatalf("readFrameHeader() error = %v, want ErrMaskedMessageFromServer", err)
	}
}

func TestReadFrameHeaderTextExample(t *testing.T) {
	// From spec.md Section 8, scenario 2: 0x81 0x05 "Hello".
	data := []byte{0x81, 0x05, 'H', 'e', 'l', 'l', 'o'}
	r := bytes.NewReader(data)
	h, err := readFrameHeader(r)
	if err != nil {
		t.Fatalf("readFrameHeader() error = %v", err)
	}
	if !h.fin || h.opcode != OpText || h.len != 5 {
		t.Fatalf("h = %+v, want fin=true opcode=text len=5", h)
	}

	payload := make([]byte, h.len)
	if _, err := r.Read(payload); err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if string(payload) != "Hello" {
		t.Errorf("payload = %q, want %q", payload, "Hello")
	}
}
