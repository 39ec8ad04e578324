package websocket

import "io"

// maskChunkSize is the scratch buffer size used to mask outbound payload
// in bounded chunks instead of allocating a copy the size of the whole
// message. RFC 6455 Section 5.3 defines the masking algorithm itself;
// this chunking is purely an implementation choice for bounded memory use.
const maskChunkSize = 1024

// applyMask XORs data in place against key, starting at the given rolling
// offset into the logical payload (offset is only non-zero when data is
// one chunk of a larger payload masked across multiple calls).
//
//	masked[i] = raw[i] XOR key[(i+offset) mod 4]
//
// The transform is its own inverse: applying it twice with the same key
// and starting offset restores the original bytes.
func applyMask(data []byte, key [4]byte, offset int) {
	for i := range data {
		data[i] ^= key[(i+offset)%4]
	}
}

// maskedWriter streams payload bytes through a fixed scratch buffer,
// masking each chunk before writing it to w. It preserves the rolling
// mask offset across Write calls so payloads larger than one chunk are
// masked correctly; resetting the offset between chunks would corrupt
// every chunk after the first.
type maskedWriter struct {
	w      io.Writer
	key    [4]byte
	offset int
	scratch [maskChunkSize]byte
}

func newMaskedWriter(w io.Writer, key [4]byte) *maskedWriter {
	return &maskedWriter{w: w, key: key}
}

// Write masks and writes all of p, chunked through the scratch buffer.
func (m *maskedWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := len(p)
		if n > maskChunkSize {
			n = maskChunkSize
		}
		copy(m.scratch[:n], p[:n])
		applyMask(m.scratch[:n], m.key, m.offset)

		if _, err := m.w.Write(m.scratch[:n]); err != nil {
			return written, err
		}

		m.offset += n
		written += n
		p = p[n:]
	}
	return written, nil
}
