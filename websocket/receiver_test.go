package websocket

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReceiveTextMessage(t *testing.T) {
	// spec.md Section 8, scenario 2.
	data := []byte{0x81, 0x05, 'H', 'e', 'l', 'l', 'o'}
	rv := newReceiver(bytes.NewReader(data))

	msg, err := rv.Receive(PartialSink{}, 0)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if msg.Type != OpText {
		t.Errorf("Type = %v, want text", msg.Type)
	}
	pd, ok := msg.Data.(PartialData)
	if !ok || !pd.Complete {
		t.Fatalf("Data = %#v, want complete PartialData", msg.Data)
	}
	payload, err := io.ReadAll(pd.Reader)
	if err != nil {
		t.Fatalf("read partial payload: %v", err)
	}
	if string(payload) != "Hello" {
		t.Errorf("payload = %q, want %q", payload, "Hello")
	}
}

func TestReceiveFragmentedTextIntoWriter(t *testing.T) {
	// spec.md Section 8, scenario 3.
	data := append([]byte{0x01, 0x03, 'H', 'e', 'l'}, []byte{0x80, 0x02, 'l', 'o'}...)
	rv := newReceiver(bytes.NewReader(data))

	var out bytes.Buffer
	msg, err := rv.Receive(WriterSink{W: &out}, 0)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if msg.Type != OpText {
		t.Errorf("Type = %v, want text", msg.Type)
	}
	if wn, ok := msg.Data.(WrittenData); !ok || int(wn) != 5 {
		t.Errorf("Data = %#v, want WrittenData(5)", msg.Data)
	}
	if out.String() != "Hello" {
		t.Errorf("writer contents = %q, want %q", out.String(), "Hello")
	}
}

func TestReceivePingInterleavedWithFragments(t *testing.T) {
	// spec.md Section 8, scenario 4.
	var data []byte
	data = append(data, 0x01, 0x03, 'H', 'e', 'l')
	data = append(data, 0x89, 0x04, 'p', 'i', 'n', 'g')
	data = append(data, 0x80, 0x02, 'l', 'o')
	rv := newReceiver(bytes.NewReader(data))

	var out bytes.Buffer
	msg1, err := rv.Receive(WriterSink{W: &out}, 0)
	if err != nil {
		t.Fatalf("first Receive() error = %v", err)
	}
	if msg1.Type != OpPing {
		t.Fatalf("first message Type = %v, want ping", msg1.Type)
	}
	sliceData, ok := msg1.Data.(SliceData)
	if !ok || string(sliceData) != "ping" {
		t.Fatalf("ping payload = %#v, want %q", msg1.Data, "ping")
	}

	msg2, err := rv.Receive(WriterSink{W: &out}, 0)
	if err != nil {
		t.Fatalf("second Receive() error = %v", err)
	}
	if msg2.Type != OpText {
		t.Fatalf("second message Type = %v, want text", msg2.Type)
	}
	if out.String() != "Hello" {
		t.Errorf("assembled text = %q, want %q", out.String(), "Hello")
	}
}

func TestReceiveCloseWithCode(t *testing.T) {
	// spec.md Section 8, scenario 5.
	data := []byte{0x88, 0x02, 0x03, 0xE8}
	rv := newReceiver(bytes.NewReader(data))

	msg, err := rv.Receive(WriterSink{W: io.Discard}, 0)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if msg.Type != OpClose {
		t.Fatalf("Type = %v, want close", msg.Type)
	}
	if msg.Code == nil || *msg.Code != StatusNormalClosure {
		t.Fatalf("Code = %v, want 1000", msg.Code)
	}
}

func TestReceiveStrayContinuationFails(t *testing.T) {
	data := []byte{0x80, 0x02, 'h', 'i'} // FIN=1, opcode=continuation, no prior fragment.
	rv := newReceiver(bytes.NewReader(data))

	_, err := rv.Receive(WriterSink{W: io.Discard}, 0)
	if !errors.Is(err, ErrBadMessageOrder) {
		t.Fatalf("Receive() error = %v, want ErrBadMessageOrder", err)
	}
}

func TestReceiveDataFrameDuringFragmentationFails(t *testing.T) {
	var data []byte
	data = append(data, 0x01, 0x01, 'H') // start fragmentation.
	data = append(data, 0x02, 0x01, 'x') // binary frame, not continuation: protocol violation.
	rv := newReceiver(bytes.NewReader(data))

	if _, err := rv.Receive(WriterSink{W: io.Discard}, 0); err != nil {
		t.Fatalf("first Receive() error = %v", err)
	}
	if _, err := rv.Receive(WriterSink{W: io.Discard}, 0); !errors.Is(err, ErrBadMessageOrder) {
		t.Fatalf("second Receive() error = %v, want ErrBadMessageOrder", err)
	}
}

func TestReceivePayloadTooBig(t *testing.T) {
	data := []byte{0x81, 0x05, 'H', 'e', 'l', 'l', 'o'}
	rv := newReceiver(bytes.NewReader(data))

	var out bytes.Buffer
	_, err := rv.Receive(WriterSink{W: &out}, 4)
	if !errors.Is(err, ErrPayloadTooBig) {
		t.Fatalf("Receive() error = %v, want ErrPayloadTooBig", err)
	}
	if out.Len() != 0 {
		t.Errorf("writer got %d bytes, want 0 (payload must not be read before the limit check)", out.Len())
	}
}

func TestReceiveControlFrameReadsExactLength(t *testing.T) {
	// Regression test for spec.md Section 9's open question: control
	// frames must read exactly header.len bytes, never
	// maxControlPayload unconditionally (which would overread and
	// desynchronize the stream for any frame shorter than 125 bytes).
	var data []byte
	data = append(data, 0x89, 0x04, 'p', 'i', 'n', 'g') // ping, len=4
	data = append(data, 0x81, 0x03, 'f', 'o', 'o')      // text, len=3, immediately after
	rv := newReceiver(bytes.NewReader(data))

	msg1, err := rv.Receive(WriterSink{W: io.Discard}, 0)
	if err != nil {
		t.Fatalf("first Receive() error = %v", err)
	}
	if msg1.Type != OpPing {
		t.Fatalf("first Type = %v, want ping", msg1.Type)
	}

	var out bytes.Buffer
	msg2, err := rv.Receive(WriterSink{W: &out}, 0)
	if err != nil {
		t.Fatalf("second Receive() error = %v", err)
	}
	if msg2.Type != OpText || out.String() != "foo" {
		t.Fatalf("second message = %v %q, want text %q", msg2.Type, out.String(), "foo")
	}
}

func TestReceiveUnknownOpcodeFails(t *testing.T) {
	data := []byte{0x83, 0x00} // FIN=1, opcode=0x3 (reserved).
	rv := newReceiver(bytes.NewReader(data))

	if _, err := rv.Receive(WriterSink{W: io.Discard}, 0); !errors.Is(err, ErrUnknownOpcode) {
		t.Fatalf("Receive() error = %v, want ErrUnknownOpcode", err)
	}
}

func TestReceiveControlFrameTooBig(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrameHeader(&buf, true, OpPing, 126, [4]byte{}); err != nil {
		t.Fatalf("writeFrameHeader() error = %v", err)
	}
	rv := newReceiver(&buf)

	if _, err := rv.Receive(WriterSink{W: io.Discard}, 0); !errors.Is(err, ErrPayloadTooBig) {
		t.Fatalf("Receive() error = %v, want ErrPayloadTooBig", err)
	}
}

func TestReceiveResponseHandshakeExample(t *testing.T) {
	// spec.md Section 8, scenario 1.
	const key = "dGhlIHNhbXBsZSBub25jZQ=="
	const accept = "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="

	resp := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + accept + "\r\n" +
		"\r\n"

	rv := newReceiver(strings.NewReader(""))
	br := bufio.NewReader(strings.NewReader(resp))
	headers := make(map[string]string)

	if err := rv.ReceiveResponse(br, headers, key); err != nil {
		t.Fatalf("ReceiveResponse() error = %v", err)
	}
	if headers["Sec-WebSocket-Accept"] != accept {
		t.Errorf("headers[Sec-WebSocket-Accept] = %q, want %q", headers["Sec-WebSocket-Accept"], accept)
	}
}

func TestReceiveResponseWrongAccept(t *testing.T) {
	resp := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Sec-WebSocket-Accept: not-the-right-value\r\n" +
		"\r\n"
	rv := newReceiver(strings.NewReader(""))
	br := bufio.NewReader(strings.NewReader(resp))

	err := rv.ReceiveResponse(br, nil, "dGhlIHNhbXBsZSBub25jZQ==")
	if !errors.Is(err, ErrKeyControlFailed) {
		t.Fatalf("ReceiveResponse() error = %v, want ErrKeyControlFailed", err)
	}
}

func TestReceiveResponseMissingAccept(t *testing.T) {
	resp := "HTTP/1.1 101 Switching Protocols\r\n\r\n"
	rv := newReceiver(strings.NewReader(""))
	br := bufio.NewReader(strings.NewReader(resp))

	err := rv.ReceiveResponse(br, nil, "dGhlIHNhbXBsZSBub25jZQ==")
	if !errors.Is(err, ErrAcceptKeyNotFound) {
		t.Fatalf("ReceiveResponse() error = %v, want ErrAcceptKeyNotFound", err)
	}
}

func TestReceiveResponseNotSwitchingProtocols(t *testing.T) {
	resp := "HTTP/1.1 404 Not Found\r\n\r\n"
	rv := newReceiver(strings.NewReader(""))
	br := bufio.NewReader(strings.NewReader(resp))

	err := rv.ReceiveResponse(br, nil, "dGhlIHNhbXBsZSBub25jZQ==")
	if !errors.Is(err, ErrFailedSwitchingProtocols) {
		t.Fatalf("ReceiveResponse() error = %v, want ErrFailedSwitchingProtocols", err)
	}
}

func TestReceiveResponseHeaderTooLong(t *testing.T) {
	resp := "HTTP/1.1 101 Switching Protocols\r\n" +
		"X-Long: " + strings.Repeat("a", maxHTTPHeaderLength) + "\r\n\r\n"
	rv := newReceiver(strings.NewReader(""))
	br := bufio.NewReader(strings.NewReader(resp))

	err := rv.ReceiveResponse(br, nil, "dGhlIHNhbXBsZSBub25jZQ==")
	if !errors.Is(err, ErrHTTPHeaderTooLong) {
		t.Fatalf("ReceiveResponse() error = %v, want ErrHTTPHeaderTooLong", err)
	}
}
