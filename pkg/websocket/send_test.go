package websocket

import (
	"bytes"
	"errors"
	"testing"
)

func TestSenders(t *testing.T) {
	tests := []struct {
		name string
		send func(b *bytes.Buffer) error
		want []byte
	}{
		{
			name: "text",
			send: func(b *bytes.Buffer) error { return SendText(b, []byte("hi")) },
			want: []byte{0x81, 0x02, 'h', 'i'},
		},
		{
			name: "binary",
			send: func(b *bytes.Buffer) error { return SendBinary(b, []byte{0x00, 0xff}) },
			want: []byte{0x82, 0x02, 0x00, 0xff},
		},
		{
			name: "close",
			send: func(b *bytes.Buffer) error { return SendClose(b) },
			want: []byte{0x88, 0x00},
		},
		{
			name: "pong_echoes_payload",
			send: func(b *bytes.Buffer) error { return SendPong(b, []byte("ball")) },
			want: []byte{0x8a, 0x04, 'b', 'a', 'l', 'l'},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b bytes.Buffer
			if err := tt.send(&b); err != nil {
				t.Fatalf("send error = %v", err)
			}
			if !bytes.Equal(b.Bytes(), tt.want) {
				t.Errorf("sent %v, want %v", b.Bytes(), tt.want)
			}
		})
	}
}

type failingWriter struct{ err error }

func (w failingWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	return len(p) - 1, nil
}

func TestSendErrors(t *testing.T) {
	wantErr := errors.New("connection reset")
	if err := SendBinary(failingWriter{err: wantErr}, []byte("x")); !errors.Is(err, wantErr) {
		t.Errorf("SendBinary() error = %v, want %v", err, wantErr)
	}

	// A short write without an error is still a connection error.
	if err := SendBinary(failingWriter{}, []byte("x")); err == nil {
		t.Error("SendBinary() error = nil on short write, want non-nil")
	}
}
