package websocket

import (
	"fmt"
	"io"
)

// SendText sends a single UTF-8 text frame.
func SendText(w io.Writer, payload []byte) error {
	return sendFrame(w, OpcodeText, payload)
}

// SendBinary sends a single binary frame.
func SendBinary(w io.Writer, payload []byte) error {
	return sendFrame(w, OpcodeBinary, payload)
}

// SendClose sends a close control frame with an empty payload.
func SendClose(w io.Writer) error {
	return sendFrame(w, OpcodeClose, nil)
}

// SendPong sends a pong control frame echoing the ping's payload, as
// required by https://datatracker.ietf.org/doc/html/rfc6455#section-5.5.3.
func SendPong(w io.Writer, payload []byte) error {
	return sendFrame(w, OpcodePong, payload)
}

// sendFrame writes one complete frame to the underlying connection.
// A short or failed write means the peer is gone.
func sendFrame(w io.Writer, op Opcode, payload []byte) error {
	buf := Build(op, payload)
	n, err := w.Write(buf)
	if err != nil {
		return fmt.Errorf("failed to send WebSocket %s frame: %w", op, err)
	}
	if n < len(buf) {
		return fmt.Errorf("short write while sending WebSocket %s frame: %d of %d bytes", op, n, len(buf))
	}
	return nil
}
