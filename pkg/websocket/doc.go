// Package websocket is a lightweight server-side implementation
// of WebSocket framing (RFC 6455).
//
// It provides the three primitives a raw-socket server needs:
// deriving the handshake accept key, parsing masked client frames
// out of an accumulating byte buffer, and building unmasked server
// frames.
//
// Fragmentation and extensions are not supported: every frame is
// expected to be final, and a non-final text or binary frame is
// rejected as a protocol error.
package websocket
