package server

import _ "embed"

// indexHTML is the embedded client: an xterm.js page that opens a
// WebSocket back to this server, ships keystrokes as text frames, and
// writes received binary frames verbatim to the emulator. The server
// treats it as opaque bytes.
//
//go:embed index.html
var indexHTML []byte
