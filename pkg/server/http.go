package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/webmux/webmux/pkg/websocket"
)

const wsKeyHeader = "Sec-WebSocket-Key: "

var errMalformedRequest = errors.New("server: malformed HTTP request")

// request is the result of the front door's single-read parse of an
// inbound HTTP request: the request-target, and the client's
// WebSocket key if the request asks for an upgrade.
type request struct {
	path  string
	wsKey string
}

// parseRequest extracts the request-target from between the first two
// spaces of the request line, and the value of a case-sensitive
// "Sec-WebSocket-Key" header if one is present. Requests longer than
// the read buffer arrive truncated, which is acceptable because only
// two literal paths are honored.
func parseRequest(raw []byte) (request, error) {
	text := string(raw)

	start := strings.IndexByte(text, ' ')
	if start < 0 {
		return request{}, errMalformedRequest
	}
	end := strings.IndexByte(text[start+1:], ' ')
	if end < 0 {
		return request{}, errMalformedRequest
	}
	req := request{path: text[start+1 : start+1+end]}

	if i := strings.Index(text, wsKeyHeader); i >= 0 {
		value := text[i+len(wsKeyHeader):]
		if j := strings.Index(value, "\r\n"); j >= 0 {
			req.wsKey = value[:j]
		}
	}

	return req, nil
}

// httpResponse renders a complete non-upgrade HTTP response. All such
// responses carry a Content-Length and close the connection.
func httpResponse(statusCode int, statusText, contentType string, body []byte) []byte {
	header := fmt.Sprintf("HTTP/1.1 %d %s\r\n"+
		"Content-Type: %s\r\n"+
		"Content-Length: %d\r\n"+
		"Connection: close\r\n"+
		"\r\n",
		statusCode, statusText, contentType, len(body))

	return append([]byte(header), body...)
}

// upgradeResponse renders the "101 Switching Protocols" handshake
// response, proving key ownership with the derived accept key. No
// Content-Length and no "Connection: close" here: the socket stays
// open and switches to framed transport.
func upgradeResponse(clientKey string) []byte {
	return []byte("HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + websocket.AcceptKey(clientKey) + "\r\n" +
		"\r\n")
}
