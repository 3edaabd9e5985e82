package server

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    request
		wantErr error
	}{
		{
			name: "plain_page_fetch",
			raw:  "GET / HTTP/1.1\r\nHost: x\r\n\r\n",
			want: request{path: "/"},
		},
		{
			name: "index_html",
			raw:  "GET /index.html HTTP/1.1\r\nHost: x\r\n\r\n",
			want: request{path: "/index.html"},
		},
		{
			name: "upgrade",
			raw: "GET /ws HTTP/1.1\r\nHost: x\r\nUpgrade: websocket\r\nConnection: Upgrade\r\n" +
				"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\nSec-WebSocket-Version: 13\r\n\r\n",
			want: request{path: "/ws", wsKey: "dGhlIHNhbXBsZSBub25jZQ=="},
		},
		{
			name: "key_header_is_case_sensitive",
			raw:  "GET /ws HTTP/1.1\r\nsec-websocket-key: abc\r\n\r\n",
			want: request{path: "/ws"},
		},
		{
			name: "key_without_line_terminator_ignored",
			raw:  "GET /ws HTTP/1.1\r\nSec-WebSocket-Key: abc",
			want: request{path: "/ws"},
		},
		{
			name:    "no_separators",
			raw:     "garbage",
			wantErr: errMalformedRequest,
		},
		{
			name:    "single_separator",
			raw:     "GET /xyz",
			wantErr: errMalformedRequest,
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: errMalformedRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRequest([]byte(tt.raw))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("parseRequest() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseRequest() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHTTPResponse(t *testing.T) {
	got := string(httpResponse(200, "OK", "text/html", []byte("<html>")))
	want := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/html\r\n" +
		"Content-Length: 6\r\n" +
		"Connection: close\r\n" +
		"\r\n" +
		"<html>"
	if got != want {
		t.Errorf("httpResponse() = %q, want %q", got, want)
	}
}

func TestUpgradeResponse(t *testing.T) {
	got := string(upgradeResponse("dGhlIHNhbXBsZSBub25jZQ=="))

	if !strings.HasPrefix(got, "HTTP/1.1 101 Switching Protocols\r\n") {
		t.Errorf("upgradeResponse() status line wrong: %q", got)
	}
	for _, h := range []string{
		"Upgrade: websocket\r\n",
		"Connection: Upgrade\r\n",
		"Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n",
	} {
		if !strings.Contains(got, h) {
			t.Errorf("upgradeResponse() missing header %q in %q", h, got)
		}
	}
	if !strings.HasSuffix(got, "\r\n\r\n") {
		t.Errorf("upgradeResponse() not terminated by a blank line: %q", got)
	}
	if strings.Contains(got, "Content-Length") {
		t.Errorf("upgradeResponse() must not carry a Content-Length: %q", got)
	}
}
