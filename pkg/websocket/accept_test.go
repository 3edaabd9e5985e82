package websocket

import "testing"

func TestAcceptKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{
			// https://datatracker.ietf.org/doc/html/rfc6455#section-1.3
			name: "rfc_sample_nonce",
			key:  "dGhlIHNhbXBsZSBub25jZQ==",
			want: "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=",
		},
		{
			name: "empty_key",
			key:  "",
			want: "Kfh9QIsMVZcl6xEPYxPHzW8SZ8w=",
		},
		{
			name: "another_nonce",
			key:  "w3CJHMbDL2EzLkh9GBhXDw==",
			want: "WnOr6NFzggqQEmHfs2TdY13ts5Y=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AcceptKey(tt.key); got != tt.want {
				t.Errorf("AcceptKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
			if got := AcceptKey(tt.key); len(got) != 28 {
				t.Errorf("AcceptKey(%q) length = %d, want 28", tt.key, len(got))
			}
		})
	}
}
