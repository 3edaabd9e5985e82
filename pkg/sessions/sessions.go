// Package sessions discovers the multiplexer sessions available on
// this host, by running the tmux client and parsing its line-oriented
// output.
package sessions

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// listFormat makes tmux print one pipe-delimited line per session.
const listFormat = "#{session_name}|#{session_windows}|#{session_attached}|#{session_created}"

// Session is one running multiplexer session.
type Session struct {
	Name     string
	Windows  int
	Attached bool
	Created  string // Unix timestamp, as reported by tmux.
}

// List returns all sessions known to the tmux server. It returns an
// error when tmux is unavailable or no server is running, and an
// empty slice when the server is up but has no sessions.
func List(ctx context.Context) ([]Session, error) {
	out, err := exec.CommandContext(ctx, "tmux", "list-sessions", "-F", listFormat).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list tmux sessions: %w", err)
	}
	return parse(string(out)), nil
}

// parse converts tmux's list-sessions output into [Session] records.
// Lines with missing fields keep their zero values, matching tmux's
// own tolerance for unset format variables.
func parse(out string) []Session {
	var sessions []Session
	for line := range strings.Lines(out) {
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			continue
		}

		var s Session
		fields := strings.SplitN(line, "|", 4)
		s.Name = fields[0]
		if len(fields) > 1 {
			s.Windows, _ = strconv.Atoi(fields[1])
		}
		if len(fields) > 2 {
			s.Attached = fields[2] != "" && fields[2] != "0"
		}
		if len(fields) > 3 {
			s.Created = fields[3]
		}
		sessions = append(sessions, s)
	}
	return sessions
}
