// Package terminal manages a multiplexer-attach child process
// running under a pseudo-terminal.
//
// Each [Terminal] owns one tmux client: the child's controlling
// terminal is the PTY slave, and the exported operations read,
// write, and resize through the PTY master. The master is kept in
// non-blocking mode so a bridge loop can multiplex it with a socket.
package terminal

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// Initial window size, until the client reports its real dimensions.
const (
	initialCols = 80
	initialRows = 24
)

// writeRetryDelay is the back-off before retrying a write that
// would have blocked.
const writeRetryDelay = time.Millisecond

// ErrClosed reports that the PTY master reached end-of-stream, hit an
// unrecoverable error, or was torn down. Once returned, the terminal
// is dead and all further operations fail without touching the OS.
var ErrClosed = errors.New("terminal: closed")

// Command constructors, replaceable in unit tests so the manager can
// be exercised without a live tmux server.
var (
	attachCommand = func(session string) *exec.Cmd {
		return exec.Command("tmux", "attach-session", "-t", session)
	}
	createCommand = func(session string) *exec.Cmd {
		return exec.Command("tmux", "new-session", "-s", session)
	}
)

// Terminal is a multiplexer client running under a pseudo-terminal.
// It is owned by exactly one bridge: none of its methods are safe
// for concurrent use.
type Terminal struct {
	master  *os.File
	fd      int
	pid     int
	session string
	running bool
}

// Create spawns a tmux client attached to the named session, under a
// freshly allocated PTY with an initial window size of 80x24. If the
// attach client cannot be started at all, it falls back to creating
// the session. The PTY master is switched to non-blocking mode.
func Create(session string) (*Terminal, error) {
	size := &pty.Winsize{Cols: initialCols, Rows: initialRows}

	cmd := attachCommand(session)
	cmd.Env = childEnv()
	master, err := pty.StartWithSize(cmd, size)
	if err != nil {
		cmd = createCommand(session)
		cmd.Env = childEnv()
		master, err = pty.StartWithSize(cmd, size)
		if err != nil {
			return nil, fmt.Errorf("failed to start multiplexer client for session %q: %w", session, err)
		}
	}

	// os.File.Fd returns the fd in blocking mode, so the non-blocking
	// flag must be set after this call, not before.
	fd := int(master.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = master.Close()
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
		return nil, fmt.Errorf("failed to set PTY master to non-blocking mode: %w", err)
	}

	return &Terminal{
		master:  master,
		fd:      fd,
		pid:     cmd.Process.Pid,
		session: session,
		running: true,
	}, nil
}

// childEnv returns os.Environ() with any existing TERM removed and
// TERM=xterm-256color appended. getenv() returns the first match, so
// a duplicate TERM entry would silently override the value.
func childEnv() []string {
	env := make([]string, 0, len(os.Environ())+1)
	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, "TERM=") {
			env = append(env, e)
		}
	}
	return append(env, "TERM=xterm-256color")
}

// Fd returns the PTY master file descriptor, for readiness polling.
// It is -1 after [Terminal.Close].
func (t *Terminal) Fd() int {
	return t.fd
}

// Session returns the multiplexer session name the child is attached to.
func (t *Terminal) Session() string {
	return t.session
}

// Running reports whether the child was still believed alive at the
// last read or liveness check.
func (t *Terminal) Running() bool {
	return t.running
}

// Read performs a best-effort non-blocking read from the PTY master.
// It returns 0 bytes (and no error) when no data is currently
// available, and [ErrClosed] once the master reaches end-of-stream
// or fails permanently.
func (t *Terminal) Read(buf []byte) (int, error) {
	if !t.running {
		return 0, ErrClosed
	}

	n, err := unix.Read(t.fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return 0, nil
		}
		// The master returns EIO once the child side hangs up.
		t.running = false
		return 0, ErrClosed
	}
	if n == 0 {
		t.running = false
		return 0, ErrClosed
	}
	return n, nil
}

// Write pushes the entire buffer to the PTY master, pausing briefly
// and retrying whenever the write would block. A permanent error is
// reported as [ErrClosed].
func (t *Terminal) Write(buf []byte) error {
	if !t.running {
		return ErrClosed
	}

	for len(buf) > 0 {
		n, err := unix.Write(t.fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				time.Sleep(writeRetryDelay)
				continue
			}
			t.running = false
			return ErrClosed
		}
		buf = buf[n:]
	}
	return nil
}

// Resize sets the PTY window size, which delivers SIGWINCH to the
// child's process group. Zero or negative dimensions are invalid.
func (t *Terminal) Resize(cols, rows int) error {
	if !t.running {
		return ErrClosed
	}
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("terminal: invalid window size %dx%d", cols, rows)
	}

	size := &pty.Winsize{
		Cols: uint16(cols), //gosec:disable G115 -- value checked above
		Rows: uint16(rows), //gosec:disable G115 -- value checked above
	}
	if err := pty.Setsize(t.master, size); err != nil {
		return fmt.Errorf("failed to resize PTY to %dx%d: %w", cols, rows, err)
	}
	return nil
}

// Alive checks non-blockingly whether the child process is still
// running, reaping it if it has exited.
func (t *Terminal) Alive() bool {
	if !t.running {
		return false
	}

	var status unix.WaitStatus
	pid, err := unix.Wait4(t.pid, &status, unix.WNOHANG, nil)
	if err == nil && pid == t.pid {
		t.running = false
		return false
	}
	return true
}

// Close releases the PTY master, hangs up the child, and reaps it
// without blocking. It is idempotent: every call after the first is
// a no-op.
func (t *Terminal) Close() {
	if t.master != nil {
		_ = t.master.Close()
		t.master = nil
		t.fd = -1
	}

	if t.pid > 0 {
		_ = unix.Kill(t.pid, unix.SIGHUP)
		var status unix.WaitStatus
		_, _ = unix.Wait4(t.pid, &status, unix.WNOHANG, nil)
		t.pid = 0
	}

	t.running = false
}
