package server

import (
	"bytes"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/webmux/webmux/pkg/websocket"
)

// ptySession is the subset of [terminal.Terminal] the bridge needs.
// It is an interface so the bridge loop can be exercised in tests
// without a live multiplexer.
type ptySession interface {
	Fd() int
	Read(buf []byte) (int, error)
	Write(buf []byte) error
	Resize(cols, rows int) error
	Alive() bool
	Close()
}

const (
	// Fixed buffer for the initial HTTP request.
	requestBufferSize = 64 << 10
	// Per-connection bound on inbound frame bytes; a single frame
	// larger than this can never complete and kills the connection.
	inboundBufferSize = 64 << 10
	// Upper bound on a single PTY read, forwarded as one binary frame.
	ptyReadSize = 64 << 10

	// Readiness wait bound in milliseconds, so that shutdown and
	// child liveness are re-checked regularly.
	pollInterval = 50

	// How long the front door waits for a complete request before
	// giving up on the client.
	requestTimeout = 5 * time.Second
)

// resizePattern is the one message shape the shipped client emits for
// window size changes. The match is deliberately strict: anything
// else, JSON-looking or not, is raw keystrokes.
const resizePattern = `{"type":"resize","cols":%d,"rows":%d}`

// conn owns one accepted socket for its whole lifetime: the HTTP
// read, the optional upgrade, the bridge loop, and teardown all run
// on the goroutine that created it.
type conn struct {
	fd  int // Dup of the accepted socket, in non-blocking mode.
	log zerolog.Logger

	session     string
	shutdown    *atomic.Bool
	newTerminal func(session string) (ptySession, error)

	term    ptySession
	inbound []byte // Unparsed frame prefix, appended to by reads.
}

// handle runs the connection end to end. Every exit path releases
// whatever the connection acquired: the PTY child in the bridge's
// defer, the socket in the caller's.
func (c *conn) handle() {
	raw, err := c.readRequest()
	if err != nil {
		c.log.Debug().Err(err).Msg("failed to read HTTP request")
		return
	}

	req, err := parseRequest(raw)
	if err != nil {
		// No method/path separators: close without a response.
		c.log.Debug().Msg("malformed HTTP request")
		return
	}

	if req.wsKey != "" {
		if _, err := c.Write(upgradeResponse(req.wsKey)); err != nil {
			c.log.Debug().Err(err).Msg("failed to send upgrade response")
			return
		}
		c.log.Info().Str("path", req.path).Msg("WebSocket connection established")
		c.bridge()
		return
	}

	switch req.path {
	case "/", "/index.html":
		_, err = c.Write(httpResponse(200, "OK", "text/html", indexHTML))
	default:
		_, err = c.Write(httpResponse(404, "Not Found", "text/plain", []byte("404 Not Found")))
	}
	if err != nil {
		c.log.Debug().Err(err).Msg("failed to send HTTP response")
	}
	c.log.Info().Str("path", req.path).Msg("served HTTP request")
}

// readRequest reads the HTTP request into a fixed buffer. The common
// case is a single read, but it keeps reading until the blank-line
// terminator (or a full buffer) so a request split across segments
// still parses.
func (c *conn) readRequest() ([]byte, error) {
	buf := make([]byte, requestBufferSize)
	total := 0

	deadline := time.Now().Add(requestTimeout)
	for {
		if c.shutdown.Load() {
			return nil, errShutdown
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("no complete HTTP request after %v", requestTimeout)
		}

		ready, err := c.poll(unix.POLLIN)
		if err != nil {
			return nil, err
		}
		if !ready {
			continue
		}

		n, err := unix.Read(c.fd, buf[total:])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return nil, fmt.Errorf("socket read: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("peer closed before sending a request")
		}

		total += n
		if bytes.Contains(buf[:total], []byte("\r\n\r\n")) || total == len(buf) {
			return buf[:total], nil
		}
	}
}

// bridge is the per-connection event loop: it multiplexes readiness
// on the socket and the PTY master, decodes inbound frames into
// resize commands or raw input, and forwards PTY output as binary
// frames. It runs until either side closes or shutdown is signaled.
func (c *conn) bridge() {
	term, err := c.newTerminal(c.session)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to attach to multiplexer session")
		_ = websocket.SendText(c, fmt.Appendf(nil, "Failed to attach to tmux session %q", c.session))
		return
	}
	c.term = term
	defer term.Close()
	c.inbound = make([]byte, 0, inboundBufferSize)
	out := make([]byte, ptyReadSize)

	fds := []unix.PollFd{
		{Fd: int32(c.fd), Events: unix.POLLIN},
		{Fd: int32(term.Fd()), Events: unix.POLLIN},
	}

	for !c.shutdown.Load() && term.Alive() {
		fds[0].Revents, fds[1].Revents = 0, 0
		n, err := unix.Poll(fds, pollInterval)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			c.log.Warn().Err(err).Msg("poll failed")
			return
		}
		if n == 0 {
			continue
		}

		if fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			if !c.pumpSocket() {
				return
			}
		}

		if fds[1].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			n, err := term.Read(out)
			if err != nil {
				c.log.Debug().Msg("PTY closed")
				return
			}
			if n > 0 {
				if err := websocket.SendBinary(c, out[:n]); err != nil {
					c.log.Debug().Err(err).Msg("failed to forward PTY output")
					return
				}
			}
		}
	}
}

// pumpSocket appends newly readable socket bytes to the inbound
// buffer and dispatches every complete frame in it. It returns false
// when the bridge should exit: peer gone, protocol error, PTY write
// failure, or an inbound close.
func (c *conn) pumpSocket() bool {
	if len(c.inbound) == cap(c.inbound) {
		c.log.Warn().Int("limit", cap(c.inbound)).Msg("inbound frame exceeds buffer limit")
		_ = websocket.SendClose(c)
		return false
	}

	n, err := unix.Read(c.fd, c.inbound[len(c.inbound):cap(c.inbound)])
	if err != nil {
		return err == unix.EAGAIN || err == unix.EINTR
	}
	if n == 0 {
		c.log.Debug().Msg("peer closed the connection")
		return false
	}
	c.inbound = c.inbound[:len(c.inbound)+n]

	for len(c.inbound) > 0 {
		frame, consumed, err := websocket.Parse(c.inbound)
		if err != nil {
			c.log.Warn().Err(err).Msg("malformed frame")
			_ = websocket.SendClose(c)
			return false
		}
		if frame == nil {
			break // Incomplete frame, resume polling.
		}

		// Shift the unparsed suffix down before dispatching, so the
		// buffer is consistent even on an exit path.
		c.inbound = append(c.inbound[:0], c.inbound[consumed:]...)

		if !c.dispatch(frame) {
			return false
		}
	}
	return true
}

// dispatch routes one parsed frame. Text and binary payloads are
// either a resize command or raw keystrokes for the PTY.
func (c *conn) dispatch(frame *websocket.Frame) bool {
	switch frame.Opcode {
	case websocket.OpcodeText, websocket.OpcodeBinary:
		if len(frame.Payload) == 0 {
			return true
		}
		if frame.Payload[0] == '{' {
			var cols, rows int
			if n, _ := fmt.Sscanf(string(frame.Payload), resizePattern, &cols, &rows); n == 2 {
				if err := c.term.Resize(cols, rows); err != nil {
					c.log.Warn().Err(err).Int("cols", cols).Int("rows", rows).Msg("resize failed")
				} else {
					c.log.Debug().Int("cols", cols).Int("rows", rows).Msg("resized PTY")
				}
				return true
			}
		}
		if err := c.term.Write(frame.Payload); err != nil {
			c.log.Debug().Err(err).Msg("PTY write failed")
			return false
		}

	case websocket.OpcodePing:
		if err := websocket.SendPong(c, frame.Payload); err != nil {
			c.log.Debug().Err(err).Msg("failed to send pong")
			return false
		}

	case websocket.OpcodeClose:
		_ = websocket.SendClose(c)
		c.log.Info().Msg("client closed the connection")
		return false

	default:
		// Continuation and pong frames are ignored.
	}
	return true
}

// Write pushes the entire buffer to the non-blocking socket, waiting
// for writability whenever the send queue is full. It implements
// io.Writer so the frame senders can target the connection directly.
func (c *conn) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := unix.Write(c.fd, p[total:])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLOUT}}
				_, _ = unix.Poll(fds, pollInterval)
				continue
			}
			return total, fmt.Errorf("socket write: %w", err)
		}
		total += n
	}
	return total, nil
}

// poll waits for the requested readiness on the socket, bounded at
// the standard interval so shutdown is observed promptly.
func (c *conn) poll(events int16) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(c.fd), Events: events}}
	n, err := unix.Poll(fds, pollInterval)
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, fmt.Errorf("poll: %w", err)
	}
	return n > 0, nil
}
