// Package server exposes a running tmux session to web browsers.
//
// It serves a single embedded terminal page over plain HTTP/1.1 and
// upgrades any request carrying a Sec-WebSocket-Key to a framed
// transport. Each accepted connection is handed to its own goroutine,
// which owns the socket, the PTY-backed multiplexer client, and the
// bridge loop between them. Connections share nothing but their
// server's shutdown flag.
package server

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/webmux/webmux/pkg/terminal"
)

var errShutdown = errors.New("server: shutting down")

// Config is the server's immutable startup configuration.
type Config struct {
	BindAddr string // TCP address to bind to, "" or "0.0.0.0" for all.
	Port     int
	Session  string // Multiplexer session every client attaches to.
}

// Server is the TCP listener and dispatcher. Create with [New], then
// call [Server.Run].
type Server struct {
	cfg      Config
	ln       net.Listener
	shutdown atomic.Bool
}

func New(cfg Config) *Server {
	return &Server{cfg: cfg}
}

// Listen binds the configured TCP address. Failures here are fatal
// for the process.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.cfg.BindAddr, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln

	log.Info().Str("addr", ln.Addr().String()).Str("session", s.cfg.Session).
		Msg("server listening")
	return nil
}

// Addr returns the bound listener address, for callers that
// configured port 0.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until shutdown, dispatching each one to
// an isolated goroutine. Accept errors during normal operation are
// logged and survived; the loop only exits on shutdown.
func (s *Server) Serve() error {
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			if s.shutdown.Load() || errors.Is(err, net.ErrClosed) {
				log.Info().Msg("server stopped")
				return nil
			}
			log.Warn().Err(err).Msg("accept failed")
			continue
		}

		log.Info().Str("remote_addr", nc.RemoteAddr().String()).Msg("connection accepted")
		go s.handle(nc)
	}
}

// Run is Listen followed by Serve, with the shutdown tied to the
// given context: once it is canceled, the listening socket closes
// (unblocking the accept) and in-flight bridges unwind on their next
// poll cycle.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	return s.Serve()
}

// Shutdown raises the server's shutdown flag and closes the
// listener. Safe to call more than once, and from any goroutine.
func (s *Server) Shutdown() {
	if !s.shutdown.Swap(true) && s.ln != nil {
		_ = s.ln.Close()
	}
}

// handle turns an accepted socket into a connection owned by this
// goroutine and runs it to completion. The net.Conn is dropped in
// favor of a dup'd fd, because the bridge multiplexes raw readiness
// across the socket and the PTY master.
func (s *Server) handle(nc net.Conn) {
	l := log.With().
		Str("conn_id", shortuuid.New()).
		Str("remote_addr", nc.RemoteAddr().String()).
		Logger()

	tc, ok := nc.(*net.TCPConn)
	if !ok {
		_ = nc.Close()
		return
	}
	file, err := tc.File()
	_ = nc.Close()
	if err != nil {
		l.Warn().Err(err).Msg("failed to detach socket")
		return
	}
	defer func() {
		_ = file.Close()
		l.Debug().Msg("connection closed")
	}()

	// File puts the fd in blocking mode; undo that for the poll loop.
	fd := int(file.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		l.Warn().Err(err).Msg("failed to set socket to non-blocking mode")
		return
	}

	c := &conn{
		fd:       fd,
		log:      l,
		session:  s.cfg.Session,
		shutdown: &s.shutdown,
		newTerminal: func(session string) (ptySession, error) {
			t, err := terminal.Create(session)
			if err != nil {
				return nil, err
			}
			return t, nil
		},
	}
	c.handle()
}
