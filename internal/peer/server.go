package peer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/d2verb/livectl/internal/frame"
	"github.com/d2verb/livectl/internal/logging"
	"github.com/d2verb/livectl/internal/protocol"
)

// DefaultAddr is where the Live remote script listens.
const DefaultAddr = "127.0.0.1:9877"

// Options configures a Server.
type Options struct {
	Addr string
	// Delay is applied before every response.
	Delay  time.Duration
	Logger *slog.Logger
}

// Server accepts client connections and answers commands from a Session.
type Server struct {
	session  *Session
	opts     Options
	logger   *slog.Logger
	listener net.Listener

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	closing bool
	wg      sync.WaitGroup
}

// NewServer creates a server for session.
func NewServer(session *Session, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		session: session,
		opts:    opts,
		logger:  logger,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Start starts listening on the TCP address.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.logger.Info("peer listening", "addr", listener.Addr().String())

	s.wg.Add(1)
	go s.acceptLoop(ctx)
	return nil
}

// Addr returns the address the server is bound to.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.opts.Addr
	}
	return s.listener.Addr().String()
}

// Stop closes the listener and every open connection, then waits for
// connection handlers to return.
func (s *Server) Stop() error {
	if s.listener == nil {
		return nil
	}
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	err := s.listener.Close()

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
				continue
			}
		}

		s.mu.Lock()
		if s.closing {
			s.mu.Unlock()
			conn.Close()
			continue
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	log := s.logger.With("conn_id", uuid.NewString(), "remote", conn.RemoteAddr().String())
	log.Info("client connected")

	for {
		raw, err := frame.Read(conn, frame.Options{})
		if err != nil {
			switch {
			case errors.Is(err, frame.ErrClosed), errors.Is(err, net.ErrClosed):
				log.Info("client disconnected")
			case errors.Is(err, frame.ErrMalformed), errors.Is(err, frame.ErrTrailingData), errors.Is(err, frame.ErrTooLarge):
				log.Warn("invalid request", "error", err)
				s.writeResponse(log, conn, protocol.NewErrorResponse("Invalid JSON: "+err.Error()))
			default:
				log.Warn("read request", "error", err)
			}
			return
		}

		var cmd protocol.Command
		if err := json.Unmarshal(raw, &cmd); err != nil || cmd.Type == "" {
			log.Warn("invalid command", "error", err)
			s.writeResponse(log, conn, protocol.NewErrorResponse("Invalid command"))
			continue
		}

		resp := s.handleRequest(ctx, log, cmd)
		if !s.writeResponse(log, conn, resp) {
			return
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, log *slog.Logger, cmd protocol.Command) *protocol.Response {
	if s.opts.Delay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(s.opts.Delay):
		}
	}

	resp := s.session.Handle(cmd)
	if resp.IsError() {
		log.Warn("command failed", "command", cmd.Type, "message", resp.Message)
	} else {
		log.Debug("command handled", "command", cmd.Type)
	}
	return resp
}

// writeResponse writes one response with no delimiter.
func (s *Server) writeResponse(log *slog.Logger, conn net.Conn, resp *protocol.Response) bool {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Error("marshal response", "error", err)
		return false
	}
	if _, err := conn.Write(data); err != nil {
		log.Warn("write response", "error", err)
		return false
	}
	return true
}
