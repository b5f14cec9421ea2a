package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/d2verb/livectl/internal/frame"
	"github.com/d2verb/livectl/internal/protocol"
)

// State is the lifecycle state of a Conn.
type State int

const (
	StateUnconnected State = iota
	StateConnecting
	StateConnected
	// StateStale means the socket was dropped after a failure.
	StateStale
	// StateClosed means Disconnect was called.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateStale:
		return "stale"
	case StateClosed:
		return "closed"
	default:
		return "unconnected"
	}
}

// rawLogLimit is how much of an unparseable frame gets logged.
const rawLogLimit = 200

// probeReadWindow is how long Probe waits for unsolicited bytes.
const probeReadWindow = time.Millisecond

// Conn owns one TCP socket to the peer. Requests are strictly half-duplex:
// the lock is held from the first written byte to the last read byte.
type Conn struct {
	opts Options
	log  *slog.Logger

	mu    sync.Mutex
	nc    net.Conn
	state State
}

// NewConn creates an unconnected Conn.
func NewConn(opts Options) *Conn {
	opts = opts.withDefaults()
	return &Conn{
		opts: opts,
		log:  opts.Logger,
	}
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the Conn holds a socket.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nc != nil
}

// Connect opens the socket. It is a no-op when already connected.
// A failed attempt leaves the Conn unconnected and returns a KindTransport error.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Conn) connectLocked(ctx context.Context) error {
	if c.nc != nil {
		return nil
	}

	c.state = StateConnecting
	dialCtx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()

	addr := c.opts.Addr()
	nc, err := c.opts.Dial(dialCtx, "tcp", addr)
	if err != nil {
		c.state = StateUnconnected
		c.log.Debug("connect failed", "addr", addr, "error", err)
		return &Error{Kind: KindTransport, Message: "connect to " + addr, Err: err}
	}

	c.nc = nc
	c.state = StateConnected
	c.log.Debug("connected", "addr", addr)
	return nil
}

// Disconnect closes the socket if present. Close errors are logged only.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked(StateClosed)
}

func (c *Conn) dropLocked(next State) {
	if c.nc != nil {
		if err := c.nc.Close(); err != nil {
			c.log.Debug("close socket", "error", err)
		}
		c.nc = nil
	}
	c.state = next
}

// Probe checks that the socket is still usable: a zero-byte write must
// succeed within ProbeTimeout, and the peer must not have closed the stream
// or sent bytes nobody asked for. A failed probe drops the socket.
func (c *Conn) Probe() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nc == nil {
		return &Error{Kind: KindClosed, Message: "not connected"}
	}

	if err := c.probeLocked(); err != nil {
		c.log.Debug("probe failed", "error", err)
		c.dropLocked(StateStale)
		return err
	}
	return nil
}

func (c *Conn) probeLocked() error {
	if err := c.nc.SetWriteDeadline(time.Now().Add(c.opts.ProbeTimeout)); err != nil {
		return &Error{Kind: KindTransport, Message: "probe", Err: err}
	}
	if _, err := c.nc.Write(nil); err != nil {
		return &Error{Kind: frameKind(err), Message: "probe", Err: err}
	}

	if err := c.nc.SetReadDeadline(time.Now().Add(probeReadWindow)); err != nil {
		return &Error{Kind: KindTransport, Message: "probe", Err: err}
	}
	var one [1]byte
	n, err := c.nc.Read(one[:])
	switch {
	case n > 0:
		return &Error{Kind: KindInvalid, Message: "probe: unsolicited data from peer"}
	case err == nil, frame.IsTimeout(err):
	case errors.Is(err, io.EOF):
		return &Error{Kind: KindClosed, Message: "probe", Err: err}
	default:
		return &Error{Kind: KindTransport, Message: "probe", Err: err}
	}

	if err := c.nc.SetDeadline(time.Time{}); err != nil {
		return &Error{Kind: KindTransport, Message: "probe", Err: err}
	}
	return nil
}

// SendCommand sends one command and waits for its response, returning the
// result map on success. Transport, timeout and framing failures drop the
// socket; a peer error leaves it open.
func (c *Conn) SendCommand(ctx context.Context, command string, params map[string]any) (map[string]any, error) {
	return c.send(ctx, c.log.With("command", command), command, params)
}

func (c *Conn) send(ctx context.Context, log *slog.Logger, command string, params map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: KindCanceled, Command: command, Err: err}
	}

	payload, err := json.Marshal(protocol.NewCommand(command, params))
	if err != nil {
		return nil, &Error{Kind: KindEncode, Command: command, Message: "marshal command", Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.Command = command
		}
		return nil, err
	}

	class := c.opts.Classifier.Classify(command)
	timeout := c.opts.timeoutFor(class)
	modifying := class == protocol.ClassModify

	if err := c.nc.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return nil, c.failLocked(log, command, KindTransport, "set write deadline", err)
	}
	if err := writeFull(c.nc, payload); err != nil {
		return nil, c.failLocked(log, command, frameKind(err), "write command", err)
	}

	if modifying {
		c.opts.Settler.Settle(BeforeResponse, command)
	}

	raw, err := frame.Read(c.nc, frame.Options{
		ChunkSize: c.opts.ChunkSize,
		Timeout:   timeout,
		MaxBytes:  c.opts.MaxFrameBytes,
	})
	if err != nil {
		kind := frameKind(err)
		if kind == KindInvalid || kind == KindIncomplete {
			log.Error("unusable response frame", "received", len(raw), "raw", truncate(raw, rawLogLimit))
		}
		return nil, c.failLocked(log, command, kind, "read response", err)
	}

	var resp protocol.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		log.Error("invalid response", "raw", truncate(raw, rawLogLimit))
		return nil, c.failLocked(log, command, KindInvalid, "decode response", err)
	}
	if err := resp.Validate(); err != nil {
		log.Error("invalid response", "raw", truncate(raw, rawLogLimit))
		return nil, c.failLocked(log, command, KindInvalid, "", err)
	}
	log.Debug("response received", "request_bytes", len(payload), "response_bytes", len(raw))

	if resp.IsError() {
		msg := resp.Message
		if msg == "" {
			msg = "unknown error from peer"
		}
		return nil, &Error{Kind: KindPeer, Command: command, Message: msg}
	}

	if modifying {
		c.opts.Settler.Settle(AfterResponse, command)
	}

	if resp.Result == nil {
		return map[string]any{}, nil
	}
	return resp.Result, nil
}

// failLocked drops the socket and builds the error for a transport-class failure.
func (c *Conn) failLocked(log *slog.Logger, command string, kind Kind, msg string, err error) error {
	c.dropLocked(StateStale)
	log.Debug("connection dropped", "kind", kind.String(), "error", err)
	return &Error{Kind: kind, Command: command, Message: msg, Err: err}
}

// writeFull writes all of p, looping on short writes.
func writeFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
