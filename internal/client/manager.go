package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Manager hands out the one shared Conn, replacing it when it goes stale.
type Manager struct {
	opts Options
	log  *slog.Logger

	mu   sync.Mutex
	conn *Conn
}

// NewManager creates a Manager. No connection is made until Get.
func NewManager(opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		opts: opts,
		log:  opts.Logger,
	}
}

// Get returns a live, validated Conn. An existing Conn is probed first and
// discarded if the probe fails. A new Conn gets up to ConnectAttempts tries,
// RetryDelay apart, each validated with ValidateCommand. When every attempt
// fails the error is KindUnavailable wrapping the last failure; if ctx ends
// first it is KindCanceled.
func (m *Manager) Get(ctx context.Context) (*Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		err := m.conn.Probe()
		if err == nil {
			return m.conn, nil
		}
		m.log.Warn("existing connection is no longer valid", "error", err)
		m.conn.Disconnect()
		m.conn = nil
	}

	addr := m.opts.Addr()
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= m.opts.ConnectAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, m.canceled(addr, attempts, err)
		}
		attempts = attempt
		m.log.Info("connecting to peer", "addr", addr, "attempt", attempt, "max_attempts", m.opts.ConnectAttempts)

		conn, err := m.establish(ctx)
		if err == nil {
			m.log.Info("connected to peer", "addr", addr, "attempt", attempt)
			m.conn = conn
			return conn, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, m.canceled(addr, attempts, ctxErr)
		}
		lastErr = err
		m.log.Warn("connection attempt failed", "addr", addr, "attempt", attempt, "error", err)

		if attempt < m.opts.ConnectAttempts {
			if err := sleepCtx(ctx, m.opts.RetryDelay); err != nil {
				return nil, m.canceled(addr, attempts, err)
			}
		}
	}

	m.log.Error("peer unavailable", "addr", addr, "attempts", attempts, "error", lastErr)
	return nil, &Error{
		Kind:    KindUnavailable,
		Message: fmt.Sprintf("could not connect to %s after %d attempts", addr, attempts),
		Err:     lastErr,
	}
}

func (m *Manager) canceled(addr string, attempts int, err error) *Error {
	m.log.Warn("connect canceled", "addr", addr, "attempts", attempts, "error", err)
	return &Error{
		Kind:    KindCanceled,
		Message: fmt.Sprintf("connect to %s canceled after %d of %d attempts", addr, attempts, m.opts.ConnectAttempts),
		Err:     err,
	}
}

func (m *Manager) establish(ctx context.Context) (*Conn, error) {
	conn := NewConn(m.opts)
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}
	if _, err := conn.SendCommand(ctx, m.opts.ValidateCommand, nil); err != nil {
		conn.Disconnect()
		return nil, fmt.Errorf("validate connection: %w", err)
	}
	return conn, nil
}

// Current returns the shared Conn without probing it, or nil.
func (m *Manager) Current() *Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

// Close disconnects the shared Conn, if any.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		m.conn.Disconnect()
		m.conn = nil
		m.log.Info("disconnected from peer")
	}
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
