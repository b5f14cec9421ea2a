package client

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/d2verb/livectl/internal/protocol"
)

// flakyDialer refuses the first refusals dials, then dials for real.
type flakyDialer struct {
	refusals int
	dials    atomic.Int32
	err      error
}

func (d *flakyDialer) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	n := int(d.dials.Add(1))
	if n <= d.refusals {
		return nil, d.err
	}
	var nd net.Dialer
	return nd.DialContext(ctx, network, addr)
}

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	m := NewManager(opts)
	t.Cleanup(m.Close)
	return m
}

func TestManager_RetryBound(t *testing.T) {
	refused := errors.New("connection refused")

	t.Run("accepts on third attempt", func(t *testing.T) {
		peer := startPeer(t, sessionHandler(nil))
		d := &flakyDialer{refusals: 2, err: refused}
		opts := testOptions(peer)
		opts.RetryDelay = 50 * time.Millisecond
		opts.Dial = d.dial
		m := newTestManager(t, opts)

		start := time.Now()
		conn, err := m.Get(context.Background())
		elapsed := time.Since(start)

		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !conn.Connected() {
			t.Error("returned Conn is not connected")
		}
		if n := d.dials.Load(); n != 3 {
			t.Errorf("dials = %d, want 3", n)
		}
		if elapsed < 100*time.Millisecond {
			t.Errorf("elapsed = %v, want >= two retry delays", elapsed)
		}
		if cmds := peer.commands(); len(cmds) != 1 || cmds[0] != protocol.CmdGetSessionInfo {
			t.Errorf("peer received %v, want one validation command", cmds)
		}
	})

	t.Run("always refused", func(t *testing.T) {
		d := &flakyDialer{refusals: 1 << 30, err: refused}
		m := newTestManager(t, Options{
			RetryDelay: 50 * time.Millisecond,
			Dial:       d.dial,
		})

		start := time.Now()
		conn, err := m.Get(context.Background())
		elapsed := time.Since(start)

		if conn != nil {
			t.Error("Get() returned a Conn, want nil")
		}
		if !IsUnavailable(err) {
			t.Fatalf("Get() error = %v, want unavailable", err)
		}
		if !errors.Is(err, refused) {
			t.Errorf("error = %v, want wrapping the last dial error", err)
		}
		if n := d.dials.Load(); n != 3 {
			t.Errorf("dials = %d, want exactly 3", n)
		}
		if elapsed < 100*time.Millisecond {
			t.Errorf("elapsed = %v, want >= 2 inter-attempt delays", elapsed)
		}
	})
}

func TestManager_ConnectAttemptsOption(t *testing.T) {
	d := &flakyDialer{refusals: 1 << 30, err: errors.New("refused")}
	m := newTestManager(t, Options{
		ConnectAttempts: 5,
		RetryDelay:      time.Millisecond,
		Dial:            d.dial,
	})

	if _, err := m.Get(context.Background()); !IsUnavailable(err) {
		t.Fatalf("Get() error = %v, want unavailable", err)
	}
	if n := d.dials.Load(); n != 5 {
		t.Errorf("dials = %d, want 5", n)
	}
}

func TestManager_NoDelayAfterLastAttempt(t *testing.T) {
	d := &flakyDialer{refusals: 1 << 30, err: errors.New("refused")}
	m := newTestManager(t, Options{
		ConnectAttempts: 1,
		RetryDelay:      time.Hour,
		Dial:            d.dial,
	})
	done := make(chan error, 1)

	go func() {
		_, err := m.Get(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		if !IsUnavailable(err) {
			t.Errorf("Get() error = %v, want unavailable", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Get() waited after its last attempt")
	}
}

func TestManager_ValidationFailureDiscardsConnection(t *testing.T) {
	peer := startPeer(t, func(idx int, cmd protocol.Command) reply {
		if idx == 1 {
			return peerError("session not ready")
		}
		return success(`{"tempo":120.0}`)
	})
	m := newTestManager(t, testOptions(peer))

	conn, err := m.Get(context.Background())

	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if conn == nil || !conn.Connected() {
		t.Fatal("Get() did not return a connected Conn")
	}
	if n := peer.accepts.Load(); n != 2 {
		t.Errorf("accepts = %d, want 2 (first connection failed validation)", n)
	}
}

func TestManager_ValidationTimeoutCountsAsAttempt(t *testing.T) {
	peer := startPeer(t, func(int, protocol.Command) reply { return reply{hang: true} })
	opts := testOptions(peer)
	opts.ReadTimeout = 30 * time.Millisecond
	m := newTestManager(t, opts)

	_, err := m.Get(context.Background())

	if !IsUnavailable(err) {
		t.Fatalf("Get() error = %v, want unavailable", err)
	}
	if KindOf(errors.Unwrap(err)) != KindTimeout {
		t.Errorf("last error = %v, want timeout", errors.Unwrap(err))
	}
}

func TestManager_ReusesLiveConnection(t *testing.T) {
	peer := startPeer(t, sessionHandler(nil))
	m := newTestManager(t, testOptions(peer))
	ctx := context.Background()

	first, err := m.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Error("Get() returned a different Conn for a live connection")
	}
	if n := peer.accepts.Load(); n != 1 {
		t.Errorf("accepts = %d, want 1", n)
	}
	if m.Current() != first {
		t.Error("Current() does not return the shared Conn")
	}
}

func TestManager_ReplacesDeadConnection(t *testing.T) {
	peer := startPeer(t, func(idx int, cmd protocol.Command) reply {
		if idx == 1 {
			r := success(`{}`)
			r.close = true
			return r
		}
		return success(`{}`)
	})
	m := newTestManager(t, testOptions(peer))
	ctx := context.Background()

	first, err := m.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	second, err := m.Get(ctx)

	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if first == second {
		t.Error("Get() returned the dead Conn")
	}
	if got := first.State(); got != StateClosed && got != StateStale {
		t.Errorf("old Conn state = %v, want stale or closed", got)
	}
	if n := peer.accepts.Load(); n != 2 {
		t.Errorf("accepts = %d, want 2", n)
	}
}

func TestManager_ContextCancelStopsRetrying(t *testing.T) {
	d := &flakyDialer{refusals: 1 << 30, err: errors.New("refused")}
	m := newTestManager(t, Options{
		RetryDelay: time.Hour,
		Dial:       d.dial,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := m.Get(ctx)

	if !IsCanceled(err) {
		t.Fatalf("Get() error = %v, want canceled", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want wrapping context.DeadlineExceeded", err)
	}
	if !strings.Contains(err.Error(), "after 1 of 3 attempts") {
		t.Errorf("error = %q, want the real attempt count", err)
	}
	if n := d.dials.Load(); n != 1 {
		t.Errorf("dials = %d, want 1", n)
	}
}

func TestManager_CanceledBeforeFirstAttempt(t *testing.T) {
	d := &flakyDialer{}
	m := newTestManager(t, Options{Dial: d.dial})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Get(ctx)

	if !IsCanceled(err) || !errors.Is(err, context.Canceled) {
		t.Fatalf("Get() error = %v, want canceled", err)
	}
	if !strings.Contains(err.Error(), "after 0 of 3 attempts") {
		t.Errorf("error = %q, want zero attempts reported", err)
	}
	if n := d.dials.Load(); n != 0 {
		t.Errorf("dials = %d, want 0", n)
	}
}

func TestManager_Close(t *testing.T) {
	peer := startPeer(t, sessionHandler(nil))
	m := newTestManager(t, testOptions(peer))

	conn, err := m.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	m.Close()
	m.Close()

	if conn.Connected() {
		t.Error("Conn still connected after Close")
	}
	if m.Current() != nil {
		t.Error("Current() != nil after Close")
	}
}
