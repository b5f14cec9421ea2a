package client

import (
	"encoding/json"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/d2verb/livectl/internal/frame"
	"github.com/d2verb/livectl/internal/protocol"
)

// reply tells the mock peer how to answer one command.
type reply struct {
	raw   string
	delay time.Duration
	close bool // close the socket after writing raw
	reset bool // abort the socket with RST instead of answering
	hang  bool // never answer
}

func success(result string) reply {
	return reply{raw: `{"status":"success","result":` + result + `}`}
}

func peerError(message string) reply {
	return reply{raw: `{"status":"error","message":"` + message + `"}`}
}

type handlerFunc func(connIndex int, cmd protocol.Command) reply

// mockPeer is a loopback TCP server speaking the wire protocol.
type mockPeer struct {
	ln      net.Listener
	accepts atomic.Int32

	mu       sync.Mutex
	received []protocol.Command
	conns    []net.Conn
}

// startPeer starts a mock peer. Connections are numbered from 1 in accept order.
func startPeer(t *testing.T, handler handlerFunc) *mockPeer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create mock peer: %v", err)
	}

	p := &mockPeer{ln: ln}
	var wg sync.WaitGroup
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return // Listener closed
			}
			idx := int(p.accepts.Add(1))
			p.mu.Lock()
			p.conns = append(p.conns, conn)
			p.mu.Unlock()
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.serve(conn, idx, handler)
			}()
		}
	}()

	t.Cleanup(func() {
		ln.Close()
		p.mu.Lock()
		for _, c := range p.conns {
			c.Close()
		}
		p.mu.Unlock()
		wg.Wait()
	})
	return p
}

// sessionHandler answers get_session_info and delegates everything else.
func sessionHandler(next handlerFunc) handlerFunc {
	return func(idx int, cmd protocol.Command) reply {
		if cmd.Type == protocol.CmdGetSessionInfo {
			return success(`{"tempo":120.0,"track_count":2}`)
		}
		return next(idx, cmd)
	}
}

func (p *mockPeer) serve(conn net.Conn, idx int, handler handlerFunc) {
	defer conn.Close()
	for {
		raw, err := frame.Read(conn, frame.Options{Timeout: 5 * time.Second})
		if err != nil {
			return
		}
		var cmd protocol.Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			return
		}
		p.mu.Lock()
		p.received = append(p.received, cmd)
		p.mu.Unlock()

		r := handler(idx, cmd)
		if r.hang {
			_, _ = io.Copy(io.Discard, conn)
			return
		}
		time.Sleep(r.delay)
		if r.reset {
			if tc, ok := conn.(*net.TCPConn); ok {
				_ = tc.SetLinger(0)
			}
			return
		}
		if _, err := conn.Write([]byte(r.raw)); err != nil {
			return
		}
		if r.close {
			return
		}
	}
}

func (p *mockPeer) port() int {
	return p.ln.Addr().(*net.TCPAddr).Port
}

func (p *mockPeer) commands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, len(p.received))
	for i, c := range p.received {
		names[i] = c.Type
	}
	return names
}

// testOptions points at p with fast timeouts and no settling.
func testOptions(p *mockPeer) Options {
	return Options{
		Host:          "127.0.0.1",
		Port:          p.port(),
		ReadTimeout:   2 * time.Second,
		ModifyTimeout: 2 * time.Second,
		RetryDelay:    10 * time.Millisecond,
		Settler:       NoSettle{},
	}
}

// recordingSettler records every settle call.
type recordingSettler struct {
	mu    sync.Mutex
	calls []settleCall
}

type settleCall struct {
	phase   Phase
	command string
}

func (s *recordingSettler) Settle(phase Phase, command string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, settleCall{phase, command})
}

func (s *recordingSettler) take() []settleCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.calls
	s.calls = nil
	return out
}
