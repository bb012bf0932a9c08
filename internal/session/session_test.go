package session

import (
	"sync"
	"testing"
	"time"

	"github.com/life-stream-dev/stomp-ws-broker/internal/frame"
	"github.com/life-stream-dev/stomp-ws-broker/internal/transport"
)

type fakeTransport struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
	state  transport.ReadyState
	h      transport.Handler
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{state: transport.Open}
}

func (f *fakeTransport) Bind(h transport.Handler) {
	f.h = h
	h.OnConnection()
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.state = transport.Closed
	return nil
}

func (f *fakeTransport) ReadyState() transport.ReadyState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func TestSessionStartsOpeningThenConnect(t *testing.T) {
	ft := newFakeTransport()
	s := New("s1", ft, nil)
	if s.State() != StateOpening {
		t.Fatalf("State() = %v, want opening", s.State())
	}
	s.SetState(StateConnected)
	if !s.Connected() {
		t.Fatal("Connected() should be true after SetState(StateConnected)")
	}
}

func TestPseudoSessionStartsConnected(t *testing.T) {
	s := New("self_1234", nil, nil)
	if !s.IsPseudo() {
		t.Fatal("IsPseudo() should be true for a nil-transport session")
	}
	if !s.Connected() {
		t.Fatal("pseudo-session should start connected")
	}
}

func TestOnMessageDispatchesFrame(t *testing.T) {
	ft := newFakeTransport()
	s := New("s1", ft, nil)

	var got *frame.Frame
	s.SetFrameHandler(func(sess *Session, fr *frame.Frame) {
		got = fr
	})

	ft.h.OnMessage([]byte("SEND\ndestination:/foo\n\nhi\x00"))

	if got == nil || got.Command != frame.CommandSend {
		t.Fatalf("frame handler did not receive SEND frame: %+v", got)
	}
}

func TestOnMessageHeartbeatNotDispatched(t *testing.T) {
	ft := newFakeTransport()
	s := New("s1", ft, nil)

	called := false
	s.SetFrameHandler(func(sess *Session, fr *frame.Frame) {
		called = true
	})

	before := s.LastRxMS()
	time.Sleep(time.Millisecond)
	ft.h.OnMessage([]byte("\n"))

	if called {
		t.Fatal("a bare LF heartbeat must not be dispatched as a frame")
	}
	if s.LastRxMS() <= before {
		t.Fatal("LastRxMS should advance on a heartbeat")
	}
}

func TestOnMessageMalformedInvokesProtocolError(t *testing.T) {
	ft := newFakeTransport()
	s := New("s1", ft, nil)

	var errSeen error
	s.SetProtocolErrorHandler(func(sess *Session, err error) {
		errSeen = err
	})
	ft.h.OnMessage([]byte("not a frame"))

	if errSeen == nil {
		t.Fatal("expected a protocol error for a malformed payload")
	}
}

func TestTeardownIsIdempotentAndRunsTeardownHandlerOnce(t *testing.T) {
	ft := newFakeTransport()
	s := New("s1", ft, nil)

	var disarmed int
	s.SetHeartbeatDisarm(func() { disarmed++ })

	var teardownCount int
	s.SetTeardownHandler(func(sess *Session) { teardownCount++ })

	s.Teardown()
	s.Teardown()

	if disarmed != 1 {
		t.Fatalf("heartbeat disarm called %d times, want 1", disarmed)
	}
	if teardownCount != 1 {
		t.Fatalf("teardown handler called %d times, want 1", teardownCount)
	}
	if !ft.closed {
		t.Fatal("transport should be closed after teardown")
	}
	if s.State() != StateClosed {
		t.Fatalf("State() = %v, want closed", s.State())
	}
}

func TestLastRxMonotonic(t *testing.T) {
	ft := newFakeTransport()
	s := New("s1", ft, nil)
	s.touchRx(100)
	s.touchRx(50)
	if s.LastRxMS() != 100 {
		t.Fatalf("LastRxMS() = %d, want 100 (monotonic non-decreasing)", s.LastRxMS())
	}
	s.touchRx(150)
	if s.LastRxMS() != 150 {
		t.Fatalf("LastRxMS() = %d, want 150", s.LastRxMS())
	}
}
