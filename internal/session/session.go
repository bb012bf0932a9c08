// Package session implements per-connection broker state: identity,
// negotiated heartbeat, connection state machine, and the entry point
// that turns raw transport bytes into dispatched frames.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/life-stream-dev/stomp-ws-broker/internal/frame"
	"github.com/life-stream-dev/stomp-ws-broker/internal/transport"
)

// State is one of the broker's connection lifecycle states.
type State int32

const (
	StateOpening State = iota
	StateConnected
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Heartbeat holds the two independently-negotiated heartbeat intervals
// in milliseconds, 0 meaning disarmed.
type Heartbeat struct {
	ServerSendMS   int
	ClientExpectMS int
}

// FrameHandler is invoked once per parsed, non-heartbeat frame received
// on the session. The broker wires this to its command dispatch.
type FrameHandler func(s *Session, fr *frame.Frame)

// ProtocolErrorHandler is invoked when a transport payload fails to
// parse as either a heartbeat or a frame.
type ProtocolErrorHandler func(s *Session, err error)

// TransportErrorHandler is invoked when the transport reports a
// failure, just before the session is torn down.
type TransportErrorHandler func(s *Session, err error)

// TeardownHandler is invoked exactly once when a session is torn down,
// after the session's own cleanup (heartbeat disarm, transport close)
// has run. The broker uses this to purge the subscription registry and
// emit the disconnected event.
type TeardownHandler func(s *Session)

// Session is a single connection's broker-side state. The
// pseudo-session representing the embedding host is a Session with a
// nil Transport.
type Session struct {
	ID        string
	Transport transport.Transport
	Metadata  any

	state    atomic.Int32
	lastRxMS atomic.Int64

	heartbeat       Heartbeat
	heartbeatMu     sync.Mutex
	disarmHeartbeat func()

	dispatchSem *semaphore.Weighted

	onFrame          FrameHandler
	onProtocolError  ProtocolErrorHandler
	onTransportError TransportErrorHandler
	onTeardown       TeardownHandler

	teardownOnce sync.Once

	Logger *slog.Logger
}

// New constructs a Session bound to t. t may be nil for the in-process
// pseudo-session, in which case the session is immediately Connected
// (the host has no handshake to perform).
func New(id string, t transport.Transport, logger *slog.Logger) *Session {
	s := &Session{
		ID:          id,
		Transport:   t,
		dispatchSem: semaphore.NewWeighted(1),
		Logger:      logger,
	}
	if t == nil {
		s.state.Store(int32(StateConnected))
	} else {
		s.state.Store(int32(StateOpening))
		t.Bind(s)
	}
	return s
}

// IsPseudo reports whether this is the in-process host pseudo-session.
func (s *Session) IsPseudo() bool {
	return s.Transport == nil
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// SetState transitions the session to state. Callers are responsible
// for only making valid transitions (opening→connected→closing→closed).
func (s *Session) SetState(state State) {
	s.state.Store(int32(state))
}

// Connected reports whether the session may SEND/SUBSCRIBE/UNSUBSCRIBE.
func (s *Session) Connected() bool {
	return s.State() == StateConnected
}

// SetFrameHandler registers the callback invoked for every parsed
// non-heartbeat frame.
func (s *Session) SetFrameHandler(h FrameHandler) {
	s.onFrame = h
}

// SetProtocolErrorHandler registers the callback invoked when a
// transport payload cannot be parsed.
func (s *Session) SetProtocolErrorHandler(h ProtocolErrorHandler) {
	s.onProtocolError = h
}

// SetTransportErrorHandler registers the callback invoked when the
// transport reports a failure.
func (s *Session) SetTransportErrorHandler(h TransportErrorHandler) {
	s.onTransportError = h
}

// SetTeardownHandler registers the callback invoked once on teardown.
func (s *Session) SetTeardownHandler(h TeardownHandler) {
	s.onTeardown = h
}

// LastRxMS returns the timestamp, in epoch milliseconds, of the last
// byte received from the transport.
func (s *Session) LastRxMS() int64 {
	return s.lastRxMS.Load()
}

// touchRx advances lastRxMS monotonically.
func (s *Session) touchRx(nowMS int64) {
	for {
		cur := s.lastRxMS.Load()
		if nowMS <= cur {
			return
		}
		if s.lastRxMS.CompareAndSwap(cur, nowMS) {
			return
		}
	}
}

// SetNegotiatedHeartbeat records the CONNECT-negotiated intervals so
// the heartbeat supervisor (armed separately) can read them back.
func (s *Session) SetNegotiatedHeartbeat(hb Heartbeat) {
	s.heartbeatMu.Lock()
	defer s.heartbeatMu.Unlock()
	s.heartbeat = hb
}

// NegotiatedHeartbeat returns the heartbeat intervals negotiated at
// CONNECT time.
func (s *Session) NegotiatedHeartbeat() Heartbeat {
	s.heartbeatMu.Lock()
	defer s.heartbeatMu.Unlock()
	return s.heartbeat
}

// SetHeartbeatDisarm registers the function that stops any armed
// heartbeat timers; Teardown calls it exactly once.
func (s *Session) SetHeartbeatDisarm(disarm func()) {
	s.heartbeatMu.Lock()
	defer s.heartbeatMu.Unlock()
	s.disarmHeartbeat = disarm
}

// Send serializes and writes fr to the transport. Self-suppression and
// subscription-id overlay are the caller's responsibility (command.Send).
func (s *Session) Send(fr *frame.Frame) error {
	if s.Transport == nil {
		return nil
	}
	return s.Transport.Send(frame.Serialize(fr))
}

// --- transport.Handler ---

// OnConnection is called by the transport once the connection is
// established. The STOMP handshake itself happens on the first CONNECT
// frame, not here.
func (s *Session) OnConnection() {
	if s.Logger != nil {
		s.Logger.Debug("transport connected", "session", s.ID)
	}
}

// OnMessage is called by the transport for every message-framed
// payload: either a STOMP frame or a single heartbeat LF.
func (s *Session) OnMessage(data []byte) {
	s.touchRx(time.Now().UnixMilli())

	if frame.IsHeartbeat(data) {
		return
	}

	// Per-session serial dispatch: block rather than drop so
	// frames are never silently skipped under a worker-pool scheduler.
	if err := s.dispatchSem.Acquire(context.Background(), 1); err != nil {
		return
	}
	defer s.dispatchSem.Release(1)

	fr, err := frame.Parse(data)
	if err != nil {
		if s.onProtocolError != nil {
			s.onProtocolError(s, err)
		}
		return
	}
	if s.onFrame != nil {
		s.onFrame(s, fr)
	}
}

// OnClose is called by the transport when the underlying connection
// closes, from either end.
func (s *Session) OnClose() {
	s.Teardown()
}

// OnError is called by the transport on a transport-level error; the
// broker treats it as an imminent close.
func (s *Session) OnError(err error) {
	if s.Logger != nil {
		s.Logger.Warn("transport error", "session", s.ID, "error", err)
	}
	if s.onTransportError != nil {
		s.onTransportError(s, err)
	}
	s.Teardown()
}

// Teardown releases every resource the session owns: subscriptions
// (via onTeardown), heartbeat timers, and the transport. Idempotent.
func (s *Session) Teardown() {
	s.teardownOnce.Do(func() {
		s.SetState(StateClosing)

		s.heartbeatMu.Lock()
		disarm := s.disarmHeartbeat
		s.heartbeatMu.Unlock()
		if disarm != nil {
			disarm()
		}

		if s.Transport != nil && s.Transport.ReadyState() != transport.Closed {
			_ = s.Transport.Close()
		}

		s.SetState(StateClosed)

		if s.onTeardown != nil {
			s.onTeardown(s)
		}
	})
}
