// Package transport defines the abstraction the broker core consumes
// for byte-level connectivity. The core never speaks WebSocket or HTTP
// directly; it only ever talks to this interface. internal/transport/ws provides the
// one concrete, production-shaped implementation this repo ships.
package transport

// ReadyState mirrors the WebSocket readyState probe.
type ReadyState int

const (
	Connecting ReadyState = iota
	Open
	Closing
	Closed
)

func (s ReadyState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Handler receives the events a Transport reports. The broker's
// session type implements Handler and Binds itself to a Transport on
// construction.
type Handler interface {
	OnConnection()
	OnMessage(data []byte)
	OnClose()
	OnError(err error)
}

// Transport is the byte-level connection abstraction the broker core
// depends on. Every method must be safe to call from multiple
// goroutines; Send in particular is called concurrently (heartbeat
// beacons alongside frame writes), so implementations serialize writes
// internally.
type Transport interface {
	// Bind registers the handler that OnMessage/OnClose/OnError/
	// OnConnection events are delivered to. Implementations call
	// handler.OnConnection once binding completes.
	Bind(handler Handler)

	// Send writes one message (one STOMP frame or a single heartbeat
	// LF) to the peer.
	Send(data []byte) error

	// Close closes the underlying connection. Close must be safe to
	// call more than once.
	Close() error

	// ReadyState reports the current connection state.
	ReadyState() ReadyState
}
