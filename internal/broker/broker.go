// Package broker is the embeddable STOMP broker façade: it wires the
// frame codec, destination matcher, subscription registry, middleware
// pipeline, session lifecycle, heartbeat supervisor, and command
// handlers into the single object a host program embeds.
package broker

import (
	"encoding/json"
	"log/slog"
	"sync"

	uuid "github.com/satori/go.uuid"

	"github.com/life-stream-dev/stomp-ws-broker/internal/command"
	"github.com/life-stream-dev/stomp-ws-broker/internal/config"
	"github.com/life-stream-dev/stomp-ws-broker/internal/frame"
	"github.com/life-stream-dev/stomp-ws-broker/internal/heartbeat"
	"github.com/life-stream-dev/stomp-ws-broker/internal/logger"
	"github.com/life-stream-dev/stomp-ws-broker/internal/middleware"
	"github.com/life-stream-dev/stomp-ws-broker/internal/registry"
	"github.com/life-stream-dev/stomp-ws-broker/internal/session"
	"github.com/life-stream-dev/stomp-ws-broker/internal/transport"
)

// PseudoSessionID is the well-known session-id representing the
// embedding host.
const PseudoSessionID = "self_1234"

// Broker is a single STOMP broker instance: one subscription registry,
// one middleware registry, one set of live sessions, and the
// in-process pseudo-session.
type Broker struct {
	cfg    config.Config
	log    *slog.Logger
	events *EventBus

	registry   *registry.Registry
	middleware *middleware.Registry
	cmdDeps    *command.Deps

	mu       sync.RWMutex
	sessions map[string]*session.Session

	pseudo *session.Session
}

// New constructs a Broker from cfg. A nil log defaults to a discarding
// logger, so a host that wants no diagnostics passes nil.
func New(cfg config.Config, log *slog.Logger) *Broker {
	if log == nil {
		log = logger.Discard()
	}

	b := &Broker{
		cfg:      cfg,
		log:      log,
		events:   newEventBus(),
		registry: registry.New(),
		sessions: make(map[string]*session.Session),
	}

	b.cmdDeps = &command.Deps{
		Registry:   b.registry,
		ServerName: cfg.ServerName,
		Heartbeat: command.HeartbeatConfig{
			ServerSendMS:   cfg.Heartbeat[0],
			ServerExpectMS: cfg.Heartbeat[1],
			ErrorMarginMS:  cfg.HeartbeatErrorMarginMS,
		},
		NextID:       newID,
		Emit:         b.events.Emit,
		ArmHeartbeat: heartbeat.Arm,
		Lookup:       b.lookup,
	}

	b.middleware = middleware.NewRegistry(map[string]middleware.Terminal{
		middleware.Connect:     b.cmdDeps.Connect,
		middleware.Disconnect:  b.cmdDeps.Disconnect,
		middleware.Send:        b.cmdDeps.Send,
		middleware.Subscribe:   b.cmdDeps.Subscribe,
		middleware.Unsubscribe: b.cmdDeps.Unsubscribe,
	})

	b.pseudo = session.New(PseudoSessionID, nil, log)

	return b
}

// newID mints a fresh opaque id for sessions, subscriptions, and
// messages.
func newID() string {
	return uuid.NewV4().String()
}

// Use appends interceptor to cmd's chain. cmd is one
// of the middleware.Connect/Send/Subscribe/Unsubscribe/Disconnect
// command names.
func (b *Broker) Use(cmd string, interceptor middleware.Interceptor) {
	b.middleware.Add(cmd, interceptor)
}

// SetInterceptor replaces cmd's entire chain with interceptor.
func (b *Broker) SetInterceptor(cmd string, interceptor middleware.Interceptor) {
	b.middleware.Set(cmd, interceptor)
}

// RemoveInterceptor removes the first interceptor equal to interceptor
// from cmd's chain.
func (b *Broker) RemoveInterceptor(cmd string, interceptor middleware.Interceptor) {
	b.middleware.Remove(cmd, interceptor)
}

// On registers fn for event.
func (b *Broker) On(event string, fn func(payload any)) {
	b.events.On(event, fn)
}

// HandleConnection adopts a freshly-accepted transport as a new
// session: binds it, wires dispatch, and emits the connecting event.
// The host's transport adapter (e.g. internal/transport/ws) calls this
// once per accepted connection.
func (b *Broker) HandleConnection(t transport.Transport) *session.Session {
	id := newID()
	sess := session.New(id, t, b.log)
	sess.SetFrameHandler(b.route)
	sess.SetProtocolErrorHandler(b.protocolError)
	sess.SetTransportErrorHandler(b.transportError)
	sess.SetTeardownHandler(b.teardown)

	b.mu.Lock()
	b.sessions[id] = sess
	b.mu.Unlock()

	b.events.Emit(command.EventConnecting, id)
	return sess
}

// Close tears every live session down, disarming heartbeat timers and
// closing transports.
func (b *Broker) Close() {
	b.mu.RLock()
	live := make([]*session.Session, 0, len(b.sessions))
	for _, s := range b.sessions {
		live = append(live, s)
	}
	b.mu.RUnlock()

	for _, s := range live {
		s.Teardown()
	}
}

// route dispatches a parsed frame to its command's middleware pipeline,
// enforcing that only CONNECT/STOMP is accepted before the session is
// connected.
func (b *Broker) route(sess *session.Session, fr *frame.Frame) {
	var cmd string
	switch fr.Command {
	case frame.CommandConnect, frame.CommandStomp:
		cmd = middleware.Connect
	case frame.CommandSend:
		cmd = middleware.Send
	case frame.CommandSubscribe:
		cmd = middleware.Subscribe
	case frame.CommandUnsubscribe:
		cmd = middleware.Unsubscribe
	case frame.CommandDisconnect:
		cmd = middleware.Disconnect
	default:
		_ = sess.Send(errorFrame("Command not found"))
		return
	}

	if cmd != middleware.Connect && !sess.Connected() {
		_ = sess.Send(errorFrame("Not connected"))
		sess.Teardown()
		return
	}

	if cmd == middleware.Send {
		if err := decodeJSONBody(fr); err != nil {
			_ = sess.Send(errorFrame("Malformed application/json body: " + err.Error()))
			return
		}
	}

	b.middleware.Run(cmd, sess, fr)
}

// decodeJSONBody populates fr.Data for a SEND whose content-type is
// application/json, so middleware and the terminal handler observe the
// structured value. Any other content-type passes through untouched.
func decodeJSONBody(fr *frame.Frame) error {
	if ct, _ := fr.Headers.Get(frame.HeaderContentType); ct != frame.ContentTypeJSON {
		return nil
	}
	if len(fr.Body) == 0 {
		return nil
	}
	return json.Unmarshal(fr.Body, &fr.Data)
}

func (b *Broker) transportError(sess *session.Session, err error) {
	b.events.Emit(command.EventErrorKind, &command.TransportError{SessionID: sess.ID, Err: err})
}

func (b *Broker) protocolError(sess *session.Session, err error) {
	b.log.Warn("malformed frame", "session", sess.ID, "error", err)
	_ = sess.Send(errorFrame("Malformed frame: " + err.Error()))
	sess.Teardown()
}

// teardown runs once per session after Session.Teardown has released
// its own resources: it purges the registry and emits disconnected.
func (b *Broker) teardown(sess *session.Session) {
	b.registry.RemoveAll(sess.ID)

	b.mu.Lock()
	delete(b.sessions, sess.ID)
	b.mu.Unlock()

	b.events.Emit(command.EventDisconnected, sess.ID)
}

func (b *Broker) lookup(sessionID string) (*session.Session, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.sessions[sessionID]
	return s, ok
}

func errorFrame(message string) *frame.Frame {
	fr := frame.New(frame.CommandError)
	fr.Headers.Set(frame.HeaderMessage, message)
	return fr
}
