// Package command implements the terminal handler for each STOMP
// command: CONNECT/STOMP, SEND, SUBSCRIBE, UNSUBSCRIBE,
// DISCONNECT. Each handler has the middleware.Terminal signature and is
// registered into a middleware.Registry by the broker façade, which
// also supplies the Deps every handler needs (the subscription
// registry, session lookup, id generation, and event emission).
package command

import (
	"github.com/life-stream-dev/stomp-ws-broker/internal/frame"
	"github.com/life-stream-dev/stomp-ws-broker/internal/heartbeat"
	"github.com/life-stream-dev/stomp-ws-broker/internal/registry"
	"github.com/life-stream-dev/stomp-ws-broker/internal/session"
)

// HeartbeatConfig is the broker's configured [sx, sy] pair plus the
// timeout slack margin, used to negotiate against a CONNECT frame's
// client heart-beat header.
type HeartbeatConfig struct {
	ServerSendMS   int
	ServerExpectMS int
	ErrorMarginMS  int
}

// Deps are the broker-owned collaborators every command handler needs.
// The broker constructs one Deps and binds each handler method as a
// middleware.Terminal.
type Deps struct {
	Registry   *registry.Registry
	ServerName string
	Heartbeat  HeartbeatConfig

	// NextID mints a fresh opaque id (session, subscription, message).
	NextID func() string

	// Emit publishes a broker event to the host.
	Emit func(event string, payload any)

	// ArmHeartbeat starts sess's negotiated heartbeat timers.
	ArmHeartbeat func(sess *session.Session, cfg heartbeat.Config)

	// Lookup resolves a subscription's owning session by id, for
	// fan-out delivery. The pseudo-session has no entry here; its
	// subscriptions carry a Callback instead.
	Lookup func(sessionID string) (*session.Session, bool)
}

// errorFrame builds an ERROR frame: a short reason in the
// message header and, when offending is non-nil, the offending frame
// serialized back as the body for debugging.
func errorFrame(message string, offending *frame.Frame) *frame.Frame {
	fr := frame.New(frame.CommandError)
	fr.Headers.Set(frame.HeaderMessage, message)
	if offending != nil {
		fr.Body = frame.Serialize(offending)
	}
	return fr
}

// reject sends an ERROR frame and optionally tears the session down.
func reject(sess *session.Session, message string, offending *frame.Frame, close bool) {
	_ = sess.Send(errorFrame(message, offending))
	if close {
		sess.Teardown()
	}
}
