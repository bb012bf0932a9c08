package command

import (
	"github.com/life-stream-dev/stomp-ws-broker/internal/frame"
	"github.com/life-stream-dev/stomp-ws-broker/internal/registry"
)

// Event names emitted to the host.
const (
	EventConnecting   = "connecting"
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
	EventSubscribe    = "subscribe"
	EventUnsubscribe  = "unsubscribe"
	EventSend         = "send"
	EventErrorKind    = "error"
)

// DeliveryEvent is the per-subscription event key for a successful
// fan-out delivery to sub.
func DeliveryEvent(subID string) string {
	return "deliver:" + subID
}

// ConnectedEvent is the payload for EventConnected.
type ConnectedEvent struct {
	SessionID string
	Headers   frame.Headers
}

// SendEvent is the payload for EventSend.
type SendEvent struct {
	Destination string
	Frame       *frame.Frame
}

// UnsubscribeEvent is the payload for EventUnsubscribe.
type UnsubscribeEvent struct {
	SessionID string
	ID        string
}

// DeliverEvent is the payload for a DeliveryEvent(sub.ID).
type DeliverEvent struct {
	Subscription *registry.Subscription
	Frame        *frame.Frame
}

// TransportError is the payload for EventErrorKind when a transport
// write or read fails. Hosts match it with errors.As.
type TransportError struct {
	SessionID string
	Err       error
}

func (e *TransportError) Error() string {
	return "transport error on session " + e.SessionID + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }
