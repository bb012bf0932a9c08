package command

import (
	"strconv"

	"github.com/life-stream-dev/stomp-ws-broker/internal/frame"
	"github.com/life-stream-dev/stomp-ws-broker/internal/registry"
	"github.com/life-stream-dev/stomp-ws-broker/internal/session"
)

// Send is the terminal handler for SEND. It builds the
// outgoing MESSAGE frame and fans it out to every matching
// subscription other than the publisher's own.
func (d *Deps) Send(sess *session.Session, fr *frame.Frame) {
	dest, ok := fr.Headers.Get(frame.HeaderDestination)
	if !ok {
		reject(sess, "SEND requires a destination header", fr, false)
		return
	}

	out := frame.New(frame.CommandMessage)
	out.Headers.Set(frame.HeaderMessageID, d.NextID())
	out.Headers.Set(frame.HeaderContentType, "text/plain")
	fr.Headers.Each(func(key, value string) {
		if key == frame.HeaderContentLength {
			return // recomputed below, always reflects out.Body
		}
		out.Headers.Set(key, value)
	})
	out.Headers.Set(frame.HeaderDestination, dest)
	out.Body = fr.Body
	out.Headers.Set(frame.HeaderContentLength, strconv.Itoa(len(out.Body)))

	if d.Emit != nil {
		d.Emit(EventSend, SendEvent{Destination: dest, Frame: out})
	}

	for _, sub := range d.Registry.Match(dest) {
		if sub.SessionID == sess.ID {
			continue // publishers never receive their own message
		}
		d.deliver(sub, out)
	}
}

// deliver writes msg to sub's owner: a per-subscription cloned view
// with the subscription header set, either over the transport or, for
// the pseudo-session, via its registered callback.
func (d *Deps) deliver(sub *registry.Subscription, msg *frame.Frame) {
	view := msg.Clone()
	view.Headers.Set(frame.HeaderSubscription, sub.ID)

	if sub.Callback != nil {
		headers := make(map[string]string)
		view.Headers.Each(func(key, value string) { headers[key] = value })
		sub.Callback(view.Body, headers)
	} else {
		target, ok := d.Lookup(sub.SessionID)
		if !ok {
			return
		}
		if err := target.Send(view); err != nil && d.Emit != nil {
			d.Emit(EventErrorKind, &TransportError{SessionID: sub.SessionID, Err: err})
		}
	}

	if d.Emit != nil {
		d.Emit(DeliveryEvent(sub.ID), DeliverEvent{Subscription: sub, Frame: view})
	}
}
